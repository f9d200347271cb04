package models

import "gorm.io/gorm"

const (
	SequenceStatusDraft  = "draft"
	SequenceStatusActive = "active"
	SequenceStatusPaused = "paused"
)

// Sequence represents an automated outreach sequence: one initial email
// plus a bounded chain of follow-ups
type Sequence struct {
	gorm.Model
	UserID          uint `gorm:"not null;index" json:"user_id"`
	SenderID        uint `gorm:"not null;index" json:"sender_id"`
	RecipientListID uint `gorm:"not null;index" json:"recipient_list_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Status      string `gorm:"default:'draft'" json:"status"` // draft, active, paused

	// Settings
	MaxEmailsPerDay int `gorm:"default:100" json:"max_emails_per_day"`

	// Relations
	Steps     []SequenceStep  `gorm:"foreignKey:SequenceID" json:"steps,omitempty"`
	Templates []EmailTemplate `gorm:"foreignKey:SequenceID" json:"templates,omitempty"`
}

// SequenceStep is one entry of a sequence's interval plan: the wait in
// days before the given follow-up number fires
type SequenceStep struct {
	gorm.Model
	SequenceID uint `gorm:"not null;index" json:"sequence_id"`

	FollowupNumber int `gorm:"not null" json:"followup_number"`
	WaitDays       int `gorm:"not null" json:"wait_days"`

	// Tracking
	SentCount int `gorm:"default:0" json:"sent_count"`
}

// IsActive reports whether the sequence should be picked up by the
// scheduling worker
func (s *Sequence) IsActive() bool {
	return s.Status == SequenceStatusActive
}
