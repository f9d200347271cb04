package models

import (
	"time"

	"gorm.io/gorm"
)

// Email categories
const (
	EmailCategoryInitial  = "initial"
	EmailCategoryFollowUp = "follow_up"
)

// Email statuses
const (
	EmailStatusPending   = "pending"
	EmailStatusSent      = "sent"
	EmailStatusFailed    = "failed"
	EmailStatusCancelled = "cancelled"
)

// ScheduledEmail is one planned or transmitted email of a recipient's
// sequence. Rows are created pending by the scheduler and flipped to sent
// or failed by the dispatch worker.
type ScheduledEmail struct {
	gorm.Model
	SequenceID  uint `gorm:"not null;index" json:"sequence_id"`
	RecipientID uint `gorm:"not null;index" json:"recipient_id"`
	SenderID    uint `gorm:"index" json:"sender_id"`

	Category       string `gorm:"not null" json:"category"`         // initial, follow_up
	FollowupNumber int    `gorm:"default:0" json:"followup_number"` // 0 for the initial email
	Status         string `gorm:"default:'pending';index" json:"status"`

	// Thread linkage. ThreadID is assigned when the initial email goes out
	// and propagated to the remaining follow-ups of the same recipient.
	ThreadID       string `gorm:"index" json:"thread_id"`
	InitialEmailID *uint  `gorm:"index" json:"initial_email_id"`

	ScheduledAt time.Time  `gorm:"not null;index" json:"scheduled_at"`
	SentAt      *time.Time `json:"sent_at"`
	MessageID   string     `json:"message_id"`

	// Content, rendered at dispatch time
	Subject string `json:"subject"`
	Body    string `gorm:"type:text" json:"body"`

	LastError string `json:"last_error,omitempty"`

	// Relations
	Recipient Recipient `gorm:"foreignKey:RecipientID" json:"-"`
	Sequence  Sequence  `gorm:"foreignKey:SequenceID" json:"-"`
}

// EmailTemplate holds the subject and body used for one step of a
// sequence. Placeholders like {first_name} are substituted at dispatch.
type EmailTemplate struct {
	gorm.Model
	UserID     uint `gorm:"not null;index" json:"user_id"`
	SequenceID uint `gorm:"not null;index" json:"sequence_id"`

	Category       string `gorm:"not null" json:"category"`
	FollowupNumber int    `gorm:"default:0" json:"followup_number"`

	Subject string `gorm:"not null" json:"subject"`
	Body    string `gorm:"type:text" json:"body"`
}
