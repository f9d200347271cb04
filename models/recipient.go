package models

import (
	"time"

	"gorm.io/gorm"
)

// RecipientList represents a list of outreach contacts
type RecipientList struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Source      string `json:"source"` // manual, csv, api

	// Statistics
	RecipientCount int `gorm:"default:0" json:"recipient_count"`
	BouncedCount   int `gorm:"default:0" json:"bounced_count"`

	// Relations
	Recipients []Recipient `gorm:"foreignKey:RecipientListID" json:"recipients,omitempty"`
}

// Recipient represents a single outreach contact
type Recipient struct {
	gorm.Model
	RecipientListID uint `gorm:"not null;index" json:"recipient_list_id"`
	UserID          uint `gorm:"index" json:"user_id"`

	Email     string `gorm:"not null;index" json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Position  string `json:"position"`

	// When the sequence should open for this recipient. Scheduling is a
	// validation failure until this is set.
	InitialContactAt *time.Time `json:"initial_contact_at"`

	// Status
	IsUnsubscribed bool `gorm:"default:false" json:"is_unsubscribed"`
	IsBounced      bool `gorm:"default:false" json:"is_bounced"`
	IsDoNotContact bool `gorm:"default:false" json:"is_do_not_contact"`

	// Metadata
	Source        string     `json:"source"`
	LastContactAt *time.Time `json:"last_contact_at"`

	// Relations
	RecipientList RecipientList `gorm:"foreignKey:RecipientListID" json:"-"`
}

// Contactable reports whether the recipient may still receive emails
func (r *Recipient) Contactable() bool {
	return !r.IsUnsubscribed && !r.IsBounced && !r.IsDoNotContact
}
