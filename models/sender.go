package models

import (
	"time"

	"gorm.io/gorm"
)

// Sender represents email sending credentials
type Sender struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	// Basic identification
	Name      string `gorm:"not null" json:"name"`
	FromEmail string `gorm:"not null" json:"from_email"`
	FromName  string `gorm:"not null" json:"from_name"`

	// Connection Type
	ProviderType string `gorm:"not null" json:"provider_type"` // smtp, gmail

	// ========= SMTP Configuration =========
	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"-"`          // Encrypted in application layer
	Encryption   string `json:"encryption"` // SSL, TLS, STARTTLS

	// ========= OAuth Configuration (gmail provider) =========
	OAuthProvider     string    `gorm:"column:oauth_provider" json:"oauth_provider"`
	OAuthToken        string    `gorm:"column:oauth_token" json:"-"`         // Encrypted
	OAuthRefreshToken string    `gorm:"column:oauth_refresh_token" json:"-"` // Encrypted
	OAuthExpiry       time.Time `gorm:"column:oauth_expiry" json:"oauth_expiry"`

	// ========= Status & Verification =========
	SMTPVerified bool       `json:"smtp_verified" gorm:"default:false"`
	LastTestedAt *time.Time `json:"last_tested_at"`
	LastError    *string    `json:"last_error"`

	// ========= Usage Metrics =========
	DailyLimit int `gorm:"default:500" json:"daily_limit"`
	SentToday  int `gorm:"default:0" json:"sent_today"`
	TotalSent  int `gorm:"default:0" json:"total_sent"`
}

// Sanitize blanks credential fields before a sender leaves the API
func (s *Sender) Sanitize() {
	s.SMTPPassword = ""
	s.OAuthToken = ""
	s.OAuthRefreshToken = ""
}

// CanSendToday reports whether the sender still has daily quota left
func (s *Sender) CanSendToday() bool {
	return s.SentToday < s.DailyLimit
}
