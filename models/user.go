package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account that owns senders, sequences and recipients
type User struct {
	gorm.Model
	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"not null;uniqueIndex" json:"email"`
	Password string `gorm:"not null" json:"-"` // bcrypt hash

	IsActive      bool       `gorm:"default:true" json:"is_active"`
	EmailVerified bool       `gorm:"default:false" json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at"`

	// OAuth sign-in
	GoogleID string `json:"-"`

	// Relations
	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
	Senders       []Sender       `gorm:"foreignKey:UserID" json:"senders,omitempty"`
	Sequences     []Sequence     `gorm:"foreignKey:UserID" json:"sequences,omitempty"`
}

// RefreshToken stores issued refresh tokens so they can be revoked
type RefreshToken struct {
	gorm.Model
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Token     string     `gorm:"not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at"`

	UserAgent string `json:"user_agent"`
	IPAddress string `json:"ip_address"`
}
