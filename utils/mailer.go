package utils

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"

	"cadence/config"
	"cadence/models"
)

// Mailer transmits rendered sequence emails through a sender's SMTP or
// Gmail credentials.
type Mailer struct {
	db *gorm.DB
}

func NewMailer(db *gorm.DB) *Mailer {
	return &Mailer{db: db}
}

// Send delivers one email through the given sender and returns the message
// id. When threadID is set it is applied as In-Reply-To/References so the
// receiving provider keeps the conversation in one thread.
func (m *Mailer) Send(sender *models.Sender, to, subject, body, threadID string) (string, error) {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", sender.FromEmail, sender.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), domainOf(sender.FromEmail))
	msg.SetHeader("Message-ID", messageID)
	if threadID != "" {
		msg.SetHeader("In-Reply-To", threadID)
		msg.SetHeader("References", threadID)
	}
	msg.SetBody("text/html", body)

	dialer, err := m.dialerFor(sender)
	if err != nil {
		return "", err
	}
	if err := dialer.DialAndSend(msg); err != nil {
		return "", fmt.Errorf("failed to send via %s: %w", sender.FromEmail, err)
	}
	return messageID, nil
}

// Verify opens and closes a connection with the sender's credentials
// without sending anything.
func (m *Mailer) Verify(sender *models.Sender) error {
	dialer, err := m.dialerFor(sender)
	if err != nil {
		return err
	}
	closer, err := dialer.Dial()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return closer.Close()
}

func (m *Mailer) dialerFor(sender *models.Sender) (*gomail.Dialer, error) {
	switch sender.ProviderType {
	case "gmail":
		token, err := m.gmailAccessToken(sender)
		if err != nil {
			return nil, err
		}
		dialer := gomail.NewDialer("smtp.gmail.com", 587, sender.FromEmail, "")
		dialer.Auth = &xoauth2Auth{username: sender.FromEmail, token: token}
		return dialer, nil

	default:
		password, err := Decrypt(sender.SMTPPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt SMTP password: %w", err)
		}
		dialer := gomail.NewDialer(sender.SMTPHost, sender.SMTPPort, sender.SMTPUsername, password)
		switch sender.Encryption {
		case "SSL":
			dialer.SSL = true
		case "TLS", "STARTTLS":
			dialer.TLSConfig = &tls.Config{ServerName: sender.SMTPHost}
		}
		return dialer, nil
	}
}

// gmailAccessToken returns a live OAuth access token for the sender,
// refreshing and re-persisting it when the stored one has expired.
func (m *Mailer) gmailAccessToken(sender *models.Sender) (string, error) {
	accessToken, err := Decrypt(sender.OAuthToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt OAuth token: %w", err)
	}
	refreshToken, err := Decrypt(sender.OAuthRefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt OAuth refresh token: %w", err)
	}

	stored := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiry:       sender.OAuthExpiry,
	}
	if stored.Valid() {
		return stored.AccessToken, nil
	}

	conf := config.GoogleOAuthConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fresh, err := conf.TokenSource(ctx, stored).Token()
	if err != nil {
		return "", fmt.Errorf("failed to refresh Gmail token: %w", err)
	}

	encrypted, err := Encrypt(fresh.AccessToken)
	if err != nil {
		return "", err
	}
	if err := m.db.Model(sender).Updates(map[string]interface{}{
		"oauth_token":  encrypted,
		"oauth_expiry": fresh.Expiry,
	}).Error; err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

// xoauth2Auth implements the XOAUTH2 SASL mechanism Gmail's SMTP endpoint
// expects for OAuth-authenticated sends.
type xoauth2Auth struct {
	username string
	token    string
}

func (a *xoauth2Auth) Start(_ *smtp.ServerInfo) (string, []byte, error) {
	resp := []byte("user=" + a.username + "\x01auth=Bearer " + a.token + "\x01\x01")
	return "XOAUTH2", resp, nil
}

func (a *xoauth2Auth) Next(_ []byte, more bool) ([]byte, error) {
	if more {
		return []byte{}, nil
	}
	return nil, nil
}

func domainOf(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return email[at+1:]
	}
	return "localhost"
}
