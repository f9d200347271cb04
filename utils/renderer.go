package utils

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"cadence/models"
)

// Renderer resolves the template configured for a sequence step and
// substitutes the recipient's placeholders into subject and body.
type Renderer struct {
	db *gorm.DB
}

func NewRenderer(db *gorm.DB) *Renderer {
	return &Renderer{db: db}
}

// Render returns the subject and body for the given step. A missing
// template is an error; the dispatcher reports it per email and moves on.
func (r *Renderer) Render(sequenceID uint, category string, followupNumber int, recipient *models.Recipient) (string, string, error) {
	var tpl models.EmailTemplate
	err := r.db.
		Where("sequence_id = ? AND category = ? AND followup_number = ?",
			sequenceID, category, followupNumber).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", fmt.Errorf("no template configured for %s #%d of sequence %d",
				category, followupNumber, sequenceID)
		}
		return "", "", err
	}

	return substitute(tpl.Subject, recipient), substitute(tpl.Body, recipient), nil
}

func substitute(template string, recipient *models.Recipient) string {
	out := template
	out = strings.ReplaceAll(out, "{first_name}", recipient.FirstName)
	out = strings.ReplaceAll(out, "{last_name}", recipient.LastName)
	out = strings.ReplaceAll(out, "{company}", recipient.Company)
	out = strings.ReplaceAll(out, "{position}", recipient.Position)
	out = strings.ReplaceAll(out, "{email}", recipient.Email)
	return out
}
