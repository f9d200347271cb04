package store

import (
	"gorm.io/gorm"

	"cadence/models"
	"cadence/scheduler"
)

// EmailStore persists decisions coming out of the scheduling engine.
type EmailStore struct {
	DB *gorm.DB
}

func NewEmailStore(db *gorm.DB) *EmailStore {
	return &EmailStore{DB: db}
}

// SaveResult writes all emails of a scheduling pass in one transaction.
// Initials go first so the follow-ups created alongside them can reference
// the freshly assigned initial id; follow-ups for existing recipients
// already carry their reference from the history snapshot.
func (es *EmailStore) SaveResult(sequence *models.Sequence, result scheduler.SchedulingResult) (int, error) {
	if result.Total() == 0 {
		return 0, nil
	}

	saved := 0
	err := es.DB.Transaction(func(tx *gorm.DB) error {
		initialIDs := make(map[uint]uint, len(result.InitialEmails))

		for _, email := range result.InitialEmails {
			row := models.ScheduledEmail{
				SequenceID:  sequence.ID,
				RecipientID: email.RecipientID,
				SenderID:    sequence.SenderID,
				Category:    models.EmailCategoryInitial,
				Status:      models.EmailStatusPending,
				ScheduledAt: email.ScheduledAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			initialIDs[email.RecipientID] = row.ID
			saved++
		}

		for _, email := range result.FollowupEmails {
			ref := email.InitialEmailID
			if ref == nil {
				if id, ok := initialIDs[email.RecipientID]; ok {
					ref = &id
				}
			}
			row := models.ScheduledEmail{
				SequenceID:     sequence.ID,
				RecipientID:    email.RecipientID,
				SenderID:       sequence.SenderID,
				Category:       models.EmailCategoryFollowUp,
				FollowupNumber: email.FollowupNumber,
				Status:         models.EmailStatusPending,
				ThreadID:       email.ThreadID,
				InitialEmailID: ref,
				ScheduledAt:    email.ScheduledAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}
