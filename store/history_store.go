package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cadence/models"
	"cadence/scheduler"
)

// HistoryStore answers the scheduler's history questions for one sequence
// from the scheduled_emails table. It implements scheduler.HistoryProvider.
type HistoryStore struct {
	DB         *gorm.DB
	SequenceID uint
}

func NewHistoryStore(db *gorm.DB, sequenceID uint) *HistoryStore {
	return &HistoryStore{DB: db, SequenceID: sequenceID}
}

// GetHistory returns the recipient's recorded emails for this sequence,
// ordered by creation.
func (hs *HistoryStore) GetHistory(recipientID uint) (scheduler.History, error) {
	var recipient models.Recipient
	if err := hs.DB.First(&recipient, recipientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, scheduler.ErrRecipientNotFound
		}
		return nil, err
	}

	var rows []models.ScheduledEmail
	if err := hs.DB.
		Where("sequence_id = ? AND recipient_id = ?", hs.SequenceID, recipientID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	history := make(scheduler.History, 0, len(rows))
	for _, row := range rows {
		history = append(history, scheduler.EmailRecord{
			ID:             row.ID,
			Category:       scheduler.EmailCategory(row.Category),
			FollowupNumber: row.FollowupNumber,
			Status:         scheduler.EmailStatus(row.Status),
			ThreadID:       row.ThreadID,
			InitialEmailID: row.InitialEmailID,
			ScheduledAt:    row.ScheduledAt,
		})
	}
	return history, nil
}

// GetCurrentFollowupNumber returns the highest follow-up number already
// recorded for the recipient, counting only pending and sent rows.
func (hs *HistoryStore) GetCurrentFollowupNumber(recipientID uint) (int, error) {
	var highest int
	err := hs.DB.Model(&models.ScheduledEmail{}).
		Where("sequence_id = ? AND recipient_id = ? AND category = ? AND status IN ?",
			hs.SequenceID, recipientID, models.EmailCategoryFollowUp,
			[]string{models.EmailStatusPending, models.EmailStatusSent}).
		Select("COALESCE(MAX(followup_number), 0)").
		Scan(&highest).Error
	if err != nil {
		return 0, err
	}
	return highest, nil
}

// GetLastEmailDate returns the scheduled date of the recipient's most
// recent pending or sent email.
func (hs *HistoryStore) GetLastEmailDate(recipientID uint) (time.Time, error) {
	var last *time.Time
	err := hs.DB.Model(&models.ScheduledEmail{}).
		Where("sequence_id = ? AND recipient_id = ? AND status IN ?",
			hs.SequenceID, recipientID,
			[]string{models.EmailStatusPending, models.EmailStatusSent}).
		Select("MAX(scheduled_at)").
		Scan(&last).Error
	if err != nil {
		return time.Time{}, err
	}
	if last == nil {
		return time.Time{}, fmt.Errorf("recipient %d: %w", recipientID, scheduler.ErrRecipientNotFound)
	}
	return *last, nil
}
