package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"cadence/config"
	"cadence/models"
	"cadence/scheduler"
	"cadence/store"
)

// SchedulerWorker periodically runs the scheduling engine over every
// active sequence and persists the emails it decides to create.
type SchedulerWorker struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewSchedulerWorker(db *gorm.DB, logger *log.Logger) *SchedulerWorker {
	return &SchedulerWorker{
		DB:     db,
		Logger: logger,
	}
}

func (sw *SchedulerWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	sw.Logger.Println("Scheduler worker started")

	interval := time.Duration(config.AppConfig.SchedulerIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.Logger.Println("Scheduler worker shutting down...")
			return
		case <-ticker.C:
			sw.processActiveSequences()
		}
	}
}

func (sw *SchedulerWorker) processActiveSequences() {
	var sequences []models.Sequence
	if err := sw.DB.Where("status = ?", models.SequenceStatusActive).Find(&sequences).Error; err != nil {
		sw.Logger.Printf("Error fetching active sequences: %v", err)
		return
	}

	for _, sequence := range sequences {
		if err := sw.processSequence(sequence); err != nil {
			sw.Logger.Printf("Error scheduling sequence %d: %v", sequence.ID, err)
		}
	}
}

func (sw *SchedulerWorker) processSequence(sequence models.Sequence) error {
	var recipients []models.Recipient
	if err := sw.DB.
		Where("recipient_list_id = ? AND is_unsubscribed = false AND is_bounced = false AND is_do_not_contact = false",
			sequence.RecipientListID).
		Find(&recipients).Error; err != nil {
		return fmt.Errorf("failed to fetch recipients: %w", err)
	}
	if len(recipients) == 0 {
		return nil
	}

	runner := scheduler.NewRunner(
		store.NewHistoryStore(sw.DB, sequence.ID),
		store.NewPlanStore(sw.DB, sequence.ID),
		sw.Logger,
	)

	batch := make([]scheduler.Recipient, 0, len(recipients))
	for _, recipient := range recipients {
		batch = append(batch, scheduler.Recipient{
			ID:               recipient.ID,
			Email:            recipient.Email,
			InitialContactAt: recipient.InitialContactAt,
		})
	}

	result, err := runner.ScheduleBatch(batch)
	if err != nil {
		return err
	}

	saved, err := store.NewEmailStore(sw.DB).SaveResult(&sequence, result)
	if err != nil {
		return fmt.Errorf("failed to persist scheduled emails: %w", err)
	}
	if saved > 0 || result.Skipped > 0 {
		sw.Logger.Printf("Sequence %d: scheduled %d emails (%d initial, %d follow-up), %d recipients skipped",
			sequence.ID, saved, len(result.InitialEmails), len(result.FollowupEmails), result.Skipped)
	}
	return nil
}
