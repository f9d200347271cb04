package worker

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"cadence/config"
	"cadence/models"
	"cadence/utils"
)

// DispatchWorker picks up due pending emails, renders them and sends them
// through the owning sequence's sender.
type DispatchWorker struct {
	DB       *gorm.DB
	Mailer   *utils.Mailer
	Renderer *utils.Renderer
	Logger   *logrus.Logger
}

func NewDispatchWorker(db *gorm.DB, mailer *utils.Mailer, renderer *utils.Renderer, logger *logrus.Logger) *DispatchWorker {
	return &DispatchWorker{
		DB:       db,
		Mailer:   mailer,
		Renderer: renderer,
		Logger:   logger,
	}
}

func (dw *DispatchWorker) Start(ctx context.Context) {
	time.Sleep(10 * time.Second)

	dw.Logger.Info("Dispatch worker started")

	interval := time.Duration(config.AppConfig.DispatchIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dw.Logger.Info("Dispatch worker shutting down...")
			return
		case <-ticker.C:
			dw.resetDailyCounters()
			dw.processDueEmails()
		}
	}
}

// resetDailyCounters zeroes sender quotas on the first run of a new day.
func (dw *DispatchWorker) resetDailyCounters() {
	err := dw.DB.Model(&models.Sender{}).
		Where("sent_today > 0 AND updated_at < CURRENT_DATE").
		Update("sent_today", 0).Error
	if err != nil {
		dw.Logger.WithError(err).Warn("Failed to reset sender daily counters")
	}
}

func (dw *DispatchWorker) processDueEmails() {
	var due []models.ScheduledEmail
	err := dw.DB.
		Joins("JOIN sequences ON sequences.id = scheduled_emails.sequence_id").
		Where("scheduled_emails.status = ? AND scheduled_emails.scheduled_at <= ? AND sequences.status = ?",
			models.EmailStatusPending, time.Now(), models.SequenceStatusActive).
		Order("scheduled_emails.scheduled_at ASC").
		Limit(config.AppConfig.DispatchBatchSize).
		Preload("Recipient").
		Find(&due).Error
	if err != nil {
		dw.Logger.WithError(err).Error("Failed to fetch due emails")
		return
	}

	for i := range due {
		if err := dw.dispatch(&due[i]); err != nil {
			dw.Logger.WithFields(logrus.Fields{
				"email_id":     due[i].ID,
				"recipient_id": due[i].RecipientID,
			}).WithError(err).Warn("Failed to dispatch email")
		}
	}
}

func (dw *DispatchWorker) dispatch(email *models.ScheduledEmail) error {
	recipient := email.Recipient
	if !recipient.Contactable() {
		return dw.DB.Model(email).Update("status", models.EmailStatusCancelled).Error
	}

	var sender models.Sender
	if err := dw.DB.First(&sender, email.SenderID).Error; err != nil {
		return dw.markFailed(email, err)
	}
	if !sender.CanSendToday() {
		// Quota exhausted; the email stays pending for the next day.
		return nil
	}

	subject, body, err := dw.Renderer.Render(email.SequenceID, email.Category, email.FollowupNumber, &recipient)
	if err != nil {
		return dw.markFailed(email, err)
	}

	messageID, err := dw.Mailer.Send(&sender, recipient.Email, subject, body, email.ThreadID)
	if err != nil {
		sentry.CaptureException(err)
		return dw.markFailed(email, err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     models.EmailStatusSent,
		"sent_at":    now,
		"message_id": messageID,
		"subject":    subject,
		"body":       body,
		"last_error": "",
	}
	// The initial email opens the conversation thread.
	if email.Category == models.EmailCategoryInitial {
		updates["thread_id"] = messageID
	}
	if err := dw.DB.Model(email).Updates(updates).Error; err != nil {
		return err
	}

	if email.Category == models.EmailCategoryInitial {
		// Carry the thread onto follow-ups that were booked before the
		// initial went out.
		if err := dw.DB.Model(&models.ScheduledEmail{}).
			Where("sequence_id = ? AND recipient_id = ? AND status = ?",
				email.SequenceID, email.RecipientID, models.EmailStatusPending).
			Update("thread_id", messageID).Error; err != nil {
			dw.Logger.WithError(err).Warn("Failed to propagate thread id")
		}
	}

	if err := dw.DB.Model(&sender).Updates(map[string]interface{}{
		"sent_today": gorm.Expr("sent_today + ?", 1),
		"total_sent": gorm.Expr("total_sent + ?", 1),
	}).Error; err != nil {
		dw.Logger.WithError(err).Warn("Failed to update sender counters")
	}

	if email.Category == models.EmailCategoryFollowUp {
		if err := dw.DB.Model(&models.SequenceStep{}).
			Where("sequence_id = ? AND followup_number = ?", email.SequenceID, email.FollowupNumber).
			Update("sent_count", gorm.Expr("sent_count + ?", 1)).Error; err != nil {
			dw.Logger.WithError(err).Warn("Failed to update step counters")
		}
	}

	if err := dw.DB.Model(&models.Recipient{}).
		Where("id = ?", email.RecipientID).
		Update("last_contact_at", now).Error; err != nil {
		dw.Logger.WithError(err).Warn("Failed to update recipient last contact")
	}

	dw.Logger.WithFields(logrus.Fields{
		"email_id":  email.ID,
		"recipient": recipient.Email,
		"category":  email.Category,
		"followup":  email.FollowupNumber,
	}).Info("Email dispatched")
	return nil
}

func (dw *DispatchWorker) markFailed(email *models.ScheduledEmail, cause error) error {
	updates := map[string]interface{}{
		"status":     models.EmailStatusFailed,
		"last_error": cause.Error(),
	}
	if err := dw.DB.Model(email).Updates(updates).Error; err != nil {
		return err
	}
	return cause
}
