package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"cadence/models"
	"cadence/scheduler"
	"cadence/store"
	"cadence/utils"
)

// ScheduleController exposes the scheduling engine over HTTP: a synchronous
// run for one sequence plus read access to the emails and stats it produced.
// The background worker covers the periodic case; this covers "run it now".
type ScheduleController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewScheduleController(db *gorm.DB, logger *log.Logger) *ScheduleController {
	return &ScheduleController{DB: db, Logger: logger}
}

// RunSchedule executes one scheduling pass for the sequence and persists the
// produced emails. Recipients that fail classification are skipped, not
// fatal.
func (sc *ScheduleController) RunSchedule(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence ID",
		})
	}

	var sequence models.Sequence
	if err := sc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&sequence).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}
	if sequence.Status == models.SequenceStatusDraft {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Activate the sequence before scheduling",
		})
	}

	var rows []models.Recipient
	if err := sc.DB.Where("recipient_list_id = ?", sequence.RecipientListID).Find(&rows).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch recipients",
		})
	}

	recipients := make([]scheduler.Recipient, 0, len(rows))
	for _, r := range rows {
		if !r.Contactable() {
			continue
		}
		recipients = append(recipients, scheduler.Recipient{
			ID:               r.ID,
			Email:            r.Email,
			InitialContactAt: r.InitialContactAt,
		})
	}

	runner := scheduler.NewRunner(
		store.NewHistoryStore(sc.DB, sequence.ID),
		store.NewPlanStore(sc.DB, sequence.ID),
		sc.Logger,
	)

	result, err := runner.ScheduleBatch(recipients)
	if err != nil {
		sc.Logger.Printf("Scheduling pass failed for sequence %d: %v", sequence.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Scheduling failed: " + err.Error(),
		})
	}

	saved, err := store.NewEmailStore(sc.DB).SaveResult(&sequence, result)
	if err != nil {
		sc.Logger.Printf("Failed to persist scheduling result for sequence %d: %v", sequence.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to persist scheduled emails",
		})
	}

	return c.JSON(fiber.Map{
		"sequence_id":     sequence.ID,
		"recipients":      len(recipients),
		"initial_emails":  len(result.InitialEmails),
		"followup_emails": len(result.FollowupEmails),
		"skipped":         result.Skipped,
		"saved":           saved,
	})
}

// GetScheduledEmails lists the emails of a sequence, optionally filtered by
// status.
func (sc *ScheduleController) GetScheduledEmails(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence ID",
		})
	}

	var sequence models.Sequence
	if err := sc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&sequence).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	query := sc.DB.Where("sequence_id = ?", sequence.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var emails []models.ScheduledEmail
	if err := query.Order("scheduled_at ASC").Limit(500).Find(&emails).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch scheduled emails",
		})
	}
	return c.JSON(emails)
}

// GetSequenceStats returns email counts grouped by status and category.
func (sc *ScheduleController) GetSequenceStats(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence ID",
		})
	}

	var sequence models.Sequence
	if err := sc.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&sequence).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var byStatus []statusCount
	if err := sc.DB.Model(&models.ScheduledEmail{}).
		Select("status, COUNT(*) as count").
		Where("sequence_id = ?", sequence.ID).
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute stats",
		})
	}

	stats := map[string]int64{
		models.EmailStatusPending:   0,
		models.EmailStatusSent:      0,
		models.EmailStatusFailed:    0,
		models.EmailStatusCancelled: 0,
	}
	var total int64
	for _, row := range byStatus {
		stats[row.Status] = row.Count
		total += row.Count
	}

	var initialCount, followupCount int64
	sc.DB.Model(&models.ScheduledEmail{}).
		Where("sequence_id = ? AND category = ?", sequence.ID, models.EmailCategoryInitial).
		Count(&initialCount)
	sc.DB.Model(&models.ScheduledEmail{}).
		Where("sequence_id = ? AND category = ?", sequence.ID, models.EmailCategoryFollowUp).
		Count(&followupCount)

	return c.JSON(fiber.Map{
		"sequence_id": sequence.ID,
		"total":       total,
		"by_status":   stats,
		"initial":     initialCount,
		"follow_up":   followupCount,
	})
}
