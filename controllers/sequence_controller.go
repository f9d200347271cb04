package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"cadence/config"
	"cadence/models"
	"cadence/scheduler"
	"cadence/utils"
)

type SequenceStepRequest struct {
	FollowupNumber int `json:"followup_number" validate:"required,gte=1"`
	WaitDays       int `json:"wait_days" validate:"gte=0"`
}

type CreateSequenceRequest struct {
	Name            string                `json:"name" validate:"required,max=200"`
	Description     string                `json:"description"`
	SenderID        uint                  `json:"sender_id" validate:"required"`
	RecipientListID uint                  `json:"recipient_list_id" validate:"required"`
	MaxEmailsPerDay int                   `json:"max_emails_per_day" validate:"omitempty,gte=1"`
	Steps           []SequenceStepRequest `json:"steps" validate:"required,min=1,dive"`
}

type UpdateSequenceRequest struct {
	Name            *string               `json:"name" validate:"omitempty,max=200"`
	Description     *string               `json:"description"`
	SenderID        *uint                 `json:"sender_id"`
	MaxEmailsPerDay *int                  `json:"max_emails_per_day" validate:"omitempty,gte=1"`
	Steps           []SequenceStepRequest `json:"steps" validate:"omitempty,min=1,dive"`
}

// buildPlan validates the step list as a whole interval plan before any
// row is written.
func buildPlan(steps []SequenceStepRequest) error {
	periods := make([]scheduler.WaitPeriod, 0, len(steps))
	for _, s := range steps {
		periods = append(periods, scheduler.WaitPeriod{
			FollowupNumber: s.FollowupNumber,
			Days:           s.WaitDays,
		})
	}
	_, err := scheduler.NewIntervalPlan(periods)
	return err
}

func CreateSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateSequenceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := buildPlan(req.Steps); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid interval plan: " + err.Error(),
		})
	}

	var sender models.Sender
	if err := config.DB.Where("id = ? AND user_id = ?", req.SenderID, user.ID).First(&sender).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Sender not found",
		})
	}

	var list models.RecipientList
	if err := config.DB.Where("id = ? AND user_id = ?", req.RecipientListID, user.ID).First(&list).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Recipient list not found",
		})
	}

	sequence := models.Sequence{
		UserID:          user.ID,
		SenderID:        req.SenderID,
		RecipientListID: req.RecipientListID,
		Name:            req.Name,
		Description:     req.Description,
		Status:          models.SequenceStatusDraft,
	}
	if req.MaxEmailsPerDay > 0 {
		sequence.MaxEmailsPerDay = req.MaxEmailsPerDay
	}
	for _, s := range req.Steps {
		sequence.Steps = append(sequence.Steps, models.SequenceStep{
			FollowupNumber: s.FollowupNumber,
			WaitDays:       s.WaitDays,
		})
	}

	if err := config.DB.Create(&sequence).Error; err != nil {
		logrus.WithError(err).Error("Failed to create sequence")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create sequence",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(sequence)
}

func GetSequences(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var sequences []models.Sequence
	if err := config.DB.Where("user_id = ?", user.ID).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("followup_number ASC")
		}).
		Order("created_at DESC").
		Find(&sequences).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch sequences",
		})
	}

	return c.JSON(sequences)
}

func GetSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence ID",
		})
	}

	var sequence models.Sequence
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("followup_number ASC")
		}).
		Preload("Templates").
		First(&sequence).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	return c.JSON(sequence)
}

func UpdateSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence ID",
		})
	}

	var sequence models.Sequence
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&sequence).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	var req UpdateSequenceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if req.Steps != nil {
		if sequence.Status == models.SequenceStatusActive {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Cannot change steps of an active sequence",
			})
		}
		if err := buildPlan(req.Steps); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid interval plan: " + err.Error(),
			})
		}
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.SenderID != nil {
			var sender models.Sender
			if err := tx.Where("id = ? AND user_id = ?", *req.SenderID, user.ID).First(&sender).Error; err != nil {
				return err
			}
			updates["sender_id"] = *req.SenderID
		}
		if req.MaxEmailsPerDay != nil {
			updates["max_emails_per_day"] = *req.MaxEmailsPerDay
		}
		if len(updates) > 0 {
			if err := tx.Model(&sequence).Updates(updates).Error; err != nil {
				return err
			}
		}

		if req.Steps != nil {
			if err := tx.Where("sequence_id = ?", sequence.ID).Delete(&models.SequenceStep{}).Error; err != nil {
				return err
			}
			for _, s := range req.Steps {
				step := models.SequenceStep{
					SequenceID:     sequence.ID,
					FollowupNumber: s.FollowupNumber,
					WaitDays:       s.WaitDays,
				}
				if err := tx.Create(&step).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to update sequence")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update sequence",
		})
	}

	config.DB.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("followup_number ASC")
	}).First(&sequence, sequence.ID)
	return c.JSON(sequence)
}

func DeleteSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence ID",
		})
	}

	var sequence models.Sequence
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&sequence).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}
	if sequence.Status == models.SequenceStatusActive {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Pause the sequence before deleting it",
		})
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sequence_id = ?", sequence.ID).Delete(&models.SequenceStep{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sequence_id = ?", sequence.ID).Delete(&models.EmailTemplate{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sequence_id = ? AND status = ?", sequence.ID, models.EmailStatusPending).
			Model(&models.ScheduledEmail{}).
			Update("status", models.EmailStatusCancelled).Error; err != nil {
			return err
		}
		return tx.Delete(&sequence).Error
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to delete sequence")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete sequence",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Sequence deleted successfully",
	})
}

// ActivateSequence moves a sequence into the active state after checking
// it has everything the workers need.
func ActivateSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence ID",
		})
	}

	var sequence models.Sequence
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).
		Preload("Steps").Preload("Templates").
		First(&sequence).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	if len(sequence.Steps) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Sequence has no steps",
		})
	}
	hasInitial := false
	for _, t := range sequence.Templates {
		if t.Category == models.EmailCategoryInitial {
			hasInitial = true
			break
		}
	}
	if !hasInitial {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Sequence has no initial email template",
		})
	}

	var sender models.Sender
	if err := config.DB.First(&sender, sequence.SenderID).Error; err != nil || !sender.SMTPVerified {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Sender is not verified",
		})
	}

	if err := config.DB.Model(&sequence).Update("status", models.SequenceStatusActive).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to activate sequence",
		})
	}

	logrus.WithFields(logrus.Fields{
		"sequence_id": sequence.ID,
		"user_id":     user.ID,
	}).Info("Sequence activated")

	sequence.Status = models.SequenceStatusActive
	return c.JSON(sequence)
}

func PauseSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence ID",
		})
	}

	var sequence models.Sequence
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&sequence).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}
	if sequence.Status != models.SequenceStatusActive {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Sequence is not active",
		})
	}

	if err := config.DB.Model(&sequence).Update("status", models.SequenceStatusPaused).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to pause sequence",
		})
	}

	sequence.Status = models.SequenceStatusPaused
	return c.JSON(sequence)
}
