package controller

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"cadence/config"
	"cadence/models"
	"cadence/utils"
)

type CreateSenderRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	FromEmail    string `json:"from_email" validate:"required,email"`
	FromName     string `json:"from_name" validate:"required,max=100"`
	ProviderType string `json:"provider_type" validate:"required,oneof=smtp gmail"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"smtp_password"`
	Encryption   string `json:"encryption"`

	DailyLimit int `json:"daily_limit" validate:"omitempty,gte=1"`
}

type UpdateSenderRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=100"`
	FromName     *string `json:"from_name" validate:"omitempty,max=100"`
	SMTPHost     *string `json:"smtp_host"`
	SMTPPort     *int    `json:"smtp_port"`
	SMTPUsername *string `json:"smtp_username"`
	SMTPPassword *string `json:"smtp_password"`
	Encryption   *string `json:"encryption"`
	DailyLimit   *int    `json:"daily_limit" validate:"omitempty,gte=1"`
}

func CreateSender(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateSenderRequest
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

	if req.ProviderType == "smtp" {
		if req.SMTPHost == "" || req.SMTPPort == 0 || req.SMTPUsername == "" || req.SMTPPassword == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "SMTP configuration is incomplete",
			})
		}
	}

	sender := models.Sender{
		UserID:       user.ID,
		Name:         req.Name,
		FromEmail:    req.FromEmail,
		FromName:     req.FromName,
		ProviderType: req.ProviderType,
		SMTPHost:     req.SMTPHost,
		SMTPPort:     req.SMTPPort,
		SMTPUsername: req.SMTPUsername,
		Encryption:   req.Encryption,
	}
	if req.DailyLimit > 0 {
		sender.DailyLimit = req.DailyLimit
	}

	if req.SMTPPassword != "" {
		encrypted, err := utils.Encrypt(req.SMTPPassword)
		if err != nil {
			logrus.WithError(err).Error("Failed to encrypt SMTP password")
			sentry.CaptureException(err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to secure credentials",
			})
		}
		sender.SMTPPassword = encrypted
	}

	if err := config.DB.Create(&sender).Error; err != nil {
		logrus.WithError(err).Error("Failed to create sender")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create sender",
		})
	}

	sender.Sanitize()
	return c.Status(fiber.StatusCreated).JSON(sender)
}

func GetSenders(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var senders []models.Sender
	if err := config.DB.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&senders).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch senders",
		})
	}

	for i := range senders {
		senders[i].Sanitize()
	}
	return c.JSON(senders)
}

func GetSender(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sender ID",
		})
	}

	var sender models.Sender
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&sender).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sender not found",
		})
	}

	sender.Sanitize()
	return c.JSON(sender)
}

func UpdateSender(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sender ID",
		})
	}

	var sender models.Sender
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&sender).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sender not found",
		})
	}

	var req UpdateSenderRequest
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

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.FromName != nil {
		updates["from_name"] = *req.FromName
	}
	if req.SMTPHost != nil {
		updates["smtp_host"] = *req.SMTPHost
	}
	if req.SMTPPort != nil {
		updates["smtp_port"] = *req.SMTPPort
	}
	if req.SMTPUsername != nil {
		updates["smtp_username"] = *req.SMTPUsername
	}
	if req.Encryption != nil {
		updates["encryption"] = *req.Encryption
	}
	if req.DailyLimit != nil {
		updates["daily_limit"] = *req.DailyLimit
	}
	if req.SMTPPassword != nil && *req.SMTPPassword != "" {
		encrypted, err := utils.Encrypt(*req.SMTPPassword)
		if err != nil {
			sentry.CaptureException(err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to secure credentials",
			})
		}
		updates["smtp_password"] = encrypted
		// Credentials changed, force a re-test
		updates["smtp_verified"] = false
	}

	if len(updates) > 0 {
		if err := config.DB.Model(&sender).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update sender",
			})
		}
	}

	sender.Sanitize()
	return c.JSON(sender)
}

func DeleteSender(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sender ID",
		})
	}

	var count int64
	config.DB.Model(&models.Sequence{}).
		Where("sender_id = ? AND user_id = ? AND status = ?", id, user.ID, models.SequenceStatusActive).
		Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Sender is used by an active sequence",
		})
	}

	result := config.DB.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.Sender{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete sender",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sender not found",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Sender deleted successfully",
	})
}

// TestSender opens a connection with the sender's credentials and records
// the result on the sender row.
func TestSender(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sender ID",
		})
	}

	var sender models.Sender
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&sender).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sender not found",
		})
	}

	mailer := utils.NewMailer(config.DB)
	now := time.Now()
	testErr := mailer.Verify(&sender)

	updates := map[string]interface{}{
		"last_tested_at": now,
		"smtp_verified":  testErr == nil,
	}
	if testErr != nil {
		updates["last_error"] = testErr.Error()
	} else {
		updates["last_error"] = nil
	}
	if err := config.DB.Model(&sender).Updates(updates).Error; err != nil {
		logrus.WithError(err).Error("Failed to record sender test result")
	}

	if testErr != nil {
		logrus.WithFields(logrus.Fields{
			"sender_id": sender.ID,
			"provider":  sender.ProviderType,
		}).WithError(testErr).Warn("Sender connection test failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"verified": false,
			"error":    testErr.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"verified":  true,
		"tested_at": now,
	})
}
