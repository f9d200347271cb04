package controller

import (
	"time"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"cadence/config"
	"cadence/models"
	"cadence/utils"
)

type CreateRecipientListRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
}

type CreateRecipientRequest struct {
	Email            string     `json:"email" validate:"required,email"`
	FirstName        string     `json:"first_name" validate:"max=100"`
	LastName         string     `json:"last_name" validate:"max=100"`
	Company          string     `json:"company" validate:"max=200"`
	Position         string     `json:"position" validate:"max=200"`
	InitialContactAt *time.Time `json:"initial_contact_at"`
}

type UpdateRecipientRequest struct {
	FirstName        *string    `json:"first_name" validate:"omitempty,max=100"`
	LastName         *string    `json:"last_name" validate:"omitempty,max=100"`
	Company          *string    `json:"company" validate:"omitempty,max=200"`
	Position         *string    `json:"position" validate:"omitempty,max=200"`
	InitialContactAt *time.Time `json:"initial_contact_at"`
	IsUnsubscribed   *bool      `json:"is_unsubscribed"`
	IsDoNotContact   *bool      `json:"is_do_not_contact"`
}

func CreateRecipientList(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateRecipientListRequest
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

	list := models.RecipientList{
		UserID:      user.ID,
		Name:        req.Name,
		Description: req.Description,
		Source:      "manual",
	}
	if err := config.DB.Create(&list).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create recipient list",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(list)
}

func GetRecipientLists(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var lists []models.RecipientList
	if err := config.DB.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&lists).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch recipient lists",
		})
	}
	return c.JSON(lists)
}

func DeleteRecipientList(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid list ID",
		})
	}

	var count int64
	config.DB.Model(&models.Sequence{}).
		Where("recipient_list_id = ? AND status = ?", id, models.SequenceStatusActive).
		Count(&count)
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "List is used by an active sequence",
		})
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipient_list_id = ?", id).Delete(&models.Recipient{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.RecipientList{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err == gorm.ErrRecordNotFound {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Recipient list not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete recipient list",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Recipient list deleted successfully",
	})
}

func AddRecipient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid list ID",
		})
	}

	var list models.RecipientList
	if err := config.DB.Where("id = ? AND user_id = ?", listID, user.ID).First(&list).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Recipient list not found",
		})
	}

	var req CreateRecipientRequest
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
	if err := checkmail.ValidateFormat(req.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid email address format",
		})
	}

	var existing models.Recipient
	if err := config.DB.Where("recipient_list_id = ? AND email = ?", listID, req.Email).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Recipient already in list",
		})
	}

	recipient := models.Recipient{
		RecipientListID:  listID,
		UserID:           user.ID,
		Email:            req.Email,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Company:          req.Company,
		Position:         req.Position,
		InitialContactAt: req.InitialContactAt,
		Source:           "manual",
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&recipient).Error; err != nil {
			return err
		}
		return tx.Model(&list).Update("recipient_count", gorm.Expr("recipient_count + 1")).Error
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to add recipient")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to add recipient",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(recipient)
}

// BulkAddRecipients inserts a batch of recipients into a list. Invalid or
// duplicate entries are reported per email and do not abort the rest.
func BulkAddRecipients(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid list ID",
		})
	}

	var list models.RecipientList
	if err := config.DB.Where("id = ? AND user_id = ?", listID, user.ID).First(&list).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Recipient list not found",
		})
	}

	var req struct {
		Recipients []CreateRecipientRequest `json:"recipients" validate:"required,min=1,max=1000,dive"`
	}
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

	added := 0
	failures := []fiber.Map{}
	for _, entry := range req.Recipients {
		if err := checkmail.ValidateFormat(entry.Email); err != nil {
			failures = append(failures, fiber.Map{"email": entry.Email, "error": "invalid format"})
			continue
		}
		var existing models.Recipient
		if err := config.DB.Where("recipient_list_id = ? AND email = ?", listID, entry.Email).First(&existing).Error; err == nil {
			failures = append(failures, fiber.Map{"email": entry.Email, "error": "already in list"})
			continue
		}
		recipient := models.Recipient{
			RecipientListID:  listID,
			UserID:           user.ID,
			Email:            entry.Email,
			FirstName:        entry.FirstName,
			LastName:         entry.LastName,
			Company:          entry.Company,
			Position:         entry.Position,
			InitialContactAt: entry.InitialContactAt,
			Source:           "bulk",
		}
		if err := config.DB.Create(&recipient).Error; err != nil {
			logrus.WithError(err).WithField("email", entry.Email).Warn("Failed to insert recipient")
			failures = append(failures, fiber.Map{"email": entry.Email, "error": "insert failed"})
			continue
		}
		added++
	}

	if added > 0 {
		if err := config.DB.Model(&list).
			Update("recipient_count", gorm.Expr("recipient_count + ?", added)).Error; err != nil {
			logrus.WithError(err).Warn("Failed to update recipient count")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"added":    added,
		"failed":   len(failures),
		"failures": failures,
	})
}

func GetRecipients(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid list ID",
		})
	}

	var list models.RecipientList
	if err := config.DB.Where("id = ? AND user_id = ?", listID, user.ID).First(&list).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Recipient list not found",
		})
	}

	var recipients []models.Recipient
	if err := config.DB.Where("recipient_list_id = ?", listID).Order("id ASC").Find(&recipients).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch recipients",
		})
	}
	return c.JSON(recipients)
}

func UpdateRecipient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid recipient ID",
		})
	}

	var recipient models.Recipient
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&recipient).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Recipient not found",
		})
	}

	var req UpdateRecipientRequest
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
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Company != nil {
		updates["company"] = *req.Company
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}
	if req.InitialContactAt != nil {
		updates["initial_contact_at"] = *req.InitialContactAt
	}
	if req.IsUnsubscribed != nil {
		updates["is_unsubscribed"] = *req.IsUnsubscribed
	}
	if req.IsDoNotContact != nil {
		updates["is_do_not_contact"] = *req.IsDoNotContact
	}

	if len(updates) > 0 {
		if err := config.DB.Model(&recipient).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update recipient",
			})
		}
	}

	config.DB.First(&recipient, recipient.ID)
	return c.JSON(recipient)
}

func DeleteRecipient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid recipient ID",
		})
	}

	var recipient models.Recipient
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&recipient).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Recipient not found",
		})
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ScheduledEmail{}).
			Where("recipient_id = ? AND status = ?", recipient.ID, models.EmailStatusPending).
			Update("status", models.EmailStatusCancelled).Error; err != nil {
			return err
		}
		if err := tx.Delete(&recipient).Error; err != nil {
			return err
		}
		return tx.Model(&models.RecipientList{}).
			Where("id = ? AND recipient_count > 0", recipient.RecipientListID).
			Update("recipient_count", gorm.Expr("recipient_count - 1")).Error
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to delete recipient")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete recipient",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Recipient deleted successfully",
	})
}
