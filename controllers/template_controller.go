package controller

import (
	"github.com/gofiber/fiber/v2"

	"cadence/config"
	"cadence/models"
	"cadence/utils"
)

type CreateTemplateRequest struct {
	SequenceID     uint   `json:"sequence_id" validate:"required"`
	Category       string `json:"category" validate:"required,oneof=initial follow_up"`
	FollowupNumber int    `json:"followup_number" validate:"gte=0"`
	Subject        string `json:"subject" validate:"required,max=500"`
	Body           string `json:"body" validate:"required"`
}

type UpdateTemplateRequest struct {
	Subject *string `json:"subject" validate:"omitempty,max=500"`
	Body    *string `json:"body"`
}

func CreateTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateTemplateRequest
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

	if req.Category == models.EmailCategoryInitial && req.FollowupNumber != 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Initial template must use followup_number 0",
		})
	}
	if req.Category == models.EmailCategoryFollowUp && req.FollowupNumber < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Follow-up template needs a followup_number of 1 or more",
		})
	}

	var sequence models.Sequence
	if err := config.DB.Where("id = ? AND user_id = ?", req.SequenceID, user.ID).First(&sequence).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	var existing models.EmailTemplate
	err := config.DB.Where("sequence_id = ? AND category = ? AND followup_number = ?",
		req.SequenceID, req.Category, req.FollowupNumber).First(&existing).Error
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Template already exists for this step",
		})
	}

	template := models.EmailTemplate{
		UserID:         user.ID,
		SequenceID:     req.SequenceID,
		Category:       req.Category,
		FollowupNumber: req.FollowupNumber,
		Subject:        req.Subject,
		Body:           req.Body,
	}
	if err := config.DB.Create(&template).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create template",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(template)
}

func GetTemplates(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	sequenceID, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid sequence ID",
		})
	}

	var sequence models.Sequence
	if err := config.DB.Where("id = ? AND user_id = ?", sequenceID, user.ID).First(&sequence).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	var templates []models.EmailTemplate
	if err := config.DB.Where("sequence_id = ?", sequenceID).
		Order("followup_number ASC").Find(&templates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch templates",
		})
	}
	return c.JSON(templates)
}

func UpdateTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid template ID",
		})
	}

	var template models.EmailTemplate
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&template).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	var req UpdateTemplateRequest
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
	if req.Subject != nil {
		updates["subject"] = *req.Subject
	}
	if req.Body != nil {
		updates["body"] = *req.Body
	}
	if len(updates) > 0 {
		if err := config.DB.Model(&template).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update template",
			})
		}
	}

	config.DB.First(&template, template.ID)
	return c.JSON(template)
}

func DeleteTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id, err := utils.ParseUint(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid template ID",
		})
	}

	result := config.DB.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.EmailTemplate{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete template",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Template deleted successfully",
	})
}
