package controller

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"loanpilot/audit"
	"loanpilot/models"
	"loanpilot/utils"
)

type PipelineController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewPipelineController(db *gorm.DB, logger *log.Logger) *PipelineController {
	return &PipelineController{
		DB:     db,
		Logger: logger,
	}
}

type pipelineInput struct {
	Stage         string     `json:"stage" validate:"required,max=50"`
	Amount        *float64   `json:"amount" validate:"required"`
	Probability   *float64   `json:"probability"`
	WeightedValue *float64   `json:"weighted_value"`
	CloseDate     *time.Time `json:"close_date"`
	LeadID        *uint      `json:"lead_id"`
}

func (in *pipelineInput) toEntry(userID uint) models.PipelineEntry {
	return models.PipelineEntry{
		UserID:        userID,
		Stage:         in.Stage,
		Amount:        in.Amount,
		Probability:   in.Probability,
		WeightedValue: in.WeightedValue,
		CloseDate:     in.CloseDate,
		LeadID:        in.LeadID,
	}
}

func (pc *PipelineController) CreateEntry(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input pipelineInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	entry := input.toEntry(user.ID)
	result := audit.ValidatePipelineEntry(&entry)
	if !result.IsValid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success":    false,
			"error":      "Pipeline entry failed validation",
			"validation": result,
		})
	}

	if err := pc.DB.Create(&entry).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create pipeline entry", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"data":       entry,
		"validation": result,
	})
}

func (pc *PipelineController) GetEntries(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}

	query := pc.DB.Model(&models.PipelineEntry{}).Where("user_id = ?", user.ID)
	if stage := c.Query("stage"); stage != "" {
		query = query.Where("stage = ?", stage)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count pipeline entries", err)
	}

	var entries []models.PipelineEntry
	if err := query.Order("id").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch pipeline entries", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  entries,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func (pc *PipelineController) UpdateEntry(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var entry models.PipelineEntry
	err := pc.DB.Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Pipeline entry not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch pipeline entry", err)
	}

	var input pipelineInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	updated := input.toEntry(user.ID)
	updated.ID = entry.ID
	updated.CreatedAt = entry.CreatedAt

	result := audit.ValidatePipelineEntry(&updated)
	if !result.IsValid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success":    false,
			"error":      "Pipeline entry failed validation",
			"validation": result,
		})
	}

	if err := pc.DB.Save(&updated).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update pipeline entry", err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       updated,
		"validation": result,
	})
}

func (pc *PipelineController) DeleteEntry(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	result := pc.DB.Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		Delete(&models.PipelineEntry{})
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete pipeline entry", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Pipeline entry not found", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}

func (pc *PipelineController) ValidateEntry(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var entry models.PipelineEntry
	err := pc.DB.Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Pipeline entry not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch pipeline entry", err)
	}

	return c.JSON(utils.SuccessResponse(audit.ValidatePipelineEntry(&entry)))
}
