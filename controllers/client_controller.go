package controller

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"loanpilot/audit"
	"loanpilot/models"
	"loanpilot/utils"
)

type ClientController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewClientController(db *gorm.DB, logger *log.Logger) *ClientController {
	return &ClientController{
		DB:     db,
		Logger: logger,
	}
}

func (cc *ClientController) GetClients(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}

	query := cc.DB.Model(&models.Client{}).Where("user_id = ?", user.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count clients", err)
	}

	var clients []models.Client
	if err := query.Preload("Contact").
		Order("id").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&clients).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch clients", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  clients,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func (cc *ClientController) GetClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var client models.Client
	err := cc.DB.Preload("Contact").
		Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&client).Error
	if err == gorm.ErrRecordNotFound {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch client", err)
	}

	return c.JSON(utils.SuccessResponse(client))
}

func (cc *ClientController) UpdateClientStatus(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Status string `json:"status" validate:"required,oneof=Active Inactive 'At Risk' VIP"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	result := cc.DB.Model(&models.Client{}).
		Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		Update("status", input.Status)
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update client", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"status": input.Status}))
}

// ValidateClient runs the standalone client checks, plus the conversion
// cross-checks when the originating lead still exists.
func (cc *ClientController) ValidateClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var client models.Client
	err := cc.DB.Preload("Contact").
		Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&client).Error
	if err == gorm.ErrRecordNotFound {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch client", err)
	}

	result := audit.ValidateClient(&client)
	if client.LeadID != nil {
		var lead models.Lead
		if err := cc.DB.Preload("Contact").First(&lead, *client.LeadID).Error; err == nil {
			conversion := audit.ValidateClientConversion(&lead, &client)
			result.Errors = append(result.Errors, conversion.Errors...)
			result.Warnings = append(result.Warnings, conversion.Warnings...)
			result.IsValid = len(result.Errors) == 0
		}
	}

	return c.JSON(utils.SuccessResponse(result))
}
