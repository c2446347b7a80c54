package controller

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"loanpilot/mfa"
	"loanpilot/models"
	"loanpilot/utils"
)

const backupCodeCount = 8

type MFAController struct {
	DB      *gorm.DB
	Manager *mfa.Manager
	Logger  *log.Logger
}

func NewMFAController(db *gorm.DB, manager *mfa.Manager, logger *log.Logger) *MFAController {
	return &MFAController{
		DB:      db,
		Manager: manager,
		Logger:  logger,
	}
}

// Setup enrolls a fresh TOTP secret. MFA is not active until the user
// proves the authenticator works via Activate.
func (mc *MFAController) Setup(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	secret, err := mc.Manager.Enroll(c.Context(), user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to enroll MFA", err)
	}

	uri := fmt.Sprintf("otpauth://totp/LoanPilot:%s?secret=%s&issuer=LoanPilot", user.Email, secret)
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"secret":      secret,
		"otpauth_uri": uri,
	}))
}

// Activate turns MFA on after the user submits a first valid code, and
// hands back the one-time backup codes.
func (mc *MFAController) Activate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Code string `json:"code" validate:"required,len=6"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	ok, err := mc.Manager.Verify(c.Context(), user.ID, input.Code, time.Now())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to verify code", err)
	}
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid code", nil)
	}

	backupCodes, err := mc.Manager.GenerateBackupCodes(c.Context(), user.ID, backupCodeCount)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate backup codes", err)
	}

	now := time.Now()
	if err := mc.DB.Model(user).Updates(map[string]interface{}{
		"totp_enabled":     true,
		"totp_enrolled_at": now,
	}).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to enable MFA", err)
	}

	mc.Logger.Printf("MFA enabled for user %d", user.ID)

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"enabled":      true,
		"backup_codes": backupCodes,
	}))
}

// Validate completes a login for an MFA-enabled account: it accepts either
// a TOTP code or an unused backup code and exchanges the pending token for
// real session tokens.
func (mc *MFAController) Validate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Code       string `json:"code" validate:"omitempty,len=6"`
		BackupCode string `json:"backup_code" validate:"omitempty,len=10"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.Code == "" && input.BackupCode == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "A code or backup code is required", nil)
	}

	var ok bool
	var err error
	if input.Code != "" {
		ok, err = mc.Manager.Verify(c.Context(), user.ID, input.Code, time.Now())
	} else {
		ok, err = mc.Manager.UseBackupCode(c.Context(), user.ID, input.BackupCode)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to verify code", err)
	}
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid code", nil)
	}

	access, refresh, err := utils.GenerateJWTToken(user)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to issue tokens", err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"access_token":  access,
		"refresh_token": refresh,
		"user":          user,
	})
}

// Disable turns MFA off. A valid current code is required so a hijacked
// session cannot silently strip the second factor.
func (mc *MFAController) Disable(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Code string `json:"code" validate:"required,len=6"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	ok, err := mc.Manager.Verify(c.Context(), user.ID, input.Code, time.Now())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to verify code", err)
	}
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid code", nil)
	}

	if err := mc.Manager.Disable(c.Context(), user.ID); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to disable MFA", err)
	}
	if err := mc.DB.Model(user).Updates(map[string]interface{}{
		"totp_enabled":     false,
		"totp_enrolled_at": nil,
	}).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to disable MFA", err)
	}

	mc.Logger.Printf("MFA disabled for user %d", user.ID)

	return c.JSON(utils.SuccessResponse(fiber.Map{"enabled": false}))
}
