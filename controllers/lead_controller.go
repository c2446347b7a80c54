package controller

import (
	"encoding/csv"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"loanpilot/audit"
	"loanpilot/models"
	"loanpilot/utils"
)

type LeadController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewLeadController(db *gorm.DB, logger *log.Logger) *LeadController {
	return &LeadController{
		DB:     db,
		Logger: logger,
	}
}

type leadInput struct {
	Name         string `json:"name" validate:"required,max=200"`
	Email        string `json:"email" validate:"omitempty,max=320"`
	Phone        string `json:"phone" validate:"omitempty,max=40"`
	BusinessName string `json:"business_name" validate:"omitempty,max=200"`

	LoanAmount     *float64 `json:"loan_amount"`
	LoanType       string   `json:"loan_type" validate:"omitempty,max=100"`
	CreditScore    *int     `json:"credit_score"`
	AnnualRevenue  *float64 `json:"annual_revenue"`
	MonthlyRevenue *float64 `json:"monthly_revenue"`
	InterestRate   *float64 `json:"interest_rate"`

	YearEstablished *int `json:"year_established"`
	YearsInBusiness *int `json:"years_in_business"`
	Employees       *int `json:"employees"`

	Stage    string `json:"stage" validate:"omitempty,max=50"`
	Priority string `json:"priority" validate:"omitempty,max=20"`

	Notes     string `json:"notes"`
	CallNotes string `json:"call_notes"`
}

func (in *leadInput) toContact(userID uint) models.Contact {
	return models.Contact{
		UserID:          userID,
		Name:            strings.TrimSpace(in.Name),
		Email:           models.Redactable(strings.TrimSpace(in.Email)),
		Phone:           models.Redactable(strings.TrimSpace(in.Phone)),
		BusinessName:    strings.TrimSpace(in.BusinessName),
		LoanAmount:      in.LoanAmount,
		LoanType:        in.LoanType,
		CreditScore:     in.CreditScore,
		AnnualRevenue:   in.AnnualRevenue,
		MonthlyRevenue:  in.MonthlyRevenue,
		InterestRate:    in.InterestRate,
		YearEstablished: in.YearEstablished,
		YearsInBusiness: in.YearsInBusiness,
		Employees:       in.Employees,
		Stage:           in.Stage,
		Priority:        in.Priority,
		Notes:           in.Notes,
		CallNotes:       in.CallNotes,
	}
}

// CreateLead creates a contact entity and its lead wrapper. The response
// carries the validation result so the UI can surface warnings right away;
// warnings never block creation.
func (lc *LeadController) CreateLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input leadInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	contact := input.toContact(user.ID)
	lead := models.Lead{
		UserID:  user.ID,
		Contact: &contact,
		Source:  "manual",
	}

	result := audit.ValidateLead(&lead)
	if !result.IsValid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success":    false,
			"error":      "Lead failed validation",
			"validation": result,
		})
	}

	if err := lc.DB.Create(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"data":       lead,
		"validation": result,
	})
}

// GetLeads returns paginated leads with optional stage filter
func (lc *LeadController) GetLeads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}

	query := lc.DB.Model(&models.Lead{}).Where("leads.user_id = ?", user.ID)
	if stage := c.Query("stage"); stage != "" {
		query = query.Joins("JOIN contacts ON contacts.id = leads.contact_id").
			Where("contacts.stage = ?", stage)
	}
	if converted := c.Query("converted"); converted != "" {
		query = query.Where("leads.is_converted_to_client = ?", converted == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count leads", err)
	}

	var leads []models.Lead
	if err := query.Preload("Contact").
		Order("leads.id").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  leads,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func (lc *LeadController) GetLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var lead models.Lead
	err := lc.DB.Preload("Contact").
		Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&lead).Error
	if err == gorm.ErrRecordNotFound {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	return c.JSON(utils.SuccessResponse(lead))
}

func (lc *LeadController) UpdateLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var lead models.Lead
	err := lc.DB.Preload("Contact").
		Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&lead).Error
	if err == gorm.ErrRecordNotFound {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}
	if lead.Contact == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Lead has no contact entity", nil)
	}

	var input leadInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	updated := input.toContact(user.ID)
	updated.ID = lead.Contact.ID
	updated.CreatedAt = lead.Contact.CreatedAt

	// Redacted fields keep their stored marker and ciphertext; an update
	// must not silently decrypt or clear them.
	if lead.Contact.Email.Redacted() && input.Email == "" {
		updated.Email = lead.Contact.Email
		updated.EmailCipher = lead.Contact.EmailCipher
	}
	if lead.Contact.Phone.Redacted() && input.Phone == "" {
		updated.Phone = lead.Contact.Phone
		updated.PhoneCipher = lead.Contact.PhoneCipher
	}

	lead.Contact = &updated
	result := audit.ValidateLead(&lead)
	if !result.IsValid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success":    false,
			"error":      "Lead failed validation",
			"validation": result,
		})
	}

	if err := lc.DB.Save(&updated).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update lead", err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       lead,
		"validation": result,
	})
}

func (lc *LeadController) DeleteLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	result := lc.DB.Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		Delete(&models.Lead{})
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete lead", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}

// ValidateLead runs the audit rules against a single stored lead without
// persisting anything.
func (lc *LeadController) ValidateLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var lead models.Lead
	err := lc.DB.Preload("Contact").
		Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&lead).Error
	if err == gorm.ErrRecordNotFound {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	return c.JSON(utils.SuccessResponse(audit.ValidateLead(&lead)))
}

// ImportLeads ingests a CSV of leads. Rows with a syntactically broken
// email are rejected row by row; accepted rows are checked for duplicates
// against each other before anything is written.
func (lc *LeadController) ImportLeads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "CSV file is required", err)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to open uploaded file", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read CSV header", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["name"]; !ok {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "CSV must have a name column", nil)
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var (
		leads    []models.Lead
		rejected []fiber.Map
		rowNum   = 1
	)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			rejected = append(rejected, fiber.Map{"row": rowNum, "reason": "unreadable row"})
			continue
		}

		email := field(row, "email")
		if email != "" && email != models.RedactedValue {
			if err := checkmail.ValidateFormat(email); err != nil {
				rejected = append(rejected, fiber.Map{"row": rowNum, "reason": "invalid email: " + email})
				continue
			}
		}

		contact := models.Contact{
			UserID:       user.ID,
			Name:         field(row, "name"),
			Email:        models.Redactable(email),
			Phone:        models.Redactable(field(row, "phone")),
			BusinessName: field(row, "business_name"),
			LoanType:     field(row, "loan_type"),
			Stage:        field(row, "stage"),
			Priority:     field(row, "priority"),
		}
		if amount := field(row, "loan_amount"); amount != "" {
			if v, err := strconv.ParseFloat(amount, 64); err == nil {
				contact.LoanAmount = &v
			}
		}
		if contact.Name == "" {
			rejected = append(rejected, fiber.Map{"row": rowNum, "reason": "name is required"})
			continue
		}

		leads = append(leads, models.Lead{
			UserID:  user.ID,
			Contact: &contact,
			Source:  "csv",
		})
	}

	// Flag duplicates within the batch before writing. Duplicate rows are
	// imported anyway; the caller gets the match list to act on.
	for i := range leads {
		leads[i].ID = uint(i + 1) // provisional ids for the in-batch pass
	}
	duplicates := audit.DetectDuplicates(leads)
	for i := range leads {
		leads[i].ID = 0
	}

	if len(leads) > 0 {
		if err := lc.DB.Create(&leads).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to import leads", err)
		}
	}

	lc.Logger.Printf("Imported %d leads (%d rejected, %d in-batch duplicates) for user %d",
		len(leads), len(rejected), len(duplicates), user.ID)

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"imported":   len(leads),
		"rejected":   rejected,
		"duplicates": duplicates,
	}))
}

// ConvertLead promotes a lead to a client, copying the denormalized fields
// and running the conversion cross-checks. Validation errors block the
// conversion; warnings ride along in the response.
func (lc *LeadController) ConvertLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var lead models.Lead
	err := lc.DB.Preload("Contact").
		Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&lead).Error
	if err == gorm.ErrRecordNotFound {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}
	if lead.IsConvertedToClient {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Lead is already converted", nil)
	}
	if lead.Contact == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Lead has no contact entity", nil)
	}

	now := time.Now()
	client := models.Client{
		UserID:     user.ID,
		ContactID:  lead.ContactID,
		LeadID:     utils.Pointer(lead.ID),
		Name:       lead.Contact.Name,
		Email:      lead.Contact.Email,
		LoanAmount: lead.Contact.LoanAmount,
		Status:     "Active",
		JoinDate:   now,
	}
	if lead.Contact.LoanAmount != nil {
		client.TotalLoans = 1
		client.TotalLoanValue = *lead.Contact.LoanAmount
	}

	result := audit.ValidateClientConversion(&lead, &client)
	if !result.IsValid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success":    false,
			"error":      "Conversion failed validation",
			"validation": result,
		})
	}

	err = lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&client).Error; err != nil {
			return err
		}
		return tx.Model(&lead).Updates(map[string]interface{}{
			"is_converted_to_client": true,
			"converted_at":           now,
		}).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to convert lead", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"data":       client,
		"validation": result,
	})
}

// SecureLead encrypts the lead's email and phone at rest, leaving the
// redaction marker in the plain columns.
func (lc *LeadController) SecureLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var lead models.Lead
	err := lc.DB.Preload("Contact").
		Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&lead).Error
	if err == gorm.ErrRecordNotFound {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}
	if lead.Contact == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Lead has no contact entity", nil)
	}

	emailCipher, phoneCipher, err := utils.RedactContact(lead.Contact)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to encrypt contact fields", err)
	}
	if emailCipher != "" {
		lead.Contact.EmailCipher = emailCipher
	}
	if phoneCipher != "" {
		lead.Contact.PhoneCipher = phoneCipher
	}

	if err := lc.DB.Save(lead.Contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save contact", err)
	}

	return c.JSON(utils.SuccessResponse(lead))
}
