package controller

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"loanpilot/audit"
	"loanpilot/config"
	"loanpilot/models"
	"loanpilot/utils"
)

type AuditController struct {
	DB      *gorm.DB
	Auditor *audit.Auditor
	Logger  *logrus.Logger
}

func NewAuditController(db *gorm.DB, logger *logrus.Logger) *AuditController {
	return &AuditController{
		DB:      db,
		Auditor: audit.NewAuditor(audit.NewGormStore(db), logger),
		Logger:  logger,
	}
}

// RunAudit executes a full data-integrity audit and persists the report.
// The audit itself cannot fail; only persisting the report can.
func (ac *AuditController) RunAudit(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	summary := ac.Auditor.Run(c.Context())

	report, err := persistReport(ac.DB, summary, user.Email)
	if err != nil {
		ac.Logger.WithError(err).Error("failed to persist audit report")
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save audit report", err)
	}

	if to := config.AppConfig.AuditReportEmail; to != "" {
		go func() {
			if err := utils.SendAuditReportEmail(to, summary); err != nil {
				ac.Logger.WithError(err).Warn("failed to email audit report")
			}
		}()
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"report_id": report.ID,
		"summary":   summary,
	}))
}

// GetReports lists persisted audit reports, newest first, without the full
// findings payload.
func (ac *AuditController) GetReports(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}

	var total int64
	if err := ac.DB.Model(&models.AuditReport{}).Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count reports", err)
	}

	var reports []models.AuditReport
	if err := ac.DB.Select("id", "run_id", "triggered_by", "generated_at",
		"total_issues", "critical_issues", "warning_issues",
		"duplicate_leads", "duplicate_loans", "created_at", "updated_at").
		Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&reports).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch reports", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  reports,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetLatestReport returns the most recent report with its full findings.
// No report yet is not an error: the caller gets an empty, well-formed
// summary so dashboards render something sensible.
func (ac *AuditController) GetLatestReport(c *fiber.Ctx) error {
	var report models.AuditReport
	err := ac.DB.Order("id DESC").First(&report).Error
	if err == gorm.ErrRecordNotFound {
		return c.JSON(utils.SuccessResponse(audit.EmptySummary()))
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch report", err)
	}

	var summary audit.Summary
	if err := json.Unmarshal([]byte(report.Payload), &summary); err != nil {
		ac.Logger.WithError(err).Error("stored audit payload is unreadable")
		return c.JSON(utils.SuccessResponse(audit.EmptySummary()))
	}

	return c.JSON(utils.SuccessResponse(summary))
}

// GetDuplicates runs only the duplicate passes, for the dedupe review
// screen.
func (ac *AuditController) GetDuplicates(c *fiber.Ctx) error {
	store := audit.NewGormStore(ac.DB)
	leads, err := store.Leads(c.Context())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"duplicate_leads": audit.DetectDuplicates(leads),
		"duplicate_loans": audit.DetectLoanDuplicates(leads),
	}))
}

// persistReport stores a summary as an AuditReport row.
func persistReport(db *gorm.DB, summary audit.Summary, triggeredBy string) (*models.AuditReport, error) {
	payload, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	report := models.AuditReport{
		RunID:          summary.RunID,
		TriggeredBy:    triggeredBy,
		GeneratedAt:    summary.GeneratedAt,
		TotalIssues:    summary.TotalIssues,
		CriticalIssues: summary.CriticalIssues,
		WarningIssues:  summary.WarningIssues,
		DuplicateLeads: len(summary.DuplicateLeads),
		DuplicateLoans: len(summary.DuplicateLoans),
		Payload:        string(payload),
	}
	if err := db.Create(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}
