package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"

	"loanpilot/audit"
	"loanpilot/config"
	"loanpilot/models"
	"loanpilot/utils"
)

// AuditWorker runs the full data-integrity audit on a schedule so drift is
// caught even when nobody triggers a run from the API.
type AuditWorker struct {
	DB      *gorm.DB
	Auditor *audit.Auditor
	Logger  *log.Logger
}

func NewAuditWorker(db *gorm.DB, auditor *audit.Auditor, logger *log.Logger) *AuditWorker {
	return &AuditWorker{
		DB:      db,
		Auditor: auditor,
		Logger:  logger,
	}
}

func (aw *AuditWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	aw.Logger.Println("Audit worker started")

	ticker := time.NewTicker(config.AppConfig.AuditInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			aw.Logger.Println("Audit worker shutting down...")
			return
		case <-ticker.C:
			aw.runScheduledAudit(ctx)
		}
	}
}

func (aw *AuditWorker) runScheduledAudit(ctx context.Context) {
	summary := aw.Auditor.Run(ctx)

	if err := aw.persistReport(summary); err != nil {
		aw.Logger.Printf("Error persisting audit report: %v", err)
		return
	}

	aw.Logger.Printf("Scheduled audit %s finished: %d issues (%d critical, %d warnings)",
		summary.RunID, summary.TotalIssues, summary.CriticalIssues, summary.WarningIssues)

	if to := config.AppConfig.AuditReportEmail; to != "" {
		if err := utils.SendAuditReportEmail(to, summary); err != nil {
			aw.Logger.Printf("Error emailing audit report: %v", err)
		}
	}
}

func (aw *AuditWorker) persistReport(summary audit.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	report := models.AuditReport{
		RunID:          summary.RunID,
		TriggeredBy:    "scheduler",
		GeneratedAt:    summary.GeneratedAt,
		TotalIssues:    summary.TotalIssues,
		CriticalIssues: summary.CriticalIssues,
		WarningIssues:  summary.WarningIssues,
		DuplicateLeads: len(summary.DuplicateLeads),
		DuplicateLoans: len(summary.DuplicateLoans),
		Payload:        string(payload),
	}
	return aw.DB.Create(&report).Error
}
