package models

import (
	"time"

	"gorm.io/gorm"
)

// AuditReport is a persisted snapshot of a full data-integrity audit run.
// The headline counts are denormalized for cheap dashboard queries; the full
// per-record findings live in the JSON payload.
type AuditReport struct {
	gorm.Model
	RunID       string    `gorm:"uniqueIndex;not null" json:"run_id"`
	TriggeredBy string    `json:"triggered_by"` // user email or "scheduler"
	GeneratedAt time.Time `json:"generated_at"`

	TotalIssues    int `json:"total_issues"`
	CriticalIssues int `json:"critical_issues"`
	WarningIssues  int `json:"warning_issues"`
	DuplicateLeads int `json:"duplicate_leads"`
	DuplicateLoans int `json:"duplicate_loans"`

	Payload string `gorm:"type:text" json:"payload"` // full audit.Summary as JSON
}
