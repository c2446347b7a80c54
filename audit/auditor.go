package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"loanpilot/models"
)

// RecordStore is the external collaborator the auditor reads from. A fetch
// error is treated as an empty collection: the audit degrades, it does not
// abort.
type RecordStore interface {
	Leads(ctx context.Context) ([]models.Lead, error)
	Clients(ctx context.Context) ([]models.Client, error)
	PipelineEntries(ctx context.Context) ([]models.PipelineEntry, error)
}

// EntityKind identifies which collection a finding belongs to.
type EntityKind string

const (
	KindLead     EntityKind = "lead"
	KindClient   EntityKind = "client"
	KindPipeline EntityKind = "pipeline_entry"
)

// Finding is one record's validation outcome within an audit run.
type Finding struct {
	Entity   EntityKind       `json:"entity"`
	RecordID uint             `json:"recordId"`
	Result   ValidationResult `json:"result"`
}

// EntitySummary counts one entity type within a run.
type EntitySummary struct {
	Total      int `json:"total"`
	WithIssues int `json:"withIssues"`
}

// Summary aggregates a full audit run.
type Summary struct {
	RunID       string    `json:"runId"`
	GeneratedAt time.Time `json:"generatedAt"`

	Leads    EntitySummary `json:"leads"`
	Clients  EntitySummary `json:"clients"`
	Pipeline EntitySummary `json:"pipeline"`

	DuplicateLeads []DuplicateMatch `json:"duplicateLeads"`
	DuplicateLoans []DuplicateMatch `json:"duplicateLoans"`

	TotalIssues    int `json:"totalIssues"`
	CriticalIssues int `json:"criticalIssues"`
	WarningIssues  int `json:"warningIssues"`

	Findings []Finding `json:"findings"`
}

// Auditor runs the validators and duplicate passes over everything the
// record store holds. The validator funcs are fields so tests can inject
// failing ones; production code always uses the package defaults.
type Auditor struct {
	store RecordStore
	log   *logrus.Logger

	validateLead       func(*models.Lead) ValidationResult
	validateClient     func(*models.Client) ValidationResult
	validateConversion func(*models.Lead, *models.Client) ValidationResult
	validatePipeline   func(*models.PipelineEntry) ValidationResult
}

// NewAuditor wires an auditor against a record store.
func NewAuditor(store RecordStore, logger *logrus.Logger) *Auditor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Auditor{
		store:              store,
		log:                logger,
		validateLead:       ValidateLead,
		validateClient:     ValidateClient,
		validateConversion: ValidateClientConversion,
		validatePipeline:   ValidatePipelineEntry,
	}
}

// EmptySummary returns a well-formed zero-value summary. Callers that
// cannot run an audit at all hand this to the UI instead of an error.
func EmptySummary() Summary {
	return Summary{
		RunID:          uuid.NewString(),
		GeneratedAt:    time.Now(),
		DuplicateLeads: []DuplicateMatch{},
		DuplicateLoans: []DuplicateMatch{},
		Findings:       []Finding{},
	}
}

// Run executes a full audit. It never returns an error: fetch failures
// degrade to empty collections and per-record failures become synthetic
// error findings, so one bad record or one dead table never hides the rest.
func (a *Auditor) Run(ctx context.Context) Summary {
	summary := EmptySummary()
	if a.store == nil {
		a.log.Warn("audit run requested without a record store")
		return summary
	}

	var (
		leads    []models.Lead
		clients  []models.Client
		pipeline []models.PipelineEntry
		wg       sync.WaitGroup
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		leads = a.fetchLeads(ctx)
	}()
	go func() {
		defer wg.Done()
		clients = a.fetchClients(ctx)
	}()
	go func() {
		defer wg.Done()
		pipeline = a.fetchPipeline(ctx)
	}()
	wg.Wait()

	leadByID := make(map[uint]*models.Lead, len(leads))
	for i := range leads {
		leadByID[leads[i].ID] = &leads[i]
	}

	var (
		leadFindings     []Finding
		clientFindings   []Finding
		pipelineFindings []Finding
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := range leads {
			lead := &leads[i]
			result := a.guarded(KindLead, lead.ID, func() ValidationResult {
				return a.validateLead(lead)
			})
			leadFindings = append(leadFindings, Finding{KindLead, lead.ID, result})
		}
	}()
	go func() {
		defer wg.Done()
		for i := range clients {
			client := &clients[i]
			result := a.guarded(KindClient, client.ID, func() ValidationResult {
				res := a.validateClient(client)
				if client.LeadID != nil {
					if lead, ok := leadByID[*client.LeadID]; ok {
						res.merge(a.validateConversion(lead, client))
					}
				}
				return res
			})
			clientFindings = append(clientFindings, Finding{KindClient, client.ID, result})
		}
	}()
	go func() {
		defer wg.Done()
		for i := range pipeline {
			entry := &pipeline[i]
			result := a.guarded(KindPipeline, entry.ID, func() ValidationResult {
				return a.validatePipeline(entry)
			})
			pipelineFindings = append(pipelineFindings, Finding{KindPipeline, entry.ID, result})
		}
	}()
	wg.Wait()

	// The duplicate passes stay single-threaded: first-seen-wins ordering
	// is part of the contract.
	summary.DuplicateLeads = DetectDuplicates(leads)
	summary.DuplicateLoans = DetectLoanDuplicates(leads)

	summary.Leads = summarize(leadFindings)
	summary.Clients = summarize(clientFindings)
	summary.Pipeline = summarize(pipelineFindings)

	summary.Findings = append(summary.Findings, leadFindings...)
	summary.Findings = append(summary.Findings, clientFindings...)
	summary.Findings = append(summary.Findings, pipelineFindings...)

	for _, f := range summary.Findings {
		if len(f.Result.Errors) > 0 {
			summary.CriticalIssues++
		} else if len(f.Result.Warnings) > 0 {
			summary.WarningIssues++
		}
	}
	summary.TotalIssues = summary.Leads.WithIssues +
		summary.Clients.WithIssues +
		summary.Pipeline.WithIssues +
		len(summary.DuplicateLeads) +
		len(summary.DuplicateLoans)

	a.log.WithFields(logrus.Fields{
		"run_id":          summary.RunID,
		"leads":           summary.Leads.Total,
		"clients":         summary.Clients.Total,
		"pipeline":        summary.Pipeline.Total,
		"total_issues":    summary.TotalIssues,
		"critical_issues": summary.CriticalIssues,
	}).Info("audit run completed")

	return summary
}

// guarded isolates one record's validation. A panic becomes a synthetic
// error finding so the rest of the batch keeps going.
func (a *Auditor) guarded(kind EntityKind, id uint, validate func() ValidationResult) (result ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("validation panic on %s %d: %v", kind, id, r)
			a.log.WithFields(logrus.Fields{
				"entity":    kind,
				"record_id": id,
			}).WithError(err).Error("record validation failed")
			sentry.CaptureException(err)
			result = ValidationResult{
				IsValid:  false,
				Errors:   []string{fmt.Sprintf("Validation failed: %v", r)},
				Warnings: []string{},
			}
		}
	}()
	return validate()
}

func (a *Auditor) fetchLeads(ctx context.Context) []models.Lead {
	leads, err := a.store.Leads(ctx)
	if err != nil {
		a.log.WithError(err).Error("failed to fetch leads, auditing without them")
		return nil
	}
	return leads
}

func (a *Auditor) fetchClients(ctx context.Context) []models.Client {
	clients, err := a.store.Clients(ctx)
	if err != nil {
		a.log.WithError(err).Error("failed to fetch clients, auditing without them")
		return nil
	}
	return clients
}

func (a *Auditor) fetchPipeline(ctx context.Context) []models.PipelineEntry {
	entries, err := a.store.PipelineEntries(ctx)
	if err != nil {
		a.log.WithError(err).Error("failed to fetch pipeline entries, auditing without them")
		return nil
	}
	return entries
}

func summarize(findings []Finding) EntitySummary {
	s := EntitySummary{Total: len(findings)}
	for _, f := range findings {
		if len(f.Result.Errors) > 0 || len(f.Result.Warnings) > 0 {
			s.WithIssues++
		}
	}
	return s
}
