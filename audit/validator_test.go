package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanpilot/models"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func timePtr(t time.Time) *time.Time {
	return &t
}

// validLead builds a lead that passes every rule, so each test case can
// break exactly one thing.
func validLead() *models.Lead {
	established := time.Now().Year() - 5
	years := 5
	return &models.Lead{
		Contact: &models.Contact{
			Name:            "Maria Santos",
			Email:           "maria@santosbakery.com",
			Phone:           "(555) 123-4567",
			BusinessName:    "Santos Bakery LLC",
			LoanAmount:      floatPtr(250_000),
			LoanType:        "SBA 7(a)",
			CreditScore:     intPtr(720),
			AnnualRevenue:   floatPtr(1_200_000),
			MonthlyRevenue:  floatPtr(100_000),
			InterestRate:    floatPtr(8.5),
			YearEstablished: intPtr(established),
			YearsInBusiness: &years,
			Employees:       intPtr(12),
			Stage:           "Qualified",
			Priority:        "High",
		},
	}
}

func TestValidateLeadCleanRecord(t *testing.T) {
	res := ValidateLead(validLead())

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestValidateLeadMissingContact(t *testing.T) {
	res := ValidateLead(&models.Lead{})

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Missing contact entity data", res.Errors[0])

	assert.False(t, ValidateLead(nil).IsValid)
}

func TestValidateLeadRules(t *testing.T) {
	currentYear := time.Now().Year()

	tests := []struct {
		name        string
		mutate      func(*models.Lead)
		wantError   string
		wantWarning string
	}{
		{
			name:      "blank name",
			mutate:    func(l *models.Lead) { l.Contact.Name = "   " },
			wantError: "Name is required",
		},
		{
			name:      "malformed email",
			mutate:    func(l *models.Lead) { l.Contact.Email = "not-an-email" },
			wantError: "Invalid email format",
		},
		{
			name:        "short phone",
			mutate:      func(l *models.Lead) { l.Contact.Phone = "12345" },
			wantWarning: "Phone number format looks invalid",
		},
		{
			name:      "negative loan amount",
			mutate:    func(l *models.Lead) { l.Contact.LoanAmount = floatPtr(-1) },
			wantError: "Loan amount cannot be negative",
		},
		{
			name:        "loan amount over 100M",
			mutate:      func(l *models.Lead) { l.Contact.LoanAmount = floatPtr(150_000_000) },
			wantWarning: "Loan amount exceeds $100M, please verify",
		},
		{
			name:        "loan amount under 1000",
			mutate:      func(l *models.Lead) { l.Contact.LoanAmount = floatPtr(500) },
			wantWarning: "Loan amount is unusually low (under $1,000)",
		},
		{
			name:      "credit score below range",
			mutate:    func(l *models.Lead) { l.Contact.CreditScore = intPtr(299) },
			wantError: "Credit score must be between 300 and 850",
		},
		{
			name:      "credit score above range",
			mutate:    func(l *models.Lead) { l.Contact.CreditScore = intPtr(851) },
			wantError: "Credit score must be between 300 and 850",
		},
		{
			name:        "poor credit score",
			mutate:      func(l *models.Lead) { l.Contact.CreditScore = intPtr(579) },
			wantWarning: "Credit score below 580 indicates poor credit",
		},
		{
			name:      "negative annual revenue",
			mutate:    func(l *models.Lead) { l.Contact.AnnualRevenue = floatPtr(-100) },
			wantError: "Annual revenue cannot be negative",
		},
		{
			name: "loan more than 5x revenue",
			mutate: func(l *models.Lead) {
				l.Contact.LoanAmount = floatPtr(600_000)
				l.Contact.AnnualRevenue = floatPtr(100_000)
				l.Contact.MonthlyRevenue = nil
			},
			wantWarning: "Loan amount is more than 5x annual revenue, high risk",
		},
		{
			name:      "negative monthly revenue",
			mutate:    func(l *models.Lead) { l.Contact.MonthlyRevenue = floatPtr(-5) },
			wantError: "Monthly revenue cannot be negative",
		},
		{
			name: "monthly inconsistent with annual",
			mutate: func(l *models.Lead) {
				l.Contact.AnnualRevenue = floatPtr(1_200_000)
				l.Contact.MonthlyRevenue = floatPtr(50_000) // 600k/yr, 50% off
			},
			wantWarning: "Monthly revenue is inconsistent with annual revenue",
		},
		{
			name:      "negative interest rate",
			mutate:    func(l *models.Lead) { l.Contact.InterestRate = floatPtr(-1) },
			wantError: "Interest rate cannot be negative",
		},
		{
			name:        "interest rate over 50",
			mutate:      func(l *models.Lead) { l.Contact.InterestRate = floatPtr(55) },
			wantWarning: "Interest rate above 50% is unusually high",
		},
		{
			name: "large loan without business name",
			mutate: func(l *models.Lead) {
				l.Contact.BusinessName = ""
			},
			wantWarning: "Large loan amount but no business name on file",
		},
		{
			name:      "year established too early",
			mutate:    func(l *models.Lead) { l.Contact.YearEstablished = intPtr(1799) },
			wantError: fmt.Sprintf("Year established must be between 1800 and %d", currentYear),
		},
		{
			name:      "year established in the future",
			mutate:    func(l *models.Lead) { l.Contact.YearEstablished = intPtr(currentYear + 1) },
			wantError: fmt.Sprintf("Year established must be between 1800 and %d", currentYear),
		},
		{
			name: "young business with large loan",
			mutate: func(l *models.Lead) {
				l.Contact.YearEstablished = intPtr(currentYear)
				l.Contact.YearsInBusiness = intPtr(0)
				l.Contact.LoanAmount = floatPtr(750_000)
			},
			wantWarning: "Business established less than 2 years ago with a loan over $500K",
		},
		{
			name:      "negative years in business",
			mutate:    func(l *models.Lead) { l.Contact.YearsInBusiness = intPtr(-1) },
			wantError: "Years in business cannot be negative",
		},
		{
			name: "years in business mismatch",
			mutate: func(l *models.Lead) {
				l.Contact.YearEstablished = intPtr(currentYear - 10)
				l.Contact.YearsInBusiness = intPtr(3)
			},
			wantWarning: "Years in business does not match year established",
		},
		{
			name:      "negative employee count",
			mutate:    func(l *models.Lead) { l.Contact.Employees = intPtr(-2) },
			wantError: "Employee count cannot be negative",
		},
		{
			name:        "unknown stage",
			mutate:      func(l *models.Lead) { l.Contact.Stage = "Negotiation" },
			wantWarning: "Unknown stage: Negotiation",
		},
		{
			name:        "unknown priority",
			mutate:      func(l *models.Lead) { l.Contact.Priority = "Critical" },
			wantWarning: "Unknown priority: Critical",
		},
		{
			name: "updated before created",
			mutate: func(l *models.Lead) {
				l.CreatedAt = time.Now()
				l.UpdatedAt = time.Now().Add(-time.Hour)
			},
			wantError: "Updated date is before created date",
		},
		{
			name: "last contact in the future",
			mutate: func(l *models.Lead) {
				l.LastContact = timePtr(time.Now().Add(time.Hour))
			},
			wantError: "Last contact date is in the future",
		},
		{
			name: "converted without date",
			mutate: func(l *models.Lead) {
				l.IsConvertedToClient = true
				l.ConvertedAt = nil
				l.Contact.Stage = "Funded"
			},
			wantWarning: "Lead marked converted but has no conversion date",
		},
		{
			name: "converted outside funded stage",
			mutate: func(l *models.Lead) {
				l.IsConvertedToClient = true
				l.ConvertedAt = timePtr(time.Now())
				l.Contact.Stage = "Qualified"
			},
			wantWarning: "Converted lead is not in Funded or Closed stage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := validLead()
			tt.mutate(lead)

			res := ValidateLead(lead)

			if tt.wantError != "" {
				assert.Contains(t, res.Errors, tt.wantError)
				assert.False(t, res.IsValid)
			}
			if tt.wantWarning != "" {
				assert.Contains(t, res.Warnings, tt.wantWarning)
			}
			assert.Equal(t, len(res.Errors) == 0, res.IsValid,
				"IsValid must track the error list")
		})
	}
}

func TestValidateLeadCreditScoreBoundaries(t *testing.T) {
	for _, score := range []int{300, 580, 720, 850} {
		lead := validLead()
		lead.Contact.CreditScore = intPtr(score)
		res := ValidateLead(lead)
		assert.NotContains(t, res.Errors, "Credit score must be between 300 and 850",
			"score %d is inside the accepted range", score)
	}
	for _, score := range []int{0, 299, 851, 1000} {
		lead := validLead()
		lead.Contact.CreditScore = intPtr(score)
		res := ValidateLead(lead)
		assert.Contains(t, res.Errors, "Credit score must be between 300 and 850",
			"score %d is outside the accepted range", score)
	}
}

func TestValidateLeadNegativeLoanWithRedactedEmail(t *testing.T) {
	lead := &models.Lead{Contact: &models.Contact{
		Name:       "Jane",
		Email:      models.RedactedValue,
		LoanAmount: floatPtr(-5),
	}}

	res := ValidateLead(lead)

	assert.Contains(t, res.Errors, "Loan amount cannot be negative")
	assert.NotContains(t, res.Errors, "Invalid email format")
	assert.False(t, res.IsValid)
}

func TestValidateLeadAccumulatesNameAndCreditErrors(t *testing.T) {
	lead := &models.Lead{Contact: &models.Contact{
		CreditScore: intPtr(900),
	}}

	res := ValidateLead(lead)

	assert.Contains(t, res.Errors, "Name is required")
	assert.Contains(t, res.Errors, "Credit score must be between 300 and 850")
	assert.False(t, res.IsValid)
}

func TestValidatePipelineEntryFundedProbabilityFloor(t *testing.T) {
	entry := validEntry()
	entry.Stage = "Funded"
	entry.Amount = floatPtr(100_000)
	entry.Probability = floatPtr(50)

	res := ValidatePipelineEntry(entry)

	assert.Contains(t, res.Warnings, "Probability seems low for Funded stage (expected >100%)")
}

func TestValidateLeadRedactedFieldsSkipFormatChecks(t *testing.T) {
	lead := validLead()
	lead.Contact.Email = models.RedactedValue
	lead.Contact.Phone = models.RedactedValue

	res := ValidateLead(lead)

	assert.True(t, res.IsValid)
	assert.NotContains(t, res.Errors, "Invalid email format")
	assert.NotContains(t, res.Warnings, "Phone number format looks invalid")
}

func TestValidateLeadCollectsAllIssues(t *testing.T) {
	lead := validLead()
	lead.Contact.Name = ""
	lead.Contact.Email = "broken"
	lead.Contact.CreditScore = intPtr(200)
	lead.Contact.LoanAmount = floatPtr(-50)

	res := ValidateLead(lead)

	assert.False(t, res.IsValid)
	assert.Len(t, res.Errors, 4, "independent rules must all fire")
}

func TestValidateLeadDeterministic(t *testing.T) {
	lead := validLead()
	lead.Contact.Email = "broken"
	lead.Contact.CreditScore = intPtr(500)

	first := ValidateLead(lead)
	second := ValidateLead(lead)

	assert.Equal(t, first, second)
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"(555) 123-4567", true},
		{"555-123-4567", true},
		{"5551234567", true},
		{"1-555-123-4567", true}, // 11 digits
		{"555.123.4567", true},
		{"12345", false},
		{"555-123-456789", false}, // 12 digits
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isValidPhone(tt.phone), tt.phone)
	}
}

func validConversion() (*models.Lead, *models.Client) {
	contactID := uint(7)
	lead := validLead()
	lead.ID = 1
	lead.ContactID = &contactID
	lead.Contact.Stage = "Funded"
	lead.CreatedAt = time.Now().Add(-30 * 24 * time.Hour)
	lead.UpdatedAt = lead.CreatedAt

	client := &models.Client{
		ContactID:  &contactID,
		LeadID:     &lead.ID,
		Name:       lead.Contact.Name,
		Email:      lead.Contact.Email,
		LoanAmount: lead.Contact.LoanAmount,
		Status:     "Active",
		JoinDate:   time.Now().Add(-24 * time.Hour),
	}
	return lead, client
}

func TestValidateClientConversionClean(t *testing.T) {
	lead, client := validConversion()

	res := ValidateClientConversion(lead, client)

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Warnings)
}

func TestValidateClientConversionRules(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*models.Lead, *models.Client)
		wantError   string
		wantWarning string
	}{
		{
			name:      "name mismatch",
			mutate:    func(_ *models.Lead, c *models.Client) { c.Name = "Someone Else" },
			wantError: "Name mismatch between lead and client",
		},
		{
			name:        "email mismatch",
			mutate:      func(_ *models.Lead, c *models.Client) { c.Email = "other@example.com" },
			wantWarning: "Email mismatch between lead and client",
		},
		{
			name: "different contact entities",
			mutate: func(_ *models.Lead, c *models.Client) {
				other := uint(99)
				c.ContactID = &other
			},
			wantError: "Lead and client reference different contact entities",
		},
		{
			name:        "converted from open stage",
			mutate:      func(l *models.Lead, _ *models.Client) { l.Contact.Stage = "Qualified" },
			wantWarning: "Lead was converted outside Funded or Closed stage",
		},
		{
			name:        "unknown client status",
			mutate:      func(_ *models.Lead, c *models.Client) { c.Status = "Dormant" },
			wantWarning: "Unknown client status: Dormant",
		},
		{
			name:      "negative total loans",
			mutate:    func(_ *models.Lead, c *models.Client) { c.TotalLoans = -1 },
			wantError: "Total loans cannot be negative",
		},
		{
			name:      "negative total loan value",
			mutate:    func(_ *models.Lead, c *models.Client) { c.TotalLoanValue = -100 },
			wantError: "Total loan value cannot be negative",
		},
		{
			name:        "loan amount drift",
			mutate:      func(_ *models.Lead, c *models.Client) { c.LoanAmount = floatPtr(300_000) },
			wantWarning: "Loan amount differs between lead and client",
		},
		{
			name: "join date predates lead",
			mutate: func(l *models.Lead, c *models.Client) {
				c.JoinDate = l.CreatedAt.Add(-time.Hour)
			},
			wantError: "Client join date predates the lead",
		},
		{
			name: "future last activity",
			mutate: func(_ *models.Lead, c *models.Client) {
				c.LastActivity = timePtr(time.Now().Add(time.Hour))
			},
			wantError: "Client last activity is in the future",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead, client := validConversion()
			tt.mutate(lead, client)

			res := ValidateClientConversion(lead, client)

			if tt.wantError != "" {
				assert.Contains(t, res.Errors, tt.wantError)
				assert.False(t, res.IsValid)
			}
			if tt.wantWarning != "" {
				assert.Contains(t, res.Warnings, tt.wantWarning)
			}
			assert.Equal(t, len(res.Errors) == 0, res.IsValid)
		})
	}
}

func TestValidateClientConversionEmailCaseInsensitive(t *testing.T) {
	lead, client := validConversion()
	client.Email = "MARIA@SANTOSBAKERY.COM"

	res := ValidateClientConversion(lead, client)

	assert.NotContains(t, res.Warnings, "Email mismatch between lead and client")
}

func TestValidateClientConversionMissingRecords(t *testing.T) {
	res := ValidateClientConversion(nil, &models.Client{})
	assert.Contains(t, res.Errors, "Missing records for conversion check")

	lead := &models.Lead{}
	res = ValidateClientConversion(lead, &models.Client{})
	assert.Contains(t, res.Errors, "Missing contact entity data")
}

func TestValidateClient(t *testing.T) {
	res := ValidateClient(&models.Client{Status: "Active"})
	assert.True(t, res.IsValid)

	res = ValidateClient(&models.Client{
		Status:         "Dormant",
		TotalLoans:     -1,
		TotalLoanValue: -50,
		LastActivity:   timePtr(time.Now().Add(time.Hour)),
	})
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Errors, "Total loans cannot be negative")
	assert.Contains(t, res.Errors, "Total loan value cannot be negative")
	assert.Contains(t, res.Errors, "Client last activity is in the future")
	assert.Contains(t, res.Warnings, "Unknown client status: Dormant")

	res = ValidateClient(nil)
	assert.Contains(t, res.Errors, "Missing client entity data")
}

func validEntry() *models.PipelineEntry {
	leadID := uint(1)
	return &models.PipelineEntry{
		Stage:       "Qualified",
		Amount:      floatPtr(50_000),
		Probability: floatPtr(40),
		LeadID:      &leadID,
	}
}

func TestValidatePipelineEntryClean(t *testing.T) {
	res := ValidatePipelineEntry(validEntry())

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Warnings)
}

func TestValidatePipelineEntryRules(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*models.PipelineEntry)
		wantError   string
		wantWarning string
	}{
		{
			name:      "missing stage",
			mutate:    func(e *models.PipelineEntry) { e.Stage = "  " },
			wantError: "Stage is required",
		},
		{
			name:        "unknown stage",
			mutate:      func(e *models.PipelineEntry) { e.Stage = "Discovery" },
			wantWarning: "Unknown stage: Discovery",
		},
		{
			name:      "missing amount",
			mutate:    func(e *models.PipelineEntry) { e.Amount = nil },
			wantError: "Amount is required",
		},
		{
			name:      "negative amount",
			mutate:    func(e *models.PipelineEntry) { e.Amount = floatPtr(-1) },
			wantError: "Amount cannot be negative",
		},
		{
			name:      "zero amount",
			mutate:    func(e *models.PipelineEntry) { e.Amount = floatPtr(0) },
			wantError: "Amount must be greater than zero",
		},
		{
			name:        "amount over 100M",
			mutate:      func(e *models.PipelineEntry) { e.Amount = floatPtr(200_000_000) },
			wantWarning: "Amount exceeds $100M, please verify",
		},
		{
			name:        "tiny amount in qualified stage",
			mutate:      func(e *models.PipelineEntry) { e.Amount = floatPtr(500) },
			wantWarning: "Amount is unusually low for a qualified opportunity",
		},
		{
			name:      "probability above 100",
			mutate:    func(e *models.PipelineEntry) { e.Probability = floatPtr(101) },
			wantError: "Probability must be between 0 and 100",
		},
		{
			name:      "probability below 0",
			mutate:    func(e *models.PipelineEntry) { e.Probability = floatPtr(-1) },
			wantError: "Probability must be between 0 and 100",
		},
		{
			name: "probability far below stage floor",
			mutate: func(e *models.PipelineEntry) {
				e.Stage = "Closing"
				e.Probability = floatPtr(50)
			},
			wantWarning: "Probability seems low for Closing stage (expected >85%)",
		},
		{
			name: "past close date on open stage",
			mutate: func(e *models.PipelineEntry) {
				e.CloseDate = timePtr(time.Now().Add(-24 * time.Hour))
			},
			wantWarning: "Close date is in the past for an open stage",
		},
		{
			name:        "unlinked entry",
			mutate:      func(e *models.PipelineEntry) { e.LeadID = nil },
			wantWarning: "Pipeline entry is not linked to a lead",
		},
		{
			name: "weighted value drift",
			mutate: func(e *models.PipelineEntry) {
				e.WeightedValue = floatPtr(30_000) // expected 20k at 40%
			},
			wantWarning: "Weighted value does not match amount and probability",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := validEntry()
			tt.mutate(entry)

			res := ValidatePipelineEntry(entry)

			if tt.wantError != "" {
				assert.Contains(t, res.Errors, tt.wantError)
				assert.False(t, res.IsValid)
			}
			if tt.wantWarning != "" {
				assert.Contains(t, res.Warnings, tt.wantWarning)
			}
			assert.Equal(t, len(res.Errors) == 0, res.IsValid)
		})
	}
}

func TestValidatePipelineEntryGraceAndTerminalStages(t *testing.T) {
	// Ten points below the floor is still inside the grace band.
	entry := validEntry()
	entry.Stage = "Closing"
	entry.Probability = floatPtr(76)
	res := ValidatePipelineEntry(entry)
	assert.Empty(t, res.Warnings)

	// Past close dates are fine once the deal is terminal.
	entry = validEntry()
	entry.Stage = "Funded"
	entry.Probability = floatPtr(100)
	entry.CloseDate = timePtr(time.Now().Add(-24 * time.Hour))
	res = ValidatePipelineEntry(entry)
	assert.NotContains(t, res.Warnings, "Close date is in the past for an open stage")

	// Tiny amounts are tolerated in New Lead.
	entry = validEntry()
	entry.Stage = "New Lead"
	entry.Probability = nil
	entry.Amount = floatPtr(500)
	res = ValidatePipelineEntry(entry)
	assert.NotContains(t, res.Warnings, "Amount is unusually low for a qualified opportunity")
}

func TestValidatePipelineEntryMissing(t *testing.T) {
	res := ValidatePipelineEntry(nil)
	assert.Contains(t, res.Errors, "Missing pipeline entry data")
}
