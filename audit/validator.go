package audit

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"loanpilot/models"
)

// Rule thresholds. These values are the contract of the audit: changing one
// changes which records get flagged, so keep them alongside the rules.
const (
	minCreditScore  = 300
	maxCreditScore  = 850
	poorCreditScore = 580

	maxLoanAmount      = 100_000_000
	minTypicalLoan     = 1_000
	largeLoanThreshold = 100_000
	youngBusinessLoan  = 500_000

	maxInterestRate = 50

	earliestYearEstablished = 1800

	revenueRatioLimit      = 5    // loan amount vs annual revenue
	revenueVarianceLimit   = 0.2  // monthly*12 vs annual revenue
	weightedVarianceLimit  = 0.01 // weighted value vs amount*probability
	probabilityGracePoints = 10   // slack below the per-stage floor
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
var formattedPhonePattern = regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`)
var nonDigits = regexp.MustCompile(`\D`)

// isValidPhone accepts the formatted "(XXX) XXX-XXXX" shape, or any input
// that strips down to 10 or 11 raw digits.
func isValidPhone(phone string) bool {
	if formattedPhonePattern.MatchString(phone) {
		return true
	}
	digits := nonDigits.ReplaceAllString(phone, "")
	return len(digits) == 10 || len(digits) == 11
}

// ValidateLead runs the full rule battery against a lead and its contact
// entity. Rules are independent and all evaluated; the only short circuit
// is a missing contact entity, since nothing else can be checked without it.
func ValidateLead(lead *models.Lead) ValidationResult {
	res := newResult()

	if lead == nil || lead.Contact == nil {
		res.addError("Missing contact entity data")
		return res
	}
	c := lead.Contact
	now := time.Now()
	currentYear := now.Year()

	if strings.TrimSpace(c.Name) == "" {
		res.addError("Name is required")
	}

	// Redacted contact fields are stored encrypted elsewhere: present, but
	// not checkable. Only plain values get format validation.
	if email, ok := c.Email.Plain(); ok && !emailPattern.MatchString(email) {
		res.addError("Invalid email format")
	}
	if phone, ok := c.Phone.Plain(); ok && !isValidPhone(phone) {
		res.addWarning("Phone number format looks invalid")
	}

	if c.LoanAmount != nil {
		switch amount := *c.LoanAmount; {
		case amount < 0:
			res.addError("Loan amount cannot be negative")
		case amount > maxLoanAmount:
			res.addWarning("Loan amount exceeds $100M, please verify")
		case amount > 0 && amount < minTypicalLoan:
			res.addWarning("Loan amount is unusually low (under $1,000)")
		}
	}

	if c.CreditScore != nil {
		switch score := *c.CreditScore; {
		case score < minCreditScore || score > maxCreditScore:
			res.addError("Credit score must be between 300 and 850")
		case score < poorCreditScore:
			res.addWarning("Credit score below 580 indicates poor credit")
		}
	}

	if c.AnnualRevenue != nil && *c.AnnualRevenue < 0 {
		res.addError("Annual revenue cannot be negative")
	}
	if c.LoanAmount != nil && c.AnnualRevenue != nil &&
		*c.LoanAmount > 0 && *c.AnnualRevenue > 0 &&
		*c.LoanAmount / *c.AnnualRevenue > revenueRatioLimit {
		res.addWarning("Loan amount is more than 5x annual revenue, high risk")
	}

	if c.MonthlyRevenue != nil {
		if *c.MonthlyRevenue < 0 {
			res.addError("Monthly revenue cannot be negative")
		} else if c.AnnualRevenue != nil && *c.AnnualRevenue > 0 {
			if relativeVariance(*c.AnnualRevenue, *c.MonthlyRevenue*12) > revenueVarianceLimit {
				res.addWarning("Monthly revenue is inconsistent with annual revenue")
			}
		}
	}

	if c.InterestRate != nil {
		if *c.InterestRate < 0 {
			res.addError("Interest rate cannot be negative")
		} else if *c.InterestRate > maxInterestRate {
			res.addWarning("Interest rate above 50% is unusually high")
		}
	}

	if c.LoanAmount != nil && *c.LoanAmount > largeLoanThreshold &&
		strings.TrimSpace(c.BusinessName) == "" {
		res.addWarning("Large loan amount but no business name on file")
	}

	if c.YearEstablished != nil {
		year := *c.YearEstablished
		if year < earliestYearEstablished || year > currentYear {
			res.addError(fmt.Sprintf("Year established must be between 1800 and %d", currentYear))
		} else if currentYear-year < 2 && c.LoanAmount != nil && *c.LoanAmount > youngBusinessLoan {
			res.addWarning("Business established less than 2 years ago with a loan over $500K")
		}
	}

	if c.YearsInBusiness != nil {
		if *c.YearsInBusiness < 0 {
			res.addError("Years in business cannot be negative")
		} else if c.YearEstablished != nil {
			calculated := currentYear - *c.YearEstablished
			if diff := calculated - *c.YearsInBusiness; diff > 1 || diff < -1 {
				res.addWarning("Years in business does not match year established")
			}
		}
	}

	if c.Employees != nil && *c.Employees < 0 {
		res.addError("Employee count cannot be negative")
	}

	if c.Stage != "" && !isKnownStage(c.Stage) {
		res.addWarning(fmt.Sprintf("Unknown stage: %s", c.Stage))
	}
	if c.Priority != "" && !contains(LeadPriorities, c.Priority) {
		res.addWarning(fmt.Sprintf("Unknown priority: %s", c.Priority))
	}

	if lead.UpdatedAt.Before(lead.CreatedAt) {
		res.addError("Updated date is before created date")
	}
	if lead.LastContact != nil && lead.LastContact.After(now) {
		res.addError("Last contact date is in the future")
	}

	if lead.IsConvertedToClient {
		if lead.ConvertedAt == nil {
			res.addWarning("Lead marked converted but has no conversion date")
		}
		if !isConvertedStage(c.Stage) {
			res.addWarning("Converted lead is not in Funded or Closed stage")
		}
	}

	return res
}

// ValidateClientConversion cross-checks a client against the lead it was
// converted from. Mismatches in the denormalized copies are the whole point
// of this check: they mean the two records have drifted apart.
func ValidateClientConversion(lead *models.Lead, client *models.Client) ValidationResult {
	res := newResult()

	if lead == nil || client == nil {
		res.addError("Missing records for conversion check")
		return res
	}
	if lead.Contact == nil {
		res.addError("Missing contact entity data")
		return res
	}
	c := lead.Contact

	if strings.TrimSpace(c.Name) != strings.TrimSpace(client.Name) {
		res.addError("Name mismatch between lead and client")
	}

	leadEmail, leadOK := c.Email.Plain()
	clientEmail, clientOK := client.Email.Plain()
	if leadOK && clientOK &&
		!strings.EqualFold(strings.TrimSpace(leadEmail), strings.TrimSpace(clientEmail)) {
		res.addWarning("Email mismatch between lead and client")
	}

	if lead.ContactID != nil && client.ContactID != nil && *lead.ContactID != *client.ContactID {
		res.addError("Lead and client reference different contact entities")
	}

	if !isConvertedStage(c.Stage) {
		res.addWarning("Lead was converted outside Funded or Closed stage")
	}

	if client.Status != "" && !contains(ClientStatuses, client.Status) {
		res.addWarning(fmt.Sprintf("Unknown client status: %s", client.Status))
	}

	if client.TotalLoans < 0 {
		res.addError("Total loans cannot be negative")
	}
	if client.TotalLoanValue < 0 {
		res.addError("Total loan value cannot be negative")
	}

	if c.LoanAmount != nil && client.LoanAmount != nil && *c.LoanAmount != *client.LoanAmount {
		res.addWarning("Loan amount differs between lead and client")
	}

	if !client.JoinDate.IsZero() && client.JoinDate.Before(lead.CreatedAt) {
		res.addError("Client join date predates the lead")
	}
	if client.LastActivity != nil && client.LastActivity.After(time.Now()) {
		res.addError("Client last activity is in the future")
	}

	return res
}

// ValidateClient covers the checks that need no source lead, used when a
// client's originating lead is gone or was never recorded.
func ValidateClient(client *models.Client) ValidationResult {
	res := newResult()

	if client == nil {
		res.addError("Missing client entity data")
		return res
	}

	if client.Status != "" && !contains(ClientStatuses, client.Status) {
		res.addWarning(fmt.Sprintf("Unknown client status: %s", client.Status))
	}
	if client.TotalLoans < 0 {
		res.addError("Total loans cannot be negative")
	}
	if client.TotalLoanValue < 0 {
		res.addError("Total loan value cannot be negative")
	}
	if client.UpdatedAt.Before(client.CreatedAt) {
		res.addError("Updated date is before created date")
	}
	if client.LastActivity != nil && client.LastActivity.After(time.Now()) {
		res.addError("Client last activity is in the future")
	}

	return res
}

// ValidatePipelineEntry applies the opportunity-level rules, including the
// per-stage probability floor.
func ValidatePipelineEntry(entry *models.PipelineEntry) ValidationResult {
	res := newResult()

	if entry == nil {
		res.addError("Missing pipeline entry data")
		return res
	}

	stage := strings.TrimSpace(entry.Stage)
	if stage == "" {
		res.addError("Stage is required")
	} else if !isKnownStage(stage) {
		res.addWarning(fmt.Sprintf("Unknown stage: %s", stage))
	}

	if entry.Amount == nil {
		res.addError("Amount is required")
	} else {
		switch amount := *entry.Amount; {
		case amount < 0:
			res.addError("Amount cannot be negative")
		case amount == 0:
			res.addError("Amount must be greater than zero")
		case amount > maxLoanAmount:
			res.addWarning("Amount exceeds $100M, please verify")
		case amount < minTypicalLoan && stage != "New Lead":
			res.addWarning("Amount is unusually low for a qualified opportunity")
		}
	}

	if entry.Probability != nil {
		p := *entry.Probability
		if p < 0 || p > 100 {
			res.addError("Probability must be between 0 and 100")
		} else if minimum, ok := StageMinimumProbability[stage]; ok && p < minimum-probabilityGracePoints {
			res.addWarning(fmt.Sprintf("Probability seems low for %s stage (expected >%g%%)", stage, minimum))
		}
	}

	if entry.CloseDate != nil && entry.CloseDate.Before(time.Now()) && !isTerminalStage(stage) {
		res.addWarning("Close date is in the past for an open stage")
	}

	if entry.UpdatedAt.Before(entry.CreatedAt) {
		res.addError("Updated date is before created date")
	}

	if entry.LeadID == nil {
		res.addWarning("Pipeline entry is not linked to a lead")
	}

	if entry.WeightedValue != nil && entry.Amount != nil && entry.Probability != nil {
		expected := *entry.Amount * *entry.Probability / 100
		if expected > 0 && relativeVariance(expected, *entry.WeightedValue) > weightedVarianceLimit {
			res.addWarning("Weighted value does not match amount and probability")
		}
	}

	return res
}
