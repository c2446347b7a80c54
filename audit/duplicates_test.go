package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/gorm"

	"loanpilot/models"
)

func lead(id uint, contact *models.Contact) models.Lead {
	return models.Lead{
		Model:   gorm.Model{ID: id},
		Contact: contact,
	}
}

func TestDetectDuplicatesFirstSeenWins(t *testing.T) {
	leads := []models.Lead{
		lead(1, &models.Contact{Email: "shared@example.com"}),
		lead(2, &models.Contact{Email: "Shared@Example.com "}),
		lead(3, &models.Contact{Email: "shared@example.com"}),
	}

	matches := DetectDuplicates(leads)

	require.Len(t, matches, 2)
	assert.Equal(t, DuplicateMatch{ID: 2, DuplicateOf: 1, MatchType: EmailMatch}, matches[0])
	assert.Equal(t, DuplicateMatch{ID: 3, DuplicateOf: 1, MatchType: EmailMatch}, matches[1])
}

func TestDetectDuplicatesPhoneNormalization(t *testing.T) {
	leads := []models.Lead{
		lead(1, &models.Contact{Phone: "(555) 123-4567"}),
		lead(2, &models.Contact{Phone: "555.123.4567"}),
	}

	matches := DetectDuplicates(leads)

	require.Len(t, matches, 1)
	assert.Equal(t, DuplicateMatch{ID: 2, DuplicateOf: 1, MatchType: PhoneMatch}, matches[0])
}

func TestDetectDuplicatesBusinessNameCaseInsensitive(t *testing.T) {
	leads := []models.Lead{
		lead(1, &models.Contact{BusinessName: "Santos Bakery LLC"}),
		lead(2, &models.Contact{BusinessName: "  santos bakery llc "}),
	}

	matches := DetectDuplicates(leads)

	require.Len(t, matches, 1)
	assert.Equal(t, BusinessNameMatch, matches[0].MatchType)
}

func TestDetectDuplicatesKeyPriority(t *testing.T) {
	// Lead 2 matches lead 1 on every key; only the email match is reported.
	leads := []models.Lead{
		lead(1, &models.Contact{
			Email:        "a@b.com",
			Phone:        "5551234567",
			BusinessName: "Acme",
		}),
		lead(2, &models.Contact{
			Email:        "a@b.com",
			Phone:        "5551234567",
			BusinessName: "Acme",
		}),
	}

	matches := DetectDuplicates(leads)

	require.Len(t, matches, 1)
	assert.Equal(t, EmailMatch, matches[0].MatchType)
}

func TestDetectDuplicatesFlaggedLeadsAreInert(t *testing.T) {
	// Lead 2 is flagged against lead 1 by email. Lead 3 shares only lead 2's
	// phone, and flagged leads no longer anchor new matches, so lead 3
	// survives the pass.
	leads := []models.Lead{
		lead(1, &models.Contact{Email: "a@b.com"}),
		lead(2, &models.Contact{Email: "a@b.com", Phone: "5551234567"}),
		lead(3, &models.Contact{Phone: "(555) 123-4567"}),
	}

	matches := DetectDuplicates(leads)

	require.Len(t, matches, 1)
	assert.Equal(t, uint(2), matches[0].ID)
}

func TestDetectDuplicatesSkipsUnusableKeys(t *testing.T) {
	leads := []models.Lead{
		lead(1, &models.Contact{Email: models.RedactedValue, Phone: "123"}),
		lead(2, &models.Contact{Email: models.RedactedValue, Phone: "456"}),
		lead(3, nil),
		lead(4, &models.Contact{}),
	}

	// Redacted emails, sub-10-digit phones, missing contacts and empty
	// fields must all be ignored rather than bucketed together.
	assert.Empty(t, DetectDuplicates(leads))
}

func TestDetectDuplicatesEachLeadFlaggedOnce(t *testing.T) {
	leads := []models.Lead{
		lead(1, &models.Contact{Email: "a@b.com", Phone: "5551234567"}),
		lead(2, &models.Contact{Email: "a@b.com"}),
		lead(3, &models.Contact{Email: "a@b.com", Phone: "5551234567"}),
	}

	matches := DetectDuplicates(leads)

	flagged := map[uint]int{}
	for _, m := range matches {
		flagged[m.ID]++
	}
	for id, n := range flagged {
		assert.Equal(t, 1, n, "lead %d flagged more than once", id)
	}
}

func TestDetectLoanDuplicates(t *testing.T) {
	leads := []models.Lead{
		lead(1, &models.Contact{LoanAmount: floatPtr(250_000), LoanType: "SBA 7(a)"}),
		lead(2, &models.Contact{LoanAmount: floatPtr(250_000), LoanType: "SBA 7(a)"}),
		lead(3, &models.Contact{LoanAmount: floatPtr(250_000), LoanType: "Equipment"}),
	}

	matches := DetectLoanDuplicates(leads)

	require.Len(t, matches, 1)
	assert.Equal(t, DuplicateMatch{ID: 2, DuplicateOf: 1, MatchType: LoanSignatureMatch}, matches[0])
}

func TestDetectLoanDuplicatesRequiresTwoComponents(t *testing.T) {
	// An amount alone identifies nothing; these may be unrelated deals.
	leads := []models.Lead{
		lead(1, &models.Contact{LoanAmount: floatPtr(250_000)}),
		lead(2, &models.Contact{LoanAmount: floatPtr(250_000)}),
	}

	assert.Empty(t, DetectLoanDuplicates(leads))
}

func TestLoanPassIndependentOfContactPass(t *testing.T) {
	leads := []models.Lead{
		lead(1, &models.Contact{
			Email:      "a@b.com",
			LoanAmount: floatPtr(100_000),
			LoanType:   "SBA 7(a)",
		}),
		lead(2, &models.Contact{
			Email:      "a@b.com",
			LoanAmount: floatPtr(100_000),
			LoanType:   "SBA 7(a)",
		}),
	}

	// The same lead may be flagged by both passes.
	contactMatches := DetectDuplicates(leads)
	loanMatches := DetectLoanDuplicates(leads)

	require.Len(t, contactMatches, 1)
	require.Len(t, loanMatches, 1)
	assert.Equal(t, uint(2), contactMatches[0].ID)
	assert.Equal(t, uint(2), loanMatches[0].ID)
}

func TestDetectDuplicatesEmptyInput(t *testing.T) {
	assert.Empty(t, DetectDuplicates(nil))
	assert.Empty(t, DetectLoanDuplicates([]models.Lead{}))
}
