package audit

import (
	"strconv"
	"strings"

	"loanpilot/models"
)

// MatchType labels which normalized key produced a duplicate flag.
type MatchType string

const (
	EmailMatch         MatchType = "email"
	PhoneMatch         MatchType = "phone"
	BusinessNameMatch  MatchType = "business_name"
	LoanSignatureMatch MatchType = "loan_signature"
)

// DuplicateMatch flags a record as a duplicate of an earlier one. Input
// order is the authoritative tie-break: the first occurrence of a key is
// never flagged, later occurrences point back at it.
type DuplicateMatch struct {
	ID          uint      `json:"id"`
	DuplicateOf uint      `json:"duplicateOf"`
	MatchType   MatchType `json:"matchType"`
}

type keyer struct {
	matchType MatchType
	key       func(*models.Lead) string
}

// Contact keys in priority order. A record flagged by a higher-priority
// key is done for the pass; its lower-priority keys are not evaluated.
var contactKeyers = []keyer{
	{EmailMatch, normalizedEmail},
	{PhoneMatch, normalizedPhone},
	{BusinessNameMatch, normalizedBusinessName},
}

// DetectDuplicates groups leads by normalized email, phone and business
// name and flags later occurrences against the first. Each lead is flagged
// at most once per pass, and flagging is irreversible within the pass: a
// later lead never matches against an already-flagged one.
func DetectDuplicates(leads []models.Lead) []DuplicateMatch {
	return detect(leads, contactKeyers)
}

// DetectLoanDuplicates runs the independent loan-signature pass. A lead may
// show up both here and in DetectDuplicates.
func DetectLoanDuplicates(leads []models.Lead) []DuplicateMatch {
	return detect(leads, []keyer{{LoanSignatureMatch, loanSignature}})
}

func detect(leads []models.Lead, keyers []keyer) []DuplicateMatch {
	// Buckets hold lead indices in input order, one map per key type.
	buckets := make([]map[string][]int, len(keyers))
	for ki, k := range keyers {
		buckets[ki] = make(map[string][]int)
		for i := range leads {
			if key := k.key(&leads[i]); key != "" {
				buckets[ki][key] = append(buckets[ki][key], i)
			}
		}
	}

	matches := []DuplicateMatch{}
	flagged := make(map[int]bool)

	for i := range leads {
		for ki, k := range keyers {
			if flagged[i] {
				break
			}
			key := k.key(&leads[i])
			if key == "" {
				continue
			}
			// Match only against earlier, still-unflagged members of the
			// bucket; first-seen wins.
			for _, j := range buckets[ki][key] {
				if j >= i {
					break
				}
				if flagged[j] {
					continue
				}
				matches = append(matches, DuplicateMatch{
					ID:          leads[i].ID,
					DuplicateOf: leads[j].ID,
					MatchType:   k.matchType,
				})
				flagged[i] = true
				break
			}
		}
	}

	return matches
}

func normalizedEmail(lead *models.Lead) string {
	if lead.Contact == nil {
		return ""
	}
	email, ok := lead.Contact.Email.Plain()
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizedPhone(lead *models.Lead) string {
	if lead.Contact == nil {
		return ""
	}
	phone, ok := lead.Contact.Phone.Plain()
	if !ok {
		return ""
	}
	digits := nonDigits.ReplaceAllString(phone, "")
	if len(digits) < 10 {
		return ""
	}
	return digits
}

func normalizedBusinessName(lead *models.Lead) string {
	if lead.Contact == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(lead.Contact.BusinessName))
}

// loanSignature builds the amount|type|business|email fingerprint. A
// signature with fewer than two usable components identifies nothing and is
// discarded.
func loanSignature(lead *models.Lead) string {
	c := lead.Contact
	if c == nil {
		return ""
	}

	var parts []string
	if c.LoanAmount != nil {
		parts = append(parts, strconv.FormatFloat(*c.LoanAmount, 'f', -1, 64))
	}
	if loanType := strings.TrimSpace(c.LoanType); loanType != "" {
		parts = append(parts, loanType)
	}
	if business := normalizedBusinessName(lead); business != "" {
		parts = append(parts, business)
	}
	if email := normalizedEmail(lead); email != "" {
		parts = append(parts, email)
	}

	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts, "|")
}
