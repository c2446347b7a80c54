package models

import (
	"gorm.io/gorm"
)

// RedactedValue is stored in place of a contact field whose real value lives
// encrypted in the secure store. Validators must treat redacted fields as
// present but unverifiable.
const RedactedValue = "[SECURED]"

// Redactable is a string field that may hold the redaction marker instead of
// a plain value. Callers branch on Redacted()/Plain() rather than comparing
// against the marker string directly.
type Redactable string

// Redacted reports whether the field holds the redaction marker.
func (r Redactable) Redacted() bool {
	return string(r) == RedactedValue
}

// Plain returns the underlying value and whether it is usable, i.e. the
// field is neither empty nor redacted.
func (r Redactable) Plain() (string, bool) {
	if r == "" || r.Redacted() {
		return "", false
	}
	return string(r), true
}

func (r Redactable) String() string {
	return string(r)
}

// Contact is the person/business entity referenced by leads and clients.
// Numeric fields are pointers so that "absent" and "zero" stay distinct;
// every field is optional at the storage layer, the audit rules decide what
// absence means.
type Contact struct {
	gorm.Model
	UserID uint `gorm:"index" json:"user_id"`

	Name         string     `json:"name"`
	Email        Redactable `gorm:"index" json:"email"`
	Phone        Redactable `json:"phone"`
	BusinessName string     `json:"business_name"`

	// Ciphertexts for redacted contact fields. Populated when a contact is
	// secured; the plain columns then hold the redaction marker.
	EmailCipher string `gorm:"type:text" json:"-"`
	PhoneCipher string `gorm:"type:text" json:"-"`

	LoanAmount     *float64 `json:"loan_amount,omitempty"`
	LoanType       string   `json:"loan_type"`
	CreditScore    *int     `json:"credit_score,omitempty"`
	AnnualRevenue  *float64 `json:"annual_revenue,omitempty"`
	MonthlyRevenue *float64 `json:"monthly_revenue,omitempty"`
	InterestRate   *float64 `json:"interest_rate,omitempty"`

	YearEstablished *int `json:"year_established,omitempty"`
	YearsInBusiness *int `json:"years_in_business,omitempty"`
	Employees       *int `json:"employees,omitempty"`

	Stage    string `gorm:"index" json:"stage"`
	Priority string `json:"priority"` // Low, Medium, High, Urgent

	Notes     string `gorm:"type:text" json:"notes"`
	CallNotes string `gorm:"type:text" json:"call_notes"`
}
