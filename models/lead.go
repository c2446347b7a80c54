package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead wraps a contact entity with lifecycle metadata. The contact relation
// is nullable on purpose: an orphaned lead is a data-integrity finding, not
// a constraint violation.
type Lead struct {
	gorm.Model
	UserID uint `gorm:"index" json:"user_id"`

	ContactID *uint    `gorm:"index" json:"contact_id,omitempty"`
	Contact   *Contact `gorm:"foreignKey:ContactID" json:"contact,omitempty"`

	Source      string     `json:"source"` // manual, csv, api
	LastContact *time.Time `json:"last_contact,omitempty"`

	IsConvertedToClient bool       `gorm:"default:false" json:"is_converted_to_client"`
	ConvertedAt         *time.Time `json:"converted_at,omitempty"`
}

// Client is a converted lead. Name, email and loan amount are denormalized
// copies taken at conversion time; the conversion audit flags drift between
// these copies and the source records.
type Client struct {
	gorm.Model
	UserID uint `gorm:"index" json:"user_id"`

	ContactID *uint    `gorm:"index" json:"contact_id,omitempty"`
	Contact   *Contact `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	LeadID    *uint    `gorm:"index" json:"lead_id,omitempty"`

	Name       string     `json:"name"`
	Email      Redactable `json:"email"`
	LoanAmount *float64   `json:"loan_amount,omitempty"`

	Status         string     `gorm:"default:'Active'" json:"status"` // Active, Inactive, At Risk, VIP
	TotalLoans     int        `gorm:"default:0" json:"total_loans"`
	TotalLoanValue float64    `gorm:"default:0" json:"total_loan_value"`
	JoinDate       time.Time  `json:"join_date"`
	LastActivity   *time.Time `json:"last_activity,omitempty"`
}

// PipelineEntry is a tracked opportunity. Amount and probability are
// pointers so a missing value is distinguishable from an explicit zero.
type PipelineEntry struct {
	gorm.Model
	UserID uint `gorm:"index" json:"user_id"`

	LeadID *uint `gorm:"index" json:"lead_id,omitempty"`

	Stage         string     `json:"stage"`
	Amount        *float64   `json:"amount,omitempty"`
	Probability   *float64   `json:"probability,omitempty"` // 0-100
	WeightedValue *float64   `json:"weighted_value,omitempty"`
	CloseDate     *time.Time `json:"close_date,omitempty"`
}
