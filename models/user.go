package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account in the CRM
type User struct {
	gorm.Model

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `json:"name"`
	Role         string `gorm:"default:'loan_officer'" json:"role"` // admin, manager, loan_officer

	// MFA state. The TOTP secret itself lives in the injected secret store,
	// never on this row.
	TOTPEnabled    bool       `gorm:"default:false" json:"totp_enabled"`
	TOTPEnrolledAt *time.Time `json:"totp_enrolled_at,omitempty"`

	// Account status
	IsActive     bool `gorm:"default:true" json:"is_active"`
	TokenVersion int  `gorm:"default:0" json:"-"`

	// Relations
	Leads   []Lead   `gorm:"foreignKey:UserID" json:"leads,omitempty"`
	Clients []Client `gorm:"foreignKey:UserID" json:"clients,omitempty"`
}
