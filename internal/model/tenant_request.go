package model

import (
	"time"
)

// Tenant request statuses.
const (
	TenantRequestPending  = "pending"
	TenantRequestApproved = "approved"
	TenantRequestRejected = "rejected"
)

// TenantRequest is a pending application for a new tenant. Tenants are
// only created through the approval of one of these requests.
type TenantRequest struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	TenantName string     `json:"tenant_name" gorm:"type:varchar(100)"`
	Email      string     `json:"email" gorm:"type:varchar(100)"`
	Name       string     `json:"name" gorm:"type:varchar(100)"`
	Domain     string     `json:"domain" gorm:"type:varchar(100)"`
	// PasswordHash is the applicant's bcrypt hash, promoted to the first
	// admin user on approval.
	PasswordHash string `json:"-" gorm:"type:varchar(255)"`
	Status     string     `json:"status" gorm:"type:varchar(20);default:'pending'"`
	Notes      string     `json:"notes" gorm:"type:text"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
