package model

import (
	"time"
)

// Tenant represents an organization, the top-level multi-tenancy boundary.
// Every other entity belongs to exactly one tenant.
type Tenant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100);uniqueIndex"`
	Settings  JSONMap   `json:"settings" gorm:"type:jsonb"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
