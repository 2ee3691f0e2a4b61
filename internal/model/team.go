package model

import (
	"time"
)

// Team is a group of users inside a tenant. Questions is the team's
// question template, a keyed set of free-form prompts answered in each
// daily entry.
type Team struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TenantID  uint      `json:"tenant_id" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"type:varchar(100)"`
	Questions JSONMap   `json:"questions" gorm:"type:jsonb"`
	Managers  []User    `json:"managers,omitempty" gorm:"many2many:team_managers"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetTenantID implements permission.TenantScoped.
func (t *Team) GetTenantID() uint { return t.TenantID }
