package model

import (
	"time"
)

// User represents an account inside a tenant. Teams holds the teams the
// user reports into; ManagedTeams holds the teams the user manages
// (meaningful for admin and manager roles only).
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password     string    `json:"-" gorm:"type:varchar(255)"`
	Name         string    `json:"name" gorm:"type:varchar(100)"`
	Role         Role      `json:"role" gorm:"not null;default:4"`
	TenantID     uint      `json:"tenant_id" gorm:"index;not null"`
	Tenant       Tenant    `json:"-" gorm:"foreignKey:TenantID"`
	Teams        []Team    `json:"teams,omitempty" gorm:"many2many:team_members"`
	ManagedTeams []Team    `json:"managed_teams,omitempty" gorm:"many2many:team_managers"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GetTenantID implements permission.TenantScoped.
func (u *User) GetTenantID() uint { return u.TenantID }

// ManagedTeamIDs returns the ids of the teams the user manages.
func (u *User) ManagedTeamIDs() []uint {
	ids := make([]uint, 0, len(u.ManagedTeams))
	for _, t := range u.ManagedTeams {
		ids = append(ids, t.ID)
	}
	return ids
}
