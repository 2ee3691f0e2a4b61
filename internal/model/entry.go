package model

import (
	"time"
)

// Score statuses recorded alongside an entry's scores. A score of 0 is
// ambiguous on its own, so the status records whether the scorer ran,
// was skipped for lack of answers, or failed.
const (
	ScoreStatusScored  = "scored"
	ScoreStatusSkipped = "skipped"
	ScoreStatusFailed  = "failed"
)

// Entry is one user's daily question/answer submission for a team,
// plus the stress and motivation scores derived from it. Questions is a
// snapshot of the team's template at submission time. At most one entry
// may exist per (tenant, user, team, reported_at).
type Entry struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	TenantID        uint      `json:"tenant_id" gorm:"not null;uniqueIndex:uniq_entry_per_day;index:idx_entry_tenant_date,priority:1;index:idx_entry_tenant_team_date,priority:1;index:idx_entry_tenant_user_date,priority:1"`
	UserID          uint      `json:"user_id" gorm:"not null;uniqueIndex:uniq_entry_per_day;index:idx_entry_tenant_user_date,priority:2"`
	TeamID          uint      `json:"team_id" gorm:"not null;uniqueIndex:uniq_entry_per_day;index:idx_entry_tenant_team_date,priority:2"`
	User            User      `json:"-" gorm:"foreignKey:UserID"`
	Team            Team      `json:"-" gorm:"foreignKey:TeamID"`
	Questions       JSONMap   `json:"questions" gorm:"type:jsonb"`
	Answers         JSONMap   `json:"answers" gorm:"type:jsonb"`
	StressScore     *int      `json:"stress_score"`
	MotivationScore *int      `json:"motivation_score"`
	ScoreStatus     string    `json:"score_status" gorm:"type:varchar(20);default:'skipped'"`
	ReportedAt      time.Time `json:"reported_at" gorm:"type:date;not null;uniqueIndex:uniq_entry_per_day;index:idx_entry_tenant_date,priority:2;index:idx_entry_tenant_team_date,priority:3;index:idx_entry_tenant_user_date,priority:3"`
	CreatedAt       time.Time `json:"created_at"`
}

// GetTenantID implements permission.TenantScoped.
func (e *Entry) GetTenantID() uint { return e.TenantID }

// GetOwnerID implements permission.Owned.
func (e *Entry) GetOwnerID() uint { return e.UserID }
