// Package store holds the role-scoped entry queries. Scoping happens
// server-side in SQL so an actor can never receive rows it is not
// entitled to and filter them away client-side.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kawamasaya/well-board/internal/aggregate"
	"github.com/kawamasaya/well-board/internal/model"
	"github.com/kawamasaya/well-board/internal/permission"
	"gorm.io/gorm"
)

// ErrDuplicateEntry is returned when a second entry is created for the
// same (tenant, user, team, reported_at) tuple.
var ErrDuplicateEntry = errors.New("an entry already exists for this team and date")

// ErrEntryNotFound is returned when an entry id does not resolve inside
// the actor's tenant.
var ErrEntryNotFound = errors.New("entry not found")

// ErrTeamNotFound is returned when a team id does not resolve inside
// the actor's tenant.
var ErrTeamNotFound = errors.New("team not found")

// DashboardWindowDays is how far back the dashboard read reaches.
const DashboardWindowDays = 90

// EntryStore runs entry queries against the database.
type EntryStore struct {
	db *gorm.DB
}

// NewEntryStore returns a store bound to db.
func NewEntryStore(db *gorm.DB) *EntryStore {
	return &EntryStore{db: db}
}

// VisibleEntries returns the dashboard rows the actor is entitled to
// see, scoped by role: regular users get their own entries, managers get
// entries of the teams they manage, admins and superusers get the whole
// tenant. teamIDs optionally narrows the result further, and since
// bounds the date range. Rows come back ordered by team, user and date,
// as the aggregation requires.
func (s *EntryStore) VisibleEntries(ctx context.Context, actor *permission.Actor, tenantID uint, teamIDs []uint, since time.Time) ([]aggregate.Row, error) {
	if actor.Role == model.RoleManager && len(actor.ManagedTeamIDs) == 0 {
		return nil, nil
	}

	var rows []aggregate.Row
	q := s.visibleQuery(ctx, actor, tenantID, teamIDs, since)
	if err := q.Order("entries.team_id, entries.user_id, entries.reported_at").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query visible entries: %w", err)
	}
	return rows, nil
}

// visibleQuery builds the role-scoped dashboard query. The scoping is
// part of the SQL itself, never applied after rows come back.
func (s *EntryStore) visibleQuery(ctx context.Context, actor *permission.Actor, tenantID uint, teamIDs []uint, since time.Time) *gorm.DB {
	q := s.db.WithContext(ctx).
		Table("entries").
		Select("entries.team_id, teams.name AS team_name, entries.user_id, users.name AS user_name, entries.reported_at, entries.stress_score, entries.motivation_score").
		Joins("JOIN teams ON teams.id = entries.team_id").
		Joins("JOIN users ON users.id = entries.user_id").
		Where("entries.tenant_id = ?", tenantID).
		Where("entries.reported_at >= ?", since)

	switch {
	case actor.Role.OutranksOrEqual(model.RoleAdmin):
		// Tenant-wide access.
	case actor.Role == model.RoleManager:
		q = q.Where("entries.team_id IN ?", actor.ManagedTeamIDs)
	default:
		q = q.Where("entries.user_id = ?", actor.UserID)
	}

	if len(teamIDs) > 0 {
		q = q.Where("entries.team_id IN ?", teamIDs)
	}
	return q
}

// ListOwn returns the actor's own entries, newest first.
func (s *EntryStore) ListOwn(ctx context.Context, actor *permission.Actor) ([]model.Entry, error) {
	var entries []model.Entry
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", actor.TenantID, actor.UserID).
		Order("reported_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("query own entries: %w", err)
	}
	return entries, nil
}

// GetByID loads one entry inside the given tenant.
func (s *EntryStore) GetByID(ctx context.Context, tenantID, entryID uint) (*model.Entry, error) {
	var entry model.Entry
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&entry, entryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}
	return &entry, nil
}

// GetTeam loads one team inside the given tenant. Entry writes use it
// to snapshot the team's question template.
func (s *EntryStore) GetTeam(ctx context.Context, tenantID, teamID uint) (*model.Team, error) {
	var team model.Team
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&team, teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query team: %w", err)
	}
	return &team, nil
}

// Create persists a new entry. The database's composite unique
// constraint enforces the one-entry-per-day rule; concurrent duplicates
// lose the race and surface as ErrDuplicateEntry.
func (s *EntryStore) Create(ctx context.Context, entry *model.Entry) error {
	err := s.db.WithContext(ctx).Create(entry).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// Update saves the mutable fields of an existing entry.
func (s *EntryStore) Update(ctx context.Context, entry *model.Entry) error {
	err := s.db.WithContext(ctx).Model(entry).Updates(map[string]interface{}{
		"answers":          entry.Answers,
		"questions":        entry.Questions,
		"stress_score":     entry.StressScore,
		"motivation_score": entry.MotivationScore,
		"score_status":     entry.ScoreStatus,
	}).Error
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return nil
}
