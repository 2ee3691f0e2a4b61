package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/kawamasaya/well-board/internal/aggregate"
	"github.com/kawamasaya/well-board/internal/model"
	"github.com/kawamasaya/well-board/internal/permission"
	"github.com/kawamasaya/well-board/internal/scoring"
	"github.com/kawamasaya/well-board/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestContext builds an echo context for a tenant-scoped route with
// an optional authenticated actor, the way the auth middleware would.
func newTestContext(t *testing.T, method, body string, actor *permission.Actor, tenantID string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/", reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	c := e.NewContext(req, rec)
	c.SetParamNames("tenant_id")
	c.SetParamValues(tenantID)
	if actor != nil {
		c.Set("actor", actor)
	}
	return c, rec
}

func TestUserCreateRequiresAuthentication(t *testing.T) {
	h := NewUserHandler(nil)
	c, rec := newTestContext(t, http.MethodPost, "", nil, "1")

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserCreateCrossTenantIsGenericForbidden(t *testing.T) {
	h := NewUserHandler(nil)
	actor := &permission.Actor{UserID: 1, TenantID: 1, Role: model.RoleAdmin}
	c, rec := newTestContext(t, http.MethodPost, `{"role": 4}`, actor, "2")

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String(),
		"denial must not explain why")
}

func TestUserCreateGovernanceMessages(t *testing.T) {
	tests := []struct {
		name    string
		actor   model.Role
		role    int
		message string
	}{
		{"regular user gets no-permission message", model.RoleUser, 4, "regular users have no permission to create users"},
		{"manager creating admin", model.RoleManager, 2, "admin privilege required."},
		{"admin creating superuser", model.RoleAdmin, 1, "cannot create with superuser privilege."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUserHandler(nil)
			actor := &permission.Actor{UserID: 1, TenantID: 1, Role: tt.actor}
			c, rec := newTestContext(t, http.MethodPost, `{"role": `+strconv.Itoa(tt.role)+`}`, actor, "1")

			require.NoError(t, h.Create(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.message)
		})
	}
}

func TestUserCreateRejectsInvalidRoleBeforeGovernance(t *testing.T) {
	h := NewUserHandler(nil)
	actor := &permission.Actor{UserID: 1, TenantID: 1, Role: model.RoleManager}
	c, rec := newTestContext(t, http.MethodPost, `{"role": 99}`, actor, "1")

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid role")
}

func TestCreateUserErrorSeparatesConflictFromFailure(t *testing.T) {
	status, msg := createUserError(gorm.ErrDuplicatedKey)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "email already registered", msg)

	status, msg = createUserError(fmt.Errorf("insert user: %w", gorm.ErrDuplicatedKey))
	assert.Equal(t, http.StatusConflict, status, "wrapped duplicate errors still conflict")

	status, msg = createUserError(errors.New("connection reset"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "user creation failed", msg)
}

func TestTeamCreateDeniedForRegularUser(t *testing.T) {
	h := NewTeamHandler(nil)
	actor := &permission.Actor{UserID: 1, TenantID: 1, Role: model.RoleUser}
	c, rec := newTestContext(t, http.MethodPost, `{"name": "Platform"}`, actor, "1")

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEntryCreateCrossTenantDenied(t *testing.T) {
	h := NewEntryHandler(nil, nil)
	actor := &permission.Actor{UserID: 1, TenantID: 1, Role: model.RoleUser}
	c, rec := newTestContext(t, http.MethodPost, `{"team_id": 1}`, actor, "2")

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEntryCreateRequiresTeam(t *testing.T) {
	h := NewEntryHandler(nil, nil)
	actor := &permission.Actor{UserID: 1, TenantID: 1, Role: model.RoleUser}
	c, rec := newTestContext(t, http.MethodPost, `{}`, actor, "1")

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "team_id is required")
}

// stubEntryStore satisfies EntryStore without a database.
type stubEntryStore struct {
	team      *model.Team
	createErr error
	created   *model.Entry
}

func (s *stubEntryStore) ListOwn(ctx context.Context, actor *permission.Actor) ([]model.Entry, error) {
	return nil, nil
}

func (s *stubEntryStore) GetByID(ctx context.Context, tenantID, entryID uint) (*model.Entry, error) {
	return nil, store.ErrEntryNotFound
}

func (s *stubEntryStore) GetTeam(ctx context.Context, tenantID, teamID uint) (*model.Team, error) {
	if s.team == nil {
		return nil, store.ErrTeamNotFound
	}
	return s.team, nil
}

func (s *stubEntryStore) Create(ctx context.Context, entry *model.Entry) error {
	s.created = entry
	return s.createErr
}

func (s *stubEntryStore) Update(ctx context.Context, entry *model.Entry) error {
	return nil
}

func (s *stubEntryStore) VisibleEntries(ctx context.Context, actor *permission.Actor, tenantID uint, teamIDs []uint, since time.Time) ([]aggregate.Row, error) {
	return nil, nil
}

type stubScorer struct {
	result scoring.Result
}

func (s stubScorer) Score(ctx context.Context, questions, answers model.JSONMap) scoring.Result {
	return s.result
}

func TestEntryCreateSecondEntrySameDayConflicts(t *testing.T) {
	entries := &stubEntryStore{
		team:      &model.Team{ID: 3, TenantID: 1, Name: "Platform"},
		createErr: store.ErrDuplicateEntry,
	}
	h := NewEntryHandler(entries, stubScorer{result: scoring.Result{Status: model.ScoreStatusSkipped}})
	actor := &permission.Actor{UserID: 1, TenantID: 1, Role: model.RoleUser}
	c, rec := newTestContext(t, http.MethodPost, `{"team_id": 3, "reported_at": "2026-08-28"}`, actor, "1")

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "an entry already exists for this team and date")
	require.NotNil(t, entries.created, "the insert must have been attempted")
}

func TestEntryCreateDefaultsReportedAtToToday(t *testing.T) {
	entries := &stubEntryStore{team: &model.Team{ID: 3, TenantID: 1, Name: "Platform"}}
	h := NewEntryHandler(entries, stubScorer{result: scoring.Result{Status: model.ScoreStatusSkipped}})
	actor := &permission.Actor{UserID: 1, TenantID: 1, Role: model.RoleUser}
	c, rec := newTestContext(t, http.MethodPost, `{"team_id": 3}`, actor, "1")

	before := time.Now()
	require.NoError(t, h.Create(c))
	after := time.Now()

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, entries.created)
	got := entries.created.ReportedAt
	assert.Zero(t, got.Hour())
	assert.Zero(t, got.Minute())
	// The local calendar date, not the UTC-epoch day the request fell in.
	sameDay := got.Day() == before.Day() || got.Day() == after.Day()
	assert.True(t, sameDay, "reported_at %v not on the local date", got)
}

func TestTeamEntryListCrossTenantDenied(t *testing.T) {
	h := NewTeamEntryHandler(nil, nil)
	actor := &permission.Actor{UserID: 1, TenantID: 1, Role: model.RoleManager}
	c, rec := newTestContext(t, http.MethodGet, "", actor, "2")

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTenantListRequiresSuperuser(t *testing.T) {
	h := NewTenantHandler(nil)
	actor := &permission.Actor{UserID: 1, TenantID: 1, Role: model.RoleAdmin}
	c, rec := newTestContext(t, http.MethodGet, "", actor, "1")

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestParseTeamIDs(t *testing.T) {
	tests := []struct {
		raw     string
		want    []uint
		wantErr bool
	}{
		{"", nil, false},
		{"1", []uint{1}, false},
		{"1,2,3", []uint{1, 2, 3}, false},
		{" 1 , 2 ", []uint{1, 2}, false},
		{"1,x", nil, true},
		{"-1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseTeamIDs(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
