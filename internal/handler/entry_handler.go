package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kawamasaya/well-board/internal/aggregate"
	"github.com/kawamasaya/well-board/internal/model"
	"github.com/kawamasaya/well-board/internal/permission"
	"github.com/kawamasaya/well-board/internal/scoring"
	"github.com/kawamasaya/well-board/internal/store"
	"github.com/kawamasaya/well-board/pkg/logger"
	"github.com/kawamasaya/well-board/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// EntryStore is the entry persistence surface the handlers depend on.
// *store.EntryStore implements it.
type EntryStore interface {
	ListOwn(ctx context.Context, actor *permission.Actor) ([]model.Entry, error)
	GetByID(ctx context.Context, tenantID, entryID uint) (*model.Entry, error)
	GetTeam(ctx context.Context, tenantID, teamID uint) (*model.Team, error)
	Create(ctx context.Context, entry *model.Entry) error
	Update(ctx context.Context, entry *model.Entry) error
	VisibleEntries(ctx context.Context, actor *permission.Actor, tenantID uint, teamIDs []uint, since time.Time) ([]aggregate.Row, error)
}

// EntryHandler serves the daily wellness entries. An entry is written in
// two phases: the scoring gateway runs first with its own timeout and
// fallback, then the record is persisted. The store's unique constraint
// enforces the one-entry-per-day rule.
type EntryHandler struct {
	entries EntryStore
	scorer  scoring.Scorer
}

// NewEntryHandler returns an EntryHandler bound to its collaborators.
func NewEntryHandler(entries EntryStore, scorer scoring.Scorer) *EntryHandler {
	return &EntryHandler{entries: entries, scorer: scorer}
}

// List returns the actor's own entries, newest first.
func (h *EntryHandler) List(c echo.Context) error {
	actor := actorFrom(c)
	if actor == nil {
		return unauthenticated(c)
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}
	if !permission.IsTenantUser(actor, tenantID, nil) {
		return forbidden(c, "tenant_mismatch")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	entries, err := h.entries.ListOwn(c.Request().Context(), actor)
	if err != nil {
		logger.FromEcho(c).Error("Failed to list entries", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, entries)
}

// Get returns one entry, readable by its owner or a tenant admin.
func (h *EntryHandler) Get(c echo.Context) error {
	actor := actorFrom(c)
	if actor == nil {
		return unauthenticated(c)
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}
	entryID, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}

	entry, err := h.entries.GetByID(c.Request().Context(), actor.TenantID, entryID)
	if errors.Is(err, store.ErrEntryNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "entry not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !permission.IsOwnerOrAdmin(actor, tenantID, entry) {
		return forbidden(c, "not_owner")
	}
	return c.JSON(http.StatusOK, entry)
}

// Create submits the actor's entry for a team and day. The questions
// snapshot is taken from the team template, the scoring gateway computes
// scores (never blocking the save), and a duplicate day is a conflict.
func (h *EntryHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	actor := actorFrom(c)
	if actor == nil {
		return unauthenticated(c)
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}
	if !permission.IsTenantUser(actor, tenantID, nil) {
		return forbidden(c, "tenant_mismatch")
	}

	var req struct {
		TeamID     uint          `json:"team_id"`
		Answers    model.JSONMap `json:"answers"`
		ReportedAt string        `json:"reported_at"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.TeamID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "team_id is required"})
	}

	// Default to the server's current date, not a UTC-epoch truncation,
	// so the day boundary follows local time.
	now := time.Now()
	reportedAt := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if req.ReportedAt != "" {
		reportedAt, err = time.Parse("2006-01-02", req.ReportedAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "reported_at must be YYYY-MM-DD"})
		}
	}

	ctx := c.Request().Context()
	team, err := h.entries.GetTeam(ctx, actor.TenantID, req.TeamID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown team"})
	}

	// Phase one: scoring, with its own timeout and safe fallback.
	result := h.scorer.Score(logger.WithContext(ctx, log), team.Questions, req.Answers)

	entry := model.Entry{
		TenantID:        actor.TenantID,
		UserID:          actor.UserID,
		TeamID:          team.ID,
		Questions:       team.Questions,
		Answers:         req.Answers,
		StressScore:     &result.StressScore,
		MotivationScore: &result.MotivationScore,
		ScoreStatus:     result.Status,
		ReportedAt:      reportedAt,
	}

	// Phase two: persistence. Always runs, whatever the scorer did.
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.entries.Create(ctx, &entry); err != nil {
		if errors.Is(err, store.ErrDuplicateEntry) {
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		log.Error("Failed to create entry", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "entry creation failed"})
	}

	prometheus.EntryCreatedCounter.Inc()
	log.Info("Entry created",
		zap.Uint("entry_id", entry.ID),
		zap.Uint("team_id", entry.TeamID),
		zap.String("score_status", entry.ScoreStatus))
	return c.JSON(http.StatusCreated, entry)
}

// Update rewrites an entry's answers and re-scores them. Owner or tenant
// admin only.
func (h *EntryHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	actor := actorFrom(c)
	if actor == nil {
		return unauthenticated(c)
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}
	entryID, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid entry id"})
	}

	ctx := c.Request().Context()
	entry, err := h.entries.GetByID(ctx, actor.TenantID, entryID)
	if errors.Is(err, store.ErrEntryNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "entry not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !permission.IsOwnerOrAdmin(actor, tenantID, entry) {
		return forbidden(c, "not_owner")
	}

	var req struct {
		Answers model.JSONMap `json:"answers"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	result := h.scorer.Score(logger.WithContext(ctx, log), entry.Questions, req.Answers)
	entry.Answers = req.Answers
	entry.StressScore = &result.StressScore
	entry.MotivationScore = &result.MotivationScore
	entry.ScoreStatus = result.Status

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := h.entries.Update(ctx, entry); err != nil {
		log.Error("Failed to update entry", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, entry)
}
