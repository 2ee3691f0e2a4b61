package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kawamasaya/well-board/internal/aggregate"
	"github.com/kawamasaya/well-board/internal/model"
	"github.com/kawamasaya/well-board/internal/permission"
	"github.com/kawamasaya/well-board/internal/store"
	"github.com/kawamasaya/well-board/pkg/logger"
	"github.com/kawamasaya/well-board/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TeamEntryHandler serves the dashboard read: per-team, per-user
// stress/motivation timeseries over the trailing 90 days. The permission
// check only establishes tenant membership; narrowing to managed teams
// or the actor's own entries is done by the store query.
type TeamEntryHandler struct {
	db      *gorm.DB
	entries EntryStore
}

// NewTeamEntryHandler returns a TeamEntryHandler bound to db and the
// entry store.
func NewTeamEntryHandler(db *gorm.DB, entries EntryStore) *TeamEntryHandler {
	return &TeamEntryHandler{db: db, entries: entries}
}

// List aggregates the visible entries of the requested teams.
func (h *TeamEntryHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)
	actor := actorFrom(c)
	if actor == nil {
		return unauthenticated(c)
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}
	if !permission.IsTeamManagerOrSelf(actor, tenantID) {
		return forbidden(c, "tenant_mismatch")
	}

	teamIDs, err := parseTeamIDs(c.QueryParam("team_ids"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "team_ids must be a comma-separated list of ids"})
	}

	ctx := c.Request().Context()
	if actor.Role == model.RoleManager {
		ids, err := h.managedTeamIDs(c, actor)
		if err != nil {
			log.Error("Failed to resolve managed teams", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		actor.ManagedTeamIDs = ids
	}

	since := time.Now().AddDate(0, 0, -store.DashboardWindowDays)
	defer prometheus.TrackDBOperation("query")(time.Now())
	rows, err := h.entries.VisibleEntries(ctx, actor, actor.TenantID, teamIDs, since)
	if err != nil {
		log.Error("Failed to query team entries", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	return c.JSON(http.StatusOK, aggregate.Build(rows))
}

// managedTeamIDs loads the ids of the teams the actor manages.
func (h *TeamEntryHandler) managedTeamIDs(c echo.Context, actor *permission.Actor) ([]uint, error) {
	var ids []uint
	err := h.db.WithContext(c.Request().Context()).
		Table("team_managers").
		Joins("JOIN teams ON teams.id = team_managers.team_id").
		Where("team_managers.user_id = ? AND teams.tenant_id = ?", actor.UserID, actor.TenantID).
		Pluck("team_managers.team_id", &ids).Error
	return ids, err
}

func parseTeamIDs(raw string) ([]uint, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
