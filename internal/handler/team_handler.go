package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/kawamasaya/well-board/internal/model"
	"github.com/kawamasaya/well-board/internal/permission"
	"github.com/kawamasaya/well-board/pkg/logger"
	"github.com/kawamasaya/well-board/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TeamHandler serves team management. Reads are open to any tenant user;
// writes need manager rank or above.
type TeamHandler struct {
	db *gorm.DB
}

// NewTeamHandler returns a TeamHandler bound to db.
func NewTeamHandler(db *gorm.DB) *TeamHandler {
	return &TeamHandler{db: db}
}

// List returns the tenant's teams.
func (h *TeamHandler) List(c echo.Context) error {
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
	var teams []model.Team
	err = h.db.WithContext(c.Request().Context()).
		Preload("Managers").
		Where("tenant_id = ?", actor.TenantID).
		Order("id").
		Find(&teams).Error
	if err != nil {
		logger.FromEcho(c).Error("Failed to list teams", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, teams)
}

// Get returns one team in the tenant.
func (h *TeamHandler) Get(c echo.Context) error {
	actor := actorFrom(c)
	if actor == nil {
		return unauthenticated(c)
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}
	teamID, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid team id"})
	}

	team, err := h.findTeam(c, actor.TenantID, teamID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "team not found"})
	}
	if !permission.IsTenantUser(actor, tenantID, team) {
		return forbidden(c, "tenant_mismatch")
	}
	return c.JSON(http.StatusOK, team)
}

// Create adds a team to the tenant. Manager rank or above.
func (h *TeamHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	actor := actorFrom(c)
	if actor == nil {
		return unauthenticated(c)
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}
	if !permission.IsAdminOrManager(actor, tenantID) {
		return forbidden(c, "role_denied")
	}

	var req struct {
		Name       string        `json:"name"`
		Questions  model.JSONMap `json:"questions"`
		ManagerIDs []uint        `json:"manager_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	team := model.Team{
		Name:      req.Name,
		Questions: req.Questions,
		TenantID:  actor.TenantID,
	}

	ctx := c.Request().Context()
	managers, err := h.managerUsers(c, req.ManagerIDs)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	team.Managers = managers

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.WithContext(ctx).Create(&team).Error; err != nil {
		log.Error("Failed to create team", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "team creation failed"})
	}

	log.Info("Team created", zap.Uint("team_id", team.ID), zap.Uint("tenant_id", team.TenantID))
	return c.JSON(http.StatusCreated, team)
}

// Update modifies a team. Manager rank or above.
func (h *TeamHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	actor := actorFrom(c)
	if actor == nil {
		return unauthenticated(c)
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}
	if !permission.IsAdminOrManager(actor, tenantID) {
		return forbidden(c, "role_denied")
	}
	teamID, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid team id"})
	}

	team, err := h.findTeam(c, actor.TenantID, teamID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "team not found"})
	}

	var req struct {
		Name       *string       `json:"name"`
		Questions  model.JSONMap `json:"questions"`
		ManagerIDs []uint        `json:"manager_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Questions != nil {
		updates["questions"] = req.Questions
	}

	ctx := c.Request().Context()
	defer prometheus.TrackDBOperation("update")(time.Now())
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(team).Updates(updates).Error; err != nil {
			log.Error("Failed to update team", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	if req.ManagerIDs != nil {
		managers, err := h.managerUsers(c, req.ManagerIDs)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		if err := h.db.WithContext(ctx).Model(team).Association("Managers").Replace(managers); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}

	return c.JSON(http.StatusOK, team)
}

// Delete removes a team. Manager rank or above.
func (h *TeamHandler) Delete(c echo.Context) error {
	actor := actorFrom(c)
	if actor == nil {
		return unauthenticated(c)
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}
	if !permission.IsAdminOrManager(actor, tenantID) {
		return forbidden(c, "role_denied")
	}
	teamID, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid team id"})
	}

	team, err := h.findTeam(c, actor.TenantID, teamID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "team not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.db.WithContext(c.Request().Context()).Delete(team).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TeamHandler) findTeam(c echo.Context, tenantID, teamID uint) (*model.Team, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var team model.Team
	err := h.db.WithContext(c.Request().Context()).
		Preload("Managers").
		Where("tenant_id = ?", tenantID).
		First(&team, teamID).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// managerUsers resolves manager ids to users of this tenant, restricted
// to admin and manager roles.
func (h *TeamHandler) managerUsers(c echo.Context, ids []uint) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	actor := actorFrom(c)

	var managers []model.User
	err := h.db.WithContext(c.Request().Context()).
		Where("tenant_id = ? AND id IN ? AND role IN ?", actor.TenantID, ids,
			[]model.Role{model.RoleAdmin, model.RoleManager}).
		Find(&managers).Error
	if err != nil {
		return nil, err
	}
	if len(managers) != len(ids) {
		return nil, errInvalidManagers
	}
	return managers, nil
}

var errInvalidManagers = errors.New("managers must be admins or managers of this tenant")
