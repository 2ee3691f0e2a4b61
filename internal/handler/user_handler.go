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
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserHandler serves tenant user management. Listing and retrieval are
// open to any tenant user; creation and deletion need manager rank;
// updates need ownership or admin rank. Role assignments additionally go
// through the governance rules.
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler returns a UserHandler bound to db.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// List returns the tenant's users, superusers excluded.
func (h *UserHandler) List(c echo.Context) error {
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
	var users []model.User
	err = h.db.WithContext(c.Request().Context()).
		Preload("Teams").
		Where("tenant_id = ? AND role <> ?", actor.TenantID, model.RoleSuperuser).
		Order("id").
		Find(&users).Error
	if err != nil {
		logger.FromEcho(c).Error("Failed to list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, users)
}

// Get returns one user in the tenant.
func (h *UserHandler) Get(c echo.Context) error {
	actor := actorFrom(c)
	if actor == nil {
		return unauthenticated(c)
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}
	userID, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	user, err := h.findUser(c, actor.TenantID, userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if !permission.IsTenantUser(actor, tenantID, user) {
		return forbidden(c, "tenant_mismatch")
	}
	return c.JSON(http.StatusOK, user)
}

// Create adds a user to the tenant. Manager rank or above, and the
// requested role must pass the creation governance rules.
func (h *UserHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	actor := actorFrom(c)
	if actor == nil {
		return unauthenticated(c)
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}

	var req struct {
		Email    string     `json:"email"`
		Password string     `json:"password"`
		Name     string     `json:"name"`
		Role     model.Role `json:"role"`
		TeamIDs  []uint     `json:"team_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Role == 0 {
		req.Role = model.RoleUser
	}

	// Tenant isolation always wins; after that the role must be a real
	// one before the governance rule judges it, and the governance rule
	// answers ahead of the generic manager-rank gate, so regular users
	// get the specific message.
	if !permission.TenantMatches(actor, tenantID) {
		return forbidden(c, "tenant_mismatch")
	}
	if !req.Role.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}
	if err := permission.CanCreateUserWithRole(actor, req.Role); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if !permission.IsAdminOrManager(actor, tenantID) {
		return forbidden(c, "role_denied")
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, password and name are required"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user creation failed"})
	}

	user := model.User{
		Email:    req.Email,
		Password: string(hashed),
		Name:     req.Name,
		Role:     req.Role,
		TenantID: actor.TenantID,
	}
	if len(req.TeamIDs) > 0 {
		var teams []model.Team
		if err := h.db.WithContext(c.Request().Context()).
			Where("tenant_id = ? AND id IN ?", actor.TenantID, req.TeamIDs).
			Find(&teams).Error; err == nil {
			user.Teams = teams
		}
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.WithContext(c.Request().Context()).Create(&user).Error; err != nil {
		log.Error("Failed to create user", zap.Error(err))
		status, msg := createUserError(err)
		return c.JSON(status, echo.Map{"error": msg})
	}

	log.Info("User created",
		zap.Uint("user_id", user.ID),
		zap.String("role", user.Role.String()),
		zap.Uint("tenant_id", user.TenantID))
	return c.JSON(http.StatusCreated, user)
}

// Update modifies a user. Ownership or admin rank; role changes go
// through the change governance rules.
func (h *UserHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	actor := actorFrom(c)
	if actor == nil {
		return unauthenticated(c)
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}
	userID, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	user, err := h.findUser(c, actor.TenantID, userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if !permission.IsOwnerOrAdmin(actor, tenantID, user) {
		return forbidden(c, "not_owner")
	}

	var req struct {
		Name    *string     `json:"name"`
		Role    *model.Role `json:"role"`
		TeamIDs []uint      `json:"team_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
		}
		if err := permission.CanChangeRole(actor, *req.Role); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		updates["role"] = *req.Role
	}

	ctx := c.Request().Context()
	defer prometheus.TrackDBOperation("update")(time.Now())
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			log.Error("Failed to update user", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	if req.TeamIDs != nil {
		var teams []model.Team
		if err := h.db.WithContext(ctx).
			Where("tenant_id = ? AND id IN ?", actor.TenantID, req.TeamIDs).
			Find(&teams).Error; err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
		if err := h.db.WithContext(ctx).Model(user).Association("Teams").Replace(teams); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}

	return c.JSON(http.StatusOK, user)
}

// Delete removes a user from the tenant. Manager rank or above.
func (h *UserHandler) Delete(c echo.Context) error {
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
	userID, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	user, err := h.findUser(c, actor.TenantID, userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := h.db.WithContext(c.Request().Context()).Delete(user).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// createUserError maps an insert failure to its response, separating
// the unique-email conflict from other database errors.
func createUserError(err error) (int, string) {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return http.StatusConflict, "email already registered"
	}
	return http.StatusInternalServerError, "user creation failed"
}

func (h *UserHandler) findUser(c echo.Context, tenantID, userID uint) (*model.User, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	err := h.db.WithContext(c.Request().Context()).
		Preload("Teams").
		Where("tenant_id = ?", tenantID).
		First(&user, userID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
