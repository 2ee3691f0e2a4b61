package handler

import (
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

// TenantHandler serves tenant records. Listing is superuser-only;
// retrieval additionally allows a tenant's own admins.
type TenantHandler struct {
	db *gorm.DB
}

// NewTenantHandler returns a TenantHandler bound to db.
func NewTenantHandler(db *gorm.DB) *TenantHandler {
	return &TenantHandler{db: db}
}

// List returns all tenants. Superuser only.
func (h *TenantHandler) List(c echo.Context) error {
	actor := actorFrom(c)
	if !permission.IsAuthenticated(actor) {
		return unauthenticated(c)
	}
	if actor.Role != model.RoleSuperuser {
		return forbidden(c, "role_denied")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var tenants []model.Tenant
	if err := h.db.WithContext(c.Request().Context()).Order("id").Find(&tenants).Error; err != nil {
		logger.FromEcho(c).Error("Failed to list tenants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, tenants)
}

// Get returns one tenant. Superusers may read any tenant; admins only
// their own.
func (h *TenantHandler) Get(c echo.Context) error {
	actor := actorFrom(c)
	if !permission.IsAuthenticated(actor) {
		return unauthenticated(c)
	}

	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}

	if actor.Role != model.RoleSuperuser {
		if !actor.Role.OutranksOrEqual(model.RoleAdmin) || !permission.TenantMatches(actor, tenantID) {
			return forbidden(c, "tenant_mismatch")
		}
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var tenant model.Tenant
	if err := h.db.WithContext(c.Request().Context()).First(&tenant, tenantID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
	}
	return c.JSON(http.StatusOK, tenant)
}
