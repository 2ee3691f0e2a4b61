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
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TenantRequestHandler manages the tenant approval workflow: anyone may
// apply for a tenant, and a superuser approves or rejects the request.
// Approval creates the tenant together with its first admin user.
type TenantRequestHandler struct {
	db *gorm.DB
}

// NewTenantRequestHandler returns a TenantRequestHandler bound to db.
func NewTenantRequestHandler(db *gorm.DB) *TenantRequestHandler {
	return &TenantRequestHandler{db: db}
}

// Create registers a pending tenant request. Public endpoint.
func (h *TenantRequestHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		TenantName string `json:"tenant_name"`
		Email      string `json:"email"`
		Name       string `json:"name"`
		Domain     string `json:"domain"`
		Password   string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.TenantName == "" || req.Email == "" || req.Name == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant_name, email, name and password are required"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	request := model.TenantRequest{
		TenantName:   req.TenantName,
		Email:        req.Email,
		Name:         req.Name,
		Domain:       req.Domain,
		Status:       model.TenantRequestPending,
		PasswordHash: string(hashed),
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.WithContext(c.Request().Context()).Create(&request).Error; err != nil {
		log.Error("Failed to create tenant request", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	log.Info("Tenant request submitted",
		zap.String("tenant_name", req.TenantName),
		zap.String("email", req.Email))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "tenant request submitted, awaiting approval",
		"request": echo.Map{"id": request.ID},
	})
}

// List returns all tenant requests. Superuser only.
func (h *TenantRequestHandler) List(c echo.Context) error {
	actor := actorFrom(c)
	if !permission.IsAuthenticated(actor) {
		return unauthenticated(c)
	}
	if actor.Role != model.RoleSuperuser {
		return forbidden(c, "role_denied")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var requests []model.TenantRequest
	if err := h.db.WithContext(c.Request().Context()).Order("created_at DESC").Find(&requests).Error; err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, requests)
}

// Approve creates the tenant and its first admin user from a pending
// request. Superuser only.
func (h *TenantRequestHandler) Approve(c echo.Context) error {
	log := logger.FromEcho(c)
	actor := actorFrom(c)
	if !permission.IsAuthenticated(actor) {
		return unauthenticated(c)
	}
	if actor.Role != model.RoleSuperuser {
		return forbidden(c, "role_denied")
	}

	requestID, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}

	ctx := c.Request().Context()
	var request model.TenantRequest
	if err := h.db.WithContext(ctx).First(&request, requestID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
	}
	if request.Status != model.TenantRequestPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "request already resolved"})
	}

	now := time.Now()
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant := model.Tenant{Name: request.TenantName, Settings: model.JSONMap{"domain": request.Domain}}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}

		admin := model.User{
			Email:    request.Email,
			Password: request.PasswordHash,
			Name:     request.Name,
			Role:     model.RoleAdmin,
			TenantID: tenant.ID,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		return tx.Model(&request).Updates(map[string]interface{}{
			"status":        model.TenantRequestApproved,
			"approved_at":   now,
			"password_hash": "",
		}).Error
	})
	if err != nil {
		log.Error("Failed to approve tenant request", zap.Error(err), zap.Uint("request_id", requestID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "approval failed"})
	}

	log.Info("Tenant request approved",
		zap.Uint("request_id", requestID),
		zap.String("tenant_name", request.TenantName))

	return c.JSON(http.StatusOK, echo.Map{"message": "tenant request approved"})
}

// Reject marks a pending request rejected. Superuser only.
func (h *TenantRequestHandler) Reject(c echo.Context) error {
	actor := actorFrom(c)
	if !permission.IsAuthenticated(actor) {
		return unauthenticated(c)
	}
	if actor.Role != model.RoleSuperuser {
		return forbidden(c, "role_denied")
	}

	requestID, err := idParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}

	ctx := c.Request().Context()
	var request model.TenantRequest
	if err := h.db.WithContext(ctx).First(&request, requestID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
	}
	if request.Status != model.TenantRequestPending {
		return c.JSON(http.StatusConflict, echo.Map{"error": "request already resolved"})
	}

	err = h.db.WithContext(ctx).Model(&request).Updates(map[string]interface{}{
		"status":        model.TenantRequestRejected,
		"password_hash": "",
	}).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rejection failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "tenant request rejected"})
}
