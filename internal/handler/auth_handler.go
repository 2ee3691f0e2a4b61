package handler

import (
	"net/http"
	"time"

	"github.com/kawamasaya/well-board/internal/model"
	"github.com/kawamasaya/well-board/pkg/jwtutil"
	"github.com/kawamasaya/well-board/pkg/logger"
	"github.com/kawamasaya/well-board/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler issues JWT tokens for tenant users.
type AuthHandler struct {
	db      *gorm.DB
	jwtUtil *jwtutil.JWTUtil
}

// NewAuthHandler returns an AuthHandler bound to db and jwtUtil.
func NewAuthHandler(db *gorm.DB, jwtUtil *jwtutil.JWTUtil) *AuthHandler {
	return &AuthHandler{db: db, jwtUtil: jwtUtil}
}

// Login authenticates by email and password and returns a token whose
// claims carry the user's tenant and role.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := h.db.WithContext(c.Request().Context()).Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		log.Warn("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := h.jwtUtil.GenerateToken(user.Email, user.Name, user.ID, user.TenantID, int(user.Role))
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.Uint("tenant_id", user.TenantID),
		zap.String("role", user.Role.String()))

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user": echo.Map{
			"id":        user.ID,
			"email":     user.Email,
			"name":      user.Name,
			"role":      user.Role,
			"tenant_id": user.TenantID,
		},
	})
}
