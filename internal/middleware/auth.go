package middleware

import (
	"net/http"
	"strings"

	"github.com/kawamasaya/well-board/internal/model"
	"github.com/kawamasaya/well-board/internal/permission"
	"github.com/kawamasaya/well-board/pkg/jwtutil"
	"github.com/kawamasaya/well-board/pkg/logger"
	"github.com/kawamasaya/well-board/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the Bearer token and stores the resulting
// actor in the echo context under "actor".
func AuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				prometheus.RecordAuthError("unauthenticated")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format")
				prometheus.RecordAuthError("unauthenticated")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			actor := &permission.Actor{
				UserID:   claims.UserID,
				TenantID: claims.TenantID,
				Role:     model.Role(claims.Role),
			}
			c.Set("actor", actor)
			c.Set("claims", claims)
			log.Debug("JWT token validated",
				zap.Uint("user_id", claims.UserID),
				zap.Uint("tenant_id", claims.TenantID))

			return next(c)
		}
	}
}

// ActorFromEcho returns the actor stored by AuthMiddleware, or nil when
// the request is unauthenticated.
func ActorFromEcho(c echo.Context) *permission.Actor {
	actor, ok := c.Get("actor").(*permission.Actor)
	if !ok {
		return nil
	}
	return actor
}
