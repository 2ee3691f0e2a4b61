// Package handler wires the HTTP surface to the permission checks,
// stores and scoring gateway. Authorization failures are returned as a
// bare 403 with no explanation of why, so nothing about other tenants'
// structure can leak.
package handler

import (
	"net/http"
	"strconv"

	"github.com/kawamasaya/well-board/internal/middleware"
	"github.com/kawamasaya/well-board/internal/permission"
	"github.com/kawamasaya/well-board/prometheus"
	"github.com/labstack/echo/v4"
)

// actorFrom returns the actor stored by the auth middleware.
func actorFrom(c echo.Context) *permission.Actor {
	return middleware.ActorFromEcho(c)
}

// tenantIDParam parses the :tenant_id path parameter.
func tenantIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("tenant_id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// idParam parses the :id path parameter.
func idParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// forbidden records the denial and answers with a generic 403.
func forbidden(c echo.Context, denialType string) error {
	prometheus.RecordAuthError(denialType)
	return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}

// unauthenticated answers with a 401, distinct from authorization denial.
func unauthenticated(c echo.Context) error {
	prometheus.RecordAuthError("unauthenticated")
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
}

// HealthCheck reports service liveness.
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler(c echo.Context) error {
	prometheus.GetPrometheusHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}
