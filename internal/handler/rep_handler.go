package handler

import (
	"net/http"
	"time"

	"fieldos/internal/middleware"
	"fieldos/internal/model"
	"fieldos/pkg/database"
	"fieldos/pkg/logger"
	"fieldos/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListReps returns the tenant's active reps, managers first, then by name.
func ListReps(c echo.Context) error {
	log := logger.FromContext(c)

	tc := middleware.GetTenantContext(c)
	if tc == nil {
		return respondError(c, http.StatusUnauthorized, "Missing Authorization: Bearer <token>")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var reps []model.Rep
	err := database.GetDB().WithContext(c.Request().Context()).
		Where("tenant_id = ? AND is_active = ?", tc.Tenant.ID, true).
		Order("role DESC").
		Order("full_name ASC").
		Find(&reps).Error
	if err != nil {
		log.Error("Failed to list reps", zap.Error(err))
		return respondError(c, http.StatusInternalServerError, err.Error())
	}

	return respondOK(c, echo.Map{
		"role": tc.Role,
		"reps": reps,
	})
}
