package handler

import (
	"encoding/json"
	"net/http"

	"fieldos/internal/middleware"
	"fieldos/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TenantConfig returns the caller's tenant branding and configuration along
// with the caller's role. The tenant is determined by the caller's membership,
// never by a client-supplied slug.
func TenantConfig(c echo.Context) error {
	log := logger.FromContext(c)

	tc := middleware.GetTenantContext(c)
	if tc == nil {
		return respondError(c, http.StatusUnauthorized, "Missing Authorization: Bearer <token>")
	}

	tenant := tc.Tenant

	// Config is stored as a jsonb string; pass it through untouched so the
	// client sees the same object shape the tenant was provisioned with.
	cfg := json.RawMessage("{}")
	if tenant.Config != "" && json.Valid([]byte(tenant.Config)) {
		cfg = json.RawMessage(tenant.Config)
	}

	log.Debug("Tenant config served",
		zap.String("tenant_id", tenant.ID),
		zap.String("slug", tenant.Slug),
		zap.String("role", tc.Role))

	return respondOK(c, echo.Map{
		"tenant": echo.Map{
			"id":                  tenant.ID,
			"slug":                tenant.Slug,
			"name":                tenant.Name,
			"logo_url":            tenant.LogoURL,
			"primary_color":       tenant.PrimaryColor,
			"config":              cfg,
			"subscription_status": tenant.SubscriptionStatus,
			"seats":               tenant.Seats,
		},
		"role": tc.Role,
	})
}
