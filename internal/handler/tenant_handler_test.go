package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantConfig_ReturnsBrandingAndRole(t *testing.T) {
	tc := managerContext()
	tc.Tenant.LogoURL = "https://cdn.example.com/zito.png"
	tc.Tenant.PrimaryColor = "#004488"
	tc.Tenant.Config = `{"support_phone":"555-0100","packages":["Gig200","Gig500"]}`
	tc.Tenant.Seats = 12

	c, rec := newTestContext(t, http.MethodGet, "/api/tenant-config", "", tc)
	require.NoError(t, TenantConfig(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	payload := decodeBody(t, rec)
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, "manager", payload["role"])

	tenant, ok := payload["tenant"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "zito", tenant["slug"])
	assert.Equal(t, "https://cdn.example.com/zito.png", tenant["logo_url"])
	assert.Equal(t, "#004488", tenant["primary_color"])
	assert.Equal(t, float64(12), tenant["seats"])

	// config passes through as the provisioned object, not a string
	cfg, ok := tenant["config"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "555-0100", cfg["support_phone"])
}

func TestTenantConfig_InvalidConfigFallsBackToEmptyObject(t *testing.T) {
	tc := repContext(testRepID)
	tc.Tenant.Config = "{not json"

	c, rec := newTestContext(t, http.MethodGet, "/api/tenant-config", "", tc)
	require.NoError(t, TenantConfig(c))

	payload := decodeBody(t, rec)
	tenant := payload["tenant"].(map[string]interface{})
	cfg, ok := tenant["config"].(map[string]interface{})
	require.True(t, ok)
	assert.Empty(t, cfg)
}
