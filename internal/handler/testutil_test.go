package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fieldos/internal/middleware"
	"fieldos/internal/model"
	"fieldos/pkg/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB wires a sqlmock-backed gorm connection into the global DB slot.
func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	database.SetDB(gdb)
	return db, mock
}

// newTestContext builds an echo context carrying a resolved tenant context,
// the way RequireTenantContext leaves it for handlers.
func newTestContext(t *testing.T, method, target, body string, tc *middleware.TenantContext) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if tc != nil {
		c.Set(middleware.ContextKeyTenant, tc)
	}
	return c, rec
}

func repContext(repID string) *middleware.TenantContext {
	return &middleware.TenantContext{
		Tenant: testTenant(),
		Role:   model.RoleRep,
		RepID:  &repID,
		UserID: "user-1",
	}
}

func managerContext() *middleware.TenantContext {
	return &middleware.TenantContext{
		Tenant: testTenant(),
		Role:   model.RoleManager,
		UserID: "user-2",
	}
}

func testTenant() *model.Tenant {
	return &model.Tenant{
		ID:                 "11111111-1111-1111-1111-111111111111",
		Slug:               "zito",
		Name:               "Zito Fiber",
		SubscriptionStatus: "active",
	}
}

// decodeBody unmarshals the recorded JSON response.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}
