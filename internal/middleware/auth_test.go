package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fieldos/pkg/config"
	"fieldos/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runAuthMiddleware(t *testing.T, authorization string) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/reps", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	next := func(c echo.Context) error {
		called = true
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}

	require.NoError(t, AuthMiddleware(next)(c))
	return rec, c, called
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	rec, _, called := runAuthMiddleware(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAuthMiddleware_BadFormat(t *testing.T) {
	rec, _, called := runAuthMiddleware(t, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	rec, _, called := runAuthMiddleware(t, "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "test-key", ExpirationHours: 1})

	token, err := jwtutil.GenerateToken("rep@example.com", userID)
	require.NoError(t, err)

	rec, c, called := runAuthMiddleware(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	assert.Equal(t, userID, c.Get(ContextKeyUserID))
	assert.Equal(t, "rep@example.com", c.Get(ContextKeyEmail))
}
