package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// respondOK sends the uniform success envelope with the given payload fields.
func respondOK(c echo.Context, payload echo.Map) error {
	payload["status"] = "ok"
	return c.JSON(http.StatusOK, payload)
}

// respondError sends the uniform error envelope. The HTTP code is the
// authoritative error kind; 402 carries the payment_required status.
func respondError(c echo.Context, code int, message string) error {
	status := "error"
	if code == http.StatusPaymentRequired {
		status = "payment_required"
	}
	return c.JSON(code, echo.Map{"status": status, "message": message})
}

// noStore marks a response as uncacheable. Mutations and metrics must always
// be fresh.
func noStore(c echo.Context) {
	c.Response().Header().Set("Cache-Control", "no-store")
}
