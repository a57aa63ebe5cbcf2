package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"fieldos/internal/model"
	"fieldos/pkg/cache"
	"fieldos/pkg/database"
	"fieldos/pkg/logger"
	"fieldos/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContextKeyTenant is where the resolved TenantContext is stored.
const ContextKeyTenant = "tenant_context"

// TenantContext carries everything a handler needs to act on behalf of the
// caller: the tenant, the caller's role within it, and the rep profile linked
// to the caller's identity (nil when the caller has no rep row).
type TenantContext struct {
	Tenant *model.Tenant
	Role   string
	RepID  *string
	UserID string
}

// IsManager reports whether the caller may act on behalf of other reps.
func (tc *TenantContext) IsManager() bool {
	return tc.Role == model.RoleManager || tc.Role == model.RoleAdmin
}

// GetTenantContext returns the TenantContext set by RequireTenantContext,
// or nil when resolution has not run.
func GetTenantContext(c echo.Context) *TenantContext {
	tc, ok := c.Get(ContextKeyTenant).(*TenantContext)
	if !ok {
		return nil
	}
	return tc
}

// RequireTenantContext resolves the caller's tenant, role and linked rep from
// the membership table. The subscription gate runs here so a canceled tenant
// is rejected at every entry point before any data access.
func RequireTenantContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		userID, ok := c.Get(ContextKeyUserID).(string)
		if !ok || userID == "" {
			prometheus.RecordAuthError("missing_identity")
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"status":  "error",
				"message": "Missing Authorization: Bearer <token>",
			})
		}

		ctx := c.Request().Context()
		db := database.GetDB()

		// First active membership wins
		defer prometheus.TrackDBOperation("query")(time.Now())
		var membership model.Membership
		err := db.WithContext(ctx).
			Where("user_id = ? AND is_active = ?", userID, true).
			First(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("No active membership", zap.String("user_id", userID))
			prometheus.RecordAuthError("no_membership")
			return c.JSON(http.StatusForbidden, echo.Map{
				"status":  "error",
				"message": "No active company membership for this user",
			})
		}
		if err != nil {
			log.Error("Membership lookup failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"status":  "error",
				"message": err.Error(),
			})
		}

		tenant := cache.GetTenant(ctx, membership.TenantID)
		if tenant == nil {
			var row model.Tenant
			err = db.WithContext(ctx).First(&row, "id = ?", membership.TenantID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Error("Membership points at missing tenant",
					zap.String("tenant_id", membership.TenantID))
				return c.JSON(http.StatusNotFound, echo.Map{
					"status":  "error",
					"message": "Company not found",
				})
			}
			if err != nil {
				log.Error("Tenant lookup failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"status":  "error",
					"message": err.Error(),
				})
			}
			tenant = &row
			cache.SetTenant(ctx, tenant)
		}

		if strings.EqualFold(tenant.SubscriptionStatus, model.SubscriptionStatusCanceled) {
			prometheus.RecordTenantError(tenant.ID, "subscription_canceled")
			return c.JSON(http.StatusPaymentRequired, echo.Map{
				"status":  "payment_required",
				"message": "Subscription canceled",
			})
		}

		role := strings.ToLower(membership.Role)
		if role == "" {
			role = model.RoleRep
		}

		// Linked rep profile, if any. Managers commonly have none.
		var repID *string
		var rep model.Rep
		err = db.WithContext(ctx).
			Where("tenant_id = ? AND user_id = ?", tenant.ID, userID).
			First(&rep).Error
		if err == nil {
			repID = &rep.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("Rep lookup failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"status":  "error",
				"message": err.Error(),
			})
		}

		c.Set(ContextKeyTenant, &TenantContext{
			Tenant: tenant,
			Role:   role,
			RepID:  repID,
			UserID: userID,
		})

		return next(c)
	}
}
