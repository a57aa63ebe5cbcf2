package handler

import (
	"errors"
	"net/http"
	"time"

	"fieldos/internal/middleware"
	"fieldos/internal/model"
	"fieldos/pkg/database"
	"fieldos/pkg/logger"
	"fieldos/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// addressPageSize is a defensive cap, not real pagination. Callers needing
// more rows must narrow with territory/status filters.
const addressPageSize = 2000

// AddressRow is an address plus the joined assignee display name.
type AddressRow struct {
	model.Address
	AssignedRepName *string `json:"assigned_rep_name"`
}

// ListAddresses returns the tenant's addresses with role-based visibility:
// reps see their own assignments plus the unclaimed pool; managers and admins
// see everything, optionally narrowed to one rep.
func ListAddresses(c echo.Context) error {
	log := logger.FromContext(c)

	tc := middleware.GetTenantContext(c)
	if tc == nil {
		return respondError(c, http.StatusUnauthorized, "Missing Authorization: Bearer <token>")
	}

	territory := c.QueryParam("territory")
	status := c.QueryParam("status")
	repFilter := c.QueryParam("rep_id")

	db := database.GetDB().WithContext(c.Request().Context())
	q := db.Table("addresses").
		Select("addresses.*, reps.full_name AS assigned_rep_name").
		Joins("LEFT JOIN reps ON reps.id = addresses.assigned_rep_id").
		Where("addresses.tenant_id = ?", tc.Tenant.ID)

	if tc.IsManager() {
		if repFilter != "" {
			q = q.Where("addresses.assigned_rep_id = ?", repFilter)
		}
	} else {
		// Reps see only their own work plus the unclaimed pool, no matter
		// what filters they ask for.
		if tc.RepID == nil {
			log.Warn("Rep without linked profile listing addresses",
				zap.String("user_id", tc.UserID))
			return respondError(c, http.StatusForbidden,
				"Rep is not linked to an auth user")
		}
		q = q.Where("addresses.assigned_rep_id = ? OR addresses.assigned_rep_id IS NULL", *tc.RepID)
	}

	if territory != "" {
		q = q.Where("addresses.territory = ?", territory)
	}
	if status != "" {
		q = q.Where("addresses.status = ?", status)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var rows []AddressRow
	err := q.Order("addresses.updated_at DESC").
		Limit(addressPageSize).
		Scan(&rows).Error
	if err != nil {
		log.Error("Failed to list addresses", zap.Error(err))
		return respondError(c, http.StatusInternalServerError, err.Error())
	}

	if rows == nil {
		rows = []AddressRow{}
	}

	return respondOK(c, echo.Map{
		"role":  tc.Role,
		"count": len(rows),
		"rows":  rows,
	})
}

// AssignAddressRequest is the body for POST /api/assign-address.
type AssignAddressRequest struct {
	AddressID string `json:"address_id"`
	RepID     string `json:"rep_id"` // manager/admin only: who receives the assignment
}

// AssignAddress claims or assigns an address.
//
// State machine on assigned_rep_id: a rep may claim only an unassigned
// address, and only for themself; a manager or admin may assign or reassign
// any address to a named rep.
func AssignAddress(c echo.Context) error {
	noStore(c)
	log := logger.FromContext(c)

	tc := middleware.GetTenantContext(c)
	if tc == nil {
		return respondError(c, http.StatusUnauthorized, "Missing Authorization: Bearer <token>")
	}

	var req AssignAddressRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse assign request", zap.Error(err))
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.AddressID == "" {
		return respondError(c, http.StatusBadRequest, "Missing address_id")
	}

	db := database.GetDB().WithContext(c.Request().Context())

	// Resolve who receives the assignment
	var targetRepID string
	if tc.IsManager() {
		if req.RepID == "" {
			return respondError(c, http.StatusBadRequest,
				"Missing rep_id (manager/admin must provide rep_id)")
		}
		if err := repInTenant(db, tc.Tenant.ID, req.RepID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return respondError(c, http.StatusNotFound, "Rep not found")
			}
			log.Error("Rep lookup failed", zap.Error(err))
			return respondError(c, http.StatusInternalServerError, err.Error())
		}
		targetRepID = req.RepID
	} else {
		if tc.RepID == nil {
			return respondError(c, http.StatusForbidden,
				"Rep is not linked to an auth user")
		}
		targetRepID = *tc.RepID
	}

	addr, err := loadAddress(db, tc.Tenant.ID, req.AddressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, http.StatusNotFound, "Address not found")
		}
		log.Error("Address lookup failed", zap.Error(err))
		return respondError(c, http.StatusInternalServerError, err.Error())
	}

	// Reps can only claim unassigned addresses
	if !tc.IsManager() && addr.AssignedRepID != nil {
		return respondError(c, http.StatusForbidden,
			"This address is already assigned. Reps can only claim unassigned addresses.")
	}

	claimed := addr.AssignedRepID == nil
	now := time.Now().UTC()

	update := db.Model(&model.Address{}).
		Where("id = ? AND tenant_id = ?", addr.ID, tc.Tenant.ID)
	if !tc.IsManager() {
		// Guard against a concurrent claim: the transition only fires while
		// the address is still unassigned, so the losing request updates
		// zero rows instead of silently stealing the assignment.
		update = update.Where("assigned_rep_id IS NULL")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := update.Updates(touchUpdates(targetRepID, now))
	if result.Error != nil {
		log.Error("Assignment update failed", zap.Error(result.Error))
		return respondError(c, http.StatusInternalServerError, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		if !tc.IsManager() {
			return respondError(c, http.StatusForbidden,
				"This address is already assigned. Reps can only claim unassigned addresses.")
		}
		return respondError(c, http.StatusNotFound, "Address not found")
	}

	prometheus.RecordClaim(tc.Role)
	log.Info("Address assigned",
		zap.String("address_id", addr.ID),
		zap.String("rep_id", targetRepID),
		zap.String("role", tc.Role),
		zap.Bool("claimed", claimed))

	return respondOK(c, echo.Map{
		"address_id":      addr.ID,
		"assigned_rep_id": targetRepID,
		"claimed":         claimed,
		"touched":         true,
	})
}

// touchUpdates builds the claim-intelligence column updates for one logical
// touch. first_touched_* only land when still unset and touch_count is bumped
// in the database, so concurrent touches cannot lose updates.
func touchUpdates(repID string, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"assigned_rep_id":         repID,
		"last_touched_at":         now,
		"last_touched_by_rep_id":  repID,
		"touch_count":             gorm.Expr("touch_count + 1"),
		"first_touched_at":        gorm.Expr("COALESCE(first_touched_at, ?)", now),
		"first_touched_by_rep_id": gorm.Expr("COALESCE(first_touched_by_rep_id, ?)", repID),
		"updated_at":              now,
	}
}

// loadAddress fetches an address scoped to the tenant; a row belonging to a
// different tenant reads as not found.
func loadAddress(db *gorm.DB, tenantID, addressID string) (*model.Address, error) {
	var addr model.Address
	err := db.Where("id = ? AND tenant_id = ?", addressID, tenantID).
		First(&addr).Error
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// repInTenant verifies the rep id belongs to the tenant.
func repInTenant(db *gorm.DB, tenantID, repID string) error {
	var rep model.Rep
	return db.Select("id").
		Where("id = ? AND tenant_id = ?", repID, tenantID).
		First(&rep).Error
}
