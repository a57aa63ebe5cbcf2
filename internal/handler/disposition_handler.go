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

// DispositionRequest is the body for POST /api/disposition.
type DispositionRequest struct {
	AddressID   string `json:"address_id"`
	Outcome     string `json:"outcome"`
	Note        string `json:"note"`
	SoldPackage string `json:"sold_package"`
	RepID       string `json:"rep_id"` // manager/admin only: who knocked the door
}

// RecordDisposition appends an immutable door-knock event and drives the
// address lifecycle as a side effect: the address takes the outcome as its
// status, is (re)assigned to the acting rep, and its touch fields advance.
// Both writes happen in one transaction.
func RecordDisposition(c echo.Context) error {
	noStore(c)
	log := logger.FromContext(c)

	tc := middleware.GetTenantContext(c)
	if tc == nil {
		return respondError(c, http.StatusUnauthorized, "Missing Authorization: Bearer <token>")
	}

	var req DispositionRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse disposition request", zap.Error(err))
		return respondError(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.AddressID == "" {
		return respondError(c, http.StatusBadRequest, "address_id is required")
	}
	if req.Outcome == "" {
		return respondError(c, http.StatusBadRequest, "outcome is required")
	}
	if !model.ValidOutcome(req.Outcome) {
		return respondError(c, http.StatusBadRequest,
			"Invalid outcome. Expected one of: not_home, not_interested, go_back, sold")
	}

	db := database.GetDB().WithContext(c.Request().Context())

	// Resolve the acting rep. Reps always act as themselves; any
	// caller-supplied rep_id is ignored for the rep role.
	var actingRepID string
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
		actingRepID = req.RepID
	} else {
		if tc.RepID == nil {
			return respondError(c, http.StatusForbidden,
				"Rep is not linked to an auth user")
		}
		if req.RepID != "" && req.RepID != *tc.RepID {
			log.Warn("Ignoring caller-supplied rep_id for rep role",
				zap.String("supplied", req.RepID))
		}
		actingRepID = *tc.RepID
	}

	addr, err := loadAddress(db, tc.Tenant.ID, req.AddressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, http.StatusNotFound, "Address not found")
		}
		log.Error("Address lookup failed", zap.Error(err))
		return respondError(c, http.StatusInternalServerError, err.Error())
	}

	// A rep may act only on unassigned addresses or their own
	if !tc.IsManager() && addr.AssignedRepID != nil && *addr.AssignedRepID != actingRepID {
		return respondError(c, http.StatusForbidden,
			"This address is assigned to another rep")
	}

	claimed := addr.AssignedRepID == nil
	now := time.Now().UTC()

	var note *string
	if req.Note != "" {
		note = &req.Note
	}
	// sold_package is only meaningful on a sale
	var soldPackage *string
	if req.Outcome == model.OutcomeSold && req.SoldPackage != "" {
		soldPackage = &req.SoldPackage
	}

	disposition := model.Disposition{
		TenantID:    tc.Tenant.ID,
		AddressID:   addr.ID,
		RepID:       actingRepID,
		Outcome:     req.Outcome,
		Note:        note,
		SoldPackage: soldPackage,
		Territory:   addr.Territory, // denormalized at time of action
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&disposition).Error; err != nil {
			return err
		}

		updates := touchUpdates(actingRepID, now)
		updates["status"] = req.Outcome
		updates["last_outcome"] = req.Outcome
		updates["last_note"] = note

		return tx.Model(&model.Address{}).
			Where("id = ? AND tenant_id = ?", addr.ID, tc.Tenant.ID).
			Updates(updates).Error
	})
	if err != nil {
		log.Error("Disposition transaction failed",
			zap.String("address_id", addr.ID),
			zap.Error(err))
		return respondError(c, http.StatusInternalServerError, err.Error())
	}

	prometheus.RecordDisposition(req.Outcome)
	log.Info("Disposition recorded",
		zap.String("disposition_id", disposition.ID),
		zap.String("address_id", addr.ID),
		zap.String("rep_id", actingRepID),
		zap.String("outcome", req.Outcome),
		zap.Bool("claimed", claimed))

	return respondOK(c, echo.Map{
		"disposition_id": disposition.ID,
		"address_id":     addr.ID,
		"claimed":        claimed,
	})
}
