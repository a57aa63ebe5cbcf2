package handler

import (
	"fmt"
	"math"
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

// Defensive caps for the metrics replay. These bound worst-case query sizes,
// they are not pagination.
const (
	maxDispositionRows     = 20000
	maxTerritoryAddressIDs = 10000
	idChunkSize            = 1000
)

// FieldMetrics computes door-knock outcome counts and the close rate for an
// optional territory/rep/date-window scope. Assignment counts reflect current
// state and ignore the date window; dispositions are replayed within it.
func FieldMetrics(c echo.Context) error {
	noStore(c)
	log := logger.FromContext(c)
	prometheus.FieldMetricsCounter.Inc()

	tc := middleware.GetTenantContext(c)
	if tc == nil {
		return respondError(c, http.StatusUnauthorized, "Missing Authorization: Bearer <token>")
	}

	territory := c.QueryParam("territory")
	repID := c.QueryParam("rep_id")

	// Reps only ever see their own numbers
	if !tc.IsManager() {
		if tc.RepID == nil {
			return respondError(c, http.StatusForbidden,
				"Rep is not linked to an auth user")
		}
		repID = *tc.RepID
	}

	from, to, err := normalizeWindow(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	db := database.GetDB().WithContext(c.Request().Context())
	defer prometheus.TrackDBOperation("query")(time.Now())

	// Current-state assignment counts, independent of the date window
	assignedQ := db.Model(&model.Address{}).
		Where("tenant_id = ? AND assigned_rep_id IS NOT NULL", tc.Tenant.ID)
	unassignedQ := db.Model(&model.Address{}).
		Where("tenant_id = ? AND assigned_rep_id IS NULL", tc.Tenant.ID)
	if territory != "" {
		assignedQ = assignedQ.Where("territory = ?", territory)
		unassignedQ = unassignedQ.Where("territory = ?", territory)
	}
	if repID != "" {
		assignedQ = assignedQ.Where("assigned_rep_id = ?", repID)
	}

	var assigned, unassignedVisible int64
	if err := assignedQ.Count(&assigned).Error; err != nil {
		log.Error("Assigned count failed", zap.Error(err))
		return respondError(c, http.StatusInternalServerError, err.Error())
	}
	if err := unassignedQ.Count(&unassignedVisible).Error; err != nil {
		log.Error("Unassigned count failed", zap.Error(err))
		return respondError(c, http.StatusInternalServerError, err.Error())
	}

	tally := newOutcomeTally()

	type dispRow struct {
		Outcome   string
		AddressID string
	}

	// Base disposition query for the rep/window scope; territory narrowing is
	// layered on top through address ids.
	baseDispQ := func() *gorm.DB {
		q := db.Model(&model.Disposition{}).
			Select("outcome", "address_id").
			Where("tenant_id = ?", tc.Tenant.ID)
		if repID != "" {
			q = q.Where("rep_id = ?", repID)
		}
		if from != nil {
			q = q.Where("created_at >= ?", *from)
		}
		if to != nil {
			q = q.Where("created_at <= ?", *to)
		}
		return q
	}

	if territory == "" {
		var rows []dispRow
		if err := baseDispQ().
			Limit(maxDispositionRows).
			Scan(&rows).Error; err != nil {
			log.Error("Disposition query failed", zap.Error(err))
			return respondError(c, http.StatusInternalServerError, err.Error())
		}
		for _, r := range rows {
			tally.add(r.Outcome, r.AddressID)
		}
	} else {
		// Territory scoping on dispositions goes through the owning
		// addresses: resolve the territory's address ids, then filter
		// dispositions in bounded chunks to keep IN lists small.
		var ids []string
		if err := db.Model(&model.Address{}).
			Where("tenant_id = ? AND territory = ?", tc.Tenant.ID, territory).
			Limit(maxTerritoryAddressIDs).
			Pluck("id", &ids).Error; err != nil {
			log.Error("Territory address lookup failed", zap.Error(err))
			return respondError(c, http.StatusInternalServerError, err.Error())
		}

		for _, chunk := range chunkStrings(ids, idChunkSize) {
			var rows []dispRow
			if err := baseDispQ().
				Where("address_id IN ?", chunk).
				Limit(maxDispositionRows).
				Scan(&rows).Error; err != nil {
				log.Error("Disposition chunk query failed", zap.Error(err))
				return respondError(c, http.StatusInternalServerError, err.Error())
			}
			for _, r := range rows {
				tally.add(r.Outcome, r.AddressID)
			}
		}
	}

	contacted := tally.contacted()

	return respondOK(c, echo.Map{
		"metrics": echo.Map{
			"assigned":           assigned,
			"unassigned_visible": unassignedVisible,
			"dispositions":       tally.total,
			"sold":               tally.sold,
			"not_home":           tally.notHome,
			"not_interested":     tally.notInterested,
			"go_back":            tally.goBack,
			"other":              tally.other,
			"contacted":          contacted,
			"worked_addresses":   len(tally.worked),
			"close_rate":         closeRate(tally.sold, contacted),
		},
	})
}

// outcomeTally buckets disposition outcomes and tracks distinct addresses.
type outcomeTally struct {
	sold          int
	notHome       int
	notInterested int
	goBack        int
	other         int
	total         int
	worked        map[string]struct{}
}

func newOutcomeTally() *outcomeTally {
	return &outcomeTally{worked: make(map[string]struct{})}
}

func (t *outcomeTally) add(outcome, addressID string) {
	switch outcome {
	case model.OutcomeSold:
		t.sold++
	case model.OutcomeNotHome:
		t.notHome++
	case model.OutcomeNotInterested:
		t.notInterested++
	case model.OutcomeGoBack:
		t.goBack++
	default:
		t.other++
	}
	t.total++
	if addressID != "" {
		t.worked[addressID] = struct{}{}
	}
}

// contacted counts the four named buckets; free-text "other" outcomes do not
// count as a contact.
func (t *outcomeTally) contacted() int {
	return t.sold + t.notHome + t.notInterested + t.goBack
}

// closeRate is sold over contacted as a percentage, one decimal place,
// zero when nothing was contacted.
func closeRate(sold, contacted int) float64 {
	if contacted == 0 {
		return 0
	}
	return math.Round(float64(sold)/float64(contacted)*1000) / 10
}

// chunkStrings splits ids into slices of at most size elements.
func chunkStrings(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	var out [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end])
	}
	return out
}

// normalizeWindow parses the optional from/to query values. Date-only values
// expand to inclusive day boundaries; full RFC3339 timestamps pass through.
func normalizeWindow(from, to string) (*time.Time, *time.Time, error) {
	parse := func(value string, endOfDay bool) (*time.Time, error) {
		if value == "" {
			return nil, nil
		}
		if day, err := time.Parse("2006-01-02", value); err == nil {
			t := day.UTC()
			if endOfDay {
				t = t.Add(24*time.Hour - time.Millisecond)
			}
			return &t, nil
		}
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			t := ts.UTC()
			return &t, nil
		}
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339", value)
	}

	fromT, err := parse(from, false)
	if err != nil {
		return nil, nil, err
	}
	toT, err := parse(to, true)
	if err != nil {
		return nil, nil, err
	}
	return fromT, toT, nil
}
