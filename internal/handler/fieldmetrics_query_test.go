package handler

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metricsPayload(t *testing.T, payload map[string]interface{}) map[string]interface{} {
	t.Helper()
	metrics, ok := payload["metrics"].(map[string]interface{})
	require.True(t, ok, "response is missing the metrics object")
	return metrics
}

func TestFieldMetrics_TenantWide(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	// assigned and unassigned_visible counts (current state, no window)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "addresses"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "addresses"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	// disposition replay
	mock.ExpectQuery(`SELECT .+ FROM "dispositions"`).
		WillReturnRows(sqlmock.NewRows([]string{"outcome", "address_id"}).
			AddRow("sold", "a1").
			AddRow("not_home", "a1").
			AddRow("not_home", "a2").
			AddRow("go_back", "a3").
			AddRow("weird", "a4"))

	c, rec := newTestContext(t, http.MethodGet, "/api/metrics", "", managerContext())
	require.NoError(t, FieldMetrics(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	metrics := metricsPayload(t, decodeBody(t, rec))

	assert.Equal(t, float64(7), metrics["assigned"])
	assert.Equal(t, float64(5), metrics["unassigned_visible"])
	assert.Equal(t, float64(5), metrics["dispositions"])
	assert.Equal(t, float64(1), metrics["sold"])
	assert.Equal(t, float64(2), metrics["not_home"])
	assert.Equal(t, float64(1), metrics["go_back"])
	assert.Equal(t, float64(1), metrics["other"])
	// contacted excludes "other": 1 + 2 + 0 + 1
	assert.Equal(t, float64(4), metrics["contacted"])
	assert.Equal(t, float64(4), metrics["worked_addresses"])
	// 1 sold / 4 contacted = 25.0
	assert.Equal(t, 25.0, metrics["close_rate"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFieldMetrics_NoContacts(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "addresses"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "addresses"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT .+ FROM "dispositions"`).
		WillReturnRows(sqlmock.NewRows([]string{"outcome", "address_id"}))

	c, rec := newTestContext(t, http.MethodGet, "/api/metrics", "", managerContext())
	require.NoError(t, FieldMetrics(c))

	metrics := metricsPayload(t, decodeBody(t, rec))
	assert.Equal(t, float64(0), metrics["contacted"])
	// close_rate is defined as 0 when nothing was contacted
	assert.Equal(t, float64(0), metrics["close_rate"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFieldMetrics_TerritoryGoesThroughAddressIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "addresses"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "addresses"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	// territory scoping resolves address ids first
	mock.ExpectQuery(`SELECT "id" FROM "addresses"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1").AddRow("a2"))

	// then filters dispositions by those ids
	mock.ExpectQuery(`SELECT .+ FROM "dispositions"`).
		WillReturnRows(sqlmock.NewRows([]string{"outcome", "address_id"}).
			AddRow("sold", "a1").
			AddRow("not_interested", "a2"))

	c, rec := newTestContext(t, http.MethodGet, "/api/metrics?territory=T1", "", managerContext())
	require.NoError(t, FieldMetrics(c))

	metrics := metricsPayload(t, decodeBody(t, rec))
	assert.Equal(t, float64(2), metrics["dispositions"])
	assert.Equal(t, float64(2), metrics["worked_addresses"])
	assert.Equal(t, 50.0, metrics["close_rate"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFieldMetrics_EmptyTerritorySkipsDispositionQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "addresses"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "addresses"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	// No addresses in the territory: no disposition queries at all
	mock.ExpectQuery(`SELECT "id" FROM "addresses"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, rec := newTestContext(t, http.MethodGet, "/api/metrics?territory=Nowhere", "", managerContext())
	require.NoError(t, FieldMetrics(c))

	metrics := metricsPayload(t, decodeBody(t, rec))
	assert.Equal(t, float64(0), metrics["dispositions"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFieldMetrics_RepNotLinked(t *testing.T) {
	db, _ := setupMockDB(t)
	defer db.Close()

	tc := repContext(testRepID)
	tc.RepID = nil

	c, rec := newTestContext(t, http.MethodGet, "/api/metrics", "", tc)
	require.NoError(t, FieldMetrics(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFieldMetrics_InvalidWindow(t *testing.T) {
	db, _ := setupMockDB(t)
	defer db.Close()

	c, rec := newTestContext(t, http.MethodGet, "/api/metrics?from=yesterday", "", managerContext())
	require.NoError(t, FieldMetrics(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
