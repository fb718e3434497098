package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marchbank/estate-reconciler/internal/domain"
	"github.com/marchbank/estate-reconciler/internal/rates"
	"github.com/marchbank/estate-reconciler/internal/reconciliation"
	"github.com/marchbank/estate-reconciler/internal/repository"
)

func newTestServer(t *testing.T) (*httptest.Server, *repository.BankTransactionRepo, *repository.RevenueRepo) {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bankRepo := repository.NewBankTransactionRepo(db)
	revenueRepo := repository.NewRevenueRepo(db)
	runRepo := repository.NewRunRepo(db)
	reconSvc := reconciliation.NewService(bankRepo, revenueRepo, runRepo)
	rateCache := rates.New(nil, time.Hour)

	srv := httptest.NewServer(NewRouter(bankRepo, runRepo, reconSvc, rateCache))
	t.Cleanup(srv.Close)
	return srv, bankRepo, revenueRepo
}

func seedMatchedDay(t *testing.T, bankRepo *repository.BankTransactionRepo, revenueRepo *repository.RevenueRepo) {
	t.Helper()
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, bankRepo.Insert(&domain.BankTransaction{
		ID: "BTX-1", Date: date, Amount: decimal.RequireFromString("3450.00"),
		Category: domain.CategoryHotel, Status: domain.StatusPending,
	}))
	_, err := revenueRepo.BulkInsertOccupancy([]domain.OccupancyMetric{{
		ID: "OCC-1", Date: date, PropertyID: "P1",
		TotalRevenue: decimal.RequireFromString("3450.00"),
		Status:       domain.StatusPending,
		MatchedAmount: decimal.Zero, Variance: decimal.Zero,
	}})
	require.NoError(t, err)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestTriggerRunEndpoint(t *testing.T) {
	srv, bankRepo, revenueRepo := newTestServer(t)
	seedMatchedDay(t, bankRepo, revenueRepo)

	resp := postJSON(t, srv.URL+"/api/v1/reconciliation/runs", map[string]string{
		"period_start": "2024-06-01",
		"period_end":   "2024-06-30",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	run := body["run"].(map[string]any)
	assert.Equal(t, float64(1), run["matched_count"])
	assert.Equal(t, float64(100), run["match_rate"])
	assert.Equal(t, true, body["run_logged"])
}

func TestTriggerRunValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/reconciliation/runs", map[string]string{
		"period_start": "not-a-date",
		"period_end":   "2024-06-30",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/reconciliation/runs", map[string]string{
		"period_start": "2024-06-30",
		"period_end":   "2024-06-01",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestForceMatchEndpoint(t *testing.T) {
	srv, bankRepo, revenueRepo := newTestServer(t)
	seedMatchedDay(t, bankRepo, revenueRepo)

	resp := postJSON(t, srv.URL+"/api/v1/reconciliation/force-match", map[string]string{
		"source_type":         "occupancy",
		"source_id":           "OCC-1",
		"bank_transaction_id": "BTX-1",
		"notes":               "verified against statement",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, string(domain.StatusForceMatched), body["status"])

	// Unknown ids are rejected without mutation.
	resp = postJSON(t, srv.URL+"/api/v1/reconciliation/force-match", map[string]string{
		"source_type":         "occupancy",
		"source_id":           "OCC-MISSING",
		"bank_transaction_id": "BTX-1",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRunsAndDashboardEndpoints(t *testing.T) {
	srv, bankRepo, revenueRepo := newTestServer(t)
	seedMatchedDay(t, bankRepo, revenueRepo)

	resp := postJSON(t, srv.URL+"/api/v1/reconciliation/runs", map[string]string{
		"period_start": "2024-06-01",
		"period_end":   "2024-06-30",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/api/v1/reconciliation/runs?limit=3")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Len(t, body["runs"], 1)

	resp, err = http.Get(srv.URL + "/api/v1/dashboard")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, float64(100), body["overall_match_rate"])
	assert.Contains(t, body, "display_rates")
}

func TestListTransactionsEndpoint(t *testing.T) {
	srv, bankRepo, revenueRepo := newTestServer(t)
	seedMatchedDay(t, bankRepo, revenueRepo)

	resp, err := http.Get(srv.URL + "/api/v1/transactions?category=hotel")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["total"])
}
