package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/marchbank/estate-reconciler/internal/domain"
	"github.com/marchbank/estate-reconciler/internal/rates"
	"github.com/marchbank/estate-reconciler/internal/reconciliation"
	"github.com/marchbank/estate-reconciler/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	bankRepo  *repository.BankTransactionRepo
	runRepo   *repository.RunRepo
	reconSvc  *reconciliation.Service
	rateCache *rates.Cache
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil
		}
	}
	return &t
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- TriggerRun ---

type runRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	PropertyID  string `json:"property_id"`
}

func (h *Handlers) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	start := parseTime(req.PeriodStart)
	end := parseTime(req.PeriodEnd)
	if start == nil || end == nil {
		writeError(w, http.StatusBadRequest, "period_start and period_end are required (RFC3339 or YYYY-MM-DD)")
		return
	}
	if end.Before(*start) {
		writeError(w, http.StatusUnprocessableEntity, "period_end precedes period_start")
		return
	}

	summary, err := h.reconSvc.Run(*start, *end, req.PropertyID)
	if err != nil {
		if errors.Is(err, reconciliation.ErrRunNotLogged) {
			// Records were updated but the audit row was not written. The
			// caller must see both the summary and the degraded state.
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":   err.Error(),
				"summary": summary,
			})
			return
		}
		// Collection failed: nothing was written, cheap to retry.
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// --- ListRuns ---

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 5)

	runs, err := h.runRepo.ListRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"limit": limit,
	})
}

// --- ForceMatch ---

type forceMatchRequest struct {
	SourceType        string `json:"source_type"`
	SourceID          string `json:"source_id"`
	BankTransactionID string `json:"bank_transaction_id"`
	Notes             string `json:"notes"`
}

func (h *Handlers) ForceMatch(w http.ResponseWriter, r *http.Request) {
	var req forceMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SourceType == "" || req.SourceID == "" || req.BankTransactionID == "" {
		writeError(w, http.StatusBadRequest, "source_type, source_id and bank_transaction_id are required")
		return
	}

	result, err := h.reconSvc.ForceMatch(
		domain.SourceType(req.SourceType), req.SourceID, req.BankTransactionID, req.Notes,
	)
	if err != nil {
		if errors.Is(err, reconciliation.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- ListTransactions ---

func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.BankTransactionFilter{
		Category: q.Get("category"),
		Status:   q.Get("status"),
		From:     parseTime(q.Get("from")),
		To:       parseTime(q.Get("to")),
		Page:     parseIntDefault(q.Get("page"), 1),
		Limit:    parseIntDefault(q.Get("limit"), 50),
	}

	txns, total, err := h.bankRepo.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"total":        total,
		"page":         filter.Page,
		"limit":        filter.Limit,
	})
}

// --- GetDashboard ---

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := h.reconSvc.Dashboard()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := map[string]any{
		"recent_runs":        data.RecentRuns,
		"outstanding":        data.Outstanding,
		"overall_match_rate": data.OverallMatchRate,
	}

	// Display-only FX annotation; a rate failure never fails the dashboard.
	if h.rateCache != nil {
		if eur, err := h.rateCache.Rate("GBP", "EUR"); err == nil {
			payload["display_rates"] = map[string]string{"gbp_eur": eur.String()}
		}
	}

	writeJSON(w, http.StatusOK, payload)
}
