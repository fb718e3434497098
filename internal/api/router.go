package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marchbank/estate-reconciler/internal/rates"
	"github.com/marchbank/estate-reconciler/internal/reconciliation"
	"github.com/marchbank/estate-reconciler/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	bankRepo *repository.BankTransactionRepo,
	runRepo *repository.RunRepo,
	reconSvc *reconciliation.Service,
	rateCache *rates.Cache,
) http.Handler {
	h := &Handlers{
		bankRepo:  bankRepo,
		runRepo:   runRepo,
		reconSvc:  reconSvc,
		rateCache: rateCache,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Reconciliation.
		r.Post("/reconciliation/runs", h.TriggerRun)
		r.Get("/reconciliation/runs", h.ListRuns)
		r.Post("/reconciliation/force-match", h.ForceMatch)

		// Bank transactions.
		r.Get("/transactions", h.ListTransactions)

		// Dashboard.
		r.Get("/dashboard", h.GetDashboard)
	})

	return r
}
