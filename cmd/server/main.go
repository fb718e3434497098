package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/marchbank/estate-reconciler/internal/api"
	"github.com/marchbank/estate-reconciler/internal/domain"
	"github.com/marchbank/estate-reconciler/internal/rates"
	"github.com/marchbank/estate-reconciler/internal/reconciliation"
	"github.com/marchbank/estate-reconciler/internal/repository"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "estate.db"
	}

	log.Printf("Initializing database at %s", dbPath)
	db, err := repository.InitDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to init DB: %v", err)
	}
	defer db.Close()

	// Create repositories.
	bankRepo := repository.NewBankTransactionRepo(db)
	revenueRepo := repository.NewRevenueRepo(db)
	runRepo := repository.NewRunRepo(db)

	// Create services.
	reconSvc := reconciliation.NewService(bankRepo, revenueRepo, runRepo)
	rateCache := rates.New(nil, fxRateTTL())

	// Seed fixtures if DB is empty.
	count, err := bankRepo.Count()
	if err != nil {
		log.Fatalf("Failed to count transactions: %v", err)
	}
	if count == 0 {
		log.Println("Database is empty, seeding fixtures from testdata...")
		if err := seedFixtures(bankRepo, revenueRepo); err != nil {
			log.Printf("WARNING: Failed to seed fixtures: %v", err)
		}
	} else {
		log.Printf("Database already has %d bank transactions, skipping seed", count)
	}

	// Create router.
	router := api.NewRouter(bankRepo, runRepo, reconSvc, rateCache)

	log.Printf("Marchbank Estate Revenue Reconciler")
	log.Printf("Listening on http://localhost:%s", port)
	log.Printf("API base: http://localhost:%s/api/v1", port)
	log.Printf("")
	log.Printf("Endpoints:")
	log.Printf("  POST   /api/v1/reconciliation/runs")
	log.Printf("  GET    /api/v1/reconciliation/runs")
	log.Printf("  POST   /api/v1/reconciliation/force-match")
	log.Printf("  GET    /api/v1/transactions")
	log.Printf("  GET    /api/v1/dashboard")

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// fxRateTTL reads FX_RATE_TTL_MINUTES, defaulting to 60 minutes.
func fxRateTTL() time.Duration {
	if v := os.Getenv("FX_RATE_TTL_MINUTES"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			return time.Duration(m) * time.Minute
		}
	}
	return time.Hour
}

type fixtureFile struct {
	BankTransactions []domain.BankTransaction `json:"bank_transactions"`
	OccupancyMetrics []domain.OccupancyMetric `json:"occupancy_metrics"`
	PosSales         []domain.PosSale         `json:"pos_sales"`
	LeasePayments    []domain.LeasePayment    `json:"lease_payments"`
}

func seedFixtures(bankRepo *repository.BankTransactionRepo, revenueRepo *repository.RevenueRepo) error {
	// Try multiple possible locations for testdata.
	candidates := []string{
		"testdata/fixtures.json",
		filepath.Join(".", "testdata", "fixtures.json"),
	}

	// Also try to find relative to the executable.
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, "testdata", "fixtures.json"),
			filepath.Join(dir, "..", "..", "testdata", "fixtures.json"),
		)
	}

	var data []byte
	var loadErr error
	for _, path := range candidates {
		data, loadErr = os.ReadFile(path)
		if loadErr == nil {
			log.Printf("Loaded fixtures from %s", path)
			break
		}
	}
	if loadErr != nil {
		return fmt.Errorf("could not find fixtures.json in any candidate path: %w", loadErr)
	}

	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("unmarshal fixtures: %w", err)
	}

	txns, err := bankRepo.BulkInsert(fixtures.BankTransactions)
	if err != nil {
		return fmt.Errorf("insert bank transactions: %w", err)
	}
	metrics, err := revenueRepo.BulkInsertOccupancy(fixtures.OccupancyMetrics)
	if err != nil {
		return fmt.Errorf("insert occupancy metrics: %w", err)
	}
	sales, err := revenueRepo.BulkInsertPosSales(fixtures.PosSales)
	if err != nil {
		return fmt.Errorf("insert pos sales: %w", err)
	}
	payments, err := revenueRepo.BulkInsertLeasePayments(fixtures.LeasePayments)
	if err != nil {
		return fmt.Errorf("insert lease payments: %w", err)
	}

	log.Printf("Seeded %d bank transactions, %d occupancy metrics, %d pos sales, %d lease payments",
		txns, metrics, sales, payments)
	return nil
}
