/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Boba Club Loyalty Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load optional YAML config file
  3. Initialize SQLite store
  4. Wire campaign runner and API handler
  5. Start campaign scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: loyalty.db)
           Use ":memory:" for in-memory database
  -config  Optional YAML config file with engine tunables
  -store   Store ID the scheduler runs campaigns for (repeatable via
           comma-separated list)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the campaign scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/loyalty.db"

  # Run with in-memory database and custom tunables
  ./server -db=":memory:" -config=loyalty.yaml

  # Schedule campaigns for two stores
  ./server -store="STORE-001,STORE-002"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - api/scheduler.go: Background campaign runs
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/bobaclub/loyalty-engine/api"
	"github.com/bobaclub/loyalty-engine/campaign"
	"github.com/bobaclub/loyalty-engine/loyalty"
	"github.com/bobaclub/loyalty-engine/store/sqlite"
)

// fileConfig mirrors loyalty.Config with YAML-friendly primitive types.
type fileConfig struct {
	InactiveDays       int      `yaml:"inactive_days"`
	PointsPerCurrency  string   `yaml:"points_per_currency_unit"`
	WelcomeBonusPoints int64    `yaml:"welcome_bonus_points"`
	SentimentThreshold float64  `yaml:"sentiment_threshold"`
	RecentVisitDays    int      `yaml:"recent_visit_days"`
	MilestoneVisits    []int    `yaml:"milestone_visits"`
	Priorities         []string `yaml:"priorities"`
}

func loadConfig(path string) (loyalty.Config, error) {
	cfg := loyalty.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.InactiveDays > 0 {
		cfg.InactiveDays = fc.InactiveDays
	}
	if fc.PointsPerCurrency != "" {
		rate, err := decimal.NewFromString(fc.PointsPerCurrency)
		if err != nil {
			return cfg, fmt.Errorf("parse points_per_currency_unit: %w", err)
		}
		cfg.PointsPerCurrencyUnit = rate
	}
	if fc.WelcomeBonusPoints > 0 {
		cfg.WelcomeBonusPoints = fc.WelcomeBonusPoints
	}
	if fc.SentimentThreshold != 0 {
		cfg.SentimentThreshold = fc.SentimentThreshold
	}
	if fc.RecentVisitDays > 0 {
		cfg.RecentVisitDays = fc.RecentVisitDays
	}
	if len(fc.MilestoneVisits) > 0 {
		cfg.MilestoneVisits = fc.MilestoneVisits
	}
	for _, p := range fc.Priorities {
		cfg.Priorities = append(cfg.Priorities, loyalty.CampaignKind(p))
	}
	return cfg.Normalize(), nil
}

func parseStores(list string) []loyalty.StoreID {
	var stores []loyalty.StoreID
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			stores = append(stores, loyalty.StoreID(s))
		}
	}
	return stores
}

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "loyalty.db", "SQLite database path")
	configPath := flag.String("config", "", "YAML config file")
	storeList := flag.String("store", "STORE-001", "comma-separated store IDs for scheduled campaign runs")
	flag.Parse()

	// Load config
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire campaign runner
	runner := campaign.NewRunner(store, &campaign.StaticGenerator{}, campaign.LogMessenger{}, cfg)

	// Initialize handler
	handler := api.NewHandler(store, runner, cfg)

	// Start campaign scheduler
	scheduler := api.NewCampaignScheduler(runner, parseStores(*storeList))
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🧋 Loyalty engine starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
