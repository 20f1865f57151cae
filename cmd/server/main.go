/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the point-of-sale register server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Initialize SQLite store
  3. Seed the catalog when the store is empty
  4. Pick the fiscal authority (remote client or in-process simulator)
  5. Build session, checkout coordinator and API handler
  6. Start the stock monitor and the HTTP server with graceful shutdown

CONFIGURATION:
  See config/config.go for every flag and POS_* variable.

FISCAL AUTHORITY:
  With -fiscal-url the register talks JSON over HTTP to that authority.
  Without it an in-process simulator issues authorization codes, and is
  also mounted at /fiscal for inspection.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the stock monitor
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/pos.db"

  # Run in fiscal mode against a remote authority
  POS_BILLING_MODE=fiscal ./server -fiscal-url=http://afip-gateway:9000

  # Run with in-memory database on a different port
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/api"
	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/config"
	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/factory"
	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/fiscal"
	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/pos"
	"github.com/constantinstr/MASPOS-Sale-Laravel-Fast/store/sqlite"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	log.SetLevel(cfg.LogLevel)

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer store.Close()

	if err := seedCatalog(context.Background(), store, cfg); err != nil {
		log.Fatalf("failed to seed catalog: %v", err)
	}

	// Fiscal authority
	var (
		authority pos.FiscalAuthority
		simulator *fiscal.Simulator
	)
	if cfg.FiscalURL != "" {
		authority = fiscal.NewClient(cfg.FiscalURL)
		log.WithField("url", cfg.FiscalURL).Info("using remote fiscal authority")
	} else {
		simulator = fiscal.NewSimulator()
		authority = simulator
		log.Info("using in-process fiscal simulator")
	}

	// Register core
	billing := pos.NewBillingEngine(cfg.TaxRate, cfg.Currency)
	if err := billing.SetMode(cfg.BillingMode); err != nil {
		log.Fatalf("invalid billing mode: %v", err)
	}
	session := pos.NewSession(store, billing)
	session.Subscribe(func(v pos.View) {
		log.WithFields(logrus.Fields{
			"items": v.TotalItems,
			"mode":  v.Mode,
			"total": v.Billing.Total.String(),
		}).Debug("cart changed")
	})

	coordinator := pos.NewCoordinator(session, authority)
	coordinator.Recorder = store
	coordinator.FiscalTimeout = cfg.FiscalTimeout
	coordinator.Logger = log.WithField("component", "checkout")

	// Handler, monitor and router
	handler := api.NewHandler(store, coordinator, log.WithField("component", "api"))
	handler.CatalogFactory.Currency = billing.Currency()
	handler.Monitor = api.NewStockMonitor(store, log)
	handler.Monitor.Start()
	defer handler.Monitor.Stop()

	router := api.NewRouter(handler)
	if simulator != nil {
		router.Mount("/fiscal", simulator.Router())
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.FiscalTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logrus.Fields{
			"addr":         cfg.Addr(),
			"db":           cfg.DBPath,
			"billing_mode": cfg.BillingMode,
			"currency":     billing.Currency(),
			"tax_rate":     billing.TaxRate().String(),
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	log.Info("server stopped")
}

// seedCatalog loads the configured catalog file, or the built-in demo
// catalog, into an empty store. A store with products is left alone.
func seedCatalog(ctx context.Context, store *sqlite.Store, cfg config.Config) error {
	existing, err := store.List(ctx, pos.ProductFilter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.WithField("products", len(existing)).Info("catalog already loaded")
		return nil
	}

	catalogJSON := factory.DefaultCatalogJSON
	if cfg.CatalogPath != "" {
		raw, err := os.ReadFile(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("failed to read catalog %s: %w", cfg.CatalogPath, err)
		}
		catalogJSON = string(raw)
	}

	f := factory.NewCatalogFactory()
	f.Currency = cfg.Currency
	products, err := f.ParseCatalog(catalogJSON)
	if err != nil {
		return err
	}
	if err := store.SaveProducts(ctx, products); err != nil {
		return err
	}
	log.WithField("products", len(products)).Info("catalog seeded")
	return nil
}
