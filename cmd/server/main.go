/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Seed the leave type catalog
  5. Wire ledger, validator and request service
  6. Configure HTTP router
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides APP_PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

CATALOG:
  If LEAVE_CATALOG_FILE is set, every entry in the file is upserted on boot.
  Otherwise the default organization gets the built-in catalog the first
  time it starts with no leave types.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides APP_PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.App.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	if err := seedCatalog(context.Background(), store, cfg, logger); err != nil {
		return err
	}

	ledger := leave.NewBalanceLedger(store,
		leave.WithOverdraft(cfg.Leave.AllowOverdraft),
		leave.WithLedgerLogger(logger),
	)
	svc := leave.NewRequestService(store, store,
		leave.WithLedger(ledger),
		leave.WithValidator(leave.NewValidator(cfg.Thresholds())),
		leave.WithNotifier(leave.LogNotifier{Logger: logger.Named("leave.events")}),
		leave.WithLogger(logger),
	)

	handler := api.NewHandler(svc, store, cfg.Leave.DefaultOrganization, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.App.Port),
			zap.String("env", cfg.App.Env),
			zap.String("db", cfg.Database.Path),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// seedCatalog loads leave types from the configured file, or installs the
// default catalog for an organization that has none.
func seedCatalog(ctx context.Context, store leave.Store, cfg *config.Config, logger *zap.Logger) error {
	var policies []leave.LeaveTypePolicy
	if cfg.Leave.CatalogFile != "" {
		loaded, err := factory.LoadCatalogFile(cfg.Leave.CatalogFile)
		if err != nil {
			return err
		}
		policies = loaded
	} else {
		existing, err := store.ListLeaveTypes(ctx, cfg.Leave.DefaultOrganization)
		if err != nil {
			return fmt.Errorf("failed to list leave types: %w", err)
		}
		if len(existing) > 0 {
			return nil
		}
		policies = factory.DefaultCatalog(cfg.Leave.DefaultOrganization)
	}

	now := time.Now().UTC()
	for _, p := range policies {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		if err := store.SaveLeaveType(ctx, p); err != nil {
			return fmt.Errorf("failed to seed leave type %s/%s: %w", p.OrganizationID, p.ID, err)
		}
	}
	logger.Info("leave type catalog seeded", zap.Int("count", len(policies)))
	return nil
}
