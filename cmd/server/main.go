/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the premium rating engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), parse flags
  2. Build the zap logger
  3. Initialize SQLite store
  4. Seed the tariff grid if the database is empty
  5. Start the grid reloader when GRID_RELOAD_INTERVAL_SEC is set
  6. Configure HTTP router, start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port (PORT, default: 8080)
  -db      SQLite database path (DB_PATH, default: premium.db)
           Use ":memory:" for in-memory database
  -grid    Grid file seeded into an empty database (TARIFF_FILE)
           Empty means the embedded demonstration grid

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the grid reloader
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/premium.db"

  # Seed a fresh in-memory database from a grid file
  ./server -db=":memory:" -grid=grids/2025.yaml

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - factory/tariff.go: Grid files
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

	"github.com/warp/premium-engine/api"
	"github.com/warp/premium-engine/config"
	"github.com/warp/premium-engine/factory"
	"github.com/warp/premium-engine/logging"
	"github.com/warp/premium-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	gridFile := flag.String("grid", cfg.TariffFile, "grid file seeded into an empty database")
	flag.Parse()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("path", *dbPath), zap.Error(err))
	}
	defer store.Close()

	if err := seedIfEmpty(context.Background(), store, *gridFile, logger); err != nil {
		logger.Fatal("failed to seed tariff grid", zap.Error(err))
	}

	metrics := api.NewMetrics()

	// Grid reloader
	if *gridFile != "" && cfg.GridReloadIntervalSec > 0 {
		reloader := api.NewGridReloader(store, *gridFile, logger, metrics)
		reloader.CheckInterval = time.Duration(cfg.GridReloadIntervalSec) * time.Second
		reloader.Start()
		defer reloader.Stop()
	}

	// Initialize handler and router
	handler := api.NewHandler(store, logger, metrics)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: time.Duration(cfg.HTTPRequestTimeoutSec) * time.Second,
	})

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}

// seedIfEmpty loads gridFile, or the embedded grid, into a database with no tariff rows.
func seedIfEmpty(ctx context.Context, store *sqlite.Store, gridFile string, logger *zap.Logger) error {
	count, err := store.CountTariffs(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Info("tariff grid present", zap.Int("rows", count))
		return nil
	}

	var bundle *factory.Bundle
	source := gridFile
	if gridFile != "" {
		bundle, err = factory.LoadFile(gridFile)
	} else {
		source = "embedded default"
		bundle, err = factory.Default()
	}
	if err != nil {
		return fmt.Errorf("load %s grid: %w", source, err)
	}

	if err := factory.Seed(ctx, store, bundle); err != nil {
		return err
	}
	logger.Info("tariff grid seeded", zap.String("source", source), zap.Int("rows", len(bundle.Records)))
	return nil
}
