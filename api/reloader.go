/*
reloader.go - Automated tariff grid reload

PURPOSE:
  Periodically checks the grid file the server was seeded from and imports
  it again when its modification time changes, so a published tariff
  revision is live without a restart.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Compares the file's modification time with the last import
  - A file that fails to parse is logged and skipped; the stored grid stays
  - Imports go through factory.Seed (one transaction for the rows)

CONFIGURATION:
  - CheckInterval: How often to check (GRID_RELOAD_INTERVAL_SEC, 0 disables)

USAGE:
  reloader := NewGridReloader(store, "grids/2025.yaml", logger, metrics)
  reloader.Start()
  // ... later
  reloader.Stop()

SEE ALSO:
  - handlers.go: ImportTariffs endpoint (manual import)
  - factory/tariff.go: Grid parsing
*/
package api

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/warp/premium-engine/factory"
	"github.com/warp/premium-engine/pricing"
	"go.uber.org/zap"
)

// GridReloader re-imports a grid file when it changes.
type GridReloader struct {
	Writer        pricing.TariffWriter
	Path          string
	CheckInterval time.Duration
	Logger        *zap.Logger
	Metrics       *Metrics

	lastModified time.Time
	ticker       *time.Ticker
	stop         chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
}

// NewGridReloader creates a reloader for path. The file's current version is
// considered already imported.
func NewGridReloader(w pricing.TariffWriter, path string, logger *zap.Logger, metrics *Metrics) *GridReloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &GridReloader{
		Writer:        w,
		Path:          path,
		CheckInterval: time.Minute,
		Logger:        logger,
		Metrics:       metrics,
		stop:          make(chan struct{}),
	}
	if info, err := os.Stat(path); err == nil {
		r.lastModified = info.ModTime()
	}
	return r
}

// Start begins the periodic check.
func (r *GridReloader) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CheckInterval <= 0 || r.Path == "" || r.ticker != nil {
		return
	}

	r.ticker = time.NewTicker(r.CheckInterval)
	r.wg.Add(1)
	go r.run()

	r.Logger.Info("grid reloader started", zap.String("path", r.Path), zap.Duration("interval", r.CheckInterval))
}

// Stop stops the reloader and waits for an in-flight import.
func (r *GridReloader) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ticker != nil {
		r.ticker.Stop()
		close(r.stop)
		r.wg.Wait()
		r.ticker = nil
		r.Logger.Info("grid reloader stopped")
	}
}

func (r *GridReloader) run() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ticker.C:
			r.CheckAndReload(context.Background())
		case <-r.stop:
			return
		}
	}
}

// CheckAndReload imports the file if it changed since the last import and
// reports whether it did.
func (r *GridReloader) CheckAndReload(ctx context.Context) bool {
	info, err := os.Stat(r.Path)
	if err != nil {
		r.Logger.Warn("grid file unavailable", zap.String("path", r.Path), zap.Error(err))
		return false
	}
	if !info.ModTime().After(r.lastModified) {
		return false
	}

	bundle, err := factory.LoadFile(r.Path)
	if err != nil {
		r.Logger.Error("grid file rejected", zap.String("path", r.Path), zap.Error(err))
		r.lastModified = info.ModTime()
		return false
	}
	if err := factory.Seed(ctx, r.Writer, bundle); err != nil {
		r.Logger.Error("grid reload failed", zap.String("path", r.Path), zap.Error(err))
		return false
	}

	r.lastModified = info.ModTime()
	if r.Metrics != nil {
		r.Metrics.ObserveImport(len(bundle.Records))
	}
	r.Logger.Info("grid reloaded", zap.String("path", r.Path), zap.Int("rows", len(bundle.Records)))
	return true
}
