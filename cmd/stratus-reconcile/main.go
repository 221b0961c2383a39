// stratus-reconcile rebuilds the listing projection from the primary
// store in one pass and reports what it found. Run it to verify every
// stored rule still projects cleanly, or to measure drift before
// enabling the periodic sweep.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/stratusbase/stratus/internal/config"
	"github.com/stratusbase/stratus/internal/index"
	"github.com/stratusbase/stratus/internal/index/memstore"
	"github.com/stratusbase/stratus/internal/logging"
	"github.com/stratusbase/stratus/internal/storage"
)

func main() {
	configDir := flag.String("config", "config", "configuration directory")
	timeout := flag.Duration("timeout", time.Minute, "overall sweep deadline")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Logging error: %v", err)
	}
	defer logging.Shutdown()
	logger := slog.Default()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stores, err := storage.NewFactory(ctx, cfg.Storage)
	if err != nil {
		logger.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer func() { _ = stores.Close(ctx) }()

	idx := memstore.New()
	reconciler := index.NewReconciler(stores.Rules(), idx, 0, logger)

	start := time.Now()
	sweepErr := reconciler.Sweep(ctx)

	views, err := idx.Search(ctx, index.Query{})
	if err != nil {
		logger.Error("Projection readback failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("reconcile: %d rules projected in %s\n", len(views), time.Since(start).Round(time.Millisecond))
	if sweepErr != nil {
		logger.Error("Sweep finished with errors", "error", sweepErr)
		os.Exit(1)
	}
}
