package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/stratusbase/stratus/internal/config"
	"github.com/stratusbase/stratus/internal/gateway/rest"
	"github.com/stratusbase/stratus/internal/identity"
	"github.com/stratusbase/stratus/internal/index"
	"github.com/stratusbase/stratus/internal/index/memstore"
	"github.com/stratusbase/stratus/internal/logging"
	"github.com/stratusbase/stratus/internal/provisioner"
	"github.com/stratusbase/stratus/internal/rules"
	"github.com/stratusbase/stratus/internal/server"
	"github.com/stratusbase/stratus/internal/storage"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig("config")
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Logging error: %v", err)
	}
	defer logging.Shutdown()
	logger := slog.Default()

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer initCancel()

	// 2. Primary Store
	stores, err := storage.NewFactory(initCtx, cfg.Storage)
	if err != nil {
		logger.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	// 3. Identity Gate
	gate, err := identity.NewGate(cfg.Identity, stores.Principals())
	if err != nil {
		logger.Error("Failed to initialize identity gate", "error", err)
		os.Exit(1)
	}

	// 4. Trigger Provisioner
	var invoker provisioner.WorkflowInvoker
	nc, err := nats.Connect(cfg.Provisioner.NatsURL)
	if err != nil {
		logger.Warn("NATS unavailable, onetime rules will fail provisioning", "error", err)
	} else {
		defer nc.Close()
		invoker, err = provisioner.NewWorkflowInvoker(nc, cfg.Provisioner.InvokeSubjectPrefix)
		if err != nil {
			logger.Error("Failed to initialize workflow invoker", "error", err)
			os.Exit(1)
		}
	}
	schedules, streams, err := provisioner.NewAWSClients(initCtx, cfg.Provisioner)
	if err != nil {
		logger.Error("Failed to initialize AWS clients", "error", err)
		os.Exit(1)
	}
	triggers := provisioner.New(cfg.Provisioner, invoker, schedules, streams, logger)

	// 5. Index, Synchronizer, Reconciler
	idx := memstore.New()
	syncer := index.NewSynchronizer(cfg.Index, idx, logger)
	reconciler := index.NewReconciler(stores.Rules(), idx, cfg.Index.ReconcileInterval, logger)

	// 6. Lifecycle Engine and HTTP Surface
	svc := rules.NewService(stores.Rules(), stores.Registry(), triggers, syncer, idx, logger)
	srv := server.New(cfg.Server, logger)
	rest.NewHandler(svc, gate).RegisterRoutes(srv.HTTPMux())

	// 7. Start
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if err := syncer.Start(bgCtx); err != nil {
		logger.Error("Failed to start index synchronizer", "error", err)
		os.Exit(1)
	}
	if err := reconciler.Start(bgCtx); err != nil {
		logger.Error("Failed to start reconciler", "error", err)
		os.Exit(1)
	}

	// Warm the index before serving listings.
	if err := reconciler.Sweep(initCtx); err != nil {
		logger.Warn("Initial index sweep incomplete", "error", err)
	}

	go func() {
		if err := srv.Start(bgCtx); err != nil {
			logger.Error("Server failed", "error", err)
			bgCancel()
		}
	}()

	// 8. Wait for Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-bgCtx.Done():
	}
	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	bgCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if err := reconciler.Stop(shutdownCtx); err != nil {
		logger.Error("Reconciler shutdown error", "error", err)
	}
	if err := syncer.Stop(shutdownCtx); err != nil {
		logger.Error("Synchronizer shutdown error", "error", err)
	}
	if err := stores.Close(shutdownCtx); err != nil {
		logger.Error("Storage shutdown error", "error", err)
	}
	logger.Info("Server exiting")
}
