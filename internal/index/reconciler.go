package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stratusbase/stratus/internal/storage/types"
	"github.com/stratusbase/stratus/pkg/model"
)

// Reconciler repairs index drift by full-replacing the projection from
// the primary store. Because index upserts are last-writer-wins on
// UpdatedAt, a sweep is safe to run concurrently with live traffic.
type Reconciler struct {
	store    types.RuleStore
	idx      RuleIndex
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewReconciler creates a reconciler. interval of zero disables the
// background loop; Sweep can still be invoked directly.
func NewReconciler(store types.RuleStore, idx RuleIndex, interval time.Duration, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		store:    store,
		idx:      idx,
		interval: interval,
		logger:   logger.With("component", "index-reconciler"),
	}
}

// Sweep re-reads all primary records and replaces the index projection:
// every stored rule is upserted and every indexed record with no backing
// rule is removed.
func (r *Reconciler) Sweep(ctx context.Context) error {
	rules, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list primary records: %w", err)
	}

	alive := make(map[string]struct{}, len(rules))
	var errs []error

	for _, rule := range rules {
		alive[rule.Name] = struct{}{}
		if err := r.idx.Upsert(ctx, model.ViewOf(rule)); err != nil {
			errs = append(errs, fmt.Errorf("upsert %s: %w", rule.Name, err))
		}
	}

	views, err := r.idx.Search(ctx, Query{})
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to scan index: %w", err))
	} else {
		for _, v := range views {
			if _, ok := alive[v.Name]; ok {
				continue
			}
			if err := r.idx.Remove(ctx, v.Name); err != nil {
				errs = append(errs, fmt.Errorf("remove %s: %w", v.Name, err))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	r.logger.Info("reconciliation sweep complete", "records", len(rules))
	return nil
}

// Start launches the periodic sweep loop.
func (r *Reconciler) Start(ctx context.Context) error {
	if r.interval <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("reconciler already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go r.loop(runCtx)
	return nil
}

// Stop halts the sweep loop.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reconciler) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil && !model.IsCanceled(err) {
				r.logger.Error("reconciliation sweep failed", "error", err)
			}
		}
	}
}
