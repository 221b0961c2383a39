package index

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/stratusbase/stratus/internal/index/config"
	"github.com/stratusbase/stratus/pkg/model"
)

type op struct {
	view   *model.RuleView
	name   string
	remove bool
}

// Synchronizer propagates primary-store mutations into the rule index.
// Mutations are applied asynchronously with a bounded retry budget; an
// exhausted budget is logged and left to the reconciliation sweep. A
// failure here never rolls back the primary-store write.
type Synchronizer struct {
	cfg    config.Config
	idx    RuleIndex
	logger *slog.Logger

	queue chan op

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	applied  atomic.Int64
	dropped  atomic.Int64
	failures atomic.Int64
}

// NewSynchronizer creates an index synchronizer.
func NewSynchronizer(cfg config.Config, idx RuleIndex, logger *slog.Logger) *Synchronizer {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		cfg:    cfg,
		idx:    idx,
		logger: logger.With("component", "index-sync"),
		queue:  make(chan op, cfg.QueueSize),
	}
}

// Start launches the worker.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("synchronizer already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(runCtx)

	s.logger.Info("index synchronizer started", "queue_size", s.cfg.QueueSize)
	return nil
}

// Stop drains in-flight work and shuts the worker down.
func (s *Synchronizer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("index synchronizer stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Upsert enqueues the rule's projection for indexing. Never blocks the
// caller: when the queue is full the mutation is dropped and counted,
// leaving repair to the reconciliation sweep.
func (s *Synchronizer) Upsert(rule model.Rule) {
	view := model.ViewOf(rule)
	select {
	case s.queue <- op{view: &view, name: rule.Name}:
	default:
		s.dropped.Add(1)
		s.logger.Warn("index queue full, dropping upsert", "rule", rule.Name)
	}
}

// Remove enqueues removal of the named rule's projection.
func (s *Synchronizer) Remove(name string) {
	select {
	case s.queue <- op{name: name, remove: true}:
	default:
		s.dropped.Add(1)
		s.logger.Warn("index queue full, dropping removal", "rule", name)
	}
}

// Stats reports synchronizer counters.
func (s *Synchronizer) Stats() (applied, dropped, failures int64) {
	return s.applied.Load(), s.dropped.Load(), s.failures.Load()
}

func (s *Synchronizer) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			// Drain whatever is already queued before giving up.
			for {
				select {
				case o := <-s.queue:
					s.applyWithRetry(context.Background(), o)
				default:
					return
				}
			}
		case o := <-s.queue:
			s.applyWithRetry(ctx, o)
		}
	}
}

func (s *Synchronizer) applyWithRetry(ctx context.Context, o op) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.RetryInterval
	bo.MaxInterval = 5 * time.Second

	err := backoff.Retry(func() error {
		return s.apply(ctx, o)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, s.cfg.MaxRetries), ctx))

	if err != nil {
		s.failures.Add(1)
		s.logger.Error("index sync failed",
			"rule", o.name,
			"remove", o.remove,
			"error", errors.Join(model.ErrIndexSync, err))
		return
	}
	s.applied.Add(1)
}

func (s *Synchronizer) apply(ctx context.Context, o op) error {
	if o.remove {
		return s.idx.Remove(ctx, o.name)
	}
	return s.idx.Upsert(ctx, *o.view)
}
