// Package rules implements the rule lifecycle: validation, the
// conditional write to the primary store, trigger provisioning and the
// asynchronous index notification, in that order. The store write is
// the durability checkpoint; everything after it degrades to a warning
// instead of failing the request.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stratusbase/stratus/internal/index"
	"github.com/stratusbase/stratus/internal/storage/types"
	"github.com/stratusbase/stratus/pkg/model"
)

// TriggerManager reconciles external trigger infrastructure with a
// rule's declared type and state.
type TriggerManager interface {
	Provision(ctx context.Context, rule *model.Rule) (string, error)
	Deprovision(ctx context.Context, rule *model.Rule) error
}

// IndexNotifier receives fire-and-forget index mutations after a
// primary-store write commits.
type IndexNotifier interface {
	Upsert(rule model.Rule)
	Remove(name string)
}

// Result is a committed mutation plus any non-fatal degradation that
// happened after the durability checkpoint.
type Result struct {
	Rule    model.Rule
	Warning string
}

// Service drives the rule lifecycle.
type Service struct {
	store    types.RuleStore
	registry types.Registry
	triggers TriggerManager
	notifier IndexNotifier
	searcher index.RuleIndex
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(store types.RuleStore, registry types.Registry, triggers TriggerManager, notifier IndexNotifier, searcher index.RuleIndex, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		registry: registry,
		triggers: triggers,
		notifier: notifier,
		searcher: searcher,
		now:      time.Now,
		logger:   logger.With("component", "rules"),
	}
}

// Create validates and persists a new rule, then provisions its
// trigger. A provisioning failure does not roll back the record; it is
// reported as a warning and left to a later update or sweep to
// converge.
func (s *Service) Create(ctx context.Context, rule model.Rule) (*Result, error) {
	// Server-owned fields are never accepted from the caller.
	rule.TriggerHandle = ""

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, &rule); err != nil {
		return nil, err
	}

	now := s.now().UnixMilli()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := s.store.Create(ctx, &rule); err != nil {
		return nil, err
	}

	res := &Result{Rule: rule}
	if rule.Enabled() {
		s.applyTrigger(ctx, res)
	}

	s.notifier.Upsert(res.Rule)
	return res, nil
}

// Get reads the authoritative record from the primary store.
func (s *Service) Get(ctx context.Context, name string) (*model.Rule, error) {
	return s.store.Get(ctx, name)
}

// List serves listings from the secondary index. Results may trail the
// primary store until the synchronizer or the sweep catches up.
func (s *Service) List(ctx context.Context, q index.Query) ([]model.RuleView, error) {
	return s.searcher.Search(ctx, q)
}

// Update applies a partial patch under compare-and-swap on the
// updatedAt the caller read, then re-provisions the trigger when the
// patch changed the trigger spec or the state.
func (s *Service) Update(ctx context.Context, name string, patch model.RulePatch) (*Result, error) {
	existing, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	merged := patch.Apply(*existing)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, &merged); err != nil {
		return nil, err
	}

	res := &Result{}
	typeChanged := existing.Trigger.Type != merged.Trigger.Type
	triggerChanged := typeChanged || existing.Trigger != merged.Trigger || existing.State != merged.State

	// A type change retires the old trigger under its old variant
	// before the record flips to the new type.
	if typeChanged {
		if err := s.triggers.Deprovision(ctx, existing); err != nil {
			s.warn(res, name, fmt.Errorf("retiring %s trigger for %q: %w", existing.Trigger.Type, name, err))
		}
		merged.TriggerHandle = ""
	}

	merged.Touch(s.now())
	if err := s.store.Update(ctx, &merged, existing.UpdatedAt); err != nil {
		return nil, err
	}

	res.Rule = merged
	if triggerChanged {
		s.applyTrigger(ctx, res)
	}

	s.notifier.Upsert(res.Rule)
	return res, nil
}

// Delete retires the trigger first and aborts when that fails, keeping
// the record so a retry can finish the job. The index removal is
// asynchronous like every other index mutation.
func (s *Service) Delete(ctx context.Context, name string) error {
	existing, err := s.store.Get(ctx, name)
	if err != nil {
		return err
	}

	if err := s.triggers.Deprovision(ctx, existing); err != nil {
		return fmt.Errorf("%w: %w", model.ErrProvisioning, err)
	}

	if err := s.store.Delete(ctx, name); err != nil && !errors.Is(err, model.ErrNotFound) {
		return err
	}
	s.notifier.Remove(name)
	return nil
}

// applyTrigger provisions res.Rule's trigger and persists the handle
// when it changed. Failures never unwind the committed record; they
// attach a warning and leave the handle as it was.
func (s *Service) applyTrigger(ctx context.Context, res *Result) {
	handle, err := s.triggers.Provision(ctx, &res.Rule)
	if err != nil {
		s.warn(res, res.Rule.Name, fmt.Errorf("provisioning %s trigger for %q: %w", res.Rule.Trigger.Type, res.Rule.Name, err))
		return
	}
	if handle == res.Rule.TriggerHandle {
		return
	}

	prev := res.Rule.UpdatedAt
	res.Rule.TriggerHandle = handle
	res.Rule.Touch(s.now())
	if err := s.store.Update(ctx, &res.Rule, prev); err != nil {
		s.warn(res, res.Rule.Name, fmt.Errorf("recording trigger handle for %q: %w", res.Rule.Name, err))
		res.Rule.TriggerHandle = ""
		res.Rule.UpdatedAt = prev
	}
}

func (s *Service) warn(res *Result, name string, err error) {
	s.logger.Warn("non-fatal lifecycle degradation", "rule", name, "error", err)
	wrapped := fmt.Errorf("%w: %w", model.ErrProvisioning, err)
	if res.Warning == "" {
		res.Warning = wrapped.Error()
		return
	}
	res.Warning += "; " + wrapped.Error()
}

// checkReferences verifies the workflow, provider and collection a rule
// names are known to the registry.
func (s *Service) checkReferences(ctx context.Context, rule *model.Rule) error {
	ok, err := s.registry.WorkflowExists(ctx, rule.Workflow)
	if err != nil {
		return model.WrapRemote(err)
	}
	if !ok {
		return model.NewValidationError("workflow", fmt.Sprintf("unknown workflow %q", rule.Workflow))
	}

	if rule.Provider != "" {
		ok, err = s.registry.ProviderExists(ctx, rule.Provider)
		if err != nil {
			return model.WrapRemote(err)
		}
		if !ok {
			return model.NewValidationError("provider", fmt.Sprintf("unknown provider %q", rule.Provider))
		}
	}

	ok, err = s.registry.CollectionExists(ctx, rule.Collection)
	if err != nil {
		return model.WrapRemote(err)
	}
	if !ok {
		return model.NewValidationError("collection", fmt.Sprintf("unknown collection %s/%s", rule.Collection.Name, rule.Collection.Version))
	}
	return nil
}
