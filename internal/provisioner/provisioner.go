package provisioner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stratusbase/stratus/internal/provisioner/config"
	"github.com/stratusbase/stratus/pkg/model"
)

// Provisioner reconciles the live trigger of a single rule with its
// declared type and state.
//
// Provision makes the external trigger match the rule, returning the
// trigger handle, or "" when the rule should have none. Deprovision
// removes whatever external trigger the rule owns. Both are
// idempotent: repeating a call after a crash converges on the same
// external state.
type Provisioner interface {
	Provision(ctx context.Context, rule *model.Rule) (string, error)
	Deprovision(ctx context.Context, rule *model.Rule) error
}

// Set dispatches provisioning to the variant matching the rule's
// trigger type. The variant is selected once per call; rules never
// change type mid-flight because the lifecycle engine deprovisions
// under the old type before provisioning under the new one.
type Set struct {
	variants map[model.RuleType]Provisioner
	logger   *slog.Logger
}

// New builds the full variant set. Any of invoker, schedules or
// streams may be nil; rules of the corresponding type then fail
// provisioning with a configuration error instead of a panic.
func New(cfg config.Config, invoker WorkflowInvoker, schedules ScheduleClient, streams StreamClient, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "provisioner")

	variants := make(map[model.RuleType]Provisioner, 3)
	variants[model.RuleTypeOneTime] = newOneTime(invoker, logger)
	variants[model.RuleTypeScheduled] = newScheduled(cfg, schedules, logger)
	variants[model.RuleTypeKinesis] = newKinesisBinder(cfg, streams, logger)
	return &Set{variants: variants, logger: logger}
}

// NewFromVariants wires an explicit variant table. Used by tests and
// by deployments that stub out a trigger backend.
func NewFromVariants(variants map[model.RuleType]Provisioner, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{variants: variants, logger: logger.With("component", "provisioner")}
}

func (s *Set) forType(t model.RuleType) (Provisioner, error) {
	v, ok := s.variants[t]
	if ok && v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("no trigger backend for rule type %q", t)
}

func (s *Set) Provision(ctx context.Context, rule *model.Rule) (string, error) {
	v, err := s.forType(rule.Trigger.Type)
	if err != nil {
		return "", err
	}
	return v.Provision(ctx, rule)
}

func (s *Set) Deprovision(ctx context.Context, rule *model.Rule) error {
	v, err := s.forType(rule.Trigger.Type)
	if err != nil {
		return err
	}
	return v.Deprovision(ctx, rule)
}
