package provisioner

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/stratusbase/stratus/pkg/model"
)

// oneTime fires a single workflow invocation when an enabled rule is
// provisioned. There is no standing external resource, so the trigger
// handle is always empty and deprovisioning is a no-op.
type oneTime struct {
	invoker WorkflowInvoker
	logger  *slog.Logger
}

func newOneTime(invoker WorkflowInvoker, logger *slog.Logger) *oneTime {
	return &oneTime{invoker: invoker, logger: logger.With("trigger", model.RuleTypeOneTime)}
}

func (o *oneTime) Provision(ctx context.Context, rule *model.Rule) (string, error) {
	if !rule.Enabled() {
		return "", nil
	}
	if o.invoker == nil {
		return "", fmt.Errorf("workflow invoker is not configured")
	}

	inv := Invocation{
		ID:         invocationID(rule),
		RuleName:   rule.Name,
		Workflow:   rule.Workflow,
		Provider:   rule.Provider,
		Collection: rule.Collection,
	}
	if err := o.invoker.Invoke(ctx, inv); err != nil {
		return "", fmt.Errorf("invoking workflow %q: %w", rule.Workflow, model.WrapRemote(err))
	}
	o.logger.Info("workflow invoked", "rule", rule.Name, "workflow", rule.Workflow, "invocation", inv.ID)
	return "", nil
}

func (o *oneTime) Deprovision(ctx context.Context, rule *model.Rule) error {
	return nil
}

// invocationID is stable for a given rule revision, so a replay after
// a crash dedupes instead of starting a second execution.
func invocationID(rule *model.Rule) string {
	seed := rule.Name + ":" + strconv.FormatInt(rule.UpdatedAt, 10)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}
