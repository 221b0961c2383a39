package provisioner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchevents"
	cwetypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchevents/types"

	"github.com/stratusbase/stratus/internal/provisioner/config"
	"github.com/stratusbase/stratus/pkg/model"
)

// scheduled maintains one cloud schedule per enabled rule. The
// schedule name is derived from the rule name, so a repeated
// Provision updates the same schedule in place instead of creating a
// sibling. The trigger handle is the schedule's ARN.
type scheduled struct {
	cfg    config.Config
	client ScheduleClient
	logger *slog.Logger
}

func newScheduled(cfg config.Config, client ScheduleClient, logger *slog.Logger) *scheduled {
	return &scheduled{cfg: cfg, client: client, logger: logger.With("trigger", model.RuleTypeScheduled)}
}

func (s *scheduled) scheduleName(rule *model.Rule) string {
	return fmt.Sprintf("%s-%s", s.cfg.ResourcePrefix, rule.Name)
}

func (s *scheduled) Provision(ctx context.Context, rule *model.Rule) (string, error) {
	if !rule.Enabled() {
		return "", s.Deprovision(ctx, rule)
	}
	if s.client == nil {
		return "", fmt.Errorf("schedule client is not configured")
	}

	name := s.scheduleName(rule)
	out, err := s.client.PutRule(ctx, &cloudwatchevents.PutRuleInput{
		Name:               aws.String(name),
		ScheduleExpression: aws.String(rule.Trigger.Value),
		State:              cwetypes.RuleStateEnabled,
		Description:        aws.String(fmt.Sprintf("schedule for ingest rule %s", rule.Name)),
	})
	if err != nil {
		return "", fmt.Errorf("putting schedule %q: %w", name, model.WrapRemote(err))
	}

	input, err := json.Marshal(Invocation{
		ID:         invocationID(rule),
		RuleName:   rule.Name,
		Workflow:   rule.Workflow,
		Provider:   rule.Provider,
		Collection: rule.Collection,
	})
	if err != nil {
		return "", err
	}
	_, err = s.client.PutTargets(ctx, &cloudwatchevents.PutTargetsInput{
		Rule: aws.String(name),
		Targets: []cwetypes.Target{{
			Id:    aws.String(rule.Name),
			Arn:   aws.String(s.cfg.ScheduleTargetArn),
			Input: aws.String(string(input)),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("wiring schedule target for %q: %w", name, model.WrapRemote(err))
	}

	s.logger.Info("schedule provisioned", "rule", rule.Name, "schedule", name, "expression", rule.Trigger.Value)
	return aws.ToString(out.RuleArn), nil
}

func (s *scheduled) Deprovision(ctx context.Context, rule *model.Rule) error {
	if s.client == nil {
		return fmt.Errorf("schedule client is not configured")
	}

	name := s.scheduleName(rule)
	_, err := s.client.RemoveTargets(ctx, &cloudwatchevents.RemoveTargetsInput{
		Rule: aws.String(name),
		Ids:  []string{rule.Name},
	})
	if err != nil && !scheduleMissing(err) {
		return fmt.Errorf("removing schedule target for %q: %w", name, model.WrapRemote(err))
	}
	_, err = s.client.DeleteRule(ctx, &cloudwatchevents.DeleteRuleInput{Name: aws.String(name)})
	if err != nil && !scheduleMissing(err) {
		return fmt.Errorf("deleting schedule %q: %w", name, model.WrapRemote(err))
	}

	s.logger.Info("schedule removed", "rule", rule.Name, "schedule", name)
	return nil
}

// scheduleMissing reports whether the error means the schedule is
// already gone, which a removal treats as success.
func scheduleMissing(err error) bool {
	var nf *cwetypes.ResourceNotFoundException
	return errors.As(err, &nf)
}
