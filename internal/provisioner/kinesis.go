package provisioner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	kintypes "github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/stratusbase/stratus/internal/provisioner/config"
	"github.com/stratusbase/stratus/pkg/model"
)

// kinesisBinder registers a dedicated stream consumer per enabled
// rule. The consumer name is derived from the rule name, so repeated
// provisioning converges on a single consumer. The trigger handle is
// the consumer's ARN.
//
// Stream and consumer readiness are polled with bounded backoff;
// exhausting the budget surfaces an error without touching the rule
// record, leaving convergence to a later provisioning pass.
type kinesisBinder struct {
	cfg    config.Config
	client StreamClient
	logger *slog.Logger
}

func newKinesisBinder(cfg config.Config, client StreamClient, logger *slog.Logger) *kinesisBinder {
	return &kinesisBinder{cfg: cfg, client: client, logger: logger.With("trigger", model.RuleTypeKinesis)}
}

func (k *kinesisBinder) consumerName(rule *model.Rule) string {
	return fmt.Sprintf("%s-%s", k.cfg.ResourcePrefix, rule.Name)
}

func (k *kinesisBinder) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = k.cfg.RetryInterval
	bo.MaxInterval = 10 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(bo, k.cfg.MaxRetries), ctx)
}

func (k *kinesisBinder) Provision(ctx context.Context, rule *model.Rule) (string, error) {
	if !rule.Enabled() {
		return "", k.Deprovision(ctx, rule)
	}
	if k.client == nil {
		return "", fmt.Errorf("stream client is not configured")
	}

	stream := rule.Trigger.Value
	streamARN, err := k.waitForStream(ctx, stream)
	if err != nil {
		return "", fmt.Errorf("waiting for stream %q: %w", stream, err)
	}

	name := k.consumerName(rule)
	consumerARN, err := k.register(ctx, streamARN, name)
	if err != nil {
		return "", fmt.Errorf("registering consumer %q on stream %q: %w", name, stream, err)
	}
	if err := k.waitForConsumer(ctx, consumerARN); err != nil {
		return "", fmt.Errorf("waiting for consumer %q: %w", name, err)
	}

	k.logger.Info("stream consumer bound", "rule", rule.Name, "stream", stream, "consumer", name)
	return consumerARN, nil
}

// waitForStream polls until the stream reports ACTIVE and returns its
// ARN.
func (k *kinesisBinder) waitForStream(ctx context.Context, stream string) (string, error) {
	return backoff.RetryWithData(func() (string, error) {
		out, err := k.client.DescribeStreamSummary(ctx, &kinesis.DescribeStreamSummaryInput{
			StreamName: aws.String(stream),
		})
		if err != nil {
			return "", model.WrapRemote(err)
		}
		desc := out.StreamDescriptionSummary
		if desc.StreamStatus != kintypes.StreamStatusActive {
			return "", fmt.Errorf("stream status is %s", desc.StreamStatus)
		}
		return aws.ToString(desc.StreamARN), nil
	}, k.newBackOff(ctx))
}

// register creates the consumer, or resolves the existing one when a
// previous attempt already registered it.
func (k *kinesisBinder) register(ctx context.Context, streamARN, name string) (string, error) {
	out, err := k.client.RegisterStreamConsumer(ctx, &kinesis.RegisterStreamConsumerInput{
		StreamARN:    aws.String(streamARN),
		ConsumerName: aws.String(name),
	})
	if err == nil {
		return aws.ToString(out.Consumer.ConsumerARN), nil
	}

	var inUse *kintypes.ResourceInUseException
	if !errors.As(err, &inUse) {
		return "", model.WrapRemote(err)
	}
	desc, err := k.client.DescribeStreamConsumer(ctx, &kinesis.DescribeStreamConsumerInput{
		StreamARN:    aws.String(streamARN),
		ConsumerName: aws.String(name),
	})
	if err != nil {
		return "", model.WrapRemote(err)
	}
	return aws.ToString(desc.ConsumerDescription.ConsumerARN), nil
}

// waitForConsumer polls until the consumer reports ACTIVE.
func (k *kinesisBinder) waitForConsumer(ctx context.Context, consumerARN string) error {
	return backoff.Retry(func() error {
		out, err := k.client.DescribeStreamConsumer(ctx, &kinesis.DescribeStreamConsumerInput{
			ConsumerARN: aws.String(consumerARN),
		})
		if err != nil {
			return model.WrapRemote(err)
		}
		if status := out.ConsumerDescription.ConsumerStatus; status != kintypes.ConsumerStatusActive {
			return fmt.Errorf("consumer status is %s", status)
		}
		return nil
	}, k.newBackOff(ctx))
}

func (k *kinesisBinder) Deprovision(ctx context.Context, rule *model.Rule) error {
	if k.client == nil {
		return fmt.Errorf("stream client is not configured")
	}

	input := &kinesis.DeregisterStreamConsumerInput{}
	if rule.TriggerHandle != "" {
		input.ConsumerARN = aws.String(rule.TriggerHandle)
	} else {
		// No recorded handle; fall back to the deterministic name on
		// the declared stream.
		out, err := k.client.DescribeStreamSummary(ctx, &kinesis.DescribeStreamSummaryInput{
			StreamName: aws.String(rule.Trigger.Value),
		})
		if err != nil {
			if consumerMissing(err) {
				return nil
			}
			return fmt.Errorf("resolving stream %q: %w", rule.Trigger.Value, model.WrapRemote(err))
		}
		input.StreamARN = out.StreamDescriptionSummary.StreamARN
		input.ConsumerName = aws.String(k.consumerName(rule))
	}

	if _, err := k.client.DeregisterStreamConsumer(ctx, input); err != nil && !consumerMissing(err) {
		return fmt.Errorf("deregistering consumer for rule %q: %w", rule.Name, model.WrapRemote(err))
	}
	k.logger.Info("stream consumer released", "rule", rule.Name)
	return nil
}

// consumerMissing reports whether the error means the consumer or its
// stream is already gone, which a removal treats as success.
func consumerMissing(err error) bool {
	var nf *kintypes.ResourceNotFoundException
	return errors.As(err, &nf)
}
