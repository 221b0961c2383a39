package provisioner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/stratusbase/stratus/pkg/model"
)

// Invocation is a single workflow execution request.
type Invocation struct {
	// ID is deterministic for a given rule revision so that replays
	// after a crash deduplicate on the stream.
	ID         string              `json:"id"`
	RuleName   string              `json:"ruleName"`
	Workflow   string              `json:"workflow"`
	Provider   string              `json:"provider,omitempty"`
	Collection model.CollectionRef `json:"collection"`
}

// WorkflowInvoker defines the interface for starting workflow
// executions.
type WorkflowInvoker interface {
	Invoke(ctx context.Context, inv Invocation) error
}

// natsInvoker implements WorkflowInvoker using NATS JetStream.
type natsInvoker struct {
	js            jetstream.JetStream
	subjectPrefix string
}

func NewWorkflowInvoker(nc *nats.Conn, subjectPrefix string) (WorkflowInvoker, error) {
	if nc == nil {
		return nil, fmt.Errorf("nats connection cannot be nil")
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, err
	}
	return NewWorkflowInvokerFromJS(js, subjectPrefix), nil
}

func NewWorkflowInvokerFromJS(js jetstream.JetStream, subjectPrefix string) WorkflowInvoker {
	return &natsInvoker{js: js, subjectPrefix: subjectPrefix}
}

func (p *natsInvoker) Invoke(ctx context.Context, inv Invocation) error {
	// Subject format: <prefix>.<workflow>
	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, inv.Workflow)

	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}

	// The message ID lets JetStream drop duplicate invocations of the
	// same rule revision.
	_, err = p.js.Publish(ctx, subject, data, jetstream.WithMsgID(inv.ID))
	return err
}
