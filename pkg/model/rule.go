package model

import "time"

// RuleType declares how a rule's workflow gets invoked.
type RuleType string

const (
	// RuleTypeOneTime invokes the workflow exactly once on create or enable.
	RuleTypeOneTime RuleType = "onetime"
	// RuleTypeScheduled invokes the workflow on a schedule expression.
	RuleTypeScheduled RuleType = "scheduled"
	// RuleTypeKinesis invokes the workflow for each event on a stream.
	RuleTypeKinesis RuleType = "kinesis"
)

// RuleState toggles whether a rule's trigger is live.
type RuleState string

const (
	RuleStateEnabled  RuleState = "ENABLED"
	RuleStateDisabled RuleState = "DISABLED"
)

// CollectionRef identifies a data collection by name and version.
type CollectionRef struct {
	Name    string `json:"name" bson:"name"`
	Version string `json:"version" bson:"version"`
}

// TriggerSpec declares a rule's invocation mechanism. Value holds the
// schedule expression for scheduled rules or the stream name for kinesis
// rules, and is empty for onetime rules.
type TriggerSpec struct {
	Type  RuleType `json:"type" bson:"type"`
	Value string   `json:"value,omitempty" bson:"value,omitempty"`
}

// Rule binds a collection and provider to a workflow and declares how the
// workflow is triggered. Name is unique and immutable after creation.
//
// TriggerHandle is the identifier of the live external trigger (schedule
// rule ARN, stream consumer ARN). It is derivable: non-empty iff the type
// is scheduled or kinesis AND the state is ENABLED; always empty for
// onetime rules.
type Rule struct {
	Name          string        `json:"name" bson:"_id"`
	Workflow      string        `json:"workflow" bson:"workflow"`
	Provider      string        `json:"provider,omitempty" bson:"provider,omitempty"`
	Collection    CollectionRef `json:"collection" bson:"collection"`
	Trigger       TriggerSpec   `json:"rule" bson:"rule"`
	State         RuleState     `json:"state" bson:"state"`
	TriggerHandle string        `json:"triggerHandle,omitempty" bson:"trigger_handle,omitempty"`
	CreatedAt     int64         `json:"createdAt" bson:"created_at"`
	UpdatedAt     int64         `json:"updatedAt" bson:"updated_at"`
}

// Enabled reports whether the rule's trigger should be live.
func (r *Rule) Enabled() bool { return r.State == RuleStateEnabled }

// WantsTrigger reports whether this rule should own external trigger
// infrastructure in its current state.
func (r *Rule) WantsTrigger() bool {
	return r.Enabled() && (r.Trigger.Type == RuleTypeScheduled || r.Trigger.Type == RuleTypeKinesis)
}

// Touch advances UpdatedAt, keeping it strictly greater than the previous
// value even under coarse clocks.
func (r *Rule) Touch(now time.Time) {
	ts := now.UnixMilli()
	if ts <= r.UpdatedAt {
		ts = r.UpdatedAt + 1
	}
	r.UpdatedAt = ts
}

// RulePatch is a partial-field update. Nil fields are left untouched.
// Name, CreatedAt and TriggerHandle are never patchable from the outside.
type RulePatch struct {
	Workflow   *string        `json:"workflow,omitempty"`
	Provider   *string        `json:"provider,omitempty"`
	Collection *CollectionRef `json:"collection,omitempty"`
	Trigger    *TriggerSpec   `json:"rule,omitempty"`
	State      *RuleState     `json:"state,omitempty"`
}

// Apply merges the patch into a copy of the rule and returns it.
func (p RulePatch) Apply(r Rule) Rule {
	if p.Workflow != nil {
		r.Workflow = *p.Workflow
	}
	if p.Provider != nil {
		r.Provider = *p.Provider
	}
	if p.Collection != nil {
		r.Collection = *p.Collection
	}
	if p.Trigger != nil {
		r.Trigger = *p.Trigger
	}
	if p.State != nil {
		r.State = *p.State
	}
	return r
}

// RuleView is the denormalized listing projection of a rule kept in the
// secondary index. It is rebuildable from the primary store and never a
// write target for business logic.
type RuleView struct {
	Name       string        `json:"name"`
	Workflow   string        `json:"workflow"`
	Provider   string        `json:"provider,omitempty"`
	Collection CollectionRef `json:"collection"`
	Type       RuleType      `json:"type"`
	State      RuleState     `json:"state"`
	UpdatedAt  int64         `json:"updatedAt"`
}

// ViewOf projects a rule into its index view.
func ViewOf(r Rule) RuleView {
	return RuleView{
		Name:       r.Name,
		Workflow:   r.Workflow,
		Provider:   r.Provider,
		Collection: r.Collection,
		Type:       r.Trigger.Type,
		State:      r.State,
		UpdatedAt:  r.UpdatedAt,
	}
}
