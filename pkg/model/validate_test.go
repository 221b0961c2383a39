package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRule() Rule {
	return Rule{
		Name:       "make_coffee",
		Workflow:   "brew",
		Provider:   "whole-foods",
		Collection: CollectionRef{Name: "compass", Version: "0.0.0"},
		Trigger:    TriggerSpec{Type: RuleTypeOneTime},
		State:      RuleStateDisabled,
	}
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Rule)
		wantField string
	}{
		{"valid onetime", func(r *Rule) {}, ""},
		{"valid scheduled", func(r *Rule) {
			r.Trigger = TriggerSpec{Type: RuleTypeScheduled, Value: "rate(5 minutes)"}
		}, ""},
		{"valid kinesis", func(r *Rule) {
			r.Trigger = TriggerSpec{Type: RuleTypeKinesis, Value: "ingest-events"}
		}, ""},
		{"onetime without provider", func(r *Rule) { r.Provider = "" }, ""},
		{"empty name", func(r *Rule) { r.Name = "" }, "name"},
		{"name with spaces", func(r *Rule) { r.Name = "bad name" }, "name"},
		{"missing workflow", func(r *Rule) { r.Workflow = "" }, "workflow"},
		{"missing collection version", func(r *Rule) { r.Collection.Version = "" }, "collection"},
		{"missing state", func(r *Rule) { r.State = "" }, "state"},
		{"bad state", func(r *Rule) { r.State = "PAUSED" }, "state"},
		{"missing type", func(r *Rule) { r.Trigger.Type = "" }, "rule.type"},
		{"bad type", func(r *Rule) { r.Trigger.Type = "cron" }, "rule.type"},
		{"onetime with value", func(r *Rule) { r.Trigger.Value = "rate(1 hour)" }, "rule.value"},
		{"scheduled without value", func(r *Rule) {
			r.Trigger = TriggerSpec{Type: RuleTypeScheduled}
		}, "rule.value"},
		{"kinesis without value", func(r *Rule) {
			r.Trigger = TriggerSpec{Type: RuleTypeKinesis}
		}, "rule.value"},
		{"scheduled without provider", func(r *Rule) {
			r.Trigger = TriggerSpec{Type: RuleTypeScheduled, Value: "rate(1 hour)"}
			r.Provider = ""
		}, "provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mutate(&r)

			err := r.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}
