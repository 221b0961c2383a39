package model

import "regexp"

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-]{1,64}$`)

// CheckRuleName reports whether a rule name is well formed.
func CheckRuleName(name string) bool {
	return nameRegex.MatchString(name)
}

// Validate performs schema-level checks on a rule. Reference existence
// (workflow, provider, collection) is checked separately against the
// registry by the rule store.
func (r *Rule) Validate() error {
	if !CheckRuleName(r.Name) {
		return NewValidationError("name", "must match ^[a-zA-Z0-9_-]{1,64}$")
	}
	if r.Workflow == "" {
		return NewValidationError("workflow", "is required")
	}
	if r.Collection.Name == "" || r.Collection.Version == "" {
		return NewValidationError("collection", "name and version are required")
	}

	switch r.State {
	case RuleStateEnabled, RuleStateDisabled:
	case "":
		return NewValidationError("state", "is required")
	default:
		return NewValidationError("state", "must be ENABLED or DISABLED")
	}

	switch r.Trigger.Type {
	case RuleTypeOneTime:
		if r.Trigger.Value != "" {
			return NewValidationError("rule.value", "must be empty for onetime rules")
		}
	case RuleTypeScheduled:
		if r.Trigger.Value == "" {
			return NewValidationError("rule.value", "schedule expression is required")
		}
		if r.Provider == "" {
			return NewValidationError("provider", "is required for scheduled rules")
		}
	case RuleTypeKinesis:
		if r.Trigger.Value == "" {
			return NewValidationError("rule.value", "stream name is required")
		}
		if r.Provider == "" {
			return NewValidationError("provider", "is required for kinesis rules")
		}
	case "":
		return NewValidationError("rule.type", "is required")
	default:
		return NewValidationError("rule.type", "must be onetime, scheduled or kinesis")
	}

	return nil
}
