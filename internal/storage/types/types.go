package types

import (
	"context"
	"time"

	"github.com/stratusbase/stratus/pkg/model"
)

// Principal is a resolved identity backing a bearer token. Principals are
// provisioned out of band by the identity provider; this service only
// reads them to authorize requests.
type Principal struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Roles     []string  `bson:"roles,omitempty"`
	Disabled  bool      `bson:"disabled"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// RuleStore is the authoritative store for rules. The conditional write
// semantics here are the sole serialization point in the system: create is
// insert-if-absent keyed on name, update is compare-and-swap on the
// updatedAt the caller read.
type RuleStore interface {
	// Create inserts a rule. Returns model.ErrExists if a rule with the
	// same name already exists.
	Create(ctx context.Context, rule *model.Rule) error

	// Get returns the rule or model.ErrNotFound.
	Get(ctx context.Context, name string) (*model.Rule, error)

	// Update persists the rule conditionally on the record still carrying
	// prevUpdatedAt. Returns model.ErrNotFound if absent and
	// model.ErrPreconditionFailed if the record changed since read.
	Update(ctx context.Context, rule *model.Rule, prevUpdatedAt int64) error

	// Delete removes the rule or returns model.ErrNotFound.
	Delete(ctx context.Context, name string) error

	// List returns all rules. Used by the reconciliation sweep, not by the
	// listing API (which reads the index).
	List(ctx context.Context) ([]model.Rule, error)
}

// PrincipalStore resolves bearer-token subjects to principals.
type PrincipalStore interface {
	// Get returns the principal or model.ErrNotFound.
	Get(ctx context.Context, id string) (*Principal, error)
}

// Registry answers existence checks for the references a rule carries.
// Workflows, providers and collections are owned by sibling services;
// this engine only validates that they exist.
type Registry interface {
	WorkflowExists(ctx context.Context, name string) (bool, error)
	ProviderExists(ctx context.Context, name string) (bool, error)
	CollectionExists(ctx context.Context, ref model.CollectionRef) (bool, error)
}
