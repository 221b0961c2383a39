// Package index keeps the secondary listing projection in step with the
// primary rule store. The projection is a lossy, rebuildable derivative:
// sync failures degrade to log lines and the reconciliation sweep heals
// whatever they left behind.
package index

import (
	"context"

	"github.com/stratusbase/stratus/pkg/model"
)

// Query narrows a listing search.
type Query struct {
	// Prefix filters by rule-name prefix when non-empty.
	Prefix string `schema:"prefix"`
	// Limit caps the result count; 0 means no cap.
	Limit int `schema:"limit"`
}

// RuleIndex is the search/listing projection target. Implementations must
// apply upserts last-writer-wins on UpdatedAt per record so that a
// reconciliation sweep can run concurrently with live traffic.
type RuleIndex interface {
	Upsert(ctx context.Context, view model.RuleView) error
	Remove(ctx context.Context, name string) error
	Search(ctx context.Context, q Query) ([]model.RuleView, error)
}
