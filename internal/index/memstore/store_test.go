package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratusbase/stratus/internal/index"
	"github.com/stratusbase/stratus/pkg/model"
)

func view(name string, updatedAt int64) model.RuleView {
	return model.RuleView{
		Name:      name,
		Workflow:  "ingest",
		Type:      model.RuleTypeOneTime,
		State:     model.RuleStateDisabled,
		UpdatedAt: updatedAt,
	}
}

func TestStore_UpsertSearch(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Upsert(ctx, view("b_rule", 1)))
	require.NoError(t, s.Upsert(ctx, view("a_rule", 1)))

	results, err := s.Search(ctx, index.Query{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Sorted by name.
	assert.Equal(t, "a_rule", results[0].Name)
	assert.Equal(t, "b_rule", results[1].Name)
}

func TestStore_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	s := New()

	newer := view("make_coffee", 200)
	newer.State = model.RuleStateEnabled
	require.NoError(t, s.Upsert(ctx, newer))

	// A stale projection (e.g. from a concurrent reconcile sweep) must not
	// clobber the newer one.
	stale := view("make_coffee", 100)
	require.NoError(t, s.Upsert(ctx, stale))

	results, err := s.Search(ctx, index.Query{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.RuleStateEnabled, results[0].State)
	assert.Equal(t, int64(200), results[0].UpdatedAt)
}

func TestStore_Remove(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Upsert(ctx, view("make_coffee", 1)))
	require.NoError(t, s.Remove(ctx, "make_coffee"))
	require.NoError(t, s.Remove(ctx, "make_coffee")) // idempotent

	results, err := s.Search(ctx, index.Query{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_SearchPrefixAndLimit(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, name := range []string{"ingest_a", "ingest_b", "export_a"} {
		require.NoError(t, s.Upsert(ctx, view(name, 1)))
	}

	results, err := s.Search(ctx, index.Query{Prefix: "ingest_"})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.Search(ctx, index.Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "export_a", results[0].Name)
}
