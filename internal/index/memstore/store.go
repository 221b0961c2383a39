package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/stratusbase/stratus/internal/index"
	"github.com/stratusbase/stratus/pkg/model"
)

// Store is an in-memory index.RuleIndex. Upserts are last-writer-wins on
// UpdatedAt per record, so reconciliation sweeps and live writers can
// interleave without clobbering newer projections with older ones.
type Store struct {
	mu    sync.RWMutex
	views map[string]model.RuleView
}

func New() *Store {
	return &Store{views: make(map[string]model.RuleView)}
}

func (s *Store) Upsert(_ context.Context, view model.RuleView) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.views[view.Name]; ok && existing.UpdatedAt > view.UpdatedAt {
		return nil
	}
	s.views[view.Name] = view
	return nil
}

func (s *Store) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, name)
	return nil
}

func (s *Store) Search(_ context.Context, q index.Query) ([]model.RuleView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]model.RuleView, 0, len(s.views))
	for _, v := range s.views {
		if q.Prefix != "" && !strings.HasPrefix(v.Name, q.Prefix) {
			continue
		}
		results = append(results, v)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}
