package memory

import (
	"context"
	"sync"

	"github.com/stratusbase/stratus/internal/storage/types"
	"github.com/stratusbase/stratus/pkg/model"
)

// RuleStore is an in-memory types.RuleStore with the same conditional
// write semantics as the MongoDB store. Used in tests and local runs.
type RuleStore struct {
	mu    sync.RWMutex
	rules map[string]model.Rule
}

func NewRuleStore() *RuleStore {
	return &RuleStore{rules: make(map[string]model.Rule)}
}

func (s *RuleStore) Create(_ context.Context, rule *model.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[rule.Name]; ok {
		return model.ErrExists
	}
	s.rules[rule.Name] = *rule
	return nil
}

func (s *RuleStore) Get(_ context.Context, name string) (*model.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[name]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &rule, nil
}

func (s *RuleStore) Update(_ context.Context, rule *model.Rule, prevUpdatedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rules[rule.Name]
	if !ok {
		return model.ErrNotFound
	}
	if current.UpdatedAt != prevUpdatedAt {
		return model.ErrPreconditionFailed
	}
	s.rules[rule.Name] = *rule
	return nil
}

func (s *RuleStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[name]; !ok {
		return model.ErrNotFound
	}
	delete(s.rules, name)
	return nil
}

func (s *RuleStore) List(_ context.Context) ([]model.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]model.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		rules = append(rules, r)
	}
	return rules, nil
}

// PrincipalStore is an in-memory types.PrincipalStore.
type PrincipalStore struct {
	mu         sync.RWMutex
	principals map[string]types.Principal
}

func NewPrincipalStore() *PrincipalStore {
	return &PrincipalStore{principals: make(map[string]types.Principal)}
}

func (s *PrincipalStore) Put(p types.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[p.ID] = p
}

func (s *PrincipalStore) Get(_ context.Context, id string) (*types.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.principals[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &p, nil
}

// Registry is an in-memory types.Registry seeded with known references.
type Registry struct {
	mu          sync.RWMutex
	workflows   map[string]struct{}
	providers   map[string]struct{}
	collections map[model.CollectionRef]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		workflows:   make(map[string]struct{}),
		providers:   make(map[string]struct{}),
		collections: make(map[model.CollectionRef]struct{}),
	}
}

func (r *Registry) AddWorkflow(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[name] = struct{}{}
}

func (r *Registry) AddProvider(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = struct{}{}
}

func (r *Registry) AddCollection(ref model.CollectionRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[ref] = struct{}{}
}

func (r *Registry) WorkflowExists(_ context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.workflows[name]
	return ok, nil
}

func (r *Registry) ProviderExists(_ context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok, nil
}

func (r *Registry) CollectionExists(_ context.Context, ref model.CollectionRef) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.collections[ref]
	return ok, nil
}
