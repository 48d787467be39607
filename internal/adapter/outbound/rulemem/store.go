// Package rulemem implements an in-memory rules.Store, for tests and
// embedding scenarios that don't need cross-process durability.
package rulemem

import (
	"context"
	"sync"
	"time"

	"github.com/rulecore/rulecore/internal/rules"
)

// Store is a thread-safe in-memory rules.Store.
type Store struct {
	mu     sync.RWMutex
	byScope map[rules.Scope][]rules.Rule
}

// New returns an empty Store.
func New() *Store {
	return &Store{byScope: make(map[rules.Scope][]rules.Rule)}
}

func (s *Store) Load(_ context.Context, scope rules.Scope) (rules.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := rules.NewRuleSet(scope)
	for _, r := range s.byScope[scope] {
		rs.Rules = append(rs.Rules, r.Clone())
	}
	return rs, nil
}

func (s *Store) Save(_ context.Context, rs rules.RuleSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC().Format(time.RFC3339)
	saved := make([]rules.Rule, len(rs.Rules))
	for i, r := range rs.Rules {
		if r.CreatedAt == "" {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
		saved[i] = r.Clone()
	}
	s.byScope[rs.Scope] = saved
	return nil
}

func (s *Store) Get(ctx context.Context, name string, scope rules.Scope) (rules.Rule, error) {
	scopesToSearch := rules.Scopes()
	if scope != "" {
		scopesToSearch = []rules.Scope{scope}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sc := range scopesToSearch {
		for _, r := range s.byScope[sc] {
			if r.Name == name {
				return r.Clone(), nil
			}
		}
	}
	return rules.Rule{}, rules.NewRuleNotFoundError(name, scope)
}

func (s *Store) Add(_ context.Context, r rules.Rule) (rules.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byScope[r.Scope] {
		if existing.Name == r.Name {
			return rules.Rule{}, &rules.ErrRuleExists{Name: r.Name, Scope: r.Scope}
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	r.CreatedAt = now
	r.UpdatedAt = now
	s.byScope[r.Scope] = append(s.byScope[r.Scope], r.Clone())
	return r, nil
}

func (s *Store) Update(_ context.Context, r rules.Rule) (rules.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byScope[r.Scope]
	for i, existing := range list {
		if existing.Name == r.Name {
			r.CreatedAt = existing.CreatedAt
			r.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			list[i] = r.Clone()
			return r, nil
		}
	}
	return rules.Rule{}, rules.NewRuleNotFoundError(r.Name, r.Scope)
}

func (s *Store) Delete(_ context.Context, name string, scope rules.Scope) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byScope[scope]
	for i, r := range list {
		if r.Name == name {
			s.byScope[scope] = append(list[:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) List(_ context.Context, scope rules.Scope) ([]rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scopesToSearch := rules.Scopes()
	if scope != "" {
		scopesToSearch = []rules.Scope{scope}
	}
	var out []rules.Rule
	for _, sc := range scopesToSearch {
		for _, r := range s.byScope[sc] {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// Backup and Restore are no-ops: an in-memory store has no durable
// directory to serialise to/from.
func (s *Store) Backup(_ context.Context, _ string) error  { return nil }
func (s *Store) Restore(_ context.Context, _ string) error { return nil }

func (s *Store) Health(_ context.Context) (bool, error) { return true, nil }

var _ rules.Store = (*Store)(nil)
