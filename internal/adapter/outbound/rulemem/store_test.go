package rulemem

import (
	"context"
	"sync"
	"testing"

	"github.com/rulecore/rulecore/internal/rules"
)

func TestStore_AddAndGet(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	r := rules.Rule{Name: "r1", Scope: rules.ScopeProject, Priority: 50}

	added, err := s.Add(ctx, r)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if added.CreatedAt == "" || added.UpdatedAt == "" {
		t.Error("Add should stamp CreatedAt/UpdatedAt")
	}

	got, err := s.Get(ctx, "r1", rules.ScopeProject)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Name != "r1" {
		t.Errorf("Get returned %+v", got)
	}
}

func TestStore_AddDuplicateFails(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	r := rules.Rule{Name: "dup", Scope: rules.ScopeGlobal}
	if _, err := s.Add(ctx, r); err != nil {
		t.Fatalf("first Add error: %v", err)
	}
	_, err := s.Add(ctx, r)
	if err == nil {
		t.Fatal("expected an error adding a duplicate rule name")
	}
	var exists *rules.ErrRuleExists
	if e, ok := err.(*rules.ErrRuleExists); ok {
		exists = e
	}
	if exists == nil {
		t.Fatalf("error type = %T, want *rules.ErrRuleExists", err)
	}
}

func TestStore_GetSearchesAllScopesWhenUnscoped(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if _, err := s.Add(ctx, rules.Rule{Name: "r1", Scope: rules.ScopeIndividual}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "r1", "")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Scope != rules.ScopeIndividual {
		t.Errorf("Scope = %q, want %q", got.Scope, rules.ScopeIndividual)
	}
}

func TestStore_GetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.Get(context.Background(), "missing", rules.ScopeGlobal)
	var re *rules.RuleError
	if re, _ = err.(*rules.RuleError); re == nil {
		t.Fatalf("error type = %T, want *rules.RuleError", err)
	}
	if re.Code != rules.CodeRuleNotFound {
		t.Errorf("Code = %q, want %q", re.Code, rules.CodeRuleNotFound)
	}
}

func TestStore_UpdatePreservesCreatedAt(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	added, err := s.Add(ctx, rules.Rule{Name: "r1", Scope: rules.ScopeProject})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := s.Update(ctx, rules.Rule{Name: "r1", Scope: rules.ScopeProject, Priority: 80})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.CreatedAt != added.CreatedAt {
		t.Errorf("CreatedAt changed: %q != %q", updated.CreatedAt, added.CreatedAt)
	}
	if updated.Priority != 80 {
		t.Errorf("Priority = %d, want 80", updated.Priority)
	}
}

func TestStore_UpdateMissingFails(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.Update(context.Background(), rules.Rule{Name: "missing", Scope: rules.ScopeProject})
	if err == nil {
		t.Fatal("expected an error updating a nonexistent rule")
	}
}

func TestStore_DeleteReportsWhetherRemoved(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	if _, err := s.Add(ctx, rules.Rule{Name: "r1", Scope: rules.ScopeProject}); err != nil {
		t.Fatal(err)
	}
	removed, err := s.Delete(ctx, "r1", rules.ScopeProject)
	if err != nil || !removed {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", removed, err)
	}
	removedAgain, err := s.Delete(ctx, "r1", rules.ScopeProject)
	if err != nil || removedAgain {
		t.Fatalf("second Delete = (%v, %v), want (false, nil)", removedAgain, err)
	}
}

func TestStore_ListAllScopes(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	for _, scope := range rules.Scopes() {
		if _, err := s.Add(ctx, rules.Rule{Name: "r-" + string(scope), Scope: scope}); err != nil {
			t.Fatal(err)
		}
	}
	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != len(rules.Scopes()) {
		t.Errorf("List(\"\") returned %d rules, want %d", len(all), len(rules.Scopes()))
	}

	scoped, err := s.List(ctx, rules.ScopeGlobal)
	if err != nil {
		t.Fatalf("List(global) error: %v", err)
	}
	if len(scoped) != 1 {
		t.Errorf("List(global) returned %d rules, want 1", len(scoped))
	}
}

func TestStore_CloneIsolatesCallerFromInternalState(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	r := rules.Rule{Name: "r1", Scope: rules.ScopeProject, Condition: map[string]any{"a": 1}}
	if _, err := s.Add(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "r1", rules.ScopeProject)
	if err != nil {
		t.Fatal(err)
	}
	got.Condition["a"] = 999

	got2, err := s.Get(ctx, "r1", rules.ScopeProject)
	if err != nil {
		t.Fatal(err)
	}
	if got2.Condition["a"] != 1 {
		t.Errorf("mutating a returned rule leaked into store state: %v", got2.Condition)
	}
}

func TestStore_HealthAlwaysOK(t *testing.T) {
	t.Parallel()

	s := New()
	ok, err := s.Health(context.Background())
	if err != nil || !ok {
		t.Errorf("Health() = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestStore_ConcurrentAccessIsSafe(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "r"
			_, _ = s.Add(ctx, rules.Rule{Name: name, Scope: rules.ScopeGlobal})
			_, _ = s.List(ctx, rules.ScopeGlobal)
			_, _ = s.Get(ctx, name, rules.ScopeGlobal)
		}(i)
	}
	wg.Wait()
}
