package rules

import "context"

// Store is the persistence contract for scope-partitioned rule documents
// (SPEC_FULL §4.2). Implementations: internal/adapter/outbound/filestore
// (durable, file-backed) and internal/adapter/outbound/rulemem (in-memory).
type Store interface {
	// Load returns the RuleSet for scope, or an empty RuleSet if the
	// document does not exist.
	Load(ctx context.Context, scope Scope) (RuleSet, error)
	// Save overwrites the scope's document, stamping created_at on rules
	// missing it and refreshing updated_at on every rule in the set.
	Save(ctx context.Context, rs RuleSet) error
	// Get searches scope (or, if scope is empty, all scopes in hierarchy
	// order) and returns the first rule named name.
	Get(ctx context.Context, name string, scope Scope) (Rule, error)
	// Add fails with *ErrRuleExists if name already exists in scope.
	Add(ctx context.Context, r Rule) (Rule, error)
	// Update fails with CodeRuleNotFound if no rule named r.Name exists in
	// r.Scope; preserves CreatedAt, refreshes UpdatedAt.
	Update(ctx context.Context, r Rule) (Rule, error)
	// Delete reports whether a rule was removed.
	Delete(ctx context.Context, name string, scope Scope) (bool, error)
	// List enumerates rules, scoped or across all scopes (scope == "").
	List(ctx context.Context, scope Scope) ([]Rule, error)
	// Backup copies all scope documents into dir, re-parsed and
	// re-serialised.
	Backup(ctx context.Context, dir string) error
	// Restore re-parses and re-serialises all scope documents found in dir
	// back into the store.
	Restore(ctx context.Context, dir string) error
	// Health reports whether the store is currently readable and writable.
	Health(ctx context.Context) (bool, error)
}

// ErrRuleExists is returned by Add when a rule of the same name already
// exists in the target scope.
type ErrRuleExists struct {
	Name  string
	Scope Scope
}

func (e *ErrRuleExists) Error() string {
	return "rule " + e.Name + " already exists in scope " + string(e.Scope)
}
