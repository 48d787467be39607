package service

import (
	"context"
	"log/slog"

	"github.com/rulecore/rulecore/internal/dsl"
	"github.com/rulecore/rulecore/internal/rules"
)

// AdminService wraps a rules.Store with the create/update/delete/get/list
// CRUD semantics of the tool surface: DSL conditions are validated before
// they ever reach storage, a rule's name and scope are immutable once
// created, and update only touches the fields the caller actually sets.
type AdminService struct {
	store  rules.Store
	logger *slog.Logger
}

// NewAdminService returns an AdminService backed by store.
func NewAdminService(store rules.Store, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{store: store, logger: logger}
}

// CreateRule validates r's conditions and persists it. r.CreatedAt and
// r.UpdatedAt are ignored; the store stamps both.
func (s *AdminService) CreateRule(ctx context.Context, r rules.Rule) (rules.Rule, error) {
	if !r.Scope.Valid() {
		return rules.Rule{}, rules.NewUnexpectedError("invalid scope " + string(r.Scope))
	}
	if !r.Action.Valid() {
		return rules.Rule{}, rules.NewUnexpectedError("invalid action " + string(r.Action))
	}
	if err := validateConditions(r.Condition); err != nil {
		return rules.Rule{}, err
	}
	r.CreatedAt = ""
	r.UpdatedAt = ""
	return s.store.Add(ctx, r)
}

// RulePatch describes an update_rule request: name and scope identify the
// target rule and are immutable; every other field is a pointer, map or
// slice, and nil means "not set, keep prior value". The pointer fields also
// let the caller distinguish "not set" from "set to the zero value".
type RulePatch struct {
	Name       string         `json:"name"`
	Scope      rules.Scope    `json:"scope"`
	Priority   *int           `json:"priority,omitempty"`
	Condition  map[string]any `json:"conditions,omitempty"`
	Action     *rules.Action  `json:"action,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`

	ParentRule   *string  `json:"parent_rule,omitempty"`
	InheritsFrom []string `json:"inherits_from,omitempty"`

	Description *string `json:"description,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

// UpdateRule applies patch to the existing rule named patch.Name in
// patch.Scope, leaving any field the caller didn't set untouched.
func (s *AdminService) UpdateRule(ctx context.Context, patch RulePatch) (rules.Rule, error) {
	existing, err := s.store.Get(ctx, patch.Name, patch.Scope)
	if err != nil {
		return rules.Rule{}, err
	}

	if patch.Priority != nil {
		existing.Priority = *patch.Priority
	}
	if patch.Condition != nil {
		existing.Condition = patch.Condition
	}
	if patch.Action != nil {
		if !patch.Action.Valid() {
			return rules.Rule{}, rules.NewUnexpectedError("invalid action " + string(*patch.Action))
		}
		existing.Action = *patch.Action
	}
	if patch.Parameters != nil {
		existing.Parameters = patch.Parameters
	}
	if patch.ParentRule != nil {
		existing.ParentRule = *patch.ParentRule
	}
	if patch.InheritsFrom != nil {
		existing.InheritsFrom = patch.InheritsFrom
	}
	if patch.Description != nil {
		existing.Description = *patch.Description
	}
	if patch.Enabled != nil {
		existing.Enabled = *patch.Enabled
	}

	if err := validateConditions(existing.Condition); err != nil {
		return rules.Rule{}, err
	}
	return s.store.Update(ctx, existing)
}

// DeleteRule removes the rule identified by (name, scope).
func (s *AdminService) DeleteRule(ctx context.Context, name string, scope rules.Scope) (bool, error) {
	return s.store.Delete(ctx, name, scope)
}

// GetRule returns the rule named name, searching scope or (if scope is
// empty) every scope in hierarchy order.
func (s *AdminService) GetRule(ctx context.Context, name string, scope rules.Scope) (rules.Rule, error) {
	return s.store.Get(ctx, name, scope)
}

// ListRules enumerates rules in scope, or every scope if scope is empty.
func (s *AdminService) ListRules(ctx context.Context, scope rules.Scope) ([]rules.Rule, error) {
	return s.store.List(ctx, scope)
}

// Health reports whether the underlying store is currently usable.
func (s *AdminService) Health(ctx context.Context) (bool, error) {
	return s.store.Health(ctx)
}

// validateConditions checks every string-valued condition entry compiles
// as a DSL expression; it recurses into nested and/or/not objects.
func validateConditions(conditions map[string]any) error {
	for _, v := range conditions {
		if err := validateConditionValue(v); err != nil {
			return err
		}
	}
	return nil
}

func validateConditionValue(v any) error {
	switch t := v.(type) {
	case string:
		if _, err := dsl.Compile(t); err != nil {
			return rules.NewDSLSyntaxError(t, err)
		}
		return nil
	case map[string]any:
		for key, child := range t {
			if key == "and" || key == "or" {
				list, ok := child.([]any)
				if !ok {
					return rules.NewUnexpectedError("'" + key + "' requires a list of conditions")
				}
				for _, item := range list {
					if err := validateConditionValue(item); err != nil {
						return err
					}
				}
				continue
			}
			if key == "not" {
				if err := validateConditionValue(child); err != nil {
					return err
				}
				continue
			}
			if err := validateConditionValue(child); err != nil {
				return err
			}
		}
		return nil
	case bool:
		return nil
	default:
		return rules.NewUnexpectedError("unsupported condition value type")
	}
}
