package service

import (
	"context"
	"errors"
	"time"

	"github.com/rulecore/rulecore/internal/dsl"
	"github.com/rulecore/rulecore/internal/rules"
)

// ToolSurface exposes the eight named operations callers invoke over a
// request/response protocol (see SPEC_FULL §4.4, §6). It is a thin layer
// over Engine and AdminService: every method returns either a populated
// response or a *rules.RuleError, never both.
type ToolSurface struct {
	engine  *Engine
	admin   *AdminService
	backend string
}

// NewToolSurface returns a ToolSurface. backend names the storage
// implementation behind admin/engine, reported verbatim by HealthCheck.
func NewToolSurface(engine *Engine, admin *AdminService, backend string) *ToolSurface {
	return &ToolSurface{engine: engine, admin: admin, backend: backend}
}

// EvaluateRules runs a full evaluation pass for ctx and returns its
// Summary.
func (t *ToolSurface) EvaluateRules(ctx context.Context, evalCtx rules.Context) (rules.Summary, *rules.RuleError) {
	summary, err := t.engine.Evaluate(ctx, evalCtx)
	if err != nil {
		return rules.Summary{}, asRuleError(err)
	}
	return summary, nil
}

// CreateRuleResponse is the create_rule success payload.
type CreateRuleResponse struct {
	Success bool       `json:"success"`
	Rule    rules.Rule `json:"rule"`
}

func (t *ToolSurface) CreateRule(ctx context.Context, r rules.Rule) (CreateRuleResponse, *rules.RuleError) {
	created, err := t.admin.CreateRule(ctx, r)
	if err != nil {
		return CreateRuleResponse{}, asRuleError(err)
	}
	return CreateRuleResponse{Success: true, Rule: created}, nil
}

// UpdateRuleResponse is the update_rule success payload.
type UpdateRuleResponse struct {
	Success bool       `json:"success"`
	Rule    rules.Rule `json:"rule"`
}

func (t *ToolSurface) UpdateRule(ctx context.Context, patch RulePatch) (UpdateRuleResponse, *rules.RuleError) {
	updated, err := t.admin.UpdateRule(ctx, patch)
	if err != nil {
		return UpdateRuleResponse{}, asRuleError(err)
	}
	return UpdateRuleResponse{Success: true, Rule: updated}, nil
}

// DeleteRuleResponse is the delete_rule success payload.
type DeleteRuleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (t *ToolSurface) DeleteRule(ctx context.Context, name string, scope rules.Scope) (DeleteRuleResponse, *rules.RuleError) {
	found, err := t.admin.DeleteRule(ctx, name, scope)
	if err != nil {
		return DeleteRuleResponse{}, asRuleError(err)
	}
	if !found {
		return DeleteRuleResponse{}, rules.NewRuleNotFoundError(name, scope)
	}
	return DeleteRuleResponse{Success: true, Message: "rule deleted"}, nil
}

// ListRulesResponse is the list_rules success payload.
type ListRulesResponse struct {
	Success bool         `json:"success"`
	Rules   []rules.Rule `json:"rules"`
	Count   int          `json:"count"`
}

func (t *ToolSurface) ListRules(ctx context.Context, scope rules.Scope) (ListRulesResponse, *rules.RuleError) {
	list, err := t.admin.ListRules(ctx, scope)
	if err != nil {
		return ListRulesResponse{}, asRuleError(err)
	}
	return ListRulesResponse{Success: true, Rules: list, Count: len(list)}, nil
}

// GetRuleResponse is the get_rule success payload.
type GetRuleResponse struct {
	Success bool       `json:"success"`
	Rule    rules.Rule `json:"rule"`
}

func (t *ToolSurface) GetRule(ctx context.Context, name string, scope rules.Scope) (GetRuleResponse, *rules.RuleError) {
	r, err := t.admin.GetRule(ctx, name, scope)
	if err != nil {
		return GetRuleResponse{}, asRuleError(err)
	}
	return GetRuleResponse{Success: true, Rule: r}, nil
}

// ValidateRuleDSLResponse is the validate_rule_dsl response. It is always
// a "success" (the operation itself never fails); Valid/Issues report the
// expression's own syntactic health.
type ValidateRuleDSLResponse struct {
	Success bool     `json:"success"`
	Valid   bool     `json:"valid"`
	Issues  []string `json:"issues,omitempty"`
}

func (t *ToolSurface) ValidateRuleDSL(expression string) ValidateRuleDSLResponse {
	issues := dsl.Validate(expression)
	return ValidateRuleDSLResponse{Success: true, Valid: len(issues) == 0, Issues: issues}
}

// HealthCheckResponse is the health_check response.
type HealthCheckResponse struct {
	Success        bool   `json:"success"`
	Healthy        bool   `json:"healthy"`
	StorageBackend string `json:"storage_backend"`
	Timestamp      string `json:"timestamp"`
}

func (t *ToolSurface) HealthCheck(ctx context.Context) HealthCheckResponse {
	healthy, _ := t.admin.Health(ctx)
	return HealthCheckResponse{
		Success:        true,
		Healthy:        healthy,
		StorageBackend: t.backend,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
}

// asRuleError normalises any error returned by the engine or admin layer
// into the RuleError envelope every tool-surface operation exposes.
func asRuleError(err error) *rules.RuleError {
	if err == nil {
		return nil
	}
	var re *rules.RuleError
	if errors.As(err, &re) {
		return re
	}
	var ee *rules.ErrRuleExists
	if errors.As(err, &ee) {
		return rules.NewUnexpectedError(ee.Error())
	}
	return rules.NewUnexpectedError(err.Error())
}
