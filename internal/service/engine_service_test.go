package service

import (
	"context"
	"testing"

	"github.com/rulecore/rulecore/internal/adapter/outbound/rulemem"
	"github.com/rulecore/rulecore/internal/rules"
)

func newTestEngine(t *testing.T, seed ...rules.Rule) (*Engine, rules.Store) {
	t.Helper()
	store := rulemem.New()
	ctx := context.Background()
	for _, r := range seed {
		if _, err := store.Add(ctx, r); err != nil {
			t.Fatalf("seed Add(%s) error: %v", r.Name, err)
		}
	}
	return NewEngine(store), store
}

func TestEngine_NoRulesAllowsByDefault(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	summary, err := e.Evaluate(context.Background(), rules.Context{UserID: "u1"})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if summary.FinalAction != rules.ActionAllow {
		t.Errorf("FinalAction = %q, want %q", summary.FinalAction, rules.ActionAllow)
	}
	if summary.ApplicableRulesCount != 0 {
		t.Errorf("ApplicableRulesCount = %d, want 0", summary.ApplicableRulesCount)
	}
}

func TestEngine_AdminOverride_HigherPriorityWins(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t,
		rules.Rule{Name: "default-deny", Scope: rules.ScopeGlobal, Priority: 10, Action: rules.ActionDeny, Enabled: true, Condition: map[string]any{}},
		rules.Rule{Name: "admin-allow", Scope: rules.ScopeIndividual, Priority: 100, Action: rules.ActionAllow, Enabled: true, Condition: map[string]any{}},
	)

	summary, err := e.Evaluate(context.Background(), rules.Context{UserID: "admin"})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if summary.FinalAction != rules.ActionAllow {
		t.Errorf("FinalAction = %q, want %q (the higher-priority admin override)", summary.FinalAction, rules.ActionAllow)
	}
}

func TestEngine_RateLimit_ConditionGatesMatch(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t,
		rules.Rule{
			Name: "rate-limit", Scope: rules.ScopeProject, Priority: 60, Action: rules.ActionDeny, Enabled: true,
			Condition: map[string]any{"over_limit": "request_count > 100"},
		},
	)

	under, err := e.Evaluate(context.Background(), rules.Context{
		CustomAttributes: map[string]any{"request_count": 5},
	})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if under.FinalAction != rules.ActionAllow {
		t.Errorf("under limit: FinalAction = %q, want allow", under.FinalAction)
	}

	over, err := e.Evaluate(context.Background(), rules.Context{
		CustomAttributes: map[string]any{"request_count": 500},
	})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if over.FinalAction != rules.ActionDeny {
		t.Errorf("over limit: FinalAction = %q, want deny", over.FinalAction)
	}
}

func TestEngine_TieBreaking_LexiPicksLowestName(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t,
		rules.Rule{Name: "zebra", Scope: rules.ScopeGlobal, Priority: 50, Action: rules.ActionWarn, Enabled: true, Condition: map[string]any{}},
		rules.Rule{Name: "apple", Scope: rules.ScopeGlobal, Priority: 50, Action: rules.ActionDeny, Enabled: true, Condition: map[string]any{}},
	)
	e.tieBreaking = rules.TieBreakLexi

	summary, err := e.Evaluate(context.Background(), rules.Context{})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if summary.FinalAction != rules.ActionDeny {
		t.Errorf("FinalAction = %q, want %q (lexicographically first rule 'apple')", summary.FinalAction, rules.ActionDeny)
	}
}

func TestEngine_InheritanceMerge_ChildOverridesParentFields(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t,
		rules.Rule{
			Name: "base", Scope: rules.ScopeGlobal, Priority: rules.DefaultPriority, Action: rules.ActionDeny,
			Enabled: true, Condition: map[string]any{"always": "true"}, Parameters: map[string]any{"reason": "base"},
		},
		rules.Rule{
			Name: "derived", Scope: rules.ScopeProject, Priority: rules.DefaultPriority, Action: rules.ActionAllow,
			Enabled: true, ParentRule: "base", Condition: map[string]any{}, Parameters: map[string]any{"extra": "x"},
		},
	)

	resolved, err := e.applicableRules(context.Background())
	if err != nil {
		t.Fatalf("applicableRules error: %v", err)
	}
	var derived rules.Rule
	for _, r := range resolved {
		if r.Name == "derived" {
			derived = r
		}
	}
	if derived.Name == "" {
		t.Fatal("derived rule not found among applicable rules")
	}
	if derived.Action != rules.ActionAllow {
		t.Errorf("Action = %q, want %q (derived's own action wins)", derived.Action, rules.ActionAllow)
	}
	if _, ok := derived.Condition["always"]; !ok {
		t.Error("derived should inherit the base's 'always' condition entry")
	}
	if derived.Parameters["reason"] != "base" || derived.Parameters["extra"] != "x" {
		t.Errorf("Parameters = %v, want merged base+derived parameters", derived.Parameters)
	}
}

func TestEngine_CircularInheritance_Detected(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t,
		rules.Rule{Name: "a", Scope: rules.ScopeGlobal, Priority: 50, Enabled: true, ParentRule: "b", Condition: map[string]any{}},
		rules.Rule{Name: "b", Scope: rules.ScopeGlobal, Priority: 50, Enabled: true, ParentRule: "a", Condition: map[string]any{}},
	)

	_, err := e.Evaluate(context.Background(), rules.Context{})
	if err == nil {
		t.Fatal("expected a circular inheritance error")
	}
}

func TestEngine_DSLSyntaxError_DoesNotAbortWholePass(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t,
		rules.Rule{Name: "broken", Scope: rules.ScopeGlobal, Priority: 50, Action: rules.ActionDeny, Enabled: true,
			Condition: map[string]any{"bad": "age >"}},
	)

	summary, err := e.Evaluate(context.Background(), rules.Context{})
	if err != nil {
		t.Fatalf("Evaluate should not abort the whole pass on one rule's bad condition: %v", err)
	}
	if len(summary.Results) != 1 || summary.Results[0].Matched {
		t.Errorf("Results = %+v, want one unmatched result", summary.Results)
	}
	if summary.FinalAction != rules.ActionAllow {
		t.Errorf("FinalAction = %q, want allow (no rule matched)", summary.FinalAction)
	}
}

func TestEngine_DisabledRulesAreIgnored(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t,
		rules.Rule{Name: "off", Scope: rules.ScopeGlobal, Priority: 100, Action: rules.ActionDeny, Enabled: false, Condition: map[string]any{}},
	)
	summary, err := e.Evaluate(context.Background(), rules.Context{})
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if summary.ApplicableRulesCount != 0 {
		t.Errorf("ApplicableRulesCount = %d, want 0 (disabled rule excluded)", summary.ApplicableRulesCount)
	}
}
