package rules

import "testing"

func TestRule_Clone_IsIndependent(t *testing.T) {
	t.Parallel()

	r := Rule{
		Name:         "r1",
		Condition:    map[string]any{"a": 1},
		Parameters:   map[string]any{"b": 2},
		InheritsFrom: []string{"parent"},
	}

	clone := r.Clone()
	clone.Condition["a"] = 99
	clone.Parameters["b"] = 99
	clone.InheritsFrom[0] = "mutated"

	if r.Condition["a"] != 1 {
		t.Errorf("original Condition was mutated: %v", r.Condition)
	}
	if r.Parameters["b"] != 2 {
		t.Errorf("original Parameters was mutated: %v", r.Parameters)
	}
	if r.InheritsFrom[0] != "parent" {
		t.Errorf("original InheritsFrom was mutated: %v", r.InheritsFrom)
	}
}

func TestRule_Clone_NilMapsStayNil(t *testing.T) {
	t.Parallel()

	r := Rule{Name: "r1"}
	clone := r.Clone()
	if clone.Condition != nil || clone.Parameters != nil || clone.InheritsFrom != nil {
		t.Errorf("Clone() of nil fields produced non-nil: %+v", clone)
	}
}

func TestScope_Valid(t *testing.T) {
	t.Parallel()

	for _, s := range Scopes() {
		if !s.Valid() {
			t.Errorf("Scope %q should be valid", s)
		}
	}
	if Scope("bogus").Valid() {
		t.Error(`Scope("bogus") should not be valid`)
	}
}

func TestScopes_HierarchyOrder(t *testing.T) {
	t.Parallel()

	got := Scopes()
	want := []Scope{ScopeGlobal, ScopeProject, ScopeIndividual}
	if len(got) != len(want) {
		t.Fatalf("Scopes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Scopes()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAction_Valid(t *testing.T) {
	t.Parallel()

	for _, a := range []Action{ActionAllow, ActionDeny, ActionWarn, ActionModify, ActionValidate} {
		if !a.Valid() {
			t.Errorf("Action %q should be valid", a)
		}
	}
	if Action("explode").Valid() {
		t.Error(`Action("explode") should not be valid`)
	}
}

func TestTieBreaking_Valid(t *testing.T) {
	t.Parallel()

	for _, tb := range []TieBreaking{TieBreakFIFO, TieBreakLexi, TieBreakFirst} {
		if !tb.Valid() {
			t.Errorf("TieBreaking %q should be valid", tb)
		}
	}
	if TieBreaking("random").Valid() {
		t.Error(`TieBreaking("random") should not be valid`)
	}
}

func TestNewRuleSet_Defaults(t *testing.T) {
	t.Parallel()

	rs := NewRuleSet(ScopeProject)
	if rs.Scope != ScopeProject {
		t.Errorf("Scope = %q, want %q", rs.Scope, ScopeProject)
	}
	if rs.RulesetVersion != DefaultRulesetVersion {
		t.Errorf("RulesetVersion = %q, want %q", rs.RulesetVersion, DefaultRulesetVersion)
	}
	if rs.EngineMinVersion != DefaultEngineMinVersion {
		t.Errorf("EngineMinVersion = %q, want %q", rs.EngineMinVersion, DefaultEngineMinVersion)
	}
	if rs.Rules == nil {
		t.Error("Rules should be initialized to an empty (non-nil) slice")
	}
}
