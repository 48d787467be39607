// Package rules contains the domain types for the hierarchical rule engine:
// scopes, actions, rules, rule sets, evaluation context, and results.
package rules

// Scope is the classification bucket a Rule belongs to. Hierarchy order is
// Global < Project < Individual (more specific last).
type Scope string

const (
	ScopeGlobal     Scope = "global"
	ScopeProject    Scope = "project"
	ScopeIndividual Scope = "individual"
)

// Scopes returns the three scopes in hierarchy order.
func Scopes() []Scope {
	return []Scope{ScopeGlobal, ScopeProject, ScopeIndividual}
}

func (s Scope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopeProject, ScopeIndividual:
		return true
	default:
		return false
	}
}

// Action is the outcome a matched rule declares.
type Action string

const (
	ActionAllow    Action = "allow"
	ActionDeny     Action = "deny"
	ActionWarn     Action = "warn"
	ActionModify   Action = "modify"
	ActionValidate Action = "validate"
)

func (a Action) Valid() bool {
	switch a {
	case ActionAllow, ActionDeny, ActionWarn, ActionModify, ActionValidate:
		return true
	default:
		return false
	}
}

// TieBreaking selects how rules of equal priority are ordered and, at
// arbitration time, how a winner is picked among matched rules tied at the
// highest matched priority.
type TieBreaking string

const (
	// TieBreakFIFO preserves discovery order: global before project before
	// individual, document order within a scope.
	TieBreakFIFO TieBreaking = "fifo"
	// TieBreakLexi sorts ties by ascending rule name.
	TieBreakLexi TieBreaking = "lexi"
	// TieBreakFirst sorts identically to fifo but is a distinct arbitration
	// policy: first-wins among already-matched rules at the top priority.
	TieBreakFirst TieBreaking = "first"
)

func (t TieBreaking) Valid() bool {
	switch t {
	case TieBreakFIFO, TieBreakLexi, TieBreakFirst:
		return true
	default:
		return false
	}
}

// DefaultPriority is the sentinel priority value. A child rule's priority
// equal to this value is treated as unset for inheritance-merge purposes
// (see DESIGN.md, "Priority 50 as unset").
const DefaultPriority = 50

// Rule is a single named condition-to-action mapping, optionally inheriting
// from a parent rule by name.
type Rule struct {
	Name      string                 `yaml:"name" json:"name"`
	Scope     Scope                  `yaml:"scope" json:"scope"`
	Priority  int                    `yaml:"priority" json:"priority"`
	Condition map[string]any         `yaml:"conditions" json:"conditions"`
	Action    Action                 `yaml:"action" json:"action"`
	Parameters map[string]any        `yaml:"parameters" json:"parameters"`

	ParentRule   string   `yaml:"parent_rule,omitempty" json:"parent_rule,omitempty"`
	InheritsFrom []string `yaml:"inherits_from,omitempty" json:"inherits_from,omitempty"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	CreatedAt   string `yaml:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt   string `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Clone returns a deep copy of r, safe to mutate independently.
func (r Rule) Clone() Rule {
	out := r
	if r.Condition != nil {
		out.Condition = make(map[string]any, len(r.Condition))
		for k, v := range r.Condition {
			out.Condition[k] = v
		}
	}
	if r.Parameters != nil {
		out.Parameters = make(map[string]any, len(r.Parameters))
		for k, v := range r.Parameters {
			out.Parameters[k] = v
		}
	}
	if r.InheritsFrom != nil {
		out.InheritsFrom = append([]string(nil), r.InheritsFrom...)
	}
	return out
}

// RuleSet is the on-disk document grouping all rules of one scope.
type RuleSet struct {
	RulesetVersion   string         `yaml:"ruleset_version" json:"ruleset_version"`
	EngineMinVersion string         `yaml:"engine_min_version" json:"engine_min_version"`
	Scope            Scope          `yaml:"scope" json:"scope"`
	Rules            []Rule         `yaml:"rules" json:"rules"`
	Metadata         map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// DefaultRulesetVersion and DefaultEngineMinVersion mirror the reference
// implementation's defaults for continuity.
const (
	DefaultRulesetVersion   = "1.1"
	DefaultEngineMinVersion = ">=2.8.0"
	// DefaultEngineVersion is this engine's own declared version, checked
	// against each RuleSet's EngineMinVersion.
	DefaultEngineVersion = "2.8.0"
)

// NewRuleSet returns an empty RuleSet for scope with default versions.
func NewRuleSet(scope Scope) RuleSet {
	return RuleSet{
		RulesetVersion:   DefaultRulesetVersion,
		EngineMinVersion: DefaultEngineMinVersion,
		Scope:            scope,
		Rules:            []Rule{},
	}
}
