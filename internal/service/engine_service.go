package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rulecore/rulecore/internal/observability"
	"github.com/rulecore/rulecore/internal/rules"
)

const defaultASTCacheSize = 512

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithTieBreaking overrides the default fifo tie-breaking mode.
func WithTieBreaking(t rules.TieBreaking) EngineOption {
	return func(e *Engine) { e.tieBreaking = t }
}

// WithMaxEvaluationTime bounds a single Evaluate call.
func WithMaxEvaluationTime(d time.Duration) EngineOption {
	return func(e *Engine) { e.maxEvaluationTime = d }
}

// WithEngineVersion overrides the engine's own declared version, checked
// against each ruleset's engine_min_version.
func WithEngineVersion(v string) EngineOption {
	return func(e *Engine) { e.engineVersion = v }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics attaches a Prometheus collector set. A nil Metrics (the
// default) disables instrumentation entirely rather than recording into an
// unregistered collector.
func WithMetrics(m *observability.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// Engine is the default rules.Engine: it loads rules from all three scopes
// on every call, resolves inheritance, sorts by priority, evaluates each
// rule's conditions against the supplied context, and arbitrates a final
// action. It never caches a decision across calls, only the parse of a
// condition expression string.
type Engine struct {
	store             rules.Store
	tieBreaking       rules.TieBreaking
	maxEvaluationTime time.Duration
	engineVersion     string
	logger            *slog.Logger
	astCache          *astCache
	metrics           *observability.Metrics
}

// NewEngine returns an Engine reading rules from store.
func NewEngine(store rules.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:             store,
		tieBreaking:       rules.TieBreakFIFO,
		maxEvaluationTime: time.Second,
		engineVersion:     rules.DefaultEngineVersion,
		logger:            slog.Default(),
		astCache:          newASTCache(defaultASTCacheSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate loads all applicable rules, evaluates each against evalCtx, and
// returns a Summary describing every rule's outcome plus the arbitrated
// final action.
func (e *Engine) Evaluate(ctx context.Context, evalCtx rules.Context) (rules.Summary, error) {
	start := time.Now()
	evaluationID := uuid.NewString()

	ctx, span := observability.StartEvaluationSpan(ctx, evalCtx.UserID, evalCtx.ProjectID)
	defer span.End()
	log := e.logger.With("evaluation_id", evaluationID)

	if e.maxEvaluationTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.maxEvaluationTime)
		defer cancel()
	}

	gatherCtx, gatherSpan := observability.StartStageSpan(ctx, "gather")
	applicable, err := e.applicableRules(gatherCtx)
	gatherSpan.End()
	if err != nil {
		log.Warn("evaluation failed", "stage", "gather", "error", err)
		return rules.Summary{}, fmt.Errorf("evaluation failed after %.2fms: %w", elapsedMs(start), err)
	}
	if e.metrics != nil {
		e.metrics.RulesApplicable.Set(float64(len(applicable)))
	}

	_, evalSpan := observability.StartStageSpan(ctx, "evaluate_rule")
	results := make([]rules.EvaluationResult, 0, len(applicable))
	timedOut := false
	for _, rule := range applicable {
		if err := ctx.Err(); err != nil {
			timedOut = true
			break
		}
		result := e.evaluateRule(rule, evalCtx)
		observability.RecordRuleOutcome(evalSpan, result.RuleName, result.Matched, string(result.Action))
		results = append(results, result)
	}
	evalSpan.End()

	matchedCount := 0
	for _, r := range results {
		if r.Matched {
			matchedCount++
		}
	}

	finalAction := e.determineFinalAction(results)
	totalMs := elapsedMs(start)

	if e.metrics != nil {
		e.metrics.EvaluationsTotal.WithLabelValues(string(finalAction)).Inc()
		e.metrics.EvaluationDuration.WithLabelValues(strconv.FormatBool(timedOut)).Observe(totalMs / 1000.0)
		e.metrics.RulesMatched.WithLabelValues("all").Observe(float64(matchedCount))
	}
	if timedOut {
		log.Warn("evaluation timed out", "applicable_rules", len(applicable), "evaluated_rules", len(results))
	}

	return rules.Summary{
		Context:              evalCtx,
		Results:              results,
		FinalAction:          finalAction,
		TotalExecutionTimeMs: totalMs,
		EvaluatedAt:          time.Now().UTC().Format(time.RFC3339),
		ApplicableRulesCount: len(applicable),
		MatchedRulesCount:    matchedCount,
		TimedOut:             timedOut,
	}, nil
}

// applicableRules gathers enabled rules from every scope, resolves
// inheritance and sorts the result by priority and tie-breaking mode.
func (e *Engine) applicableRules(ctx context.Context) ([]rules.Rule, error) {
	var gathered []rules.Rule
	for _, scope := range rules.Scopes() {
		rs, err := e.store.Load(ctx, scope)
		if err != nil {
			return nil, err
		}
		if err := e.validateRulesetVersion(rs); err != nil {
			return nil, err
		}
		for _, r := range rs.Rules {
			if r.Enabled {
				gathered = append(gathered, r)
			}
		}
	}

	resolved, err := e.resolveInheritance(gathered)
	if err != nil {
		return nil, err
	}
	e.sortByPriority(resolved)
	return resolved, nil
}

// validateRulesetVersion checks rs.EngineMinVersion against the engine's
// own declared version. A malformed constraint is logged and treated as
// no constraint, matching the reference engine's best-effort behavior.
func (e *Engine) validateRulesetVersion(rs rules.RuleSet) error {
	if rs.EngineMinVersion == "" {
		return nil
	}
	minVersion := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rs.EngineMinVersion), ">="))
	ok, err := versionAtLeast(e.engineVersion, minVersion)
	if err != nil {
		e.logger.Warn("malformed engine_min_version, ignoring constraint", "scope", rs.Scope, "value", rs.EngineMinVersion, "error", err)
		return nil
	}
	if !ok {
		return rules.NewIncompatibleRulesetError(e.engineVersion, minVersion)
	}
	return nil
}

// resolveInheritance merges every rule with its parent_rule/inherits_from
// chain, detecting cycles along the active resolution path.
func (e *Engine) resolveInheritance(gathered []rules.Rule) ([]rules.Rule, error) {
	byName := make(map[string]rules.Rule, len(gathered))
	for _, r := range gathered {
		byName[r.Name] = r
	}

	memo := make(map[string]rules.Rule, len(gathered))
	resolved := make([]rules.Rule, 0, len(gathered))
	for _, r := range gathered {
		if _, done := memo[r.Name]; done {
			resolved = append(resolved, memo[r.Name])
			continue
		}
		eff, err := e.resolveOne(byName, r.Name, nil, memo)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, eff)
	}
	return resolved, nil
}

// resolveOne returns the effective (merged) form of the rule named name,
// recursing into its parents. path is the chain of names currently being
// resolved, used to detect cycles.
func (e *Engine) resolveOne(byName map[string]rules.Rule, name string, path []string, memo map[string]rules.Rule) (rules.Rule, error) {
	if eff, ok := memo[name]; ok {
		return eff, nil
	}
	for _, seen := range path {
		if seen == name {
			return rules.Rule{}, rules.NewCircularInheritanceError(append(append([]string{}, path...), name))
		}
	}

	rule, ok := byName[name]
	if !ok {
		return rules.Rule{}, rules.NewRuleNotFoundError(name, "")
	}
	if rule.ParentRule == "" && len(rule.InheritsFrom) == 0 {
		memo[name] = rule
		return rule, nil
	}

	path = append(path, name)
	effective := rule.Clone()

	if rule.ParentRule != "" {
		if _, exists := byName[rule.ParentRule]; exists {
			parent, err := e.resolveOne(byName, rule.ParentRule, path, memo)
			if err != nil {
				return rules.Rule{}, err
			}
			effective = mergeRules(parent, effective)
		}
	}
	for _, parentName := range rule.InheritsFrom {
		if _, exists := byName[parentName]; !exists {
			continue
		}
		parent, err := e.resolveOne(byName, parentName, path, memo)
		if err != nil {
			return rules.Rule{}, err
		}
		effective = mergeRules(parent, effective)
	}

	memo[name] = effective
	return effective, nil
}

// mergeRules merges derived on top of base. Derived's own name and scope
// always win; action and description win when non-empty; priority only wins
// if it differs from the unset sentinel DefaultPriority; conditions and
// parameters are merged key-by-key with derived taking precedence.
func mergeRules(base, derived rules.Rule) rules.Rule {
	merged := base.Clone()

	merged.Name = derived.Name
	merged.Scope = derived.Scope
	if derived.Priority != rules.DefaultPriority {
		merged.Priority = derived.Priority
	}
	if derived.Action != "" {
		merged.Action = derived.Action
	}
	if derived.Description != "" {
		merged.Description = derived.Description
	}
	merged.ParentRule = derived.ParentRule
	merged.InheritsFrom = derived.InheritsFrom
	merged.Enabled = derived.Enabled
	merged.CreatedAt = derived.CreatedAt
	merged.UpdatedAt = derived.UpdatedAt

	if merged.Condition == nil {
		merged.Condition = map[string]any{}
	}
	for k, v := range derived.Condition {
		merged.Condition[k] = v
	}
	if merged.Parameters == nil {
		merged.Parameters = map[string]any{}
	}
	for k, v := range derived.Parameters {
		merged.Parameters[k] = v
	}
	return merged
}

// sortByPriority orders rules by descending priority. Ties are broken by
// tieBreaking: fifo and first preserve discovery order (stable sort is
// enough for that), lexi breaks ties by ascending rule name.
func (e *Engine) sortByPriority(rs []rules.Rule) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Priority != rs[j].Priority {
			return rs[i].Priority > rs[j].Priority
		}
		if e.tieBreaking == rules.TieBreakLexi {
			return rs[i].Name < rs[j].Name
		}
		return false
	})
}

// evaluateRule evaluates a single effective rule's conditions against
// evalCtx. Any evaluation error is contained here: it produces a
// non-matching deny result rather than aborting the whole pass.
func (e *Engine) evaluateRule(rule rules.Rule, evalCtx rules.Context) rules.EvaluationResult {
	start := time.Now()

	matched, err := e.evaluateConditions(rule.Condition, evalCtx)
	if err != nil {
		return rules.EvaluationResult{
			RuleName:        rule.Name,
			Action:          rules.ActionDeny,
			Matched:         false,
			Parameters:      map[string]any{},
			Message:         fmt.Sprintf("rule evaluation error: %v", err),
			Priority:        rule.Priority,
			ExecutionTimeMs: elapsedMs(start),
		}
	}

	var params map[string]any
	if matched {
		params = rule.Parameters
	}

	return rules.EvaluationResult{
		RuleName:        rule.Name,
		Action:          rule.Action,
		Matched:         matched,
		Parameters:      params,
		Message:         ruleMessage(rule, matched),
		Priority:        rule.Priority,
		ExecutionTimeMs: elapsedMs(start),
	}
}

func ruleMessage(rule rules.Rule, matched bool) string {
	status := "not matched"
	if matched {
		status = "matched"
	}
	msg := fmt.Sprintf("rule %q %s", rule.Name, status)
	if rule.Description != "" {
		msg = fmt.Sprintf("%s: %s", msg, rule.Description)
	}
	return msg
}

// evaluateConditions evaluates every entry of conditions as an implicit
// conjunction: the rule matches only if every entry matches.
func (e *Engine) evaluateConditions(conditions map[string]any, evalCtx rules.Context) (bool, error) {
	for _, value := range conditions {
		ok, err := e.evaluateConditionValue(value, evalCtx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// evaluateConditionValue evaluates one condition entry: a string is a DSL
// expression; a map is a structured and/or/not object, or (with no such
// key) an implicit conjunction over its own entries.
func (e *Engine) evaluateConditionValue(value any, evalCtx rules.Context) (bool, error) {
	switch v := value.(type) {
	case string:
		prog, hit, err := e.astCache.compile(v)
		if e.metrics != nil {
			if hit {
				e.metrics.ASTCacheHits.Inc()
			} else {
				e.metrics.ASTCacheMisses.Inc()
			}
		}
		if err != nil {
			return false, err
		}
		return prog.Eval(evalCtx)
	case map[string]any:
		if and, ok := v["and"]; ok {
			return e.evaluateAll(and, evalCtx)
		}
		if or, ok := v["or"]; ok {
			return e.evaluateAny(or, evalCtx)
		}
		if not, ok := v["not"]; ok {
			r, err := e.evaluateConditionValue(not, evalCtx)
			if err != nil {
				return false, err
			}
			return !r, nil
		}
		return e.evaluateConditions(v, evalCtx)
	case bool:
		return v, nil
	default:
		return false, fmt.Errorf("unsupported condition value type %T", value)
	}
}

func (e *Engine) evaluateAll(items any, evalCtx rules.Context) (bool, error) {
	list, ok := items.([]any)
	if !ok {
		return false, fmt.Errorf("'and' requires a list, got %T", items)
	}
	for _, item := range list {
		r, err := e.evaluateConditionValue(item, evalCtx)
		if err != nil {
			return false, err
		}
		if !r {
			return false, nil
		}
	}
	return true, nil
}

func (e *Engine) evaluateAny(items any, evalCtx rules.Context) (bool, error) {
	list, ok := items.([]any)
	if !ok {
		return false, fmt.Errorf("'or' requires a list, got %T", items)
	}
	for _, item := range list {
		r, err := e.evaluateConditionValue(item, evalCtx)
		if err != nil {
			return false, err
		}
		if r {
			return true, nil
		}
	}
	return false, nil
}

// determineFinalAction picks the action of the highest-priority matched
// rule, breaking ties per tieBreaking. No matched rule at all means allow.
func (e *Engine) determineFinalAction(results []rules.EvaluationResult) rules.Action {
	var matched []rules.EvaluationResult
	for _, r := range results {
		if r.Matched {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return rules.ActionAllow
	}

	highest := matched[0].Priority
	for _, r := range matched {
		if r.Priority > highest {
			highest = r.Priority
		}
	}
	var tied []rules.EvaluationResult
	for _, r := range matched {
		if r.Priority == highest {
			tied = append(tied, r)
		}
	}
	if len(tied) == 1 {
		return tied[0].Action
	}
	if e.tieBreaking == rules.TieBreakLexi {
		sort.SliceStable(tied, func(i, j int) bool { return tied[i].RuleName < tied[j].RuleName })
	}
	return tied[0].Action
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// versionAtLeast reports whether declared >= min, both expected in
// dotted-numeric form (e.g. "2.8.0"). There is no semver parser anywhere
// in the surrounding dependency surface, so this is a small hand-rolled
// comparison rather than an imported one (see DESIGN.md).
func versionAtLeast(declared, min string) (bool, error) {
	d, err := parseVersion(declared)
	if err != nil {
		return false, err
	}
	m, err := parseVersion(min)
	if err != nil {
		return false, err
	}
	for i := 0; i < 3; i++ {
		if d[i] != m[i] {
			return d[i] > m[i], nil
		}
	}
	return true, nil
}

func parseVersion(v string) ([3]int, error) {
	var out [3]int
	parts := strings.SplitN(v, ".", 3)
	if len(parts) == 0 || v == "" {
		return out, fmt.Errorf("empty version")
	}
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return out, fmt.Errorf("non-numeric version component %q: %w", parts[i], err)
		}
		out[i] = n
	}
	return out, nil
}

var _ rules.Engine = (*Engine)(nil)
