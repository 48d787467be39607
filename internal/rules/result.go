package rules

// EvaluationResult is the per-rule outcome of one evaluation pass.
type EvaluationResult struct {
	RuleName        string         `json:"rule_name"`
	Action          Action         `json:"action"`
	Matched         bool           `json:"matched"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	Message         string         `json:"message"`
	Priority        int            `json:"priority"`
	ExecutionTimeMs float64        `json:"execution_time_ms"`
}

// Summary is the outcome of one call to Engine.Evaluate.
type Summary struct {
	Context              Context            `json:"context"`
	Results              []EvaluationResult `json:"results"`
	FinalAction          Action             `json:"final_action"`
	TotalExecutionTimeMs float64            `json:"total_execution_time_ms"`
	EvaluatedAt          string             `json:"evaluated_at"`
	ApplicableRulesCount int                `json:"applicable_rules_count"`
	MatchedRulesCount    int                `json:"matched_rules_count"`
	// TimedOut is true when max_evaluation_time_ms was exceeded and the
	// summary reflects a partial evaluation (see SPEC_FULL §5, §9).
	TimedOut bool `json:"timed_out,omitempty"`
}
