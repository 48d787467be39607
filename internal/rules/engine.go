package rules

import "context"

// Engine is the rule evaluation contract (SPEC_FULL §4.3).
type Engine interface {
	Evaluate(ctx context.Context, evalCtx Context) (Summary, error)
}
