package rules

import "fmt"

// Error codes, stable across versions (see SPEC_FULL §7).
const (
	CodeDSLSyntax              = "E001"
	CodeCircularInheritance    = "E002"
	CodeRuleNotFound           = "E003"
	CodeIncompatibleRuleset    = "E004"
	CodePriorityConflict       = "E101" // reserved
	CodeStorageLock            = "E201"
	CodeUnexpected             = "E500"
)

// RuleError is the structured error every operation surfaces. Message is
// safe to return to a caller; RetryAllowed tells the caller whether
// resubmitting the same request could succeed without a code change.
type RuleError struct {
	Code          string
	Message       string
	RetryAllowed  bool
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code, message string, retry bool) *RuleError {
	return &RuleError{Code: code, Message: message, RetryAllowed: retry}
}

func NewDSLSyntaxError(expr string, cause error) *RuleError {
	msg := fmt.Sprintf("invalid expression %q", expr)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return newError(CodeDSLSyntax, msg, false)
}

func NewCircularInheritanceError(chain []string) *RuleError {
	return newError(CodeCircularInheritance, fmt.Sprintf("circular inheritance: %s", joinChain(chain)), false)
}

func NewRuleNotFoundError(name string, scope Scope) *RuleError {
	if scope == "" {
		return newError(CodeRuleNotFound, fmt.Sprintf("rule %q not found", name), false)
	}
	return newError(CodeRuleNotFound, fmt.Sprintf("rule %q not found in scope %q", name, scope), false)
}

func NewIncompatibleRulesetError(version, minVersion string) *RuleError {
	return newError(CodeIncompatibleRuleset, fmt.Sprintf("engine version %s does not satisfy required %s", version, minVersion), false)
}

func NewStorageLockError(detail string) *RuleError {
	return newError(CodeStorageLock, fmt.Sprintf("storage lock failure: %s", detail), true)
}

func NewUnexpectedError(detail string) *RuleError {
	return newError(CodeUnexpected, detail, true)
}

func joinChain(chain []string) string {
	out := ""
	for i, name := range chain {
		if i > 0 {
			out += " -> "
		}
		out += name
	}
	return out
}
