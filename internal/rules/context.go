package rules

import "strings"

// Context describes the request being evaluated against the rule set.
type Context struct {
	UserID           string         `json:"user_id,omitempty"`
	ProjectID        string         `json:"project_id,omitempty"`
	SessionID        string         `json:"session_id,omitempty"`
	ModelName        string         `json:"model_name,omitempty"`
	PromptLength     int            `json:"prompt_length,omitempty"`
	Timestamp        string         `json:"timestamp,omitempty"`
	CustomAttributes map[string]any `json:"custom_attributes,omitempty"`
}

// namedFields exposes the Context's declared fields for identifier
// resolution, matching the wire field names used in conditions.
func (c Context) namedFields() map[string]any {
	return map[string]any{
		"user_id":       c.UserID,
		"project_id":    c.ProjectID,
		"session_id":    c.SessionID,
		"model_name":    c.ModelName,
		"prompt_length": c.PromptLength,
		"timestamp":     c.Timestamp,
	}
}

// Resolve looks up an identifier per SPEC_FULL §4.1: first a named context
// field, then a key in custom_attributes, then a dotted path traversing
// attributes and map keys. An unresolved identifier yields (nil, false).
func (c Context) Resolve(identifier string) (any, bool) {
	if v, ok := c.namedFields()[identifier]; ok {
		return v, true
	}
	if c.CustomAttributes != nil {
		if v, ok := c.CustomAttributes[identifier]; ok {
			return v, true
		}
	}
	if !strings.Contains(identifier, ".") {
		return nil, false
	}
	parts := strings.Split(identifier, ".")
	var cur any
	if v, ok := c.namedFields()[parts[0]]; ok {
		cur = v
	} else if c.CustomAttributes != nil {
		v, ok := c.CustomAttributes[parts[0]]
		if !ok {
			return nil, false
		}
		cur = v
	} else {
		return nil, false
	}
	for _, p := range parts[1:] {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		v, ok := m[p]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}
