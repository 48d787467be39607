package rules

import "testing"

func TestContext_Resolve_NamedField(t *testing.T) {
	t.Parallel()

	ctx := Context{UserID: "u1", PromptLength: 42}

	if v, ok := ctx.Resolve("user_id"); !ok || v != "u1" {
		t.Errorf("Resolve(user_id) = (%v, %v), want (u1, true)", v, ok)
	}
	if v, ok := ctx.Resolve("prompt_length"); !ok || v != 42 {
		t.Errorf("Resolve(prompt_length) = (%v, %v), want (42, true)", v, ok)
	}
}

func TestContext_Resolve_CustomAttribute(t *testing.T) {
	t.Parallel()

	ctx := Context{CustomAttributes: map[string]any{"risk_score": 0.9}}
	v, ok := ctx.Resolve("risk_score")
	if !ok || v != 0.9 {
		t.Errorf("Resolve(risk_score) = (%v, %v), want (0.9, true)", v, ok)
	}
}

func TestContext_Resolve_DottedPath(t *testing.T) {
	t.Parallel()

	ctx := Context{
		CustomAttributes: map[string]any{
			"request": map[string]any{
				"headers": map[string]any{
					"origin": "https://example.com",
				},
			},
		},
	}

	v, ok := ctx.Resolve("request.headers.origin")
	if !ok || v != "https://example.com" {
		t.Errorf("Resolve(request.headers.origin) = (%v, %v), want (https://example.com, true)", v, ok)
	}
}

func TestContext_Resolve_Unresolved(t *testing.T) {
	t.Parallel()

	ctx := Context{}
	if _, ok := ctx.Resolve("nonexistent"); ok {
		t.Error("Resolve(nonexistent) should report false")
	}
	if _, ok := ctx.Resolve("nonexistent.nested"); ok {
		t.Error("Resolve(nonexistent.nested) should report false")
	}
}

func TestContext_Resolve_NamedFieldWinsOverCustomAttribute(t *testing.T) {
	t.Parallel()

	ctx := Context{
		UserID:           "from-field",
		CustomAttributes: map[string]any{"user_id": "from-attrs"},
	}
	v, ok := ctx.Resolve("user_id")
	if !ok || v != "from-field" {
		t.Errorf("Resolve(user_id) = (%v, %v), want (from-field, true)", v, ok)
	}
}

func TestContext_Resolve_DottedPathStopsAtNonMap(t *testing.T) {
	t.Parallel()

	ctx := Context{CustomAttributes: map[string]any{"flag": true}}
	if _, ok := ctx.Resolve("flag.nested"); ok {
		t.Error("Resolve(flag.nested) should fail: flag is not a map")
	}
}
