// Package mcpsurface binds the rule engine's tool surface (SPEC_FULL §4.4)
// to MCP JSON-RPC method dispatch: decode raw bytes into a *jsonrpc.Request,
// route by Method to a ToolSurface operation, encode a *jsonrpc.Response
// whose Result carries either the operation's success payload or the
// {error} envelope from SPEC_FULL §6. It is a binding only — no listening
// loop, no session layer, no transport; those remain out of scope
// (spec.md §1).
package mcpsurface

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/rulecore/rulecore/internal/rules"
	"github.com/rulecore/rulecore/internal/service"
	"github.com/rulecore/rulecore/pkg/mcp"
)

// Method names for the eight tool-surface operations (SPEC_FULL §6).
const (
	MethodEvaluateRules   = "evaluate_rules"
	MethodCreateRule      = "create_rule"
	MethodUpdateRule      = "update_rule"
	MethodDeleteRule      = "delete_rule"
	MethodListRules       = "list_rules"
	MethodGetRule         = "get_rule"
	MethodValidateRuleDSL = "validate_rule_dsl"
	MethodHealthCheck     = "health_check"
)

// errorEnvelope is the {error} response shape named throughout SPEC_FULL §6.
type errorEnvelope struct {
	Error struct {
		Code         string `json:"code"`
		Message      string `json:"message"`
		RetryAllowed bool   `json:"retry_allowed"`
	} `json:"error"`
}

func newErrorEnvelope(re *rules.RuleError) errorEnvelope {
	var env errorEnvelope
	env.Error.Code = re.Code
	env.Error.Message = re.Message
	env.Error.RetryAllowed = re.RetryAllowed
	return env
}

// Dispatcher routes decoded JSON-RPC requests to a *service.ToolSurface.
type Dispatcher struct {
	surface *service.ToolSurface
	logger  *slog.Logger
}

// NewDispatcher returns a Dispatcher bound to surface.
func NewDispatcher(surface *service.ToolSurface, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{surface: surface, logger: logger}
}

// HandleBytes decodes raw, dispatches it, and returns the encoded response
// bytes. A decode failure yields an error-envelope response with no id,
// since the caller sent nothing the envelope can correlate with.
func (d *Dispatcher) HandleBytes(ctx context.Context, raw []byte) []byte {
	msg, err := mcp.WrapMessage(raw)
	if err != nil {
		return d.encode(nil, errorResult(rules.NewUnexpectedError("malformed request: "+err.Error())))
	}
	req := msg.Request()
	if req == nil {
		return d.encode(nil, errorResult(rules.NewUnexpectedError("expected a JSON-RPC request")))
	}
	return d.encode(&req.ID, d.dispatch(ctx, req))
}

// dispatch routes req to the matching ToolSurface operation and returns the
// raw JSON payload (success or error envelope) for the response's Result.
func (d *Dispatcher) dispatch(ctx context.Context, req *jsonrpc.Request) json.RawMessage {
	switch req.Method {
	case MethodEvaluateRules:
		return d.handleEvaluateRules(ctx, req)
	case MethodCreateRule:
		return d.handleCreateRule(ctx, req)
	case MethodUpdateRule:
		return d.handleUpdateRule(ctx, req)
	case MethodDeleteRule:
		return d.handleDeleteRule(ctx, req)
	case MethodListRules:
		return d.handleListRules(ctx, req)
	case MethodGetRule:
		return d.handleGetRule(ctx, req)
	case MethodValidateRuleDSL:
		return d.handleValidateRuleDSL(req)
	case MethodHealthCheck:
		return d.handleHealthCheck(ctx)
	default:
		return errorResult(rules.NewUnexpectedError("unknown method " + req.Method))
	}
}

func (d *Dispatcher) handleEvaluateRules(ctx context.Context, req *jsonrpc.Request) json.RawMessage {
	var params struct {
		Context rules.Context `json:"context"`
	}
	if err := unmarshalParams(req, &params); err != nil {
		return errorResult(rules.NewUnexpectedError(err.Error()))
	}
	summary, ruleErr := d.surface.EvaluateRules(ctx, params.Context)
	if ruleErr != nil {
		return errorResult(ruleErr)
	}
	return mustMarshal(summary)
}

func (d *Dispatcher) handleCreateRule(ctx context.Context, req *jsonrpc.Request) json.RawMessage {
	var r rules.Rule
	if err := unmarshalParams(req, &r); err != nil {
		return errorResult(rules.NewUnexpectedError(err.Error()))
	}
	resp, ruleErr := d.surface.CreateRule(ctx, r)
	if ruleErr != nil {
		return errorResult(ruleErr)
	}
	return mustMarshal(resp)
}

func (d *Dispatcher) handleUpdateRule(ctx context.Context, req *jsonrpc.Request) json.RawMessage {
	var patch service.RulePatch
	if err := unmarshalParams(req, &patch); err != nil {
		return errorResult(rules.NewUnexpectedError(err.Error()))
	}
	resp, ruleErr := d.surface.UpdateRule(ctx, patch)
	if ruleErr != nil {
		return errorResult(ruleErr)
	}
	return mustMarshal(resp)
}

func (d *Dispatcher) handleDeleteRule(ctx context.Context, req *jsonrpc.Request) json.RawMessage {
	var params struct {
		Name  string      `json:"name"`
		Scope rules.Scope `json:"scope"`
	}
	if err := unmarshalParams(req, &params); err != nil {
		return errorResult(rules.NewUnexpectedError(err.Error()))
	}
	resp, ruleErr := d.surface.DeleteRule(ctx, params.Name, params.Scope)
	if ruleErr != nil {
		return errorResult(ruleErr)
	}
	return mustMarshal(resp)
}

func (d *Dispatcher) handleListRules(ctx context.Context, req *jsonrpc.Request) json.RawMessage {
	var params struct {
		Scope rules.Scope `json:"scope,omitempty"`
	}
	if err := unmarshalParams(req, &params); err != nil {
		return errorResult(rules.NewUnexpectedError(err.Error()))
	}
	resp, ruleErr := d.surface.ListRules(ctx, params.Scope)
	if ruleErr != nil {
		return errorResult(ruleErr)
	}
	return mustMarshal(resp)
}

func (d *Dispatcher) handleGetRule(ctx context.Context, req *jsonrpc.Request) json.RawMessage {
	var params struct {
		Name  string      `json:"name"`
		Scope rules.Scope `json:"scope,omitempty"`
	}
	if err := unmarshalParams(req, &params); err != nil {
		return errorResult(rules.NewUnexpectedError(err.Error()))
	}
	resp, ruleErr := d.surface.GetRule(ctx, params.Name, params.Scope)
	if ruleErr != nil {
		return errorResult(ruleErr)
	}
	return mustMarshal(resp)
}

func (d *Dispatcher) handleValidateRuleDSL(req *jsonrpc.Request) json.RawMessage {
	var params struct {
		Expression string `json:"expression"`
	}
	if err := unmarshalParams(req, &params); err != nil {
		return errorResult(rules.NewUnexpectedError(err.Error()))
	}
	return mustMarshal(d.surface.ValidateRuleDSL(params.Expression))
}

func (d *Dispatcher) handleHealthCheck(ctx context.Context) json.RawMessage {
	return mustMarshal(d.surface.HealthCheck(ctx))
}

func (d *Dispatcher) encode(id *jsonrpc.ID, result json.RawMessage) []byte {
	resp := &jsonrpc.Response{Result: result}
	if id != nil {
		resp.ID = *id
	}
	encoded, err := mcp.EncodeMessage(resp)
	if err != nil {
		d.logger.Error("failed to encode tool-surface response", "error", err)
		return nil
	}
	return encoded
}

func unmarshalParams(req *jsonrpc.Request, v any) error {
	if len(req.Params) == 0 {
		return nil
	}
	return json.Unmarshal(req.Params, v)
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return errorResult(rules.NewUnexpectedError(err.Error()))
	}
	return raw
}

func errorResult(re *rules.RuleError) json.RawMessage {
	raw, err := json.Marshal(newErrorEnvelope(re))
	if err != nil {
		return json.RawMessage(`{"error":{"code":"E500","message":"internal error","retry_allowed":true}}`)
	}
	return raw
}
