// Package mcp provides JSON-RPC message types and codec utilities for
// binding the rule engine's tool surface to the MCP wire protocol.
package mcp

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// Message wraps a decoded JSON-RPC message with the raw bytes it was
// decoded from. WrapMessage only returns a Message when decoding succeeds.
type Message struct {
	// Raw is the original wire bytes.
	Raw []byte

	// Decoded is either a *jsonrpc.Request or a *jsonrpc.Response.
	Decoded jsonrpc.Message
}

// IsRequest reports whether the message is a JSON-RPC request.
func (m *Message) IsRequest() bool {
	_, ok := m.Decoded.(*jsonrpc.Request)
	return ok
}

// Method returns the method name if this is a request, empty otherwise.
func (m *Message) Method() string {
	req, ok := m.Decoded.(*jsonrpc.Request)
	if !ok {
		return ""
	}
	return req.Method
}

// Request returns the underlying *jsonrpc.Request, or nil if this message
// is not a request.
func (m *Message) Request() *jsonrpc.Request {
	req, _ := m.Decoded.(*jsonrpc.Request)
	return req
}

// ParseParams unmarshals the request's params into a map. Returns nil if
// this isn't a request or params fail to parse.
func (m *Message) ParseParams() map[string]any {
	req := m.Request()
	if req == nil || req.Params == nil {
		return nil
	}
	var params map[string]any
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil
	}
	return params
}

// RawID extracts the "id" field directly from the raw wire bytes, returning
// nil if Raw is nil, is not a JSON object, or has no "id" key.
func (m *Message) RawID() json.RawMessage {
	if m.Raw == nil {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(m.Raw, &raw); err != nil {
		return nil
	}
	return raw["id"]
}

// WrapMessage decodes raw JSON-RPC bytes into a Message.
func WrapMessage(raw []byte) (*Message, error) {
	decoded, err := jsonrpc.DecodeMessage(raw)
	if err != nil {
		return nil, err
	}
	return &Message{Raw: raw, Decoded: decoded}, nil
}
