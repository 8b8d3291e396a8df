package jsonrpc

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// NullID is the id used when the request id is unknown.
var NullID = json.RawMessage("null")

// Request is a JSON-RPC request or notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// ResponseID returns the id to echo, or NullID.
func (r *Request) ResponseID() json.RawMessage {
	if r == nil || len(r.ID) == 0 {
		return NullID
	}
	return r.ID
}

// Response is a JSON-RPC response. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc: %d %s", e.Code, e.Message)
}

// NewError builds an error response. A nil id becomes null.
func NewError(id json.RawMessage, code int, message string, data any) *Response {
	if len(id) == 0 {
		id = NullID
	}
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}

// NewResult builds a success response with v marshaled as the result.
func NewResult(id json.RawMessage, v any) (*Response, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: marshal result: %w", err)
	}
	if len(id) == 0 {
		id = NullID
	}
	return &Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

// ParseRequest validates and decodes a single request. On failure the
// returned request still carries the id when one could be read, so the
// error can be addressed to it.
func ParseRequest(data []byte) (*Request, *Error) {
	req := &Request{}
	if !gjson.ValidBytes(data) {
		return req, &Error{Code: CodeParseError, Message: MsgParseError}
	}

	root := gjson.ParseBytes(data)
	if root.IsArray() {
		return req, &Error{Code: CodeInvalidRequest, Message: MsgInvalidRequest, Data: "batch requests are not supported"}
	}
	if !root.IsObject() {
		return req, &Error{Code: CodeInvalidRequest, Message: MsgInvalidRequest}
	}

	if id := root.Get("id"); id.Exists() {
		switch id.Type {
		case gjson.String, gjson.Number, gjson.Null:
			req.ID = json.RawMessage(id.Raw)
		default:
			return req, &Error{Code: CodeInvalidRequest, Message: MsgInvalidRequest, Data: "id must be a string, number or null"}
		}
	}

	if v := root.Get("jsonrpc"); v.Type != gjson.String || v.Str != Version {
		return req, &Error{Code: CodeInvalidRequest, Message: MsgInvalidRequest, Data: `jsonrpc must be "2.0"`}
	}
	req.JSONRPC = Version

	method := root.Get("method")
	if method.Type != gjson.String || method.Str == "" {
		return req, &Error{Code: CodeInvalidRequest, Message: MsgInvalidRequest, Data: "method must be a non-empty string"}
	}
	req.Method = method.Str

	if params := root.Get("params"); params.Exists() {
		if !params.IsObject() && !params.IsArray() {
			return req, &Error{Code: CodeInvalidRequest, Message: MsgInvalidRequest, Data: "params must be an object or array"}
		}
		req.Params = json.RawMessage(params.Raw)
	}
	return req, nil
}

// ToolCallParams are the params of a tools/call request.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ParseToolCall extracts the tool name and raw arguments.
func ParseToolCall(params json.RawMessage) (ToolCallParams, *Error) {
	p := gjson.ParseBytes(params)
	if !p.IsObject() {
		return ToolCallParams{}, &Error{Code: CodeInvalidParams, Message: MsgInvalidParams, Data: "params must be an object"}
	}
	name := p.Get("name")
	if name.Type != gjson.String || name.Str == "" {
		return ToolCallParams{}, &Error{Code: CodeInvalidParams, Message: MsgInvalidParams, Data: "name must be a non-empty string"}
	}
	out := ToolCallParams{Name: name.Str}
	if args := p.Get("arguments"); args.Exists() {
		out.Arguments = json.RawMessage(args.Raw)
	}
	return out, nil
}
