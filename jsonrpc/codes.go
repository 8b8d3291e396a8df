package jsonrpc

// Version is the only protocol version accepted.
const Version = "2.0"

// Standard error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Application error codes for gate denials.
const (
	// CodePermissionDenied reports a permission_denied decision.
	CodePermissionDenied = -32001
	// CodeRateLimited reports a rate_limited decision.
	CodeRateLimited = -32002
	// CodeDenied reports any denial when reasons are hidden from callers.
	CodeDenied = -32003
)

// Standard messages.
const (
	MsgParseError     = "Parse error"
	MsgInvalidRequest = "Invalid Request"
	MsgMethodNotFound = "Method not found"
	MsgInvalidParams  = "Invalid params"
	MsgInternalError  = "Internal error"
)

// MethodToolsCall is the method whose calls are gated.
const MethodToolsCall = "tools/call"
