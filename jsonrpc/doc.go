// Package jsonrpc holds the JSON-RPC 2.0 envelopes the gateway speaks.
//
// Requests are inspected with gjson so the gateway can read the method,
// id and tool name without decoding the arguments, which are relayed to
// the backend byte for byte. Responses are built with encoding/json.
package jsonrpc
