// Package gateway serves the gate over HTTP.
//
// A Handler accepts one JSON-RPC request per POST. tools/call requests are
// checked with a gate.CheckFunc before they are forwarded; every other
// method is forwarded unchecked. Denials and faults are answered with
// JSON-RPC errors over HTTP 200:
//
//	permission_denied  -32001  data {reason}
//	rate_limited       -32002  data {reason, remaining}
//	any denial, opaque -32003  no data
//	fault              -32603  "Internal error"
//
// The handler never learns a caller's identity itself. An IdentityFunc
// reads it from the request, by default from the context populated by an
// upstream authenticator.
package gateway
