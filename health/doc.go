// Package health reports whether the gate's dependencies are usable.
//
// Checkers probe one dependency each (the key-value store, the circuit
// breaker guarding it) and an Aggregator combines them. The HTTP handlers
// expose the usual probe endpoints:
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//
// registers /healthz (liveness), /readyz (readiness) and /health (details).
package health
