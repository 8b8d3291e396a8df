// Package observe instruments gate checks with traces, metrics and
// structured logs.
//
// Middleware wraps a gate.CheckFunc so that every decision produces one
// span, one set of metric points and one log line. The coordinator itself
// never depends on telemetry. Exporters are chosen by name; see the
// exporters subpackage.
package observe
