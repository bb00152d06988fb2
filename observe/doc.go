// Package observe provides telemetry for the authentication service.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wire the observer into authenticators
// and sign-in flows.
package observe
