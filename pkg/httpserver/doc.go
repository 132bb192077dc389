// Package httpserver wraps net/http with graceful shutdown and the probe
// endpoint the deployment needs.
//
// Server is built through New or NewFromConfig with functional options
// (WithAddr, WithShutdownTimeout, start/stop hooks). Run binds a listener,
// serves until its context is cancelled, then drains in-flight requests
// within the shutdown timeout; signal handling is the caller's job. Addr
// exposes the bound address, so tests can listen on ":0".
//
// HealthHandler answers liveness probes, and readiness probes when given
// dependency checks. Errors from Run and Shutdown wrap the ErrStart and
// ErrShutdown sentinels for errors.Is.
package httpserver
