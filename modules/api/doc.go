// Package api exposes the service over HTTP: entitlement checks, usage
// recording, the plan catalog, subscription management and the metered AI
// endpoints, plus the Paddle webhook.
//
// Identity comes from the X-User-ID header set by the upstream gateway;
// everything under /v1 requires it. Webhooks authenticate by provider
// signature instead.
package api
