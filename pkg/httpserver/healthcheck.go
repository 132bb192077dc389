package httpserver

import (
	"context"
	"log/slog"
	"net/http"
)

// HealthHandler serves liveness and readiness probes as JSON. With no
// checks it answers {"status":"ok"} unconditionally; with checks it runs
// each against the request context and answers 503 when any dependency
// (MongoDB, Redis) is down, which takes the instance out of rotation
// without killing in-flight requests.
func HealthHandler(log *slog.Logger, checks ...func(context.Context) error) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
