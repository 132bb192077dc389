package api

import (
	"context"
	"net/http"
)

// HeaderUserID carries the authenticated user's ID, set by the upstream
// gateway after token verification. This service trusts the header; it must
// never be reachable without the gateway in front.
const HeaderUserID = "X-User-ID"

type userIDKey struct{}

// UserID returns the authenticated user ID from the request context, or an
// empty string outside an authenticated request.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

func (a *api) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(HeaderUserID)
		if userID == "" {
			a.respondError(w, r, http.StatusUnauthorized, "missing "+HeaderUserID+" header")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
