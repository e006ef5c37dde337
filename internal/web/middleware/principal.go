package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type principalKeyType struct{}

var principalKey principalKeyType

// Principal extracts the already-authenticated caller identity from the
// X-Principal header (set by the authentication layer in front of this
// service) and stores it in the request context. Requests without a
// principal are rejected: every import session is owned by exactly one
// caller.
func Principal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := strings.TrimSpace(r.Header.Get("X-Principal"))
		if principal == "" {
			slog.Warn("auth: missing principal",
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
			)
			http.Error(w, `{"error":"missing principal","code":"AUTH_MISSING_PRINCIPAL"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFromContext returns the caller identity stored by Principal.
func PrincipalFromContext(ctx context.Context) string {
	principal, _ := ctx.Value(principalKey).(string)
	return principal
}
