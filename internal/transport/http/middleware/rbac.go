package middleware

import (
	"net/http"

	"absensi/internal/domain/auth"
	"absensi/internal/transport/http/api"
)

// RequireRole must run after Authenticate.
func RequireRole(required auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			if !principal.Role.Allows(required) {
				api.Fail(w, http.StatusForbidden, "forbidden", required.String()+" role required", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
