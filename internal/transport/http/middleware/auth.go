package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"absensi/internal/domain/auth"
	"absensi/internal/requestctx"
	"absensi/internal/transport/http/api"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

// Authenticate rejects the request with 401 unless it carries a valid bearer
// token for an active employee.
func Authenticate(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := GetRequestID(r.Context())
			token, ok := BearerToken(r)
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "access token required", reqID)
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), token)
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				api.Fail(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token", reqID)
				return
			case errors.Is(err, auth.ErrAccountInactive):
				api.Fail(w, http.StatusUnauthorized, "account_inactive", "employee not found or inactive", reqID)
				return
			case err != nil:
				slog.Error("authenticate failed", "requestId", reqID, "err", err)
				api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", reqID)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestctx.WithPrincipal(r.Context(), principal)))
		})
	}
}

func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func GetPrincipal(ctx context.Context) (auth.Principal, bool) {
	return requestctx.GetPrincipal(ctx)
}
