package authhandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"absensi/internal/domain/auth"
	"absensi/internal/domain/employee"
	"absensi/internal/requestctx"
	"absensi/internal/transport/http/api"
	"absensi/internal/transport/http/middleware"
	"absensi/internal/transport/http/shared"
)

type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, auth.Principal, error)
}

type ProfileLookup interface {
	Get(ctx context.Context, code string) (employee.Employee, error)
}

type Handler struct {
	Auth     Authenticator
	Profiles ProfileLookup
}

func NewHandler(authn Authenticator, profiles ProfileLookup) *Handler {
	return &Handler{Auth: authn, Profiles: profiles}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string            `json:"token"`
	Employee employee.Employee `json:"employee"`
}

// RegisterPublicRoutes mounts routes that run before authentication.
func (h *Handler) RegisterPublicRoutes(r chi.Router, loginLimit func(http.Handler) http.Handler) {
	r.With(loginLimit).Post("/auth/login", h.HandleLogin)
}

// RegisterRoutes mounts routes that require an authenticated principal.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/auth/profile", h.HandleProfile)
	r.Post("/auth/logout", h.HandleLogout)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, false, reqID) {
		return
	}

	v := shared.NewValidator()
	v.Required("username", payload.Username)
	v.Required("password", payload.Password)
	if v.Reject(w, reqID) {
		return
	}

	token, principal, err := h.Auth.Login(r.Context(), payload.Username, payload.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	}
	if err != nil {
		api.Internal(w, r, reqID, "login failed", err)
		return
	}

	profile, err := h.Profiles.Get(r.Context(), principal.EmployeeID)
	if err != nil {
		api.Internal(w, r, reqID, "load profile after login failed", err)
		return
	}

	api.SuccessMessage(w, "login successful", loginResponse{Token: token, Employee: profile}, reqID)
}

func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	profile, err := h.Profiles.Get(r.Context(), principal.EmployeeID)
	if errors.Is(err, employee.ErrNotFound) {
		api.Fail(w, http.StatusUnauthorized, "account_inactive", "employee not found or inactive", reqID)
		return
	}
	if err != nil {
		api.Internal(w, r, reqID, "load profile failed", err)
		return
	}
	api.Success(w, map[string]any{"employee": profile}, reqID)
}

// HandleLogout acknowledges the logout. Tokens are stateless and expire on their own.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	api.SuccessMessage(w, "logout successful", nil, requestctx.GetRequestID(r.Context()))
}
