package employeeshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"absensi/internal/domain/audit"
	"absensi/internal/domain/auth"
	"absensi/internal/domain/employee"
	"absensi/internal/requestctx"
	"absensi/internal/transport/http/api"
	"absensi/internal/transport/http/middleware"
	"absensi/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context) ([]employee.Employee, error)
	Get(ctx context.Context, code string) (employee.Employee, error)
	Create(ctx context.Context, in employee.CreateInput) (employee.Employee, error)
	Update(ctx context.Context, code string, in employee.UpdateInput) (employee.Employee, error)
	Delete(ctx context.Context, code string) error
}

type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

type Handler struct {
	Service Service
	Audit   AuditRecorder
}

func NewHandler(service Service, recorder AuditRecorder) *Handler {
	return &Handler{Service: service, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin))
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	employees, err := h.Service.List(r.Context())
	if err != nil {
		api.Internal(w, r, reqID, "list employees failed", err)
		return
	}
	api.Success(w, employees, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	emp, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, emp, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload employee.CreateInput
	if !shared.DecodeJSON(w, r, &payload, false, reqID) {
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name)
	v.Required("username", payload.Username)
	v.Required("password", payload.Password)
	v.Required("position", payload.Position)
	v.Required("department", payload.Department)
	validateProfile(v, payload.Name, payload.Username, payload.Password, payload.Role, payload.Position, payload.Department, payload.Email, payload.Phone)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.Create(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, audit.ActionEmployeeCreate, created.EmployeeID, nil, created)
	api.Created(w, "employee created", created, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	code := chi.URLParam(r, "id")
	var payload employee.UpdateInput
	if !shared.DecodeJSON(w, r, &payload, false, reqID) {
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name)
	v.Required("username", payload.Username)
	v.Required("position", payload.Position)
	v.Required("department", payload.Department)
	validateProfile(v, payload.Name, payload.Username, payload.Password, payload.Role, payload.Position, payload.Department, payload.Email, payload.Phone)
	if v.Reject(w, reqID) {
		return
	}

	before, err := h.Service.Get(r.Context(), code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.Service.Update(r.Context(), code, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, audit.ActionEmployeeUpdate, updated.EmployeeID, before, updated)
	api.SuccessMessage(w, "employee updated", updated, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	code := chi.URLParam(r, "id")
	if err := h.Service.Delete(r.Context(), code); err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(r, audit.ActionEmployeeDelete, code, nil, map[string]bool{"is_active": false})
	api.SuccessMessage(w, "employee deleted", nil, reqID)
}

func validateProfile(v *shared.Validator, name, username, password, role, position, department, email, phone string) {
	v.MaxLen("name", name, 100)
	v.MaxLen("username", username, 50)
	v.MinLen("password", password, 6)
	v.Enum("role", role, []string{auth.RoleAdmin.String(), auth.RoleEmployee.String()})
	v.MaxLen("position", position, 100)
	v.MaxLen("department", department, 100)
	v.MaxLen("email", email, 100)
	v.Email("email", email)
	v.MaxLen("phone", phone, 20)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := requestctx.GetRequestID(r.Context())
	switch {
	case errors.Is(err, employee.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", reqID)
	case errors.Is(err, employee.ErrUsernameTaken):
		api.Fail(w, http.StatusConflict, "username_taken", "username already in use", reqID)
	case errors.Is(err, employee.ErrEmployeeIDTaken):
		api.Fail(w, http.StatusConflict, "employee_id_taken", "employee id already in use", reqID)
	case errors.Is(err, employee.ErrProtectedAdmin):
		api.Fail(w, http.StatusBadRequest, "protected_admin", "admin accounts cannot be deleted", reqID)
	case errors.Is(err, employee.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	default:
		api.Internal(w, r, reqID, "employee operation failed", err)
	}
}

// record is best-effort: the mutation already happened and must not be reported as failed.
func (h *Handler) record(r *http.Request, action, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	actor, _ := middleware.GetPrincipal(r.Context())
	err := h.Audit.Record(r.Context(), audit.Entry{
		ActorID:    actor.EmployeeID,
		Action:     action,
		EntityType: audit.EntityEmployee,
		EntityID:   entityID,
		RequestID:  requestctx.GetRequestID(r.Context()),
		IP:         middleware.ClientIP(r),
		Before:     before,
		After:      after,
	})
	if err != nil {
		slog.Warn("audit record failed", "action", action, "entityId", entityID, "err", err)
	}
}
