package audithandler

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"absensi/internal/domain/audit"
	"absensi/internal/domain/auth"
	"absensi/internal/requestctx"
	"absensi/internal/transport/http/api"
	"absensi/internal/transport/http/middleware"
	"absensi/internal/transport/http/shared"
)

const exportLimit = 5000

type Store interface {
	Count(ctx context.Context, filter audit.Filter) (int, error)
	List(ctx context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error)
}

type Handler struct {
	Service Store
}

func NewHandler(service Store) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin))
		r.Get("/events", h.handleListEvents)
		r.Get("/events/export", h.handleExportEvents)
	})
}

func parseFilter(r *http.Request) audit.Filter {
	q := r.URL.Query()
	return audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		ActorID:    q.Get("actor_employee_id"),
	}
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 100, 500)
	filter := parseFilter(r)

	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err)
	}
	events, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		api.Internal(w, r, reqID, "audit list failed", err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, reqID)
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	events, err := h.Service.List(r.Context(), parseFilter(r), exportLimit, 0)
	if err != nil {
		api.Internal(w, r, reqID, "audit export failed", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor_employee_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
	}
	for _, evt := range events {
		row := []string{
			strconv.FormatInt(evt.ID, 10), evt.ActorID, evt.Action, evt.EntityType, evt.EntityID,
			evt.RequestID, evt.IP, evt.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			slog.Warn("audit export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
