package healthhandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"absensi/internal/requestctx"
	"absensi/internal/transport/http/api"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	DB  Pinger
	Now func() time.Time
}

// NewHandler builds the health checks. A nil db makes readiness always succeed.
func NewHandler(db Pinger) *Handler {
	return &Handler{DB: db, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)
}

type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// HandleHealth writes a flat body, outside the API envelope.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(healthResponse{
		Status:    "OK",
		Message:   "attendance service is running",
		Timestamp: h.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		slog.Warn("write health response failed", "err", err)
	}
}

func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			api.Fail(w, http.StatusServiceUnavailable, "not_ready", "database not ready", reqID)
			return
		}
	}
	api.Success(w, map[string]string{"status": "ready"}, reqID)
}
