package attendancehandler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"absensi/internal/domain/attendance"
	"absensi/internal/domain/audit"
	"absensi/internal/domain/auth"
	"absensi/internal/requestctx"
	"absensi/internal/transport/http/api"
	"absensi/internal/transport/http/middleware"
	"absensi/internal/transport/http/shared"
)

// Engine is the subset of attendance.Service the routes depend on.
type Engine interface {
	CheckIn(ctx context.Context, employeeID string, in attendance.EventInput) (attendance.Summary, error)
	CheckOut(ctx context.Context, employeeID string, in attendance.EventInput) (attendance.Summary, error)
	TodayStatus(ctx context.Context, employeeID string) (attendance.TodayStatus, error)
	History(ctx context.Context, employeeID string, limit int) ([]attendance.Record, error)
	TodayAll(ctx context.Context) ([]attendance.Record, error)
	Range(ctx context.Context, filter attendance.RangeFilter) ([]attendance.Record, error)
	Summary(ctx context.Context, filter attendance.RangeFilter) (attendance.StatusCounts, error)
}

type Sweeper interface {
	SweepAbsences(ctx context.Context, date string) (int, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

type Handler struct {
	Engine  Engine
	Sweeper Sweeper
	Audit   AuditRecorder
	Report  ReportWriter
}

// ReportWriter renders exported rows; it is attendance.WriteReport bound to the engine's zone.
type ReportWriter func(w io.Writer, format attendance.ExportFormat, records []attendance.Record) error

func NewHandler(engine Engine, sweeper Sweeper, recorder AuditRecorder, report ReportWriter) *Handler {
	return &Handler{Engine: engine, Sweeper: sweeper, Audit: recorder, Report: report}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.Post("/checkin", h.handleCheckIn)
		r.Post("/checkout", h.handleCheckOut)
		r.Get("/today", h.handleToday)
		r.Get("/history", h.handleHistory)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			r.Get("/today-all", h.handleTodayAll)
			r.Get("/all", h.handleAll)
			r.Get("/summary", h.handleSummary)
			r.Get("/export", h.handleExport)
			r.Post("/absences/sweep", h.handleSweep)
		})
	})
}

type eventPayload struct {
	Notes    string `json:"notes"`
	Photo    string `json:"photo"`
	Location string `json:"location"`
}

func (h *Handler) decodeEvent(w http.ResponseWriter, r *http.Request, reqID string) (attendance.EventInput, bool) {
	var payload eventPayload
	if !shared.DecodeJSON(w, r, &payload, true, reqID) {
		return attendance.EventInput{}, false
	}
	v := shared.NewValidator()
	v.MaxLen("notes", payload.Notes, 1000)
	v.MaxLen("location", payload.Location, 255)
	if v.Reject(w, reqID) {
		return attendance.EventInput{}, false
	}
	return attendance.EventInput{Notes: payload.Notes, Photo: payload.Photo, Location: payload.Location}, true
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	in, ok := h.decodeEvent(w, r, reqID)
	if !ok {
		return
	}
	summary, err := h.Engine.CheckIn(r.Context(), principal.EmployeeID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, "check-in recorded", summary, reqID)
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	in, ok := h.decodeEvent(w, r, reqID)
	if !ok {
		return
	}
	summary, err := h.Engine.CheckOut(r.Context(), principal.EmployeeID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.SuccessMessage(w, "check-out recorded", summary, reqID)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	status, err := h.Engine.TodayStatus(r.Context(), principal.EmployeeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, status, reqID)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	principal, _ := middleware.GetPrincipal(r.Context())
	limit := shared.ParseLimit(r, attendance.DefaultHistoryLimit, attendance.MaxHistoryLimit)
	records, err := h.Engine.History(r.Context(), principal.EmployeeID, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, nonNil(records), reqID)
}

func (h *Handler) handleTodayAll(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	records, err := h.Engine.TodayAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, nonNil(records), reqID)
}

// rangeFilter reads start_date/end_date, writing a validation failure when they are malformed.
func rangeFilter(w http.ResponseWriter, r *http.Request, reqID string) (attendance.RangeFilter, bool) {
	q := r.URL.Query()
	v := shared.NewValidator()
	start := v.Date("start_date", q.Get("start_date"))
	end := v.Date("end_date", q.Get("end_date"))
	v.DateOrder("start_date", start, "end_date", end)
	if v.Reject(w, reqID) {
		return attendance.RangeFilter{}, false
	}
	return attendance.RangeFilter{StartDate: start, EndDate: end}, true
}

func (h *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	filter, ok := rangeFilter(w, r, reqID)
	if !ok {
		return
	}
	filter.Limit = shared.ParseLimit(r, attendance.DefaultRangeLimit, attendance.MaxRangeLimit)
	records, err := h.Engine.Range(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, nonNil(records), reqID)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	filter, ok := rangeFilter(w, r, reqID)
	if !ok {
		return
	}
	counts, err := h.Engine.Summary(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	api.Success(w, map[string]any{
		"start_date": filter.StartDate,
		"end_date":   filter.EndDate,
		"counts":     counts,
		"total":      total,
	}, reqID)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	format, err := attendance.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "format", Reason: "must be one of csv, xlsx, pdf"}})
		return
	}
	filter, ok := rangeFilter(w, r, reqID)
	if !ok {
		return
	}
	filter.Limit = attendance.MaxRangeLimit
	records, err := h.Engine.Range(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Rendered into a buffer so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := h.Report(&buf, format, records); err != nil {
		api.Internal(w, r, reqID, "attendance export failed", err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename(filter)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload struct {
		Date string `json:"date"`
	}
	if !shared.DecodeJSON(w, r, &payload, false, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("date", payload.Date)
	date := v.Date("date", payload.Date)
	if v.Reject(w, reqID) {
		return
	}

	marked, err := h.Sweeper.SweepAbsences(r.Context(), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result := map[string]any{"date": date, "marked": marked}
	if h.Audit != nil {
		actor, _ := middleware.GetPrincipal(r.Context())
		if err := h.Audit.Record(r.Context(), audit.Entry{
			ActorID:    actor.EmployeeID,
			Action:     audit.ActionAbsenceSweep,
			EntityType: audit.EntityAttendance,
			EntityID:   date,
			RequestID:  reqID,
			IP:         middleware.ClientIP(r),
			After:      result,
		}); err != nil {
			slog.Warn("audit record failed", "action", audit.ActionAbsenceSweep, "date", date, "err", err)
		}
	}
	api.SuccessMessage(w, "absences marked", result, reqID)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := requestctx.GetRequestID(r.Context())
	switch {
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		api.Fail(w, http.StatusBadRequest, "already_checked_in", "already checked in today", reqID)
	case errors.Is(err, attendance.ErrNotCheckedIn):
		api.Fail(w, http.StatusBadRequest, "not_checked_in", "must check in before checking out", reqID)
	case errors.Is(err, attendance.ErrAlreadyCheckedOut):
		api.Fail(w, http.StatusBadRequest, "already_checked_out", "already checked out today", reqID)
	case errors.Is(err, attendance.ErrUnknownEmployee):
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", reqID)
	case errors.Is(err, attendance.ErrInvalidRange):
		api.Fail(w, http.StatusBadRequest, "invalid_range", err.Error(), reqID)
	case errors.Is(err, attendance.ErrSweepDate):
		api.Fail(w, http.StatusBadRequest, "invalid_sweep_date", "date must be before today", reqID)
	default:
		api.Internal(w, r, reqID, "attendance operation failed", err)
	}
}

func nonNil(records []attendance.Record) []attendance.Record {
	if records == nil {
		return []attendance.Record{}
	}
	return records
}
