package server

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"absensi/internal/domain/attendance"
	"absensi/internal/domain/auth"
	"absensi/internal/domain/employee"
	"absensi/internal/platform/config"
	"absensi/internal/platform/metrics"
	"absensi/internal/requestctx"
	"absensi/internal/transport/http/api"
	attendancehandler "absensi/internal/transport/http/handlers/attendance"
	audithandler "absensi/internal/transport/http/handlers/audit"
	authhandler "absensi/internal/transport/http/handlers/auth"
	employeeshandler "absensi/internal/transport/http/handlers/employees"
	healthhandler "absensi/internal/transport/http/handlers/health"
	"absensi/internal/transport/http/middleware"
)

// AuditLog is both the write side used by admin mutations and the read side
// behind /api/audit.
type AuditLog interface {
	audithandler.Store
	employeeshandler.AuditRecorder
}

// Deps are the services the router is built from. DB, Sweeper, Audit and
// Metrics are optional.
type Deps struct {
	Config     config.Config
	Auth       *auth.Service
	Employees  *employee.Service
	Attendance *attendance.Service
	Sweeper    attendancehandler.Sweeper
	Audit      AuditLog
	DB         healthhandler.Pinger
	Metrics    *metrics.Collector
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config

	var recorder middleware.RequestRecorder
	if d.Metrics != nil {
		recorder = d.Metrics
	}
	var auditRecorder employeeshandler.AuditRecorder
	if d.Audit != nil {
		auditRecorder = d.Audit
	}
	sweeper := d.Sweeper
	if sweeper == nil {
		sweeper = d.Attendance
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(recorder))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	if origins := allowedOrigins(cfg.ClientURL); len(origins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader, "X-Total-Count", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	health := healthhandler.NewHandler(d.DB)
	router.Get("/healthz", health.HandleHealth)
	router.Get("/readyz", health.HandleReady)

	authHandler := authhandler.NewHandler(d.Auth, d.Employees)
	employeesHandler := employeeshandler.NewHandler(d.Employees, auditRecorder)
	attendanceHandler := attendancehandler.NewHandler(d.Attendance, sweeper, auditRecorder,
		func(w io.Writer, format attendance.ExportFormat, records []attendance.Record) error {
			return attendance.WriteReport(w, format, records, d.Attendance.Location())
		})

	router.Route("/api", func(r chi.Router) {
		health.RegisterRoutes(r)
		authHandler.RegisterPublicRoutes(r, middleware.LoginRateLimit(cfg.RateLimitPerMinute, time.Minute))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.Auth))
			r.Use(middleware.RateLimit(cfg.APIRateLimit, time.Minute))
			authHandler.RegisterRoutes(r)
			employeesHandler.RegisterRoutes(r)
			attendanceHandler.RegisterRoutes(r)
			if d.Audit != nil {
				audithandler.NewHandler(d.Audit).RegisterRoutes(r)
			}
		})

		r.NotFound(notFound)
		r.MethodNotAllowed(methodNotAllowed)
	})

	if d.Metrics != nil {
		router.Handle("/metrics", d.Metrics.Handler())
	}
	if cfg.UploadURLPrefix != "" && cfg.UploadDir != "" {
		prefix := strings.TrimRight(cfg.UploadURLPrefix, "/")
		router.Handle(prefix+"/*", http.StripPrefix(prefix, uploadsHandler{dir: cfg.UploadDir}))
	}
	router.Mount("/", spaHandler{staticPath: cfg.PublicDir, indexPath: "index.html"})

	return router
}

// allowedOrigins splits CLIENT_URL. No origins means no CORS headers at all.
func allowedOrigins(clientURL string) []string {
	var origins []string
	for _, origin := range strings.Split(clientURL, ",") {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func notFound(w http.ResponseWriter, r *http.Request) {
	api.Fail(w, http.StatusNotFound, "not_found", "route not found", requestctx.GetRequestID(r.Context()))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	api.Fail(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", requestctx.GetRequestID(r.Context()))
}

// uploadsHandler serves persisted photos without directory listings.
type uploadsHandler struct {
	dir string
}

func (h uploadsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, r)
		return
	}
	if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
		notFound(w, r)
		return
	}
	http.FileServer(http.Dir(h.dir)).ServeHTTP(w, r)
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || h.staticPath == "" {
		notFound(w, r)
		return
	}

	path := filepath.Join(h.staticPath, filepath.Clean("/"+r.URL.Path))
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	index := filepath.Join(h.staticPath, h.indexPath)
	if _, err := os.Stat(index); err != nil {
		notFound(w, r)
		return
	}
	http.ServeFile(w, r, index)
}
