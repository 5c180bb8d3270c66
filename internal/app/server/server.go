package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"absensi/internal/domain/attendance"
	"absensi/internal/domain/audit"
	"absensi/internal/domain/auth"
	"absensi/internal/domain/employee"
	"absensi/internal/platform/config"
	"absensi/internal/platform/db"
	"absensi/internal/platform/jobs"
	"absensi/internal/platform/metrics"
	"absensi/internal/platform/photo"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Config     config.Config
	DB         *pgxpool.Pool
	Router     http.Handler
	Attendance *attendance.Service
	Jobs       *jobs.Service
}

// New connects to the database, applies migrations and the seed when enabled,
// and wires every service behind the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	employees := employee.NewService(employee.NewStore(pool))
	authService := auth.NewService(employees, cfg.JWTSecret, cfg.TokenTTL)

	opts := []attendance.Option{
		attendance.WithPhotoStore(photo.NewStore(cfg.UploadDir, cfg.UploadURLPrefix, cfg.MaxPhotoBytes)),
		attendance.WithEmployeeDirectory(employees),
		attendance.WithLocation(loc),
		attendance.WithLateAfterHour(cfg.LateAfterHour),
	}
	if collector != nil {
		opts = append(opts, attendance.WithObserver(collector))
	}
	engine := attendance.NewService(attendance.NewStore(pool), opts...)

	jobService := jobs.New(pool, engine, cfg.AbsenceSweepInterval)
	if collector != nil {
		jobService.Counter = collector
	}

	router := NewRouter(Deps{
		Config:     cfg,
		Auth:       authService,
		Employees:  employees,
		Attendance: engine,
		Sweeper:    jobService,
		Audit:      audit.New(pool),
		DB:         pool,
		Metrics:    collector,
	})

	return &App{
		Config:     cfg,
		DB:         pool,
		Router:     router,
		Attendance: engine,
		Jobs:       jobService,
	}, nil
}

// Serve listens until ctx is cancelled, then drains in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	a.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("attendance server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
