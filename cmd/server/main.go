package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"absensi/internal/app/server"
	"absensi/internal/domain/attendance"
	"absensi/internal/domain/employee"
	"absensi/internal/platform/config"
	"absensi/internal/platform/db"
	"absensi/internal/platform/jobs"
)

const (
	Version = "1.0.0"
	appName = "absensi"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	load := func() (config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		setupLogging(cfg.LogLevel)
		return cfg, nil
	}

	serve := func(cmd *cobra.Command, _ []string) error {
		cfg, err := load()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := server.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Serve(ctx)
	}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Employee attendance service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  serve,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			pool, err := db.Connect(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()
			return db.Migrate(cmd.Context(), pool, cfg.MigrationsDir)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Create the initial admin account if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			pool, err := db.Connect(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()
			return db.Seed(cmd.Context(), pool, cfg)
		},
	})

	var sweepDate string
	sweep := &cobra.Command{
		Use:   "sweep-absences",
		Short: "Mark active employees without a record on a past date as absent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			pool, err := db.Connect(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			engine := attendance.NewService(attendance.NewStore(pool),
				attendance.WithEmployeeDirectory(employee.NewService(employee.NewStore(pool))),
				attendance.WithLocation(loc),
				attendance.WithLateAfterHour(cfg.LateAfterHour),
			)
			date := strings.TrimSpace(sweepDate)
			if date == "" {
				date = engine.Yesterday()
			}
			marked, err := jobs.New(pool, engine, 0).SweepAbsences(cmd.Context(), date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d employees absent on %s\n", marked, date)
			return nil
		},
	}
	sweep.Flags().StringVar(&sweepDate, "date", "", "Date to sweep (YYYY-MM-DD, default yesterday)")
	cmd.AddCommand(sweep)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
