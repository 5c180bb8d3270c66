package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"absensi/internal/domain/auth"
	"absensi/internal/platform/config"
)

const (
	SeedAdminCode     = "ADM001"
	defaultAdminPass  = "password123"
	seedAdminPosition = "Administrator"
	seedAdminDept     = "IT"
)

// Seed creates the initial administrator once. An existing ADM001 row is left untouched.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	password := strings.TrimSpace(cfg.SeedAdminPassword)
	if password == "" {
		if cfg.IsProduction() {
			return errors.New("SEED_ADMIN_PASSWORD is required to seed in production")
		}
		password = defaultAdminPass
		slog.Warn("seeding admin with the development default password", "username", cfg.SeedAdminUsername)
	}
	return ensureAdminEmployee(ctx, pool, SeedAdminCode, cfg.SeedAdminUsername, password)
}

// ensureAdminEmployee inserts the admin under code unless the code exists or an
// active employee already holds username.
func ensureAdminEmployee(ctx context.Context, pool *pgxpool.Pool, code, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("seed admin username is required")
	}

	var id int64
	err := pool.QueryRow(ctx, "SELECT id FROM employees WHERE employee_id = $1", code).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	var holder string
	err = pool.QueryRow(ctx, "SELECT employee_id FROM employees WHERE username = $1 AND is_active", username).Scan(&holder)
	if err == nil {
		slog.Warn("seed admin skipped, username already in use", "employeeId", code, "username", username, "holder", holder)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	tag, err := pool.Exec(ctx, `
    INSERT INTO employees (employee_id, name, username, password_hash, role, position, department)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    ON CONFLICT DO NOTHING
  `, code, "Administrator", username, hash, auth.RoleAdmin.String(), seedAdminPosition, seedAdminDept)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		slog.Warn("seed admin skipped, conflicting row appeared", "employeeId", code, "username", username)
		return nil
	}
	slog.Info("seeded admin employee", "employeeId", code, "username", username)
	return nil
}
