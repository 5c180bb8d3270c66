package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr                 string        `yaml:"addr"`
	DatabaseURL          string        `yaml:"databaseUrl"`
	DBHost               string        `yaml:"dbHost"`
	DBPort               int           `yaml:"dbPort"`
	DBUser               string        `yaml:"dbUser"`
	DBPassword           string        `yaml:"dbPassword"`
	DBName               string        `yaml:"dbName"`
	DBSSLMode            string        `yaml:"dbSslMode"`
	DBMaxConns           int           `yaml:"dbMaxConns"`
	ClientURL            string        `yaml:"clientUrl"`
	JWTSecret            string        `yaml:"jwtSecret"`
	TokenTTL             time.Duration `yaml:"tokenTtl"`
	Timezone             string        `yaml:"timezone"`
	LateAfterHour        int           `yaml:"lateAfterHour"`
	PublicDir            string        `yaml:"publicDir"`
	UploadDir            string        `yaml:"uploadDir"`
	UploadURLPrefix      string        `yaml:"uploadUrlPrefix"`
	MaxBodyBytes         int64         `yaml:"maxBodyBytes"`
	MaxPhotoBytes        int           `yaml:"maxPhotoBytes"`
	RateLimitPerMinute   int           `yaml:"rateLimitPerMinute"`
	APIRateLimit         int           `yaml:"apiRateLimitPerMinute"`
	MetricsEnabled       bool          `yaml:"metricsEnabled"`
	RunMigrations        bool          `yaml:"runMigrations"`
	RunSeed              bool          `yaml:"runSeed"`
	MigrationsDir        string        `yaml:"migrationsDir"`
	SeedAdminUsername    string        `yaml:"seedAdminUsername"`
	SeedAdminPassword    string        `yaml:"seedAdminPassword"`
	AbsenceSweepInterval time.Duration `yaml:"absenceSweepInterval"`
	Environment          string        `yaml:"environment"`
	LogLevel             string        `yaml:"logLevel"`
}

func Default() Config {
	return Config{
		Addr:               ":3001",
		DBPort:             5432,
		DBSSLMode:          "disable",
		DBMaxConns:         10,
		ClientURL:          "http://localhost:5173",
		TokenTTL:           24 * time.Hour,
		Timezone:           "Local",
		LateAfterHour:      8,
		PublicDir:          "public",
		UploadDir:          "public/uploads/attendance",
		UploadURLPrefix:    "/uploads/attendance",
		MaxBodyBytes:       10 << 20,
		MaxPhotoBytes:      5 << 20,
		RateLimitPerMinute: 60,
		APIRateLimit:       300,
		MetricsEnabled:     true,
		RunMigrations:      true,
		RunSeed:            true,
		MigrationsDir:      "migrations",
		SeedAdminUsername:  "admin",
		Environment:        "development",
		LogLevel:           "info",
	}
}

// Load reads defaults, then the optional YAML file, then .env, then the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	cfg.Addr = getEnv("APP_ADDR", cfg.Addr)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnvInt("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.DBSSLMode = getEnv("DB_SSLMODE", cfg.DBSSLMode)
	cfg.DBMaxConns = getEnvInt("DB_MAX_CONNS", cfg.DBMaxConns)
	cfg.ClientURL = getEnv("CLIENT_URL", cfg.ClientURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", cfg.TokenTTL)
	cfg.Timezone = getEnv("APP_TIMEZONE", cfg.Timezone)
	cfg.LateAfterHour = getEnvInt("LATE_AFTER_HOUR", cfg.LateAfterHour)
	cfg.PublicDir = getEnv("PUBLIC_DIR", cfg.PublicDir)
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.UploadURLPrefix = getEnv("UPLOAD_URL_PREFIX", cfg.UploadURLPrefix)
	cfg.MaxBodyBytes = int64(getEnvInt("MAX_BODY_BYTES", int(cfg.MaxBodyBytes)))
	cfg.MaxPhotoBytes = getEnvInt("MAX_PHOTO_BYTES", cfg.MaxPhotoBytes)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.APIRateLimit = getEnvInt("API_RATE_LIMIT_PER_MINUTE", cfg.APIRateLimit)
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.RunMigrations = getEnvBool("RUN_MIGRATIONS", cfg.RunMigrations)
	cfg.RunSeed = getEnvBool("RUN_SEED", cfg.RunSeed)
	cfg.MigrationsDir = getEnv("MIGRATIONS_DIR", cfg.MigrationsDir)
	cfg.SeedAdminUsername = getEnv("SEED_ADMIN_USERNAME", cfg.SeedAdminUsername)
	cfg.SeedAdminPassword = getEnv("SEED_ADMIN_PASSWORD", cfg.SeedAdminPassword)
	cfg.AbsenceSweepInterval = getEnvDuration("ABSENCE_SWEEP_INTERVAL", cfg.AbsenceSweepInterval)
	cfg.Environment = getEnv("APP_ENV", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
}

// DSN prefers DATABASE_URL and otherwise assembles a URL from the DB_* settings.
func (c Config) DSN() string {
	if strings.TrimSpace(c.DatabaseURL) != "" {
		return c.DatabaseURL
	}
	if strings.TrimSpace(c.DBHost) == "" || strings.TrimSpace(c.DBName) == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   c.DBHost + ":" + strconv.Itoa(c.DBPort),
		Path:   "/" + c.DBName,
	}
	if c.DBUser != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	}
	q := url.Values{}
	if c.DBSSLMode != "" {
		q.Set("sslmode", c.DBSSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if c.DSN() == "" {
		return fmt.Errorf("DATABASE_URL or DB_HOST and DB_NAME are required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("APP_TIMEZONE is invalid: %w", err)
	}
	if c.LateAfterHour < 0 || c.LateAfterHour > 23 {
		return fmt.Errorf("LATE_AFTER_HOUR must be between 0 and 23")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.APIRateLimit < 0 {
		return fmt.Errorf("API_RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.IsProduction() && strings.TrimSpace(c.ClientURL) == "" {
		return fmt.Errorf("CLIENT_URL is required in production")
	}
	if c.IsProduction() && c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
		return fmt.Errorf("SEED_ADMIN_PASSWORD must be set or RUN_SEED disabled in production")
	}
	return nil
}
