package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	SLA          SLAConfig
	Freshness    FreshnessConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	// CORSOrigins is the comma separated origin list allowed to call the API
	// from a browser, e.g. sites embedding the support widget.
	CORSOrigins string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ChangeChannel string
}

// LoggerConfig configures logging behavior. File is optional; when set, logs
// are also written to a rotated file.
type LoggerConfig struct {
	Level         string
	File          string
	MaxSizeMB     int
	MaxBackups    int
	MaxAgeDays    int
	CompressFiles bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// SLAConfig tunes rule evaluation and presence.
type SLAConfig struct {
	FallbackRule          string
	PresenceWindowMinutes int
	BreachScanSeconds     int
}

// FreshnessConfig sets the polling and heartbeat intervals.
type FreshnessConfig struct {
	DashboardPollSeconds     int
	SessionPollSeconds       int
	HeartbeatSeconds         int
	DashboardCacheTTLSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSOrigins:           getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            redisDB,
			ChangeChannel: getEnv("REDIS_CHANGE_CHANNEL", "helpdesk:changes"),
		},
		Logger: LoggerConfig{
			Level:         getEnv("LOG_LEVEL", "info"),
			File:          os.Getenv("LOG_FILE"),
			MaxSizeMB:     getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups:    getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays:    getEnvAsInt("LOG_MAX_AGE_DAYS", 28),
			CompressFiles: getEnvAsBool("LOG_COMPRESS", false),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		SLA: SLAConfig{
			FallbackRule:          getEnv("SLA_FALLBACK_RULE", "General Support"),
			PresenceWindowMinutes: getEnvAsInt("PRESENCE_WINDOW_MINUTES", 5),
			BreachScanSeconds:     getEnvAsInt("SLA_BREACH_SCAN_SECONDS", 60),
		},
		Freshness: FreshnessConfig{
			DashboardPollSeconds:     getEnvAsInt("DASHBOARD_POLL_SECONDS", 60),
			SessionPollSeconds:       getEnvAsInt("SESSION_POLL_SECONDS", 120),
			HeartbeatSeconds:         getEnvAsInt("HEARTBEAT_SECONDS", 30),
			DashboardCacheTTLSeconds: getEnvAsInt("DASHBOARD_CACHE_TTL_SECONDS", 120),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must not be empty"))
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive"))
	}
	if c.SLA.PresenceWindowMinutes <= 0 {
		errs = append(errs, errors.New("PRESENCE_WINDOW_MINUTES must be positive"))
	}
	checks := []struct {
		name  string
		value int
	}{
		{"SLA_BREACH_SCAN_SECONDS", c.SLA.BreachScanSeconds},
		{"DASHBOARD_POLL_SECONDS", c.Freshness.DashboardPollSeconds},
		{"SESSION_POLL_SECONDS", c.Freshness.SessionPollSeconds},
		{"HEARTBEAT_SECONDS", c.Freshness.HeartbeatSeconds},
		{"DASHBOARD_CACHE_TTL_SECONDS", c.Freshness.DashboardCacheTTLSeconds},
	}
	for _, check := range checks {
		if check.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", check.name, check.value))
		}
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PresenceWindow is how long an agent counts as online after a heartbeat.
func (s SLAConfig) PresenceWindow() time.Duration {
	return time.Duration(s.PresenceWindowMinutes) * time.Minute
}

// BreachScan is the interval of the background SLA breach scan.
func (s SLAConfig) BreachScan() time.Duration {
	return time.Duration(s.BreachScanSeconds) * time.Second
}

func (f FreshnessConfig) DashboardPoll() time.Duration {
	return time.Duration(f.DashboardPollSeconds) * time.Second
}

func (f FreshnessConfig) SessionPoll() time.Duration {
	return time.Duration(f.SessionPollSeconds) * time.Second
}

func (f FreshnessConfig) Heartbeat() time.Duration {
	return time.Duration(f.HeartbeatSeconds) * time.Second
}

func (f FreshnessConfig) DashboardCacheTTL() time.Duration {
	return time.Duration(f.DashboardCacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
