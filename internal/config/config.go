package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DriverSQLite   DatabaseDriver = "sqlite"
	DriverPostgres DatabaseDriver = "postgres"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Borrowing
		Auth
		Redis
		Audit
		Tasks
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeout time.Duration
		LogLevel        string // debug, info, warn, error
		ReadOnly        bool   // Reject writes with 503, e.g. during backups
	}
	Database struct {
		Driver       DatabaseDriver
		Path         string // SQLite file path
		DSN          string // PostgreSQL connection string
		MaxOpenConns int    // 0 keeps the driver default; SQLite defaults to 1
		LogQueries   bool
	}
	Borrowing struct {
		Limit      int           // Max simultaneous active loans per user (default: 5)
		LoanPeriod time.Duration // due_date = borrowed_at + LoanPeriod (default: 14 days)
	}
	Auth struct {
		JWTSecret       string
		TokenExpiry     time.Duration
		BcryptCost      int
		SessionsEnabled bool // Cookie sessions + CSRF for browser clients
		SessionSecret   string
		SessionLifetime time.Duration
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)

		ActivationTTL time.Duration
		ResetTTL      time.Duration
		PublicBaseURL string // Base for activation/reset links
	}
	Redis struct {
		Addr     string // Empty disables the shared login limiter
		Password string
		Prefix   string
	}
	Audit struct {
		RetentionDays   int    // Days to keep audit events (default: 30)
		CleanupEnabled  bool
		CleanupSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

var (
	ErrUnknownDriver    = errors.New("unknown database driver")
	ErrMissingDSN       = errors.New("DATABASE_DSN is required for postgres")
	ErrInvalidLimit     = errors.New("BORROW_LIMIT must be positive")
	ErrInvalidPeriod    = errors.New("BORROW_LOAN_PERIOD must be positive")
	ErrMissingJWTSecret = errors.New("AUTH_JWT_SECRET is required")
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout", "5s")
	v.SetDefault("log_level", "info")
	v.SetDefault("read_only", false)

	// Database defaults
	v.SetDefault("database_driver", string(DriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_max_open_conns", 0)
	v.SetDefault("database_log_queries", false)

	// Borrowing rules
	v.SetDefault("borrow_limit", DefaultBorrowLimit)
	v.SetDefault("borrow_loan_period", DefaultLoanPeriod)

	// Auth defaults
	v.SetDefault("auth_jwt_secret", "")
	v.SetDefault("auth_token_expiry", "24h")
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_sessions_enabled", false)
	v.SetDefault("auth_session_secret", "") // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")
	v.SetDefault("auth_activation_ttl", "24h")
	v.SetDefault("auth_reset_ttl", "1h")
	v.SetDefault("auth_public_base_url", "http://localhost:8080")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_prefix", "library:ratelimit")

	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_enabled", true)
	v.SetDefault("audit_cleanup_schedule", "0 3 * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
			LogLevel:        v.GetString("LOG_LEVEL"),
			ReadOnly:        v.GetBool("READ_ONLY"),
		},
		Database: Database{
			Driver:       DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:         v.GetString("DATABASE_PATH"),
			DSN:          v.GetString("DATABASE_DSN"),
			MaxOpenConns: v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			LogQueries:   v.GetBool("DATABASE_LOG_QUERIES"),
		},
		Borrowing: Borrowing{
			Limit:      v.GetInt("BORROW_LIMIT"),
			LoanPeriod: v.GetDuration("BORROW_LOAN_PERIOD"),
		},
		Auth: Auth{
			JWTSecret:        v.GetString("AUTH_JWT_SECRET"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SessionsEnabled:  v.GetBool("AUTH_SESSIONS_ENABLED"),
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
			ActivationTTL:    v.GetDuration("AUTH_ACTIVATION_TTL"),
			ResetTTL:         v.GetDuration("AUTH_RESET_TTL"),
			PublicBaseURL:    v.GetString("AUTH_PUBLIC_BASE_URL"),
		},
		Redis: Redis{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			Prefix:   v.GetString("REDIS_PREFIX"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupEnabled:  v.GetBool("AUDIT_CLEANUP_ENABLED"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}

// Validate reports the first setting that would prevent the server from starting.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Database.Driver)
	}
	if c.Borrowing.Limit <= 0 {
		return ErrInvalidLimit
	}
	if c.Borrowing.LoanPeriod <= 0 {
		return ErrInvalidPeriod
	}
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}
