package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/borrowing"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	auditrepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/users"
	http_controllers "github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/logging"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/tasks"
)

// App holds every long-lived component of the server. Build creates it and
// Close releases it in reverse order.
type App struct {
	Config *config.Config

	DB        *database.Database
	Auditor   *audit.Service
	Books     *books.Repository
	Users     *users.Repository
	Borrowing *borrowing.Service
	Auth      *auth.Service

	Limiter        auth.LoginLimiter
	SessionManager *auth.SessionManager
	Tasks          *tasks.Client
	Scheduler      *scheduler.AuditCleanupScheduler
	Router         *gin.Engine
}

// Build opens the database and wires services, auth and the router.
func Build(cfg *config.Config, version string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, DB: db}
	if err := app.wire(version); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(version string) error {
	cfg := a.Config
	a.Books = books.NewRepository(a.DB.DB)
	a.Users = users.NewRepository(a.DB.DB)
	a.Auditor = audit.NewService(auditrepo.NewRepository(a.DB.DB))

	a.Borrowing = borrowing.NewService(borrowing.Deps{
		DB:         a.DB.DB,
		Books:      a.Books,
		Loans:      loans.NewRepository(a.DB.DB),
		Users:      a.Users,
		Policy:     borrowing.LimitPolicy{Limit: cfg.Borrowing.Limit},
		LoanPeriod: cfg.Borrowing.LoanPeriod,
		Events:     a.Auditor,
	})
	if cfg.Global.ReadOnly {
		slog.Warn("read-only mode enabled, write requests will be rejected")
	}
	slog.Info("borrowing configured", "limit", cfg.Borrowing.Limit, "loan_period", cfg.Borrowing.LoanPeriod)

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	a.Auth = auth.NewService(a.Users, tokens, auth.LogNotifier{}, cfg.Auth)

	var redisPinger http_controllers.ContextPinger
	limiterCfg := auth.RateLimitConfigFrom(cfg.Auth)
	if cfg.Redis.Addr != "" {
		redisLimiter, err := auth.NewRedisRateLimiter(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.Prefix, limiterCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize redis rate limiter: %w", err)
		}
		a.Limiter = redisLimiter
		redisPinger = redisLimiter
		slog.Info("login rate limiter: redis", "addr", cfg.Redis.Addr)
	} else {
		a.Limiter = auth.NewRateLimiter(limiterCfg)
		slog.Info("login rate limiter: in-memory")
	}

	var csrfSecret []byte
	if cfg.Auth.SessionsEnabled {
		sm, err := a.newSessionManager()
		if err != nil {
			return err
		}
		a.SessionManager = sm

		csrfSecret, err = sessionSecret(cfg.Auth.SessionSecret)
		if err != nil {
			return err
		}
	}

	if cfg.Tasks.Enabled {
		if err := a.startTaskQueue(); err != nil {
			return err
		}
	}

	a.Router = http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       a.DB,
		Redis:          redisPinger,
		Lender:         a.Borrowing,
		Loans:          a.Borrowing,
		Catalog:        a.Books,
		Users:          a.Users,
		Audit:          a.Auditor,
		Events:         a.Auditor,
		AuthService:    a.Auth,
		AuthMiddleware: auth.NewMiddleware(a.Auth, a.SessionManager),
		AuthController: auth.NewAuthController(a.Auth, a.SessionManager, a.Limiter, a.Auditor),
		SessionManager: a.SessionManager,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		ReadOnly:       cfg.Global.ReadOnly,
		Version:        version,
	})
	return nil
}

// newSessionManager stores sessions next to the data on SQLite and in
// memory on PostgreSQL.
func (a *App) newSessionManager() (*auth.SessionManager, error) {
	if a.Config.Database.Driver == config.DriverPostgres {
		slog.Info("sessions: in-memory store")
		return auth.NewMemorySessionManager(a.Config.Auth), nil
	}

	sqlDB, err := a.DB.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL DB for sessions: %w", err)
	}
	sm, err := auth.NewSessionManager(sqlDB, a.Config.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session manager: %w", err)
	}
	slog.Info("sessions: sqlite store")
	return sm, nil
}

func sessionSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}

	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF secret: %w", err)
	}
	slog.Warn("generated session secret, set AUTH_SESSION_SECRET to persist it across restarts")
	return hex.DecodeString(secret)
}

func (a *App) startTaskQueue() error {
	cfg := a.Config
	client, err := tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
	if err != nil {
		return fmt.Errorf("failed to initialize task queue: %w", err)
	}
	a.Tasks = client
	client.Register(tasks.NewCleanupAuditEventsQueue(a.Auditor))

	if cfg.Audit.CleanupEnabled {
		if err := scheduler.ValidateSchedule(cfg.Audit.CleanupSchedule); err != nil {
			return err
		}
		a.Scheduler = scheduler.NewAuditCleanupScheduler(client, cfg.Audit.CleanupSchedule, cfg.Audit.RetentionDays)
	}
	return nil
}

// Close waits for pending audit writes and releases resources.
func (a *App) Close() {
	if a.Auditor != nil {
		a.Auditor.Wait()
	}
	switch l := a.Limiter.(type) {
	case *auth.RateLimiter:
		l.Stop()
	case *auth.RedisRateLimiter:
		if err := l.Close(); err != nil {
			slog.Error("error closing redis client", "error", err)
		}
	}
	if a.Tasks != nil {
		if err := a.Tasks.Close(); err != nil {
			slog.Error("error closing task client", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}
}

// Serve runs the HTTP server, the task workers and the cleanup scheduler
// until ctx is cancelled or one of them fails, then shuts them down.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.Scheduler != nil {
		if err := a.Scheduler.Start(gctx); err != nil {
			return err
		}
	}
	if a.Tasks != nil {
		go a.Tasks.Start(gctx)
	}

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		timeout := cfg.Global.ShutdownTimeout
		slog.Info("shutting down", "timeout", timeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if a.Scheduler != nil {
			a.Scheduler.Stop()
		}
		if a.Tasks != nil {
			a.Tasks.Stop(shutdownCtx)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	slog.Info("server exiting")
	return err
}

// Run builds the application and serves until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	logging.InitLogger(cfg.Global.LogLevel)
	slog.Info("starting library", "version", version)

	app, err := Build(cfg, version)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Serve(ctx)
}
