// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bissquit/resettlement-portal/internal/access"
	"github.com/bissquit/resettlement-portal/internal/config"
	"github.com/bissquit/resettlement-portal/internal/dashboard"
	"github.com/bissquit/resettlement-portal/internal/identity"
	"github.com/bissquit/resettlement-portal/internal/identity/jwt"
	"github.com/bissquit/resettlement-portal/internal/identity/password"
	identitypostgres "github.com/bissquit/resettlement-portal/internal/identity/postgres"
	identityredis "github.com/bissquit/resettlement-portal/internal/identity/redis"
	"github.com/bissquit/resettlement-portal/internal/pkg/ctxlog"
	"github.com/bissquit/resettlement-portal/internal/pkg/httputil"
	"github.com/bissquit/resettlement-portal/internal/pkg/metrics"
	"github.com/bissquit/resettlement-portal/internal/pkg/postgres"
	"github.com/bissquit/resettlement-portal/internal/version"
	"github.com/bissquit/resettlement-portal/internal/website"
	websitepostgres "github.com/bissquit/resettlement-portal/internal/website/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	apiPrefix         = "/api/v1"
	dbMetricsInterval = 15 * time.Second
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	redis         *goredis.Client
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance.
// An unreachable database or Redis does not fail startup: the affected
// endpoints respond with 503 until the process is restarted with a working
// configuration.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)
	cfg.LogWarnings(logger)

	db, err := connectDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		redis:         connectRedis(cfg.Redis, logger),
		metricsCancel: metricsCancel,
	}

	if db != nil {
		go metrics.CollectDBPool(metricsCtx, app.db, dbMetricsInterval)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           app.setupRouter(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// connectDatabase returns nil without error when the database is not
// configured or unreachable. Only a failed migration or seed aborts startup.
func connectDatabase(cfg config.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnectAttempts: cfg.ConnectAttempts,
	})
	if err != nil {
		logger.Error("database unavailable, running degraded", "error", err)
		return nil, nil
	}

	if cfg.AutoMigrate {
		if err := postgres.Migrate(cfg.URL, cfg.MigrationsDir); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	if cfg.SeedFile != "" {
		if err := postgres.Seed(ctx, db, cfg.SeedFile); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed database: %w", err)
		}
	}

	return db, nil
}

func connectRedis(cfg config.RedisConfig, logger *slog.Logger) *goredis.Client {
	if cfg.Addr == "" {
		return nil
	}

	client, err := identityredis.Connect(context.Background(), identityredis.Config{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		logger.Error("redis unavailable, token revocation disabled", "error", err)
		return nil
	}
	return client
}

// Run serves the API and metrics listeners. It returns the first listener
// failure other than http.ErrServerClosed, or nil once both have been shut
// down.
func (a *App) Run() error {
	servers := map[string]*http.Server{"api": a.server, "metrics": a.metricsServer}
	errCh := make(chan error, len(servers))
	for name, srv := range servers {
		go func() {
			a.logger.Info("starting server", "name", name, "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("%s server: %w", name, err)
				return
			}
			errCh <- nil
		}()
	}

	for range servers {
		if err := <-errCh; err != nil {
			return err
		}
	}
	return nil
}

// Shutdown drains both listeners in parallel, then releases Redis and the
// database pool. Every failure is reported.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")
	a.metricsCancel()

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	for name, srv := range map[string]*http.Server{"api": a.server, "metrics": a.metricsServer} {
		g.Go(func() error {
			if err := srv.Shutdown(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("shutdown %s server: %w", name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout(a.config.Server.RequestTimeout)))
	r.Use(httputil.CSRFMiddleware(apiPrefix+"/auth/login", apiPrefix+"/auth/register"))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	identityService := a.newIdentityService()
	identityHandler := identity.NewHandler(identityService, identity.CookieSettings{
		Secure: a.config.Cookie.Secure,
		Domain: a.config.Cookie.Domain,
	})

	var websiteRepo website.Repository
	if a.db != nil {
		websiteRepo = websitepostgres.NewRepository(a.db)
	}
	uploader, err := website.NewUploader(website.UploadConfig{
		Dir:       a.config.Uploads.Dir,
		URLPrefix: a.config.Uploads.URLPrefix,
		MaxSize:   a.config.Uploads.MaxSize,
	})
	if err != nil {
		a.logger.Error("uploads disabled", "error", err)
	}
	websiteHandler := website.NewHandler(website.NewService(websiteRepo), uploader)

	dashboardHandler := dashboard.NewHandler(dashboard.Views)

	r.Route(apiPrefix, func(r chi.Router) {
		identityHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.OptionalAuthMiddleware(identityService))
			websiteHandler.RegisterPublicRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(identityService))

			identityHandler.RegisterProtectedRoutes(r)
			dashboardHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRoles(access.AdminOnly))
				websiteHandler.RegisterAdminRoutes(r)
			})
		})
	})

	if uploader != nil {
		prefix := strings.TrimSuffix(a.config.Uploads.URLPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", noDirListing(http.FileServer(http.Dir(uploader.Dir())))))
	}

	return r
}

// newIdentityService wires the identity service from whatever dependencies
// are available. Missing ones stay nil interfaces so the service reports 503.
func (a *App) newIdentityService() *identity.Service {
	var repo identity.Repository
	if a.db != nil {
		repo = identitypostgres.NewRepository(a.db)
	}

	var opts []jwt.Option
	if a.redis != nil {
		opts = append(opts, jwt.WithDenylist(identityredis.NewDenylist(a.redis)))
	}

	var auth identity.Authenticator
	jwtAuth, err := jwt.NewAuthenticator(jwt.Config{
		SecretKey:     a.config.JWT.SecretKey,
		Issuer:        a.config.JWT.Issuer,
		TokenDuration: a.config.JWT.TokenDuration,
	}, opts...)
	if err != nil {
		a.logger.Error("authentication disabled", "error", err)
	} else {
		auth = jwtAuth
	}

	hasher := password.NewHasher(password.Config{
		Cost:          a.config.Auth.HashCost,
		MaxConcurrent: a.config.Auth.MaxConcurrentHashes,
	})

	return identity.NewService(repo, auth, hasher)
}

func requestTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 60 * time.Second
	}
	return d
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Get())
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// parseLevel maps debug, info, warn and error to slog levels; anything else
// is info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
