// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/fanline/fanline/internal/config"
	"github.com/fanline/fanline/internal/domain"
	"github.com/fanline/fanline/internal/events"
	eventspostgres "github.com/fanline/fanline/internal/events/postgres"
	"github.com/fanline/fanline/internal/identity"
	"github.com/fanline/fanline/internal/identity/jwt"
	identitypostgres "github.com/fanline/fanline/internal/identity/postgres"
	"github.com/fanline/fanline/internal/notifications"
	notificationspostgres "github.com/fanline/fanline/internal/notifications/postgres"
	"github.com/fanline/fanline/internal/notifications/push"
	"github.com/fanline/fanline/internal/payments"
	"github.com/fanline/fanline/internal/payments/stripe"
	"github.com/fanline/fanline/internal/pkg/ctxlog"
	"github.com/fanline/fanline/internal/pkg/httputil"
	"github.com/fanline/fanline/internal/pkg/metrics"
	"github.com/fanline/fanline/internal/pkg/postgres"
	"github.com/fanline/fanline/internal/queue"
	queuepostgres "github.com/fanline/fanline/internal/queue/postgres"
	"github.com/fanline/fanline/internal/sched"
	"github.com/fanline/fanline/internal/version"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	redis         *redis.Client
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
	pushWorker    *notifications.Worker
	scheduler     *sched.Scheduler
	queueService  *queue.Service
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := postgres.Migrate(cfg.Database.URL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		redis:         redisClient,
		metricsCancel: metricsCancel,
	}

	go app.collectDBMetrics(metricsCtx)

	router, err := app.setupRouter(metricsCtx)
	if err != nil {
		db.Close()
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.scheduler = sched.New(sched.Config{
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		SweepSpec:     cfg.Queue.SweepSpec,
		Concurrency:   cfg.Queue.SweepConcurrency,
	}, app.queueService)

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
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

// Run starts the HTTP servers and the sweep scheduler.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	// Start main server
	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Stop the sweep cadence and push delivery first so nothing new is
	// queued while the servers drain.
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.pushWorker != nil {
		a.pushWorker.Stop()
	}

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if err := a.redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}

	a.db.Close()

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// PushWorker returns the push delivery worker instance.
// Used in tests to access worker state. Returns nil if push is disabled.
func (a *App) PushWorker() *notifications.Worker {
	return a.pushWorker
}

// QueueService returns the queue service. Used by tests to drive the
// notification sweep directly instead of waiting for the scheduler.
func (a *App) QueueService() *queue.Service {
	return a.queueService
}

func (a *App) setupRouter(ctx context.Context) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	// Notifications first: the queue service depends on the notifier.
	notificationsRepo := notificationspostgres.NewRepository(a.db)
	notifier := notifications.NewNotifier(notificationsRepo)
	notificationsService := notifications.NewService(notificationsRepo)
	notificationsHandler := notifications.NewHandler(notificationsService)

	slog.Info("push delivery configured", "enabled", a.config.Notifications.Enabled)

	if a.config.Notifications.Enabled {
		pushSender := push.NewSender(push.Config{
			PublishKey:    a.config.Notifications.PubNub.PublishKey,
			SubscribeKey:  a.config.Notifications.PubNub.SubscribeKey,
			SecretKey:     a.config.Notifications.PubNub.SecretKey,
			UserID:        a.config.Notifications.PubNub.UserID,
			RatePerSecond: a.config.Notifications.PubNub.RatePerSecond,
			Burst:         a.config.Notifications.PubNub.Burst,
		})

		dispatcher := notifications.NewDispatcher(pushSender)

		workerConfig := notifications.WorkerConfig{
			BatchSize:         a.config.Notifications.Worker.BatchSize,
			PollInterval:      a.config.Notifications.Worker.PollInterval,
			MaxAttempts:       a.config.Notifications.Retry.MaxAttempts,
			InitialBackoff:    a.config.Notifications.Retry.InitialBackoff,
			MaxBackoff:        a.config.Notifications.Retry.MaxBackoff,
			BackoffMultiplier: a.config.Notifications.Retry.BackoffMultiplier,
			NumWorkers:        a.config.Notifications.Worker.NumWorkers,
		}

		a.pushWorker = notifications.NewWorker(workerConfig, notificationsRepo, dispatcher)
		a.pushWorker.Start(ctx)
	} else {
		slog.Warn("push delivery is disabled: notifications stay in the in-app feed only")
	}

	eventsRepo := eventspostgres.NewRepository(a.db)
	eventsService := events.NewService(eventsRepo)
	eventsHandler := events.NewHandler(eventsService)

	queueRepo := queuepostgres.NewRepository(a.db)
	a.queueService = queue.NewService(queueRepo, notifier, queue.Config{
		PositionNotifyDelta: a.config.Queue.PositionNotifyDelta,
		MissedAfter:         a.config.Queue.MissedAfter,
		ComingUpWindow:      a.config.Queue.ComingUpWindow,
		NextUpWindow:        a.config.Queue.NextUpWindow,
	})
	queueHandler := queue.NewHandler(a.queueService)

	identityRepo := identitypostgres.NewRepository(a.db)
	jwtAuth := jwt.NewAuthenticator(jwt.Config{
		Secret:          a.config.JWT.Secret,
		AccessTokenTTL:  a.config.JWT.AccessTokenTTL,
		RefreshTokenTTL: a.config.JWT.RefreshTokenTTL,
	}, identityRepo)
	identityService := identity.NewService(identityRepo, jwtAuth)
	identityHandler := identity.NewHandler(identityService)

	stripeClient := stripe.NewClient(stripe.Config{
		SecretKey:     a.config.Stripe.SecretKey,
		WebhookSecret: a.config.Stripe.WebhookSecret,
	})
	paymentsService := payments.NewService(stripeClient, eventsRepo, identityService, a.queueService)
	paymentsHandler := payments.NewHandler(paymentsService, stripeClient)

	r.Route("/api/v1", func(r chi.Router) {
		identityHandler.RegisterRoutes(r)
		eventsHandler.RegisterPublicRoutes(r)
		paymentsHandler.RegisterWebhookRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(identityService))

			identityHandler.RegisterProtectedRoutes(r)
			notificationsHandler.RegisterRoutes(r)
			queueHandler.RegisterFanRoutes(r)
			paymentsHandler.RegisterFanRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleOrganizer))
				eventsHandler.RegisterOrganizerRoutes(r)
				queueHandler.RegisterOrganizerRoutes(r)
				paymentsHandler.RegisterOrganizerRoutes(r)
			})
		})
	})

	return r, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	if err := a.redis.Ping(ctx).Err(); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Redis unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
