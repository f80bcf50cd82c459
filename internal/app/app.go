package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Esha-Sharmaa/noting-backend/internal/auth"
	"github.com/Esha-Sharmaa/noting-backend/internal/config"
	"github.com/Esha-Sharmaa/noting-backend/internal/event"
	handler "github.com/Esha-Sharmaa/noting-backend/internal/handler/http"
	"github.com/Esha-Sharmaa/noting-backend/internal/repository/postgres"
	"github.com/Esha-Sharmaa/noting-backend/internal/service"
	"github.com/Esha-Sharmaa/noting-backend/internal/storage/memory"
	"github.com/Esha-Sharmaa/noting-backend/migrations"
	"github.com/Esha-Sharmaa/noting-backend/pkg/database"
	"github.com/Esha-Sharmaa/noting-backend/pkg/health"
	"github.com/Esha-Sharmaa/noting-backend/pkg/httpclient"
	pkgkafka "github.com/Esha-Sharmaa/noting-backend/pkg/kafka"
	"github.com/Esha-Sharmaa/noting-backend/pkg/middleware"
	"github.com/Esha-Sharmaa/noting-backend/pkg/tracing"
)

// purgeLockKey guards the trash purge so only one instance runs it per tick.
const purgeLockKey = "noting:trash-purge-lock"

// App wires together all dependencies and runs the service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	noteService    *service.NoteService
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "noting-backend",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     1.0,
		Enabled:        cfg.OTLPEndpoint != "",
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "noting")
	database.SetSlowQueryLogging(200*time.Millisecond, logger)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Optional Redis client, used to serialise the trash purge across
	// instances. Without it each instance purges on its own schedule.
	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisCfg, err := redisConfigFromAddr(cfg)
		if err != nil {
			pool.Close()
			return nil, err
		}
		redisClient, err = database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
	}

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	store := memory.New(cfg.BaseURL)
	eventProducer := event.NewProducer(producer, logger)

	userRepo := postgres.NewUserRepository(pool)
	noteRepo := postgres.NewNoteRepository(pool)
	labelRepo := postgres.NewLabelRepository(pool)
	collabRepo := postgres.NewCollaboratorRepository(pool)

	authService := service.NewAuthService(userRepo, jwtManager, store, eventProducer, logger)
	noteService := service.NewNoteService(noteRepo, labelRepo, collabRepo, store, eventProducer, logger)
	labelService := service.NewLabelService(labelRepo, logger)
	collabService := service.NewCollaboratorService(collabRepo, noteRepo, userRepo, logger)

	var googleOAuth *service.GoogleOAuth
	if cfg.GoogleOAuthEnabled() {
		googleOAuth = service.NewGoogleOAuth(service.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		}, httpclient.New(httpclient.DefaultConfig()))
		logger.Info("google login enabled")
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		AuthService:         authService,
		NoteService:         noteService,
		LabelService:        labelService,
		CollaboratorService: collabService,
		OAuth:               googleOAuth,
		Store:               store,
		Health:              healthHandler,
		Logger:              logger,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		Cookies: handler.CookieConfig{
			Secure:   cfg.CookieSecure,
			SameSite: cfg.CookieSameSite,
			Domain:   cfg.CookieDomain,
		},
		FrontendURL:       cfg.FrontendURL,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		noteService:    noteService,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and the trash purge loop, blocking until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go a.runPurgeLoop(ctx)

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// runPurgeLoop periodically deletes trashed notes older than the retention
// window. One pass runs shortly after startup so a long purge interval does
// not postpone overdue deletions.
func (a *App) runPurgeLoop(ctx context.Context) {
	startup := time.NewTimer(time.Minute)
	defer startup.Stop()

	select {
	case <-ctx.Done():
		return
	case <-startup.C:
		a.purgeTrashed(ctx)
	}

	ticker := time.NewTicker(a.cfg.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.purgeTrashed(ctx)
		}
	}
}

// purgeTrashed runs one purge pass. With Redis configured, a lock keyed to
// the purge interval ensures only one instance does the work per tick.
func (a *App) purgeTrashed(ctx context.Context) {
	if a.redis != nil {
		ok, err := a.redis.SetNX(ctx, purgeLockKey, "1", a.cfg.PurgeInterval/2).Result()
		if err != nil {
			a.logger.Warn("purge lock acquisition failed, skipping pass", slog.String("error", err.Error()))
			return
		}
		if !ok {
			a.logger.Debug("purge lock held elsewhere, skipping pass")
			return
		}
	}

	purged, err := a.noteService.PurgeTrashed(ctx, a.cfg.PurgeRetention)
	if err != nil {
		a.logger.Error("trash purge failed", slog.String("error", err.Error()))
		return
	}
	if purged > 0 {
		a.logger.Info("trash purge completed", slog.Int("purged", purged))
	}
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis and PostgreSQL.
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// redisConfigFromAddr splits the host:port address from config into the
// shape the database package expects.
func redisConfigFromAddr(cfg *config.Config) (database.RedisConfig, error) {
	host, portStr, err := net.SplitHostPort(cfg.RedisAddr)
	if err != nil {
		return database.RedisConfig{}, fmt.Errorf("parse redis address %q: %w", cfg.RedisAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return database.RedisConfig{}, fmt.Errorf("parse redis port %q: %w", portStr, err)
	}
	return database.RedisConfig{
		Host:     host,
		Port:     port,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}
