package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"visadesk/internal/auth"
	"visadesk/internal/config"
	"visadesk/internal/database"
	"visadesk/internal/domain"
	"visadesk/internal/idempotency"
	"visadesk/internal/lifecycle"
	"visadesk/internal/logger"
	"visadesk/internal/metrics"
	"visadesk/internal/notify"
	"visadesk/internal/services"
	"visadesk/internal/store"
)

const (
	shutdownTimeout = 30 * time.Second
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	statsInterval   = 15 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Validate critical configuration
	if err := validateConfig(cfg); err != nil {
		zlog.Fatal("configuration validation failed", zap.Error(err))
	}

	zlog.Info("starting",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.Bool("debug", cfg.App.Debug),
		zap.String("host", cfg.App.Host),
		zap.String("port", cfg.App.Port))

	if cfg.Sentry.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     cfg.App.Version,
			SampleRate:  cfg.Sentry.SampleRate,
		})
		if err != nil {
			zlog.Fatal("failed to initialize sentry", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database
	db, err := database.Open(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		zlog.Info("closing database connections")
		if err := database.Close(db); err != nil {
			zlog.Warn("error closing database", zap.Error(err))
		}
	}()
	if err := database.Instrument(db, metrics.RecordDBQuery); err != nil {
		zlog.Fatal("failed to instrument database", zap.Error(err))
	}

	stores, err := openStores(db, cfg.Database)
	if err != nil {
		zlog.Fatal("failed to create stores", zap.Error(err))
	}

	keys, closeKeys, err := openKeys(cfg.Redis, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer closeKeys()

	sinks := []notify.Sink{notify.NewLogSink(zlog), notify.NewEmailSink(cfg.Email, zlog)}
	if len(cfg.Kafka.Brokers) > 0 {
		zlog.Info("publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
		sinks = append(sinks, notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic))
	}
	dispatcher := notify.NewDispatcher(zlog, cfg.Lifecycle.NotificationWindow, sinks...)

	engine, err := lifecycle.New(lifecycle.Deps{
		Stores:       stores,
		Authorizer:   auth.ContextAuthorizer{},
		Keys:         keys,
		KeyTTL:       cfg.Redis.KeyTTL,
		Notifier:     dispatcher,
		Log:          zlog,
		SlugAttempts: cfg.Lifecycle.SlugMaxAttempts,
		RecentCases:  cfg.Lifecycle.RecentActivityCap,
	})
	if err != nil {
		zlog.Fatal("failed to create lifecycle engine", zap.Error(err))
	}

	handler := services.New(services.Options{
		Engine: engine,
		Tokens: auth.NewTokenManager(cfg.Auth),
		Users:  auth.NewUsers(db),
		DB:     db,
		Config: cfg,
		Log:    zlog,
	}).Handler()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go reportPoolStats(ctx, db)

	// Create HTTP server with timeouts
	addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		ErrorLog:     zap.NewStdLog(zlog.Named("http")),
	}

	serverErrors := make(chan error, 1)
	go func() {
		zlog.Info("server listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		zlog.Error("server failed", zap.Error(err))
	case sig := <-shutdown:
		zlog.Info("starting graceful shutdown", zap.String("signal", sig.String()))
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("error during graceful shutdown", zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			zlog.Warn("shutdown timeout exceeded, forcing close")
			_ = httpServer.Close()
		}
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		zlog.Warn("error flushing notifications", zap.Error(err))
	}

	zlog.Info("server shutdown complete")
}

// openStores creates the database-backed entity stores
func openStores(db *gorm.DB, cfg config.DatabaseConfig) (lifecycle.Stores, error) {
	timeout := store.WithTimeout(cfg.StoreTimeout)
	var (
		s   lifecycle.Stores
		err error
	)
	if s.Applications, err = store.NewGorm[domain.Application](db, timeout); err != nil {
		return s, err
	}
	if s.Consultations, err = store.NewGorm[domain.Consultation](db, timeout); err != nil {
		return s, err
	}
	if s.Inquiries, err = store.NewGorm[domain.Inquiry](db, timeout); err != nil {
		return s, err
	}
	if s.Testimonials, err = store.NewGorm[domain.Testimonial](db, timeout); err != nil {
		return s, err
	}
	if s.Posts, err = store.NewGorm[domain.BlogPost](db, timeout, store.WithCounters("view_count")); err != nil {
		return s, err
	}
	if s.Comments, err = store.NewGorm[domain.BlogComment](db, timeout); err != nil {
		return s, err
	}
	return s, nil
}

// openKeys selects the reply idempotency store: Redis when configured so
// keys survive restarts and are shared between replicas, the in-process
// cache otherwise
func openKeys(cfg config.RedisConfig, zlog *zap.Logger) (idempotency.Store, func(), error) {
	if cfg.Addr == "" {
		zlog.Info("using in-process idempotency cache")
		return idempotency.NewCacheStore(cfg.KeyTTL), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rs, err := idempotency.NewRedisStore(ctx, &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	zlog.Info("using redis idempotency store", zap.String("addr", cfg.Addr))
	return rs, func() {
		if err := rs.Close(); err != nil {
			zlog.Warn("error closing redis", zap.Error(err))
		}
	}, nil
}

// reportPoolStats feeds connection pool gauges until ctx ends
func reportPoolStats(ctx context.Context, db *gorm.DB) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if stats, err := database.GetStats(db); err == nil {
				metrics.UpdateDBConnections(stats.InUse, stats.Idle)
			}
		}
	}
}

// validateConfig validates critical configuration values
func validateConfig(cfg *config.Config) error {
	if cfg.Auth.SecretKey == "" || cfg.Auth.SecretKey == "your-secret-key-change-in-production" {
		return fmt.Errorf("SECRET_KEY must be set and changed from default value")
	}
	if len(cfg.Auth.SecretKey) < 32 {
		return fmt.Errorf("SECRET_KEY must be at least 32 characters for security")
	}
	if cfg.App.Port == "" {
		return fmt.Errorf("PORT must be set")
	}
	if cfg.Lifecycle.NotificationWindow <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive")
	}
	return nil
}
