package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/webstash/webstash/internal/annots"
	"github.com/webstash/webstash/internal/config"
	"github.com/webstash/webstash/internal/httpserver"
	"github.com/webstash/webstash/internal/httpserver/deps"
	"github.com/webstash/webstash/internal/lists"
	"github.com/webstash/webstash/internal/logger"
	"github.com/webstash/webstash/internal/pages"
	"github.com/webstash/webstash/internal/redis"
	"github.com/webstash/webstash/internal/registry"
	"github.com/webstash/webstash/internal/scheduler"
	"github.com/webstash/webstash/internal/search"
	"github.com/webstash/webstash/internal/sources/seedfile"
	"github.com/webstash/webstash/internal/storage"
	"github.com/webstash/webstash/internal/tags"
	"github.com/webstash/webstash/internal/version"
)

type App struct {
	cfg        *config.Config
	logger     logger.Logger
	server     *httpserver.Server
	backend    storage.Backend
	reconciler *scheduler.Reconciler
	seedFile   string
	listStore  *lists.Store
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Backend selection: Redis when an address is configured, else the
	// in-memory backend. Fail fast if Redis is configured but unreachable.
	var backend storage.Backend
	if cfg.RedisAddr != "" {
		redisClient, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			return nil, fmt.Errorf("redis backend: %w", err)
		}
		backend = storage.NewRedis(redisClient)
		loggerClient.Info("using redis backend", logger.String("addr", cfg.RedisAddr))
	} else {
		backend = storage.NewMemory()
		loggerClient.Info("using in-memory backend")
	}

	reg := registry.New(backend, loggerClient)

	pageStore, err := pages.NewStore(reg, loggerClient)
	if err != nil {
		return nil, fmt.Errorf("page store: %w", err)
	}
	listStore, err := lists.NewStore(reg, pageStore, loggerClient)
	if err != nil {
		return nil, fmt.Errorf("list store: %w", err)
	}
	tagStore, err := tags.NewStore(reg, pageStore, loggerClient)
	if err != nil {
		return nil, fmt.Errorf("tag store: %w", err)
	}
	annotStore, err := annots.NewStore(reg, pageStore, tagStore, listStore, loggerClient)
	if err != nil {
		return nil, fmt.Errorf("annotation store: %w", err)
	}

	engine := search.NewEngine(
		pageStore,
		search.NewLister(annotStore, tagStore),
		search.NewEnricher(annotStore, tagStore),
		search.LocalLegacySearch(pageStore, tagStore, listStore),
		loggerClient,
	)

	reconciler, err := scheduler.NewReconciler(reg, listStore, pageStore, annotStore, cfg.ReconcileInterval, loggerClient)
	if err != nil {
		return nil, fmt.Errorf("reconciler: %w", err)
	}

	d := deps.Deps{
		Logger:    loggerClient,
		StartTime: time.Now(),
		Version:   version.Version,
		Commit:    version.Commit,
		BuildDate: version.BuildDate,
		GoVersion: version.GoVersion,
		TimeNow:   time.Now,
		Lists:     listStore,
		Tags:      tagStore,
		Annots:    annotStore,
		Pages:     pageStore,
		Search:    engine,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:        cfg,
		logger:     loggerClient,
		server:     server,
		backend:    backend,
		reconciler: reconciler,
		seedFile:   cfg.SeedFile,
		listStore:  listStore,
	}, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting webstash v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("webstash %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.seedFile != "" {
		loader := seedfile.NewLoader(a.listStore, a.logger)
		if err := loader.Load(ctx, a.seedFile); err != nil {
			return fmt.Errorf("failed to apply seed file: %w", err)
		}
	}

	a.reconciler.Start(ctx)
	a.logger.Info("orphan reconciler started",
		logger.Duration("interval", a.cfg.ReconcileInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.reconciler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if err := a.backend.Close(); err != nil {
		a.logger.Warnf("failed to close backend: %v", err)
	}

	a.logger.Info("✅ webstash stopped cleanly")
	return nil
}
