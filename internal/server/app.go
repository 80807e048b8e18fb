// Package server assembles the manifest service from configuration and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/llmstxt-generator/internal/api"
	"github.com/JakeFAU/llmstxt-generator/internal/clock/system"
	"github.com/JakeFAU/llmstxt-generator/internal/config"
	"github.com/JakeFAU/llmstxt-generator/internal/id/uuid"
	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
	"github.com/JakeFAU/llmstxt-generator/internal/metrics"
	"github.com/JakeFAU/llmstxt-generator/internal/orchestrator"
	"github.com/JakeFAU/llmstxt-generator/internal/policy/ratelimit"
	"github.com/JakeFAU/llmstxt-generator/internal/provider/firecrawl"
	memorypublisher "github.com/JakeFAU/llmstxt-generator/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/llmstxt-generator/internal/publisher/pubsub"
	"github.com/JakeFAU/llmstxt-generator/internal/reaper"
	gcscache "github.com/JakeFAU/llmstxt-generator/internal/storage/gcs"
	localcache "github.com/JakeFAU/llmstxt-generator/internal/storage/local"
	memorystorage "github.com/JakeFAU/llmstxt-generator/internal/storage/memory"
	mongocache "github.com/JakeFAU/llmstxt-generator/internal/storage/mongo"
	pgcache "github.com/JakeFAU/llmstxt-generator/internal/storage/postgres"
	"github.com/JakeFAU/llmstxt-generator/internal/telemetry"
)

const (
	shutdownTimeout = 10 * time.Second
	// recentEvents bounds the in-process publisher used without Pub/Sub.
	recentEvents = 256
)

// App contains the application's dependencies.
type App struct {
	cfg            config.Config
	logger         *zap.Logger
	apiServer      *api.Server
	orchestrator   *orchestrator.Orchestrator
	reaper         *reaper.Reaper
	pubsubClient   *pubsub.Client
	pubsubPub      *gcppublisher.Publisher
	storage        *storage.Client
	pgCache        *pgcache.Cache
	mongoCache     *mongocache.Cache
	tracerShutdown func(context.Context) error
}

// Build creates the application's dependencies. The logger is owned by the
// caller and is synced by Close.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("auth_enabled", cfg.Auth.Enabled),
	)

	metrics.Init()

	if cfg.Tracing.Enabled {
		tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
			ServiceName: cfg.Tracing.ServiceName,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("tracer init failed: %w", err)
		}
		app.tracerShutdown = tp.Shutdown
	}

	cache, err := app.setupCache(ctx)
	if err != nil {
		app.closeInfrastructure(ctx)
		return nil, err
	}

	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		app.closeInfrastructure(ctx)
		return nil, err
	}

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		Burst:             cfg.Provider.Burst,
	})
	provider, err := firecrawl.New(firecrawl.Config{
		BaseURL:       cfg.Provider.BaseURL,
		APIKey:        cfg.Provider.APIKey,
		Timeout:       cfg.ProviderTimeout(),
		CheckURL:      cfg.Provider.CheckURL,
		PagingTimeout: cfg.PagingTimeout(),
	}, limiter, logger.Named("firecrawl"))
	if err != nil {
		app.closeInfrastructure(ctx)
		return nil, fmt.Errorf("provider init failed: %w", err)
	}
	logger.Info("firecrawl client initialized",
		zap.String("base_url", cfg.Provider.BaseURL),
		zap.Float64("requests_per_second", cfg.Provider.RequestsPerSecond),
		zap.Int("burst", cfg.Provider.Burst),
	)

	clock := system.New()
	app.orchestrator = orchestrator.New(
		memorystorage.NewJobStore(),
		cache,
		provider,
		publisher,
		clock,
		uuid.New(),
		orchestrator.Config{
			MaxPageLimit:       cfg.Jobs.MaxPageLimit,
			StalenessThreshold: cfg.StalenessThreshold(),
			Languages:          cfg.Jobs.Languages,
			Provider:           cfg.SubmitOptions(),
		},
		logger.Named("orchestrator"),
	)
	app.reaper = reaper.New(app.orchestrator, clock, reaper.Config{
		Interval: time.Duration(cfg.Jobs.ReapIntervalMinutes) * time.Minute,
		MaxIdle:  time.Duration(cfg.Jobs.ReapAfterHours) * time.Hour,
	}, logger.Named("reaper"))
	app.apiServer = api.NewServer(app.orchestrator, cfg, logger.Named("api"))

	return app, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run starts the application and blocks until the context is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		a.logger.Info("reaper started")
		a.reaper.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close(shutdownCtx)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve http: %w", err)
	default:
		return nil
	}
}

// Close releases clients and flushes telemetry.
func (a *App) Close(ctx context.Context) {
	a.closeInfrastructure(ctx)
	a.closeObservability(ctx)
	a.logger.Info("shutdown complete")
}

func (a *App) closeInfrastructure(ctx context.Context) {
	if a.pubsubPub != nil {
		a.pubsubPub.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pgCache != nil {
		a.pgCache.Close()
	}
	if a.mongoCache != nil {
		if err := a.mongoCache.Close(ctx); err != nil {
			a.logger.Warn("mongo client close failed", zap.Error(err))
		}
	}
}

func (a *App) closeObservability(ctx context.Context) {
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	// Sync fails on stderr/stdout under some platforms; nothing to do about it.
	_ = a.logger.Sync()
}

func (a *App) setupCache(ctx context.Context) (llmstxt.ResultCache, error) {
	cc := a.cfg.Cache
	switch cc.Backend {
	case config.CacheGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.storage = client
		cache, err := gcscache.New(client, gcscache.Config{Bucket: cc.GCSBucket, Prefix: cc.GCSPrefix})
		if err != nil {
			return nil, fmt.Errorf("gcs cache init failed: %w", err)
		}
		a.logger.Info("using GCS cache backend", zap.String("bucket", cc.GCSBucket), zap.String("prefix", cc.GCSPrefix))
		return cache, nil
	case config.CacheLocal:
		cache, err := localcache.New(localcache.Config{BaseDir: cc.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local cache init failed: %w", err)
		}
		a.logger.Info("using local cache backend", zap.String("path", cc.LocalDir))
		return cache, nil
	case config.CachePostgres:
		cache, err := pgcache.NewCache(ctx, pgcache.CacheConfig{
			DSN:      cc.PostgresDSN,
			Table:    cc.PostgresTable,
			MaxConns: cc.PostgresMaxConn,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres cache init failed: %w", err)
		}
		a.pgCache = cache
		a.logger.Info("using postgres cache backend", zap.String("table", cc.PostgresTable))
		return cache, nil
	case config.CacheMongo:
		cache, err := mongocache.New(ctx, mongocache.Config{
			URI:        cc.MongoURI,
			Database:   cc.MongoDatabase,
			Collection: cc.MongoCollection,
		})
		if err != nil {
			return nil, fmt.Errorf("mongo cache init failed: %w", err)
		}
		a.mongoCache = cache
		a.logger.Info("using mongo cache backend",
			zap.String("database", cc.MongoDatabase),
			zap.String("collection", cc.MongoCollection),
		)
		return cache, nil
	default:
		a.logger.Info("using in-memory cache backend")
		return memorystorage.NewCache(), nil
	}
}

func (a *App) setupPublisher(ctx context.Context) (llmstxt.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.NewBounded(recentEvents), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	a.pubsubPub = gcppublisher.New(client.Topic(a.cfg.PubSub.TopicName))
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return a.pubsubPub, nil
}
