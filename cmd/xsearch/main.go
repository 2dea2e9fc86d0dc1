package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/xsearch/internal/config"
	"github.com/kailas-cloud/xsearch/internal/db"
	dbElastic "github.com/kailas-cloud/xsearch/internal/db/elastic"
	dbMemory "github.com/kailas-cloud/xsearch/internal/db/memory"
	dbRedis "github.com/kailas-cloud/xsearch/internal/db/redis"
	"github.com/kailas-cloud/xsearch/internal/domain/search/key"
	"github.com/kailas-cloud/xsearch/internal/domain/search/query"
	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
	logpkg "github.com/kailas-cloud/xsearch/internal/logger"
	"github.com/kailas-cloud/xsearch/internal/metrics"
	"github.com/kailas-cloud/xsearch/internal/repository/cache"
	"github.com/kailas-cloud/xsearch/internal/repository/index"
	"github.com/kailas-cloud/xsearch/internal/repository/popularity"
	"github.com/kailas-cloud/xsearch/internal/repository/searchmetrics"
	"github.com/kailas-cloud/xsearch/internal/repository/throttle"
	chiTransport "github.com/kailas-cloud/xsearch/internal/transport/chi"
	"github.com/kailas-cloud/xsearch/internal/version"
	healthuc "github.com/kailas-cloud/xsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/xsearch/internal/usecase/search"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting xsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("index_driver", cfg.Index.Driver),
	)

	ctx := context.Background()

	// Key-value store: cache, metrics, popularity and throttle counters.
	var (
		store   db.Store
		redisKV *dbRedis.Store
	)
	switch cfg.Database.Driver {
	case config.DriverRedis:
		redisKV, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		store = redisKV
	case config.DriverMemory:
		store = dbMemory.New()
		logger.Warn("Using in-memory store: cache and metrics are per process")
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.RegisterSearchMetrics()

	indexes, checkers := buildIndexes(ctx, cfg, redisKV, logger)

	formatter := searchuc.NewFormatter(cfg.Search.BaseURL)
	agg := searchuc.NewAggregator(indexes, formatter, time.Duration(cfg.Index.TimeoutMs)*time.Millisecond, logger)

	resultCache := cache.New(store, cache.Config{
		Enabled: cfg.Cache.Enabled,
		TTLs: map[key.Namespace]time.Duration{
			key.Search:  time.Duration(cfg.Cache.SearchTTLSec) * time.Second,
			key.Suggest: time.Duration(cfg.Cache.SuggestTTLSec) * time.Second,
			key.Stats:   time.Duration(cfg.Cache.StatsTTLSec) * time.Second,
		},
	}, metrics.CacheRequestsTotal, logger)
	tracker := popularity.New(store, logger)
	collector := searchmetrics.New(store, tracker, time.Duration(cfg.Metrics.RetentionDays)*24*time.Hour)
	recorder := searchuc.NewRecorder(cfg.Metrics.RecorderQueue,
		time.Duration(cfg.Metrics.RecorderTimeoutMs)*time.Millisecond, logger)

	searchSvc := searchuc.New(agg, resultCache, tracker, collector, recorder, searchuc.Config{
		Limits: query.Limits{
			DefaultPerPage: cfg.Search.DefaultPageSize,
			MaxPerPage:     cfg.Search.MaxPageSize,
		},
		RetentionDays: cfg.Metrics.RetentionDays,
	}, logger)
	healthSvc := healthuc.New(store, checkers)

	// Pass a nil interface (not a typed nil pointer) when throttling is off.
	opts := chiTransport.Options{
		APIKeys:    cfg.Auth.APIKeys,
		AdminKeys:  cfg.Auth.AdminKeys,
		TrustProxy: cfg.HTTP.TrustProxy,
	}
	if cfg.Throttle.Enabled {
		opts.Limiter = throttle.New(store, logger)
		opts.Limits = make(map[string]chiTransport.RouteLimit, 2)
		for _, route := range []string{chiTransport.RouteSearch, chiTransport.RouteSuggest} {
			l := cfg.Throttle.Limit(route)
			opts.Limits[route] = chiTransport.RouteLimit{
				MaxAttempts: l.MaxAttempts,
				Window:      time.Duration(l.WindowSec) * time.Second,
			}
		}
	}

	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(opts),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := searchSvc.Close(shutdownCtx); err != nil {
		logger.Error("Background recording not drained", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildIndexes wires one index per record type on the configured backend.
func buildIndexes(
	ctx context.Context, cfg config.Config, redisKV *dbRedis.Store, logger *zap.Logger,
) (searchuc.Indexes, map[string]healthuc.IndexChecker) {
	indexes := make(searchuc.Indexes, 3)
	checkers := make(map[string]healthuc.IndexChecker, 3)

	names := make(map[record.Type]string, 3)
	for _, t := range record.All() {
		names[t] = cfg.Index.Names[string(t)]
	}

	switch cfg.Index.Driver {
	case config.DriverRedis:
		if cfg.Index.EnsureIndexes {
			if err := index.EnsureRedis(ctx, redisKV, names, logger); err != nil {
				logger.Fatal("Failed to ensure search indexes", zap.Error(err))
			}
		}
		for _, t := range record.All() {
			idx := index.NewRedis(redisKV, t, names[t], cfg.Index.MaxHits, logger)
			indexes[t] = idx
			checkers[string(t)] = idx
		}

	case config.DriverElasticsearch:
		es, err := dbElastic.NewClient(dbElastic.Config{
			Addresses: cfg.Index.Elasticsearch.Addrs,
			Username:  cfg.Index.Elasticsearch.Username,
			Password:  cfg.Index.Elasticsearch.Password,
			APIKey:    cfg.Index.Elasticsearch.APIKey,
		})
		if err != nil {
			logger.Fatal("Failed to create Elasticsearch client", zap.Error(err))
		}
		if err := es.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Elasticsearch not ready", zap.Error(err))
		}
		for _, t := range record.All() {
			idx := index.NewElastic(es, t, names[t], cfg.Index.MaxHits, logger)
			indexes[t] = idx
			checkers[string(t)] = idx
		}
	}

	logger.Info("Search indexes configured", zap.String("driver", cfg.Index.Driver))
	return indexes, checkers
}
