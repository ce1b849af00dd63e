package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/internal/trends"
	"github.com/lschmelzeisen/nasty-analysis/internal/trendserver"
	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	"github.com/lschmelzeisen/nasty-analysis/pkg/elastic"
	"github.com/lschmelzeisen/nasty-analysis/pkg/health"
	"github.com/lschmelzeisen/nasty-analysis/pkg/logger"
	"github.com/lschmelzeisen/nasty-analysis/pkg/metrics"
	"github.com/lschmelzeisen/nasty-analysis/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting trendserver", "address", cfg.Serve.Address, "port", cfg.Serve.Port)

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	es, err := elastic.NewClient(cfg.Elasticsearch)
	if err != nil {
		slog.Error("failed to connect to elasticsearch", "error", err)
		os.Exit(1)
	}

	// The series cache is an optimization; without Redis every request
	// recomputes, but the server still works.
	var redisClient *redis.Client
	if client, err := redis.NewClient(cfg.Redis); err != nil {
		slog.Warn("running without series cache", "error", err)
	} else {
		redisClient = client
		defer client.Close()
	}

	meta, err := trends.FetchMeta(ctx, es, cfg)
	if err != nil {
		slog.Error("failed to bootstrap corpus metadata", "error", err)
		os.Exit(1)
	}
	slog.Info("corpus metadata loaded", "min_date", meta.MinDate, "max_date", meta.MaxDate)

	assembler := trends.NewAssembler(es, cfg, meta.MinDate, meta.MaxDate, cfg.Serve.TopNWords, m)
	cache := trends.NewCache(redisClient, cfg.Redis.CacheTTL, m)
	handler := trendserver.New(assembler, cache, meta, cfg)

	readiness := health.NewChecker()
	readiness.Register("elasticsearch", health.PingCheck(es.Ping))
	if redisClient != nil {
		readiness.Register("redis", health.PingCheck(redisClient.Ping))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Serve.Address, cfg.Serve.Port),
		Handler:           trendserver.NewRouter(handler, readiness),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()
	slog.Info("trendserver ready")

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Serve.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("trendserver stopped")
}
