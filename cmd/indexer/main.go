package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/internal/dataset"
	"github.com/lschmelzeisen/nasty-analysis/internal/runlog"
	"github.com/lschmelzeisen/nasty-analysis/internal/tokenize"
	"github.com/lschmelzeisen/nasty-analysis/internal/trends"
	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	"github.com/lschmelzeisen/nasty-analysis/pkg/elastic"
	"github.com/lschmelzeisen/nasty-analysis/pkg/logger"
	"github.com/lschmelzeisen/nasty-analysis/pkg/metrics"
	"github.com/lschmelzeisen/nasty-analysis/pkg/postgres"
	"github.com/lschmelzeisen/nasty-analysis/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	datasetName := flag.String("dataset", "", "name of the dataset to index")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting dataset indexing", "dataset", *datasetName)

	ds, err := cfg.Dataset(*datasetName)
	if err != nil {
		slog.Error("unknown dataset", "error", err)
		os.Exit(1)
	}

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

	tokenizer := tokenize.New(tokenize.Options{Stem: cfg.Analysis.StemTokens})
	d, err := dataset.New(*ds, es, tokenizer, cfg.Elasticsearch.BulkSize, m)
	if err != nil {
		slog.Error("failed to set up dataset", "error", err)
		os.Exit(1)
	}

	started := time.Now().UTC()
	documents, err := d.IndexDocuments(ctx)
	if err != nil {
		slog.Error("indexing failed", "documents", documents, "error", err)
		os.Exit(1)
	}

	invalidateSeriesCache(ctx, cfg, m)
	recordRun(ctx, cfg, runlog.Run{
		Job:       "indexer",
		Dataset:   ds.Name,
		Documents: documents,
		TookMS:    time.Since(started).Milliseconds(),
		StartedAt: started,
	})

	slog.Info("dataset indexed", "dataset", ds.Name, "documents", documents)
}

// invalidateSeriesCache drops cached trend series, which are stale once
// the index content changed.
func invalidateSeriesCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics) {
	client, err := redis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("series cache not invalidated", "error", err)
		return
	}
	defer client.Close()
	trends.NewCache(client, cfg.Redis.CacheTTL, m).Invalidate(ctx)
}

func recordRun(ctx context.Context, cfg *config.Config, run runlog.Run) {
	client, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("run history unavailable", "error", err)
		return
	}
	defer client.Close()

	store := runlog.NewStore(client)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Warn("run history schema", "error", err)
		return
	}
	if _, err := store.Record(ctx, run); err != nil {
		slog.Warn("recording run failed", "error", err)
	}
}
