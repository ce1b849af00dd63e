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

	"github.com/lschmelzeisen/nasty-analysis/internal/archive"
	"github.com/lschmelzeisen/nasty-analysis/internal/freqs"
	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
	"github.com/lschmelzeisen/nasty-analysis/internal/runlog"
	"github.com/lschmelzeisen/nasty-analysis/internal/tokenize"
	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	"github.com/lschmelzeisen/nasty-analysis/pkg/logger"
	"github.com/lschmelzeisen/nasty-analysis/pkg/metrics"
	"github.com/lschmelzeisen/nasty-analysis/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	datasetName := flag.String("dataset", "", "name of the dataset to aggregate")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting frequency aggregation", "dataset", *datasetName)

	ds, err := cfg.Dataset(*datasetName)
	if err != nil {
		slog.Error("unknown dataset", "error", err)
		os.Exit(1)
	}
	if ds.Type != config.TypeRawSocial {
		slog.Error("frequency artifacts only exist for crawled datasets",
			"dataset", ds.Name, "type", ds.Type)
		os.Exit(1)
	}
	src := ds.SourceRawSocial

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := plan.Load(src.PlanFile)
	if err != nil {
		slog.Error("failed to load plan", "file", src.PlanFile, "error", err)
		os.Exit(1)
	}

	tokenizer := tokenize.New(tokenize.Options{Stem: cfg.Analysis.StemTokens})
	aggregator := freqs.NewAggregator(
		src.FrequenciesDir,
		archive.Open(src.ArchiveDir),
		tokenizer,
		cfg.Analysis.NumWorkers,
		m,
	)

	started := time.Now().UTC()
	stats, err := aggregator.Run(ctx, p.Entries())
	if err != nil {
		slog.Error("aggregation run aborted", "error", err)
		os.Exit(1)
	}

	recordRun(ctx, cfg, runlog.Run{
		Job:       "freqcalc",
		Dataset:   ds.Name,
		Items:     stats.Computed,
		TookMS:    time.Since(started).Milliseconds(),
		StartedAt: started,
	})

	slog.Info("frequency aggregation finished",
		"computed", stats.Computed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	if stats.Failed > 0 {
		os.Exit(1)
	}
}

// recordRun writes the run history row. A missing run-history store only
// costs the record, never the run.
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
