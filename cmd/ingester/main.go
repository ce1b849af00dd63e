package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lschmelzeisen/nasty-analysis/internal/archive"
	"github.com/lschmelzeisen/nasty-analysis/internal/dataset"
	"github.com/lschmelzeisen/nasty-analysis/internal/ingest"
	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
	"github.com/lschmelzeisen/nasty-analysis/internal/tokenize"
	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	"github.com/lschmelzeisen/nasty-analysis/pkg/elastic"
	"github.com/lschmelzeisen/nasty-analysis/pkg/kafka"
	"github.com/lschmelzeisen/nasty-analysis/pkg/logger"
	"github.com/lschmelzeisen/nasty-analysis/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	datasetName := flag.String("dataset", "", "name of the dataset to ingest")
	mode := flag.String("mode", "consume", "produce (archive to kafka) or consume (kafka to index)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingester", "dataset", *datasetName, "mode", *mode)

	ds, err := cfg.Dataset(*datasetName)
	if err != nil {
		slog.Error("unknown dataset", "error", err)
		os.Exit(1)
	}
	if ds.Type != config.TypeRawSocial {
		slog.Error("live ingest only applies to crawled datasets",
			"dataset", ds.Name, "type", ds.Type)
		os.Exit(1)
	}

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "produce":
		runProducer(ctx, cfg, ds)
	case "consume":
		runConsumer(ctx, cfg, ds, m)
	default:
		slog.Error("unknown mode", "mode", *mode)
		os.Exit(1)
	}
}

func runProducer(ctx context.Context, cfg *config.Config, ds *config.DatasetConfig) {
	src := ds.SourceRawSocial
	p, err := plan.Load(src.PlanFile)
	if err != nil {
		slog.Error("failed to load plan", "file", src.PlanFile, "error", err)
		os.Exit(1)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RawDocuments)
	defer producer.Close()

	ingestProducer := ingest.NewProducer(ds.Name, archive.Open(src.ArchiveDir), producer, 100)
	published, err := ingestProducer.Run(ctx, p.Entries())
	if err != nil {
		slog.Error("publishing failed", "published", published, "error", err)
		os.Exit(1)
	}
	slog.Info("archive published", "topic", cfg.Kafka.Topics.RawDocuments, "documents", published)
}

func runConsumer(ctx context.Context, cfg *config.Config, ds *config.DatasetConfig, m *metrics.Metrics) {
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

	indexer := ingest.NewDatasetIndexer(d)
	consumer := ingest.NewConsumer(indexer)
	kafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.RawDocuments, consumer.Handle)
	defer kafkaConsumer.Close()

	slog.Info("consuming raw documents",
		"topic", cfg.Kafka.Topics.RawDocuments,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	if err := indexer.Flush(context.Background()); err != nil {
		slog.Error("final flush failed", "error", err)
	}
	slog.Info("ingester stopped", "documents", consumer.Received())
}
