package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lschmelzeisen/nasty-analysis/internal/dataset"
	"github.com/lschmelzeisen/nasty-analysis/internal/tokenize"
	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	"github.com/lschmelzeisen/nasty-analysis/pkg/elastic"
	"github.com/lschmelzeisen/nasty-analysis/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	datasetName := flag.String("dataset", "", "name of the dataset to export from")
	query := flag.String("query", "", "query string to filter exported documents")
	out := flag.String("out", "", "output CSV file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if *query == "" || *out == "" {
		slog.Error("both -query and -out are required")
		os.Exit(1)
	}

	ds, err := cfg.Dataset(*datasetName)
	if err != nil {
		slog.Error("unknown dataset", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	es, err := elastic.NewClient(cfg.Elasticsearch)
	if err != nil {
		slog.Error("failed to connect to elasticsearch", "error", err)
		os.Exit(1)
	}

	tokenizer := tokenize.New(tokenize.Options{Stem: cfg.Analysis.StemTokens})
	d, err := dataset.New(*ds, es, tokenizer, cfg.Elasticsearch.BulkSize, nil)
	if err != nil {
		slog.Error("failed to set up dataset", "error", err)
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		slog.Error("failed to create output file", "file", *out, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, err := d.Export(ctx, *query, f)
	if err != nil {
		slog.Error("export failed", "rows", rows, "error", err)
		os.Exit(1)
	}
	slog.Info("export finished", "file", *out, "rows", rows)
}
