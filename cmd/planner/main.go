package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	"github.com/lschmelzeisen/nasty-analysis/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	datasetName := flag.String("dataset", "", "name of the dataset whose plan to extend")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting planner", "dataset", *datasetName)

	ds, err := cfg.Dataset(*datasetName)
	if err != nil {
		slog.Error("unknown dataset", "error", err)
		os.Exit(1)
	}
	if ds.Type != config.TypeRawSocial {
		slog.Error("plans only exist for crawled datasets", "dataset", ds.Name, "type", ds.Type)
		os.Exit(1)
	}
	src := ds.SourceRawSocial

	filters := make([]plan.Filter, 0, len(src.Filters))
	for _, name := range src.Filters {
		filter, err := plan.ParseFilter(name)
		if err != nil {
			slog.Error("bad search filter", "error", err)
			os.Exit(1)
		}
		filters = append(filters, filter)
	}

	p, err := plan.Load(src.PlanFile)
	if err != nil {
		slog.Error("failed to load plan", "file", src.PlanFile, "error", err)
		os.Exit(1)
	}

	added := p.Extend(
		src.Queries,
		src.Languages,
		filters,
		dates.DayOf(src.StartDate),
		dates.DayOf(src.EndDate),
	)
	if err := p.Dump(src.PlanFile); err != nil {
		slog.Error("failed to write plan", "file", src.PlanFile, "error", err)
		os.Exit(1)
	}

	slog.Info("plan extended",
		"file", src.PlanFile,
		"added", added,
		"total", p.Len(),
	)
}
