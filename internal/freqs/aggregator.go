package freqs

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lschmelzeisen/nasty-analysis/internal/archive"
	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
	"github.com/lschmelzeisen/nasty-analysis/internal/tokenize"
	"github.com/lschmelzeisen/nasty-analysis/pkg/metrics"
)

// Source provides the raw documents of a plan entry. *archive.Archive
// satisfies it; tests substitute in-memory fakes.
type Source interface {
	HasData(spec plan.QuerySpec) bool
	Each(spec plan.QuerySpec, fn func(doc archive.Document) error) error
}

// Stats summarizes one aggregation run.
type Stats struct {
	Computed int64
	Skipped  int64
	Failed   int64
}

// Aggregator turns crawled documents into frequency artifacts. Entries
// whose artifact already exists are skipped, so a run is safe to repeat
// and only ever does the outstanding work.
type Aggregator struct {
	dir       string
	source    Source
	tokenizer *tokenize.Tokenizer
	workers   int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewAggregator returns an Aggregator writing artifacts below dir.
func NewAggregator(dir string, source Source, tokenizer *tokenize.Tokenizer, workers int, m *metrics.Metrics) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{
		dir:       dir,
		source:    source,
		tokenizer: tokenizer,
		workers:   workers,
		metrics:   m,
		logger:    slog.Default().With("component", "freqs"),
	}
}

// Run computes the frequency artifact for every spec that has crawled
// data and no artifact yet. Specs are processed concurrently; a failure
// on one spec is logged and counted but never aborts the others.
func (a *Aggregator) Run(ctx context.Context, specs []plan.QuerySpec) (Stats, error) {
	var computed, skipped, failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			done, err := a.processSpec(spec)
			switch {
			case err != nil:
				failed.Add(1)
				if a.metrics != nil {
					a.metrics.SpecsFailedTotal.Inc()
				}
				a.logger.Error("frequency computation failed",
					"entry", spec.Key(),
					"error", err,
				)
			case done:
				computed.Add(1)
				if a.metrics != nil {
					a.metrics.SpecsProcessedTotal.Inc()
				}
			default:
				skipped.Add(1)
				if a.metrics != nil {
					a.metrics.SpecsSkippedTotal.Inc()
				}
			}
			return nil
		})
	}

	err := g.Wait()
	stats := Stats{
		Computed: computed.Load(),
		Skipped:  skipped.Load(),
		Failed:   failed.Load(),
	}
	a.logger.Info("aggregation run finished",
		"computed", stats.Computed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
	)
	return stats, err
}

// processSpec computes one artifact. It reports whether an artifact was
// actually written; specs without crawled data or with an existing
// artifact are skipped.
func (a *Aggregator) processSpec(spec plan.QuerySpec) (bool, error) {
	path := ArtifactPath(a.dir, spec)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if !a.source.HasData(spec) {
		a.logger.Debug("no crawled data yet", "entry", spec.Key())
		return false, nil
	}

	counter := NewCounter()
	docs := 0
	err := a.source.Each(spec, func(doc archive.Document) error {
		docs++
		for _, token := range a.tokenizer.Tokenize(doc.FullText, spec.Lang) {
			if token.Countable() {
				counter.Add(token.Text)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if a.metrics != nil {
		a.metrics.DocsTokenizedTotal.Add(float64(docs))
	}

	// An entry with zero matching documents still gets an empty artifact,
	// recording that the computation happened.
	if err := WriteTable(path, counter.Table()); err != nil {
		return false, err
	}
	a.logger.Info("wrote frequency artifact",
		"entry", spec.Key(),
		"documents", docs,
		"words", counter.Len(),
	)
	return true, nil
}
