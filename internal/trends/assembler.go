package trends

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	"github.com/lschmelzeisen/nasty-analysis/internal/search"
	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	"github.com/lschmelzeisen/nasty-analysis/pkg/elastic"
	apperrors "github.com/lschmelzeisen/nasty-analysis/pkg/errors"
	"github.com/lschmelzeisen/nasty-analysis/pkg/metrics"
)

// Searcher is the slice of the index client the assembler needs.
type Searcher interface {
	Search(ctx context.Context, index string, body map[string]any) (*elastic.SearchResponse, error)
}

// Series is a dense day-bucketed frequency series over [Start, End]:
// every slice has exactly one entry per day, zero-filled where the index
// returned no bucket.
type Series struct {
	Start          dates.Day          `json:"start"`
	End            dates.Day          `json:"end"`
	WordFreqsPerDay map[string][]int64 `json:"wordFreqsPerDay"`
	NumDocsPerDay  []int64            `json:"numDocsPerDay"`
	TookMsecs      int64              `json:"tookMsecs"`
}

// Days returns the day axis of the series.
func (s *Series) Days() []dates.Day {
	return dates.RangeInclusive(s.Start, s.End)
}

// Len returns the number of days covered.
func (s *Series) Len() int {
	return dates.DaysBetween(s.Start, s.End) + 1
}

// Assembler fetches frequency series from the document index. The day
// axis always spans the full [min, max] date range of the corpus; date
// sub-ranges are applied at presentation time so assembled series can be
// reused across range changes.
type Assembler struct {
	searcher Searcher
	cfg      *config.Config
	minDate  dates.Day
	maxDate  dates.Day
	topN     int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewAssembler returns an Assembler for the corpus spanning [minDate,
// maxDate]. topN bounds the per-day terms aggregation of the top-words
// strategy.
func NewAssembler(searcher Searcher, cfg *config.Config, minDate, maxDate dates.Day, topN int, m *metrics.Metrics) *Assembler {
	return &Assembler{
		searcher: searcher,
		cfg:      cfg,
		minDate:  minDate,
		maxDate:  maxDate,
		topN:     topN,
		metrics:  m,
		logger:   slog.Default().With("component", "trends"),
	}
}

// MinDate returns the first day of the corpus.
func (a *Assembler) MinDate() dates.Day { return a.minDate }

// MaxDate returns the last day of the corpus.
func (a *Assembler) MaxDate() dates.Day { return a.maxDate }

// Assemble fetches the series for sel. With probe words set it issues a
// single date-histogram query restricted to exactly those words; without
// them it queries each day for its top words.
func (a *Assembler) Assemble(ctx context.Context, sel Selection) (*Series, error) {
	ds, err := a.cfg.Dataset(sel.Dataset)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownDataset, err)
	}
	schema, err := search.ForType(ds.Type)
	if err != nil {
		return nil, err
	}
	clauses, err := sel.filterClauses(schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err)
	}

	if len(sel.Words) > 0 {
		return a.assembleHistogram(ctx, ds.Index, schema, clauses, sel.Words)
	}
	return a.assemblePerDay(ctx, ds.Index, schema, clauses)
}

// assembleHistogram runs the probe-word strategy: one date-histogram
// query whose terms sub-aggregation is include-listed to the probe words.
func (a *Assembler) assembleHistogram(ctx context.Context, index string, schema search.Schema, clauses []map[string]any, words []string) (*Series, error) {
	rangeQuery, err := search.DateRange{GTE: a.minDate, LT: a.maxDate.AddDays(1)}.Query(schema.DateField())
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"size":  0,
		"query": search.BoolFilter(append(clauses, rangeQuery)...),
		"aggs": map[string]any{
			"per_day": search.DateHistogramAgg(schema.DateField(), "1d", map[string]any{
				"words": search.TermsAgg(schema.TextTokensField(), len(words), words),
			}),
		},
	}

	start := time.Now()
	resp, err := a.searcher.Search(ctx, index, body)
	took := time.Since(start)
	a.observeLatency("histogram", took)
	if err != nil {
		return nil, err
	}

	series := a.emptySeries(words)
	series.TookMsecs = took.Milliseconds()

	buckets, err := search.HistogramBuckets(resp.Aggregations, "per_day", "words")
	if err != nil {
		return nil, err
	}
	for _, bucket := range buckets {
		i := dates.DaysBetween(a.minDate, bucket.Day)
		if i < 0 || i >= series.Len() {
			continue
		}
		series.NumDocsPerDay[i] = bucket.DocCount
		for _, term := range bucket.Terms {
			series.WordFreqsPerDay[term.Key][i] = term.DocCount
		}
	}
	return series, nil
}

// assemblePerDay runs the top-words strategy: one query per day of the
// corpus, each with a top-N terms aggregation over the token field.
func (a *Assembler) assemblePerDay(ctx context.Context, index string, schema search.Schema, clauses []map[string]any) (*Series, error) {
	series := a.emptySeries(nil)

	start := time.Now()
	for i, day := range series.Days() {
		rangeQuery, err := search.DateRange{GTE: day, LT: day.AddDays(1)}.Query(schema.DateField())
		if err != nil {
			return nil, err
		}
		body := map[string]any{
			"size":  0,
			"query": search.BoolFilter(append(append([]map[string]any{}, clauses...), rangeQuery)...),
			"aggs": map[string]any{
				"words": search.TermsAgg(schema.TextTokensField(), a.topN, nil),
			},
		}

		resp, err := a.searcher.Search(ctx, index, body)
		if err != nil {
			return nil, fmt.Errorf("querying day %s: %w", day, err)
		}
		series.NumDocsPerDay[i] = resp.Total

		buckets, err := search.TermsBuckets(resp.Aggregations, "words")
		if err != nil {
			return nil, err
		}
		for _, bucket := range buckets {
			freqs, ok := series.WordFreqsPerDay[bucket.Key]
			if !ok {
				freqs = make([]int64, series.Len())
				series.WordFreqsPerDay[bucket.Key] = freqs
			}
			freqs[i] = bucket.DocCount
		}
	}
	took := time.Since(start)
	a.observeLatency("per_day", took)
	series.TookMsecs = took.Milliseconds()

	return series, nil
}

// emptySeries returns a zero-filled series over the full corpus range,
// pre-seeding a row per probe word so absent words still show up flat.
func (a *Assembler) emptySeries(words []string) *Series {
	series := &Series{
		Start:           a.minDate,
		End:             a.maxDate,
		WordFreqsPerDay: make(map[string][]int64),
	}
	series.NumDocsPerDay = make([]int64, series.Len())
	for _, word := range words {
		series.WordFreqsPerDay[word] = make([]int64, series.Len())
	}
	return series
}

func (a *Assembler) observeLatency(strategy string, took time.Duration) {
	if a.metrics != nil {
		a.metrics.QueryLatency.WithLabelValues(strategy).Observe(took.Seconds())
	}
}
