package trends

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	"github.com/lschmelzeisen/nasty-analysis/internal/search"
	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
)

const vocabularySize = 100

// DatasetVocabulary holds the selectable values of one dataset, each with
// its document count.
type DatasetVocabulary struct {
	Languages  []search.TermsBucket `json:"languages"`
	Queries    []search.TermsBucket `json:"queries,omitempty"`
	URLNetlocs []search.TermsBucket `json:"urlNetlocs,omitempty"`
}

// Meta is the bootstrap state of the serving layer: the corpus date range
// and the per-dataset vocabularies the UI offers as filters.
type Meta struct {
	MinDate      dates.Day                    `json:"minDate"`
	MaxDate      dates.Day                    `json:"maxDate"`
	Vocabularies map[string]DatasetVocabulary `json:"vocabularies"`
}

// FetchMeta queries every configured dataset for its date range and
// filter vocabularies. Dates before 2000 are ignored: documents without a
// parseable date default to a far-past timestamp and would stretch the
// day axis by a century.
func FetchMeta(ctx context.Context, searcher Searcher, cfg *config.Config) (*Meta, error) {
	logger := slog.Default().With("component", "trends")
	meta := &Meta{
		Vocabularies: make(map[string]DatasetVocabulary, len(cfg.Analysis.Datasets)),
	}

	for i := range cfg.Analysis.Datasets {
		ds := &cfg.Analysis.Datasets[i]
		schema, err := search.ForType(ds.Type)
		if err != nil {
			return nil, err
		}

		min, max, err := fetchDateRange(ctx, searcher, ds.Index, schema)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", ds.Name, err)
		}
		logger.Debug("dataset date range", "dataset", ds.Name, "min", min, "max", max)
		if meta.MinDate.IsZero() || min.Before(meta.MinDate) {
			meta.MinDate = min
		}
		if meta.MaxDate.IsZero() || max.After(meta.MaxDate) {
			meta.MaxDate = max
		}

		vocab, err := fetchVocabulary(ctx, searcher, ds.Index, ds.Type, schema)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", ds.Name, err)
		}
		meta.Vocabularies[ds.Name] = vocab
	}

	if meta.MinDate.IsZero() || meta.MaxDate.IsZero() {
		return nil, fmt.Errorf("could not determine the corpus date range")
	}
	return meta, nil
}

func fetchDateRange(ctx context.Context, searcher Searcher, index string, schema search.Schema) (dates.Day, dates.Day, error) {
	rangeQuery, err := search.DateRange{GTE: dates.New(2000, 1, 1)}.Query(schema.DateField())
	if err != nil {
		return dates.Day{}, dates.Day{}, err
	}
	resp, err := searcher.Search(ctx, index, map[string]any{
		"size":  0,
		"query": search.BoolFilter(rangeQuery),
		"aggs":  search.MinMaxDateAggs(schema.DateField()),
	})
	if err != nil {
		return dates.Day{}, dates.Day{}, err
	}
	min, max, ok, err := search.MinMaxDates(resp.Aggregations)
	if err != nil {
		return dates.Day{}, dates.Day{}, err
	}
	if !ok {
		return dates.Day{}, dates.Day{}, fmt.Errorf("index %s holds no dated documents", index)
	}
	return min, max, nil
}

func fetchVocabulary(ctx context.Context, searcher Searcher, index string, typ config.DatasetType, schema search.Schema) (DatasetVocabulary, error) {
	var vocab DatasetVocabulary

	fetch := func(field search.Field) ([]search.TermsBucket, error) {
		resp, err := searcher.Search(ctx, index, map[string]any{
			"size": 0,
			"aggs": map[string]any{
				"values": search.TermsAgg(field, vocabularySize, nil),
			},
		})
		if err != nil {
			return nil, err
		}
		return search.TermsBuckets(resp.Aggregations, "values")
	}

	var err error
	if vocab.Languages, err = fetch(schema.LangField()); err != nil {
		return vocab, err
	}
	if typ == config.TypeRawSocial {
		if vocab.Queries, err = fetch(schema.SearchQueryField()); err != nil {
			return vocab, err
		}
	}
	if typ == config.TypeNewsCSV || typ == config.TypeCodedNewsCSV {
		if vocab.URLNetlocs, err = fetch(schema.URLNetlocField()); err != nil {
			return vocab, err
		}
	}
	return vocab, nil
}
