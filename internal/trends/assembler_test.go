package trends

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	"github.com/lschmelzeisen/nasty-analysis/pkg/elastic"
	apperrors "github.com/lschmelzeisen/nasty-analysis/pkg/errors"
)

// fakeSearcher replays canned responses in call order and records the
// request bodies it saw.
type fakeSearcher struct {
	responses []*elastic.SearchResponse
	err       error
	bodies    []map[string]any
	indices   []string
}

func (f *fakeSearcher) Search(ctx context.Context, index string, body map[string]any) (*elastic.SearchResponse, error) {
	f.bodies = append(f.bodies, body)
	f.indices = append(f.indices, index)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &elastic.SearchResponse{Aggregations: map[string]any{}}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{
			Datasets: []config.DatasetConfig{
				{Name: "tweets", Index: "tweets", Type: config.TypeRawSocial},
				{Name: "news", Index: "news", Type: config.TypeNewsCSV},
			},
		},
	}
}

func millisOf(d dates.Day) float64 {
	return float64(d.Time().UnixMilli())
}

func histogramResponse(buckets ...map[string]any) *elastic.SearchResponse {
	asAny := make([]any, len(buckets))
	for i, b := range buckets {
		asAny[i] = b
	}
	return &elastic.SearchResponse{
		Aggregations: map[string]any{
			"per_day": map[string]any{"buckets": asAny},
		},
	}
}

func histogramBucket(day dates.Day, docCount int64, words map[string]int64) map[string]any {
	var termBuckets []any
	for word, count := range words {
		termBuckets = append(termBuckets, map[string]any{
			"key":       word,
			"doc_count": float64(count),
		})
	}
	return map[string]any{
		"key":       millisOf(day),
		"doc_count": float64(docCount),
		"words":     map[string]any{"buckets": termBuckets},
	}
}

func TestAssembleHistogramStrategy(t *testing.T) {
	min := dates.New(2020, time.January, 1)
	max := dates.New(2020, time.January, 3)
	searcher := &fakeSearcher{responses: []*elastic.SearchResponse{
		histogramResponse(
			histogramBucket(min, 10, map[string]int64{"corona": 4}),
			histogramBucket(min.AddDays(1), 0, nil),
			histogramBucket(max, 7, map[string]int64{"corona": 2, "wuhan": 1}),
		),
	}}
	a := NewAssembler(searcher, testConfig(), min, max, 1000, nil)

	series, err := a.Assemble(context.Background(), Selection{
		Dataset: "tweets",
		Lang:    "en",
		Words:   []string{"corona", "wuhan"},
	})
	if err != nil {
		t.Fatalf("assembling series: %v", err)
	}

	if len(searcher.bodies) != 1 {
		t.Fatalf("probe words must assemble in a single query, got %d", len(searcher.bodies))
	}
	if searcher.indices[0] != "tweets" {
		t.Errorf("queried index %q", searcher.indices[0])
	}
	if !series.Start.Equal(min) || !series.End.Equal(max) {
		t.Errorf("series range %s..%s", series.Start, series.End)
	}
	if series.Len() != 3 {
		t.Fatalf("series length %d", series.Len())
	}

	wantDocs := []int64{10, 0, 7}
	for i, n := range wantDocs {
		if series.NumDocsPerDay[i] != n {
			t.Errorf("day %d: %d documents, want %d", i, series.NumDocsPerDay[i], n)
		}
	}
	wantCorona := []int64{4, 0, 2}
	for i, n := range wantCorona {
		if series.WordFreqsPerDay["corona"][i] != n {
			t.Errorf("corona day %d: %d, want %d", i, series.WordFreqsPerDay["corona"][i], n)
		}
	}
	wantWuhan := []int64{0, 0, 1}
	for i, n := range wantWuhan {
		if series.WordFreqsPerDay["wuhan"][i] != n {
			t.Errorf("wuhan day %d: %d, want %d", i, series.WordFreqsPerDay["wuhan"][i], n)
		}
	}
}

func TestAssembleHistogramSeedsAbsentProbeWords(t *testing.T) {
	min := dates.New(2020, time.January, 1)
	searcher := &fakeSearcher{responses: []*elastic.SearchResponse{
		histogramResponse(),
	}}
	a := NewAssembler(searcher, testConfig(), min, min, 1000, nil)

	series, err := a.Assemble(context.Background(), Selection{
		Dataset: "tweets",
		Lang:    "en",
		Words:   []string{"unseen"},
	})
	if err != nil {
		t.Fatalf("assembling series: %v", err)
	}
	freqs, ok := series.WordFreqsPerDay["unseen"]
	if !ok {
		t.Fatal("probe words must appear even when the index never saw them")
	}
	if len(freqs) != 1 || freqs[0] != 0 {
		t.Errorf("expected a flat zero row, got %v", freqs)
	}
}

func TestAssemblePerDayStrategy(t *testing.T) {
	min := dates.New(2020, time.January, 1)
	max := dates.New(2020, time.January, 2)
	searcher := &fakeSearcher{responses: []*elastic.SearchResponse{
		{
			Total: 5,
			Aggregations: map[string]any{
				"words": map[string]any{"buckets": []any{
					map[string]any{"key": "corona", "doc_count": float64(3)},
				}},
			},
		},
		{
			Total: 2,
			Aggregations: map[string]any{
				"words": map[string]any{"buckets": []any{
					map[string]any{"key": "corona", "doc_count": float64(1)},
					map[string]any{"key": "wuhan", "doc_count": float64(1)},
				}},
			},
		},
	}}
	a := NewAssembler(searcher, testConfig(), min, max, 50, nil)

	series, err := a.Assemble(context.Background(), Selection{Dataset: "tweets", Lang: "en"})
	if err != nil {
		t.Fatalf("assembling series: %v", err)
	}

	if len(searcher.bodies) != 2 {
		t.Fatalf("expected one query per day, got %d", len(searcher.bodies))
	}
	if series.NumDocsPerDay[0] != 5 || series.NumDocsPerDay[1] != 2 {
		t.Errorf("NumDocsPerDay = %v", series.NumDocsPerDay)
	}
	if got := series.WordFreqsPerDay["corona"]; got[0] != 3 || got[1] != 1 {
		t.Errorf("corona = %v", got)
	}
	// Words first seen on a later day still get a full-length zero-filled
	// row.
	if got := series.WordFreqsPerDay["wuhan"]; len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("wuhan = %v", got)
	}
}

func TestAssembleUnknownDataset(t *testing.T) {
	a := NewAssembler(&fakeSearcher{}, testConfig(), dates.New(2020, 1, 1), dates.New(2020, 1, 2), 10, nil)
	_, err := a.Assemble(context.Background(), Selection{Dataset: "absent", Lang: "en"})
	if !errors.Is(err, apperrors.ErrUnknownDataset) {
		t.Errorf("expected ErrUnknownDataset, got %v", err)
	}
}

func TestAssembleRejectsWrongTypeFilters(t *testing.T) {
	a := NewAssembler(&fakeSearcher{}, testConfig(), dates.New(2020, 1, 1), dates.New(2020, 1, 2), 10, nil)
	_, err := a.Assemble(context.Background(), Selection{
		Dataset:      "news",
		Lang:         "de",
		SearchFilter: "top",
	})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAssemblePropagatesSearchErrors(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("cluster down")}
	a := NewAssembler(searcher, testConfig(), dates.New(2020, 1, 1), dates.New(2020, 1, 2), 10, nil)
	if _, err := a.Assemble(context.Background(), Selection{Dataset: "tweets", Lang: "en"}); err == nil {
		t.Error("expected search error to propagate")
	}
}
