package search

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	apperrors "github.com/lschmelzeisen/nasty-analysis/pkg/errors"
)

func TestFieldName(t *testing.T) {
	tests := []struct {
		field Field
		want  string
	}{
		{Field{"created_at"}, "created_at"},
		{Field{"batch_meta", "request.lang"}, "batch_meta.request.lang"},
		{Field{"a", "b", "c"}, "a.b.c"},
	}
	for _, tt := range tests {
		if got := tt.field.Name(); got != tt.want {
			t.Errorf("Name(%v) = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestFieldNestedPaths(t *testing.T) {
	tests := []struct {
		field Field
		want  []string
	}{
		{Field{"created_at"}, []string{}},
		{Field{"batch_meta", "request.lang"}, []string{"batch_meta"}},
		{Field{"a", "b", "c"}, []string{"a", "a.b"}},
	}
	for _, tt := range tests {
		got := tt.field.NestedPaths()
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("NestedPaths(%v) = %v, want %v", tt.field, got, tt.want)
		}
	}
}

func TestTermQueryFlatField(t *testing.T) {
	got := TermQuery(Field{"lang"}, "de")
	want := map[string]any{
		"term": map[string]any{"lang": "de"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TermQuery = %v, want %v", got, want)
	}
}

func TestTermQueryWrapsNestedPaths(t *testing.T) {
	// A three-segment field sits two nested objects deep, so the term
	// clause needs exactly two nested wrappers, outermost path first.
	got := TermQuery(Field{"a", "b", "c"}, "x")
	want := map[string]any{
		"nested": map[string]any{
			"path": "a",
			"query": map[string]any{
				"nested": map[string]any{
					"path": "a.b",
					"query": map[string]any{
						"term": map[string]any{"a.b.c": "x"},
					},
				},
			},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TermQuery = %v, want %v", got, want)
	}
}

func TestTermsQuery(t *testing.T) {
	got := TermsQuery(Field{"code_identifier"}, []string{"a", "b"})
	want := map[string]any{
		"terms": map[string]any{"code_identifier": []string{"a", "b"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TermsQuery = %v, want %v", got, want)
	}
}

func TestQueryString(t *testing.T) {
	got := QueryString(Field{"full_text"}, "corona AND wuhan")
	want := map[string]any{
		"query_string": map[string]any{
			"default_field": "full_text",
			"query":         "corona AND wuhan",
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("QueryString = %v, want %v", got, want)
	}
}

func TestDateRangeQuery(t *testing.T) {
	r := DateRange{
		GTE: dates.New(2020, time.January, 1),
		LT:  dates.New(2020, time.February, 1),
	}
	got, err := r.Query(Field{"created_at"})
	if err != nil {
		t.Fatalf("building range query: %v", err)
	}
	want := map[string]any{
		"range": map[string]any{
			"created_at": map[string]any{
				"format": "yyyy-MM-dd",
				"gte":    "2020-01-01",
				"lt":     "2020-02-01",
			},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Query = %v, want %v", got, want)
	}
}

func TestDateRangeRejectsInvalidBounds(t *testing.T) {
	day := dates.New(2020, time.January, 1)
	tests := []struct {
		name string
		r    DateRange
	}{
		{"empty", DateRange{}},
		{"both gt and gte", DateRange{GT: day, GTE: day}},
		{"both lt and lte", DateRange{LT: day, LTE: day}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.r.Query(Field{"created_at"})
			if !errors.Is(err, apperrors.ErrInvalidDateRange) {
				t.Errorf("expected ErrInvalidDateRange, got %v", err)
			}
		})
	}
}

func TestTermsAggIncludeList(t *testing.T) {
	got := TermsAgg(Field{"text_tokens"}, 5, []string{"corona", "wuhan"})
	want := map[string]any{
		"terms": map[string]any{
			"field":   "text_tokens",
			"size":    5,
			"include": []string{"corona", "wuhan"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TermsAgg = %v, want %v", got, want)
	}

	// A nil include list leaves the aggregation unrestricted.
	got = TermsAgg(Field{"text_tokens"}, 5, nil)
	if _, present := got["terms"].(map[string]any)["include"]; present {
		t.Error("nil include list must not emit an include clause")
	}
}

func TestTermsAggWrapsNestedField(t *testing.T) {
	got := TermsAgg(Field{"batch_meta", "request.query"}, 100, nil)
	nested, ok := got["nested"].(map[string]any)
	if !ok || nested["path"] != "batch_meta" {
		t.Fatalf("expected nested aggregation over batch_meta, got %v", got)
	}
	child, ok := got["aggs"].(map[string]any)["nested"].(map[string]any)
	if !ok {
		t.Fatalf("expected fixed-name child aggregation, got %v", got)
	}
	terms, ok := child["terms"].(map[string]any)
	if !ok || terms["field"] != "batch_meta.request.query" {
		t.Errorf("unexpected inner terms aggregation: %v", child)
	}
}

func TestDateHistogramAgg(t *testing.T) {
	sub := map[string]any{"words": TermsAgg(Field{"text_tokens"}, 3, nil)}
	got := DateHistogramAgg(Field{"time"}, "1d", sub)
	hist, ok := got["date_histogram"].(map[string]any)
	if !ok {
		t.Fatalf("expected date_histogram body, got %v", got)
	}
	if hist["field"] != "time" || hist["calendar_interval"] != "1d" {
		t.Errorf("unexpected histogram body: %v", hist)
	}
	if hist["min_doc_count"] != 0 {
		t.Error("histograms must emit empty buckets for gap-free series")
	}
	if _, ok := got["aggs"].(map[string]any)["words"]; !ok {
		t.Errorf("expected words sub-aggregation, got %v", got)
	}
}

func TestMinMaxDateAggs(t *testing.T) {
	got := MinMaxDateAggs(Field{"created_at"})
	for name, kind := range map[string]string{"earliest_date": "min", "latest_date": "max"} {
		body, ok := got[name].(map[string]any)
		if !ok {
			t.Fatalf("missing %s aggregation", name)
		}
		inner, ok := body[kind].(map[string]any)
		if !ok || inner["field"] != "created_at" {
			t.Errorf("unexpected %s body: %v", name, body)
		}
	}
}

func TestBoolFilter(t *testing.T) {
	a := TermQuery(Field{"lang"}, "en")
	b := MatchAll()
	got := BoolFilter(a, b)
	boolBody, ok := got["bool"].(map[string]any)
	if !ok {
		t.Fatalf("expected bool body, got %v", got)
	}
	clauses, ok := boolBody["filter"].([]map[string]any)
	if !ok || len(clauses) != 2 {
		t.Errorf("unexpected filter clauses: %v", boolBody["filter"])
	}
}
