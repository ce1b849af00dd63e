package search

import (
	"fmt"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	apperrors "github.com/lschmelzeisen/nasty-analysis/pkg/errors"
)

// wrapNestedQuery encloses q in one nested clause per nested path of f,
// innermost first, so the outermost path ends up as the outermost clause.
func wrapNestedQuery(f Field, q map[string]any) map[string]any {
	paths := f.NestedPaths()
	for i := len(paths) - 1; i >= 0; i-- {
		q = map[string]any{
			"nested": map[string]any{
				"path":  paths[i],
				"query": q,
			},
		}
	}
	return q
}

// TermQuery matches documents whose field equals value, wrapping nested
// paths as needed.
func TermQuery(f Field, value any) map[string]any {
	return wrapNestedQuery(f, map[string]any{
		"term": map[string]any{f.Name(): value},
	})
}

// TermsQuery matches documents whose field equals any of values.
func TermsQuery(f Field, values []string) map[string]any {
	return wrapNestedQuery(f, map[string]any{
		"terms": map[string]any{f.Name(): values},
	})
}

// QueryString runs an Elasticsearch query-string query against f.
func QueryString(f Field, query string) map[string]any {
	return wrapNestedQuery(f, map[string]any{
		"query_string": map[string]any{
			"default_field": f.Name(),
			"query":         query,
		},
	})
}

// BoolFilter combines clauses into a non-scoring bool filter.
func BoolFilter(clauses ...map[string]any) map[string]any {
	return map[string]any{
		"bool": map[string]any{"filter": clauses},
	}
}

// MatchAll matches every document.
func MatchAll() map[string]any {
	return map[string]any{"match_all": map[string]any{}}
}

// DateRange bounds a date field at day precision. At most one lower and
// one upper bound may be set.
type DateRange struct {
	GTE dates.Day
	GT  dates.Day
	LTE dates.Day
	LT  dates.Day
}

// IsZero reports whether no bound is set.
func (r DateRange) IsZero() bool {
	return r.GTE.IsZero() && r.GT.IsZero() && r.LTE.IsZero() && r.LT.IsZero()
}

// Query builds the range clause for f. An empty range and conflicting
// bounds (both gt and gte, or both lt and lte) are rejected.
func (r DateRange) Query(f Field) (map[string]any, error) {
	if r.IsZero() {
		return nil, fmt.Errorf("%w: no bounds set", apperrors.ErrInvalidDateRange)
	}
	if !r.GT.IsZero() && !r.GTE.IsZero() {
		return nil, fmt.Errorf("%w: both gt and gte set", apperrors.ErrInvalidDateRange)
	}
	if !r.LT.IsZero() && !r.LTE.IsZero() {
		return nil, fmt.Errorf("%w: both lt and lte set", apperrors.ErrInvalidDateRange)
	}

	bounds := map[string]any{"format": "yyyy-MM-dd"}
	if !r.GTE.IsZero() {
		bounds["gte"] = r.GTE.String()
	}
	if !r.GT.IsZero() {
		bounds["gt"] = r.GT.String()
	}
	if !r.LTE.IsZero() {
		bounds["lte"] = r.LTE.String()
	}
	if !r.LT.IsZero() {
		bounds["lt"] = r.LT.String()
	}
	return wrapNestedQuery(f, map[string]any{
		"range": map[string]any{f.Name(): bounds},
	}), nil
}

// nestedAggName is the fixed child name used when aggregations descend
// into nested objects; the response readers unwrap the same name.
const nestedAggName = "nested"

// wrapNestedAgg encloses agg in one nested aggregation per nested path of
// f, innermost first.
func wrapNestedAgg(f Field, agg map[string]any) map[string]any {
	paths := f.NestedPaths()
	for i := len(paths) - 1; i >= 0; i-- {
		agg = map[string]any{
			"nested": map[string]any{"path": paths[i]},
			"aggs":   map[string]any{nestedAggName: agg},
		}
	}
	return agg
}

// TermsAgg builds a terms aggregation over f. A non-nil include list
// restricts the buckets to exactly those values.
func TermsAgg(f Field, size int, include []string) map[string]any {
	terms := map[string]any{
		"field": f.Name(),
		"size":  size,
	}
	if include != nil {
		terms["include"] = include
	}
	return wrapNestedAgg(f, map[string]any{"terms": terms})
}

// DateHistogramAgg buckets documents by f at the given calendar interval,
// optionally with named sub-aggregations per bucket.
func DateHistogramAgg(f Field, interval string, subAggs map[string]any) map[string]any {
	agg := map[string]any{
		"date_histogram": map[string]any{
			"field":             f.Name(),
			"calendar_interval": interval,
			"min_doc_count":     0,
		},
	}
	if len(subAggs) > 0 {
		agg["aggs"] = subAggs
	}
	return wrapNestedAgg(f, agg)
}

// MinMaxDateAggs builds the earliest/latest aggregation pair over f.
func MinMaxDateAggs(f Field) map[string]any {
	return map[string]any{
		"earliest_date": map[string]any{"min": map[string]any{"field": f.Name()}},
		"latest_date":   map[string]any{"max": map[string]any{"field": f.Name()}},
	}
}
