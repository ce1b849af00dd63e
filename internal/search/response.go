package search

import (
	"fmt"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
)

// TermsBucket is one bucket of a terms aggregation response.
type TermsBucket struct {
	Key      string
	DocCount int64
}

// HistogramBucket is one bucket of a date-histogram aggregation response,
// optionally carrying the terms buckets of a sub-aggregation.
type HistogramBucket struct {
	Day      dates.Day
	DocCount int64
	Terms    []TermsBucket
}

// unwrapNested descends through the fixed-name child aggregations that
// wrapNestedAgg introduced, returning the innermost aggregation body.
func unwrapNested(raw map[string]any) map[string]any {
	for {
		inner, ok := raw[nestedAggName].(map[string]any)
		if !ok {
			return raw
		}
		raw = inner
	}
}

func aggBody(aggs map[string]any, name string) (map[string]any, error) {
	raw, ok := aggs[name].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("response has no aggregation %q", name)
	}
	return unwrapNested(raw), nil
}

func bucketList(body map[string]any) ([]map[string]any, error) {
	raw, ok := body["buckets"].([]any)
	if !ok {
		return nil, fmt.Errorf("aggregation has no bucket list")
	}
	out := make([]map[string]any, 0, len(raw))
	for _, b := range raw {
		bucket, ok := b.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("malformed aggregation bucket")
		}
		out = append(out, bucket)
	}
	return out, nil
}

func bucketDocCount(bucket map[string]any) int64 {
	count, _ := bucket["doc_count"].(float64)
	return int64(count)
}

func termsBucketsOf(body map[string]any) ([]TermsBucket, error) {
	raw, err := bucketList(body)
	if err != nil {
		return nil, err
	}
	out := make([]TermsBucket, 0, len(raw))
	for _, bucket := range raw {
		key, ok := bucket["key"].(string)
		if !ok {
			return nil, fmt.Errorf("terms bucket key is not a string")
		}
		out = append(out, TermsBucket{Key: key, DocCount: bucketDocCount(bucket)})
	}
	return out, nil
}

// TermsBuckets reads the buckets of the named terms aggregation,
// unwrapping any nested levels the builder added.
func TermsBuckets(aggs map[string]any, name string) ([]TermsBucket, error) {
	body, err := aggBody(aggs, name)
	if err != nil {
		return nil, err
	}
	return termsBucketsOf(body)
}

// HistogramBuckets reads the buckets of the named date-histogram
// aggregation. Bucket keys are epoch milliseconds in UTC; termsName, when
// non-empty, names a terms sub-aggregation to read per bucket.
func HistogramBuckets(aggs map[string]any, name, termsName string) ([]HistogramBucket, error) {
	body, err := aggBody(aggs, name)
	if err != nil {
		return nil, err
	}
	raw, err := bucketList(body)
	if err != nil {
		return nil, err
	}

	out := make([]HistogramBucket, 0, len(raw))
	for _, bucket := range raw {
		millis, ok := bucket["key"].(float64)
		if !ok {
			return nil, fmt.Errorf("histogram bucket key is not numeric")
		}
		hb := HistogramBucket{
			Day:      dates.DayOf(time.UnixMilli(int64(millis)).UTC()),
			DocCount: bucketDocCount(bucket),
		}
		if termsName != "" {
			sub, ok := bucket[termsName].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("histogram bucket has no sub-aggregation %q", termsName)
			}
			hb.Terms, err = termsBucketsOf(unwrapNested(sub))
			if err != nil {
				return nil, err
			}
		}
		out = append(out, hb)
	}
	return out, nil
}

// MinMaxDates reads the earliest/latest date pair produced by
// MinMaxDateAggs. ok is false when the index holds no documents.
func MinMaxDates(aggs map[string]any) (min, max dates.Day, ok bool, err error) {
	read := func(name string) (dates.Day, bool, error) {
		body, err := aggBody(aggs, name)
		if err != nil {
			return dates.Day{}, false, err
		}
		millis, ok := body["value"].(float64)
		if !ok {
			return dates.Day{}, false, nil
		}
		return dates.DayOf(time.UnixMilli(int64(millis)).UTC()), true, nil
	}

	min, okMin, err := read("earliest_date")
	if err != nil {
		return dates.Day{}, dates.Day{}, false, err
	}
	max, okMax, err := read("latest_date")
	if err != nil {
		return dates.Day{}, dates.Day{}, false, err
	}
	return min, max, okMin && okMax, nil
}
