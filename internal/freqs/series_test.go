package freqs

import (
	"testing"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
)

// writeArtifact persists a frequency artifact for one day of the series
// fixtures.
func writeArtifact(t *testing.T, dir string, day dates.Day, table Table) {
	t.Helper()
	spec := plan.QuerySpec{Query: "corona", Lang: "en", Filter: plan.FilterTop, Date: day}
	if err := WriteTable(ArtifactPath(dir, spec), table); err != nil {
		t.Fatalf("writing artifact for %s: %v", day, err)
	}
}

// TestLoadBucketedSeriesAggregatesDays verifies that artifacts merge into
// resolution-sized buckets and that days without an artifact still belong
// to a bucket, so the series covers the whole range without gaps.
func TestLoadBucketedSeriesAggregatesDays(t *testing.T) {
	dir := t.TempDir()
	start := dates.New(2020, time.February, 1)
	end := start.AddDays(6)

	writeArtifact(t, dir, start, Table{{"corona", 5}, {"flu", 2}})
	writeArtifact(t, dir, start.AddDays(2), Table{{"corona", 3}})
	writeArtifact(t, dir, start.AddDays(5), Table{{"wuhan", 4}})

	series, err := LoadBucketedSeries(dir, plan.FilterTop, "en", "corona", start, end, 5, 100)
	if err != nil {
		t.Fatalf("LoadBucketedSeries() error = %v", err)
	}

	// Six days at resolution five span two buckets.
	if series.Len() != 2 {
		t.Fatalf("buckets = %d, want 2", series.Len())
	}
	if got := series.Buckets[0].Start; !got.Equal(start) {
		t.Errorf("bucket 0 start = %s", got)
	}
	if got := series.Buckets[1].Start; !got.Equal(start.AddDays(5)) {
		t.Errorf("bucket 1 start = %s", got)
	}

	first := series.Buckets[0].Counts.Table()
	assertTable(t, first, Table{{"corona", 8}, {"flu", 2}})
	second := series.Buckets[1].Counts.Table()
	assertTable(t, second, Table{{"wuhan", 4}})
}

// TestLoadBucketedSeriesEmptyRangeHasAllBuckets verifies that a range
// without any artifacts still yields every bucket, each empty.
func TestLoadBucketedSeriesEmptyRangeHasAllBuckets(t *testing.T) {
	start := dates.New(2020, time.February, 1)

	series, err := LoadBucketedSeries(t.TempDir(), plan.FilterTop, "en", "corona",
		start, start.AddDays(11), 5, 100)
	if err != nil {
		t.Fatalf("LoadBucketedSeries() error = %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("buckets = %d, want 3", series.Len())
	}
	for i, bucket := range series.Buckets {
		if bucket.Counts.Len() != 0 {
			t.Errorf("bucket %d not empty", i)
		}
	}
}

// TestLoadBucketedSeriesSkipsShortWords verifies the minimum word length.
func TestLoadBucketedSeriesSkipsShortWords(t *testing.T) {
	dir := t.TempDir()
	start := dates.New(2020, time.February, 1)
	writeArtifact(t, dir, start, Table{{"corona", 5}, {"19", 9}, {"flu", 2}})

	series, err := LoadBucketedSeries(dir, plan.FilterTop, "en", "corona",
		start, start.AddDays(1), 5, 100)
	if err != nil {
		t.Fatalf("LoadBucketedSeries() error = %v", err)
	}
	assertTable(t, series.Buckets[0].Counts.Table(), Table{{"corona", 5}, {"flu", 2}})
}

// TestLoadBucketedSeriesCapsRowsPerArtifact verifies that only the first
// topK rows of each artifact contribute.
func TestLoadBucketedSeriesCapsRowsPerArtifact(t *testing.T) {
	dir := t.TempDir()
	start := dates.New(2020, time.February, 1)
	writeArtifact(t, dir, start, Table{{"corona", 5}, {"virus", 4}, {"flu", 2}})

	series, err := LoadBucketedSeries(dir, plan.FilterTop, "en", "corona",
		start, start.AddDays(1), 5, 2)
	if err != nil {
		t.Fatalf("LoadBucketedSeries() error = %v", err)
	}
	assertTable(t, series.Buckets[0].Counts.Table(), Table{{"corona", 5}, {"virus", 4}})
}

// TestLoadBucketedSeriesRejectsBadArguments covers invalid resolutions
// and inverted ranges.
func TestLoadBucketedSeriesRejectsBadArguments(t *testing.T) {
	start := dates.New(2020, time.February, 1)
	dir := t.TempDir()

	if _, err := LoadBucketedSeries(dir, plan.FilterTop, "en", "corona",
		start, start.AddDays(1), 0, 100); err == nil {
		t.Error("expected error for zero resolution")
	}
	if _, err := LoadBucketedSeries(dir, plan.FilterTop, "en", "corona",
		start, start.AddDays(-1), 5, 100); err == nil {
		t.Error("expected error for an inverted range")
	}
}
