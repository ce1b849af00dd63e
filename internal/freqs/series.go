package freqs

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
)

// minSeriesWordLength drops filler tokens too short to be interesting in
// a ranked view.
const minSeriesWordLength = 3

// Bucket aggregates the frequency tables of a run of consecutive days.
type Bucket struct {
	Start  dates.Day
	Counts *Counter
}

// BucketedSeries is the flat-file frequency view over [start, end): one
// bucket per resolution-sized run of days, covering every day of the
// range. Days without an artifact contribute nothing, but their bucket
// still exists, so the series never has gaps.
type BucketedSeries struct {
	Start      dates.Day
	Resolution int
	Buckets    []Bucket
}

// LoadBucketedSeries reads the frequency artifacts of one (filter, lang,
// query) group below dir and aggregates them into day buckets of the
// given resolution. Only the first topK rows of each artifact count, and
// words shorter than three characters are skipped. Missing artifacts are
// treated as empty days.
func LoadBucketedSeries(dir string, filter plan.Filter, lang, query string, start, end dates.Day, resolution, topK int) (*BucketedSeries, error) {
	if resolution < 1 {
		return nil, fmt.Errorf("day resolution must be positive, got %d", resolution)
	}
	numDays := dates.DaysBetween(start, end)
	if numDays < 0 {
		return nil, fmt.Errorf("series range end %s precedes start %s", end, start)
	}

	series := &BucketedSeries{Start: start, Resolution: resolution}
	for day := 0; day < numDays; day++ {
		if day%resolution == 0 {
			series.Buckets = append(series.Buckets, Bucket{
				Start:  start.AddDays(day),
				Counts: NewCounter(),
			})
		}
		bucket := series.Buckets[day/resolution]

		spec := plan.QuerySpec{Query: query, Lang: lang, Filter: filter, Date: start.AddDays(day)}
		table, err := ReadTable(ArtifactPath(dir, spec))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for i, entry := range table {
			if i == topK {
				break
			}
			if utf8.RuneCountInString(entry.Word) < minSeriesWordLength {
				continue
			}
			bucket.Counts.AddN(entry.Word, entry.Count)
		}
	}
	return series, nil
}

// Len returns the number of buckets.
func (s *BucketedSeries) Len() int { return len(s.Buckets) }
