package trends

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	"github.com/lschmelzeisen/nasty-analysis/internal/stopwords"
	apperrors "github.com/lschmelzeisen/nasty-analysis/pkg/errors"
)

// WordFilter restricts which words a ranking shows.
type WordFilter string

const (
	FilterAll          WordFilter = "all"
	FilterNonStopwords WordFilter = "non-stopwords"
	FilterHashtags     WordFilter = "hashtags"
	FilterMentions     WordFilter = "mentions"
)

// ParseWordFilter parses a word filter name.
func ParseWordFilter(s string) (WordFilter, error) {
	switch WordFilter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterNonStopwords, FilterHashtags, FilterMentions:
		return WordFilter(s), nil
	default:
		return "", fmt.Errorf("%w: unknown word filter %q", apperrors.ErrInvalidInput, s)
	}
}

// smoothingFactor is the additive constant of the normalized frequency
// estimate.
const smoothingFactor = 0.1

// RankedWord is one row of a word-frequency ranking.
type RankedWord struct {
	Word string  `json:"word"`
	Freq float64 `json:"freq"`
}

// RankTopK ranks the words of series over the day sub-range [from, to],
// which must lie within the series. With normalize set, each word scores
// the sum over days of (freq+a)/(docs+a*numDays) with a = 0.1, so words
// in sparse days do not dominate; otherwise the raw counts are summed.
// Words with zero total frequency never appear. It also returns the
// number of matching documents in the sub-range.
func RankTopK(series *Series, from, to dates.Day, topN int, normalize bool, filter WordFilter, lang string) ([]RankedWord, int64, error) {
	if from.Before(series.Start) || to.After(series.End) || to.Before(from) {
		return nil, 0, fmt.Errorf("%w: [%s, %s] outside series range [%s, %s]",
			apperrors.ErrInvalidDateRange, from, to, series.Start, series.End)
	}
	lo := dates.DaysBetween(series.Start, from)
	hi := dates.DaysBetween(series.Start, to) + 1
	numDays := hi - lo

	var numDocs int64
	for _, n := range series.NumDocsPerDay[lo:hi] {
		numDocs += n
	}

	var stops map[string]struct{}
	if filter == FilterNonStopwords {
		stops = stopwords.For(lang)
	}

	ranked := make([]RankedWord, 0, len(series.WordFreqsPerDay))
	for word, freqs := range series.WordFreqsPerDay {
		if !passesFilter(word, filter, stops) {
			continue
		}

		var score float64
		if normalize {
			denominator := smoothingFactor * float64(numDays)
			for i := lo; i < hi; i++ {
				score += (float64(freqs[i]) + smoothingFactor) /
					(float64(series.NumDocsPerDay[i]) + denominator)
			}
			var raw int64
			for _, f := range freqs[lo:hi] {
				raw += f
			}
			if raw == 0 {
				continue
			}
		} else {
			var sum int64
			for _, f := range freqs[lo:hi] {
				sum += f
			}
			if sum == 0 {
				continue
			}
			score = float64(sum)
		}
		ranked = append(ranked, RankedWord{Word: word, Freq: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Freq != ranked[j].Freq {
			return ranked[i].Freq > ranked[j].Freq
		}
		return ranked[i].Word < ranked[j].Word
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, numDocs, nil
}

func passesFilter(word string, filter WordFilter, stops map[string]struct{}) bool {
	switch filter {
	case FilterNonStopwords:
		if _, stop := stops[word]; stop {
			return false
		}
		return containsLetter(word)
	case FilterHashtags:
		return strings.HasPrefix(word, "#")
	case FilterMentions:
		return strings.HasPrefix(word, "@")
	default:
		return true
	}
}

func containsLetter(word string) bool {
	for _, r := range word {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
