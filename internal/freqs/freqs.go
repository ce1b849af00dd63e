// Package freqs computes per-entry word frequency artifacts from the raw
// crawl archive. Artifacts are plain CSV files keyed by the entry's
// identity, written atomically and never recomputed once present, so
// repeated runs only fill in what is missing.
package freqs

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lschmelzeisen/nasty-analysis/internal/fsutil"
	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
)

// Entry is one word with its occurrence count.
type Entry struct {
	Word  string
	Count int64
}

// Table holds the frequency counts of a single plan entry, sorted by
// descending count. Words with equal counts keep the order in which they
// were first observed.
type Table []Entry

// Counter accumulates token counts while preserving first-seen order.
type Counter struct {
	counts map[string]int64
	order  []string
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int64)}
}

// Add records one occurrence of word.
func (c *Counter) Add(word string) {
	if _, ok := c.counts[word]; !ok {
		c.order = append(c.order, word)
	}
	c.counts[word]++
}

// AddN records n occurrences of word.
func (c *Counter) AddN(word string, n int64) {
	if _, ok := c.counts[word]; !ok {
		c.order = append(c.order, word)
	}
	c.counts[word] += n
}

// Len returns the number of distinct words seen so far.
func (c *Counter) Len() int { return len(c.order) }

// Table returns the accumulated counts sorted by descending count.
func (c *Counter) Table() Table {
	table := make(Table, 0, len(c.order))
	for _, word := range c.order {
		table = append(table, Entry{Word: word, Count: c.counts[word]})
	}
	sort.SliceStable(table, func(i, j int) bool {
		return table[i].Count > table[j].Count
	})
	return table
}

// ArtifactPath returns the frequency artifact location for one plan
// entry below dir. Spaces in the query become dashes so the path stays
// shell-friendly.
func ArtifactPath(dir string, spec plan.QuerySpec) string {
	return filepath.Join(
		dir,
		string(spec.Filter),
		spec.Lang,
		fmt.Sprintf("%s-%s.frequencies.csv", strings.ReplaceAll(spec.Query, " ", "-"), spec.Date),
	)
}

// WriteTable writes table to path as CSV rows of word and count. The file
// appears atomically: a crash mid-write leaves no partial artifact behind.
func WriteTable(path string, table Table) error {
	return fsutil.WriteFileAtomic(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		for _, entry := range table {
			if err := w.Write([]string{entry.Word, strconv.FormatInt(entry.Count, 10)}); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

// ReadTable reads a frequency artifact written by WriteTable.
func ReadTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading frequency artifact %s: %w", path, err)
	}

	table := make(Table, 0, len(records))
	for _, rec := range records {
		count, err := strconv.ParseInt(rec[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("frequency artifact %s: bad count %q: %w", path, rec[1], err)
		}
		table = append(table, Entry{Word: rec[0], Count: count})
	}
	return table, nil
}
