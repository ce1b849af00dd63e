// Package plan models the crawl plan: the ordered, append-only set of
// daily search requests that must exist for a raw social-media dataset.
// The plan is persisted as line-delimited JSON so that re-running the
// planner is idempotent and produces byte-stable files.
package plan

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	"github.com/lschmelzeisen/nasty-analysis/internal/fsutil"
)

// Filter selects which ranking of search results a request crawls.
type Filter string

const (
	FilterTop    Filter = "top"
	FilterLatest Filter = "latest"
)

// ParseFilter parses a filter name.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case FilterTop, FilterLatest:
		return Filter(s), nil
	}
	return "", fmt.Errorf("unknown search filter %q (want top or latest)", s)
}

// QuerySpec is the immutable identity key for one crawl/frequency unit:
// one query crawled in one language with one filter on one day. Two specs
// are equal iff all four fields match.
type QuerySpec struct {
	Query  string    `json:"query"`
	Lang   string    `json:"lang"`
	Filter Filter    `json:"filter"`
	Date   dates.Day `json:"date"`
}

// Equal reports structural equality of all four identity fields.
func (s QuerySpec) Equal(o QuerySpec) bool {
	return s.Query == o.Query &&
		s.Lang == o.Lang &&
		s.Filter == o.Filter &&
		s.Date.Equal(o.Date)
}

// Key returns a stable string identity usable as a map key.
func (s QuerySpec) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", s.Filter, s.Lang, s.Query, s.Date)
}

// Plan is an ordered set of QuerySpecs. Entries are unique by structural
// equality and the plan only ever grows.
type Plan struct {
	entries []QuerySpec
	present map[string]struct{}
}

// New returns an empty plan.
func New() *Plan {
	return &Plan{present: make(map[string]struct{})}
}

// Load reads a line-delimited JSON plan file. A missing file yields an
// empty plan.
func Load(path string) (*Plan, error) {
	p := New()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("opening plan file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var spec QuerySpec
		if err := json.Unmarshal(scanner.Bytes(), &spec); err != nil {
			return nil, fmt.Errorf("parsing plan file %s line %d: %w", path, line, err)
		}
		p.Append(spec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading plan file %s: %w", path, err)
	}
	return p, nil
}

// Contains reports whether a structurally equal spec is already planned.
func (p *Plan) Contains(spec QuerySpec) bool {
	_, ok := p.present[spec.Key()]
	return ok
}

// Append adds spec unless a structurally equal entry already exists.
// It reports whether the spec was added.
func (p *Plan) Append(spec QuerySpec) bool {
	if p.Contains(spec) {
		return false
	}
	p.entries = append(p.entries, spec)
	p.present[spec.Key()] = struct{}{}
	return true
}

// Len returns the number of planned entries.
func (p *Plan) Len() int { return len(p.entries) }

// Entries returns the planned specs in insertion order. The returned slice
// must not be mutated.
func (p *Plan) Entries() []QuerySpec { return p.entries }

// Dump writes the plan as line-delimited JSON through a guarded write.
func (p *Plan) Dump(path string) error {
	return fsutil.WriteFileAtomic(path, func(f *os.File) error {
		w := bufio.NewWriter(f)
		enc := json.NewEncoder(w)
		for _, spec := range p.entries {
			if err := enc.Encode(spec); err != nil {
				return fmt.Errorf("encoding plan entry: %w", err)
			}
		}
		return w.Flush()
	})
}

// Extend expands the cross product of languages, filters, and queries over
// every day in [start, end) and appends all specs not already present.
// Iteration order is language, then filter, then query, then day, so that
// repeated runs produce identical files. Entries are never removed; the
// plan only grows as the desired date range or query list changes. Returns
// the number of entries added.
func (p *Plan) Extend(queries []string, languages []string, filters []Filter, start, end dates.Day) int {
	added := 0
	for _, lang := range languages {
		for _, filter := range filters {
			for _, query := range queries {
				for _, day := range dates.Range(start, end) {
					spec := QuerySpec{
						Query:  query,
						Lang:   lang,
						Filter: filter,
						Date:   day,
					}
					if p.Append(spec) {
						added++
					}
				}
			}
		}
	}
	return added
}
