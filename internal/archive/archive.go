// Package archive reads the raw crawl archive: one line-delimited JSON
// data file per executed plan entry, optionally gzip-compressed. File
// locations derive deterministically from the entry's identity fields, so
// every stage of the pipeline agrees on where a spec's documents live.
package archive

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
)

// User carries the author metadata of a crawled document.
type User struct {
	IDStr           string `json:"id_str"`
	Name            string `json:"name"`
	ScreenName      string `json:"screen_name"`
	Location        string `json:"location"`
	Description     string `json:"description"`
	Verified        bool   `json:"verified"`
	GeoEnabled      bool   `json:"geo_enabled"`
	FollowersCount  int64  `json:"followers_count"`
	FriendsCount    int64  `json:"friends_count"`
	FavouritesCount int64  `json:"favourites_count"`
	StatusesCount   int64  `json:"statuses_count"`
}

// Document is one raw crawled document.
type Document struct {
	IDStr          string    `json:"id_str"`
	FullText       string    `json:"full_text"`
	CreatedAt      time.Time `json:"created_at"`
	Lang           string    `json:"lang"`
	URL            string    `json:"url"`
	ReplyCount     int64     `json:"reply_count"`
	RetweetCount   int64     `json:"retweet_count"`
	FavoriteCount  int64     `json:"favorite_count"`
	QuotedStatusID string    `json:"quoted_status_id,omitempty"`
	User           User      `json:"user"`
}

// DataFileName returns the archive-relative path of the data file for one
// plan entry. Spaces in the query become dashes, mirroring the frequency
// artifact naming.
func DataFileName(spec plan.QuerySpec) string {
	return filepath.Join(
		string(spec.Filter),
		spec.Lang,
		fmt.Sprintf("%s-%s.jsonl", strings.ReplaceAll(spec.Query, " ", "-"), spec.Date),
	)
}

// Archive reads data files below a root directory.
type Archive struct {
	dir    string
	logger *slog.Logger
}

// Open returns an Archive rooted at dir.
func Open(dir string) *Archive {
	return &Archive{
		dir:    dir,
		logger: slog.Default().With("component", "archive"),
	}
}

// Dir returns the archive root directory.
func (a *Archive) Dir() string { return a.dir }

// dataFilePath resolves the on-disk path for spec, preferring the
// gzip-compressed variant.
func (a *Archive) dataFilePath(spec plan.QuerySpec) (string, bool) {
	base := filepath.Join(a.dir, DataFileName(spec))
	for _, path := range []string{base + ".gz", base} {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return base, false
}

// HasData reports whether a data file for spec exists, i.e. whether the
// entry has been crawled.
func (a *Archive) HasData(spec plan.QuerySpec) bool {
	_, ok := a.dataFilePath(spec)
	return ok
}

// DataFile returns the on-disk path of the data file for spec, whether or
// not it exists yet.
func (a *Archive) DataFile(spec plan.QuerySpec) string {
	path, _ := a.dataFilePath(spec)
	return path
}

// Entries filters candidates down to the specs that have a data file,
// i.e. the part of the plan that has actually been crawled.
func (a *Archive) Entries(candidates []plan.QuerySpec) []plan.QuerySpec {
	var present []plan.QuerySpec
	for _, spec := range candidates {
		if a.HasData(spec) {
			present = append(present, spec)
		}
	}
	return present
}

// Each streams every document of spec's data file to fn. Malformed lines
// are logged and skipped; they never abort the file. A missing data file
// is an error: callers should check HasData first.
func (a *Archive) Each(spec plan.QuerySpec, fn func(doc Document) error) error {
	path, ok := a.dataFilePath(spec)
	if !ok {
		return fmt.Errorf("no data file for entry %s", spec.Key())
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening data file %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("decompressing data file %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var doc Document
		if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
			a.logger.Warn("skipping malformed document",
				"file", path,
				"line", line,
				"error", err,
			)
			continue
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading data file %s: %w", path, err)
	}
	return nil
}
