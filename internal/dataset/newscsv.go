package dataset

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/pkg/elastic"
)

// newsRow is one normalized news article before text-field expansion.
type newsRow struct {
	id     string
	title  string
	text   string
	fields map[string]any
}

// indexNewsCSV indexes a news-article CSV corpus.
func (d *Dataset) indexNewsCSV(ctx context.Context) (int64, error) {
	src := d.cfg.SourceNewsCSV
	rows, err := d.readNewsCSV(src.File, src.Lang)
	if err != nil {
		return 0, err
	}

	docs := make([]elastic.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, d.normalizeNews(row, src.Lang))
	}
	if err := d.bulkAll(ctx, docs); err != nil {
		return 0, err
	}
	d.logger.Info("indexed news corpus", "file", src.File, "documents", len(docs))
	return int64(len(docs)), nil
}

// normalizeNews expands the row's text fields and produces an indexable
// document. The row's own index column is the document ID.
func (d *Dataset) normalizeNews(row newsRow, lang string) elastic.Document {
	source := make(map[string]any, len(row.fields)+6)
	for k, v := range row.fields {
		source[k] = v
	}
	d.expandText(source, "title", row.title, lang)
	d.expandText(source, "text", row.text, lang)
	return elastic.Document{ID: row.id, Source: source}
}

// readNewsCSV loads and normalizes all rows of a news CSV file: the URL
// is decomposed into netloc (without a leading "www.") and path segments,
// the publication time is parsed with language-dependent layouts, and the
// keyword column is dropped.
func (d *Dataset) readNewsCSV(path, lang string) ([]newsRow, error) {
	records, err := readCSVRecords(path)
	if err != nil {
		return nil, err
	}

	rows := make([]newsRow, 0, len(records))
	for i, rec := range records {
		id, ok := rec["index"]
		if !ok {
			return nil, fmt.Errorf("news csv %s: row %d has no index column", path, i+1)
		}

		fields := map[string]any{
			"lang": lang,
			"url":  rec["url"],
		}
		if u, err := url.Parse(rec["url"]); err == nil {
			netloc := strings.TrimPrefix(u.Host, "www.")
			fields["url_netloc"] = netloc
			fields["url_path"] = strings.Split(strings.Trim(u.Path, "/"), "/")
		}
		if t, ok := parseNewsTime(rec["time"], lang); ok {
			fields["time"] = t.UTC().Format(time.RFC3339)
		} else {
			d.logger.Warn("unparseable publication time",
				"file", path,
				"row", i+1,
				"time", rec["time"],
			)
		}

		rows = append(rows, newsRow{
			id:     id,
			title:  rec["title"],
			text:   rec["text"],
			fields: fields,
		})
	}
	return rows, nil
}

// newsTimeLayouts are tried in order; the language only decides between
// day-first and month-first interpretations of ambiguous forms.
var newsTimeLayouts = map[string][]string{
	"de": {
		"02.01.2006 15:04:05",
		"02.01.2006 15:04",
		"02.01.2006",
		"2. January 2006",
	},
	"en": {
		"January 2, 2006 15:04",
		"January 2, 2006",
		"Jan 2, 2006",
		"01/02/2006",
	},
}

var commonTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseNewsTime(s, lang string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	layouts := append(append([]string{}, newsTimeLayouts[lang]...), commonTimeLayouts...)
	if lang != "en" {
		layouts = append(layouts, newsTimeLayouts["en"]...)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// readCSVRecords reads a header-first CSV file (gzip-compressed when the
// name says so) into one map per row.
func readCSVRecords(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompressing csv %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header of %s: %w", path, err)
	}

	var records []map[string]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv %s: %w", path, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		records = append(records, row)
	}
	return records, nil
}
