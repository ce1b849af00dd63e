package dataset

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
)

const exportPageSize = 1000

// exportFields returns the fixed column set of a CSV export for the
// dataset's type. Dotted names descend into sub-objects.
func (d *Dataset) exportFields() []string {
	switch d.cfg.Type {
	case config.TypeRawSocial:
		return []string{
			"created_at", "favorite_count", "full_text", "full_text_orig",
			"id_str", "lang", "quoted_status_id", "reply_count",
			"retweet_count", "user.description", "user.description_orig",
			"user.favourites_count", "user.followers_count",
			"user.friends_count", "user.geo_enabled", "user.id_str",
			"user.location", "user.name", "user.screen_name",
			"user.statuses_count", "user.verified",
		}
	case config.TypeNewsCSV:
		return []string{
			"_id", "lang", "text", "text_orig", "time", "title",
			"title_orig", "url", "url_netloc",
		}
	case config.TypeCodedNewsCSV:
		return []string{
			"_id", "lang", "text", "text_orig", "time", "title",
			"title_orig", "url", "url_netloc", "document_id",
			"document_group", "code_identifier", "code", "segment",
			"coverage",
		}
	case config.TypeCodedRawSocial:
		return []string{
			"_id", "document_group", "code_identifier", "lang",
			"created_at", "code", "segment", "coverage",
		}
	default:
		return nil
	}
}

// Export writes the documents matching queryString (a query-string query
// against the dataset's text field) to w as CSV with the type's fixed
// column set. It returns the number of exported rows; a mismatch against
// the hit total announced by the index is logged, not fatal.
func (d *Dataset) Export(ctx context.Context, queryString string, w io.Writer) (int64, error) {
	query := fullQuery(d, queryString)

	countResp, err := d.backend.Search(ctx, d.cfg.Index, map[string]any{
		"query": query,
		"size":  0,
	})
	if err != nil {
		return 0, err
	}
	expected := countResp.Total
	d.logger.Debug("export query matched", "documents", expected, "took_msecs", countResp.TookMsecs)

	fields := d.exportFields()
	bw := bufio.NewWriter(w)
	writeExportRow(bw, fields, nil)

	var received int64
	resp, err := d.backend.OpenScroll(ctx, d.cfg.Index, map[string]any{"query": query}, exportPageSize)
	if err != nil {
		return 0, err
	}
	scrollID := resp.ScrollID
	defer func() {
		if scrollID != "" {
			d.backend.ClearScroll(context.WithoutCancel(ctx), scrollID)
		}
	}()

	for len(resp.Hits) > 0 {
		for _, hit := range resp.Hits {
			received++
			row := make([]any, len(fields))
			for i, field := range fields {
				if field == "_id" {
					row[i] = hit.ID
					continue
				}
				row[i] = lookupField(hit.Source, field)
			}
			writeExportRow(bw, fields, row)
		}
		if resp.ScrollID != "" {
			scrollID = resp.ScrollID
		}
		resp, err = d.backend.ContinueScroll(ctx, scrollID)
		if err != nil {
			return received, err
		}
	}
	if err := bw.Flush(); err != nil {
		return received, err
	}

	if received != expected {
		d.logger.Warn("export count mismatch",
			"expected", expected,
			"received", received,
		)
	}
	return received, nil
}

func fullQuery(d *Dataset, queryString string) map[string]any {
	return map[string]any{
		"query_string": map[string]any{
			"default_field": d.schema.TextField().Name(),
			"query":         queryString,
		},
	}
}

// lookupField descends into source along the dotted field name, returning
// nil when any segment is missing.
func lookupField(source map[string]any, field string) any {
	var value any = source
	for _, segment := range strings.Split(field, ".") {
		m, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		value = m[segment]
		if value == nil {
			return nil
		}
	}
	return value
}

// writeExportRow writes one CSV row, quoting every non-numeric cell. A
// nil values slice writes the header.
func writeExportRow(w *bufio.Writer, fields []string, values []any) {
	for i := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		if values == nil {
			w.WriteString(quoteCell(fields[i]))
			continue
		}
		w.WriteString(formatCell(values[i]))
	}
	w.WriteString("\r\n")
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return `""`
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return quoteCell(fmt.Sprint(v))
	}
}

func quoteCell(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
