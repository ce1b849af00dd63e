package dataset

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	"github.com/lschmelzeisen/nasty-analysis/pkg/elastic"
)

// codedTimestampLayout is the day-first timestamp format of the
// qualitative-analysis export's document name column.
const codedTimestampLayout = "02.01.2006 15:04:05"

// walkCodes visits every node of a code tree with an explicit stack and
// calls fn for each node that carries its own annotation file.
func walkCodes(codes []config.CodeConfig, fn func(code config.CodeConfig) error) error {
	stack := make([]config.CodeConfig, len(codes))
	copy(stack, codes)
	for len(stack) > 0 {
		code := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if code.File != "" {
			if err := fn(code); err != nil {
				return err
			}
		}
		stack = append(stack, code.Codes...)
	}
	return nil
}

// indexCodedRawSocial indexes coded social-media segments organized in a
// code tree.
func (d *Dataset) indexCodedRawSocial(ctx context.Context) (int64, error) {
	src := d.cfg.SourceCodedRawSocial

	var total int64
	err := walkCodes(src.Codes, func(code config.CodeConfig) error {
		docs, err := d.readCodedRawSocialCSV(code.File, code.CodeIdentifier, src.Lang)
		if err != nil {
			return err
		}
		if err := d.bulkAll(ctx, docs); err != nil {
			return err
		}
		total += int64(len(docs))
		d.logger.Info("indexed code annotations",
			"code", code.CodeIdentifier,
			"file", code.File,
			"documents", len(docs),
		)
		return nil
	})
	return total, err
}

func (d *Dataset) readCodedRawSocialCSV(path, codeIdentifier, lang string) ([]elastic.Document, error) {
	records, err := readCSVRecords(path)
	if err != nil {
		return nil, err
	}

	docs := make([]elastic.Document, 0, len(records))
	for i, rec := range records {
		source := map[string]any{
			"code_identifier": codeIdentifier,
			"lang":            lang,
			"document_group":  rec["Dokumentgruppe"],
			"code":            rec["Code"],
		}
		createdAt, err := time.Parse(codedTimestampLayout, rec["Dokumentname"])
		if err != nil {
			return nil, fmt.Errorf("coded csv %s: row %d: bad timestamp %q: %w",
				path, i+1, rec["Dokumentname"], err)
		}
		source["created_at"] = createdAt.UTC().Format(time.RFC3339)
		if coverage, err := strconv.ParseFloat(rec["Abdeckungsgrad %"], 64); err == nil {
			source["coverage"] = coverage
		}
		d.expandText(source, "segment", rec["Segment"], lang)

		docs = append(docs, elastic.Document{
			ID:     codeIdentifier + "-" + strconv.Itoa(i),
			Source: source,
		})
	}
	return docs, nil
}

// indexCodedNewsCSV indexes the base news corpus plus the coded segments
// layered on it. Coded rows join their parent article by the document
// name column, which holds the article's row index, and inherit its
// fields.
func (d *Dataset) indexCodedNewsCSV(ctx context.Context) (int64, error) {
	src := d.cfg.SourceCodedNewsCSV

	rows, err := d.readNewsCSV(src.File, src.Lang)
	if err != nil {
		return 0, err
	}
	byID := make(map[string]newsRow, len(rows))
	docs := make([]elastic.Document, 0, len(rows))
	for _, row := range rows {
		byID[row.id] = row
		docs = append(docs, d.normalizeNews(row, src.Lang))
	}
	if err := d.bulkAll(ctx, docs); err != nil {
		return 0, err
	}
	total := int64(len(docs))

	err = walkCodes(src.Codes, func(code config.CodeConfig) error {
		coded, err := d.readCodedNewsCSV(code.File, code.CodeIdentifier, src.Lang, byID)
		if err != nil {
			return err
		}
		if err := d.bulkAll(ctx, coded); err != nil {
			return err
		}
		total += int64(len(coded))
		d.logger.Info("indexed code annotations",
			"code", code.CodeIdentifier,
			"file", code.File,
			"documents", len(coded),
		)
		return nil
	})
	return total, err
}

func (d *Dataset) readCodedNewsCSV(path, codeIdentifier, lang string, news map[string]newsRow) ([]elastic.Document, error) {
	records, err := readCSVRecords(path)
	if err != nil {
		return nil, err
	}

	docs := make([]elastic.Document, 0, len(records))
	for i, rec := range records {
		parent, ok := news[rec["Dokumentname"]]
		if !ok {
			return nil, fmt.Errorf("coded csv %s: row %d references unknown article %q",
				path, i+1, rec["Dokumentname"])
		}

		source := make(map[string]any, len(parent.fields)+10)
		for k, v := range parent.fields {
			source[k] = v
		}
		source["document_id"] = parent.id
		source["document_group"] = rec["Dokumentgruppe"]
		source["code_identifier"] = codeIdentifier
		source["code"] = rec["Code"]
		if coverage, err := strconv.ParseFloat(rec["Abdeckungsgrad %"], 64); err == nil {
			source["coverage"] = coverage
		}
		d.expandText(source, "title", parent.title, lang)
		d.expandText(source, "text", parent.text, lang)
		d.expandText(source, "segment", rec["Segment"], lang)

		docs = append(docs, elastic.Document{
			ID:     codeIdentifier + "-" + strconv.Itoa(i),
			Source: source,
		})
	}
	return docs, nil
}
