// Package dataset turns configured source corpora into indexed document
// collections. Each dataset has a type that decides how its source is
// read and normalized; all types share the bulk-indexing machinery and
// the tokenized text-field expansion.
package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lschmelzeisen/nasty-analysis/internal/search"
	"github.com/lschmelzeisen/nasty-analysis/internal/tokenize"
	"github.com/lschmelzeisen/nasty-analysis/pkg/config"
	"github.com/lschmelzeisen/nasty-analysis/pkg/elastic"
	"github.com/lschmelzeisen/nasty-analysis/pkg/metrics"
)

// indexedSuffix names the sibling collection recording which source files
// were already fully indexed.
const indexedSuffix = "-indexed"

// Backend is the slice of the index client the dataset layer needs.
// *elastic.Client satisfies it; tests substitute in-memory fakes.
type Backend interface {
	Search(ctx context.Context, index string, body map[string]any) (*elastic.SearchResponse, error)
	OpenScroll(ctx context.Context, index string, body map[string]any, pageSize int) (*elastic.SearchResponse, error)
	ContinueScroll(ctx context.Context, scrollID string) (*elastic.SearchResponse, error)
	ClearScroll(ctx context.Context, scrollID string) error
	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string, mapping map[string]any) error
	Index(ctx context.Context, index string, id string, doc map[string]any) error
	BulkIndex(ctx context.Context, index string, docs []elastic.Document) error
}

// Dataset wires one configured dataset to the index backend.
type Dataset struct {
	cfg       config.DatasetConfig
	schema    search.Schema
	backend   Backend
	tokenizer *tokenize.Tokenizer
	bulkSize  int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New builds a Dataset from its configuration.
func New(cfg config.DatasetConfig, backend Backend, tokenizer *tokenize.Tokenizer, bulkSize int, m *metrics.Metrics) (*Dataset, error) {
	schema, err := search.ForType(cfg.Type)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", cfg.Name, err)
	}
	if bulkSize < 1 {
		bulkSize = 1000
	}
	return &Dataset{
		cfg:       cfg,
		schema:    schema,
		backend:   backend,
		tokenizer: tokenizer,
		bulkSize:  bulkSize,
		metrics:   m,
		logger:    slog.Default().With("component", "dataset", "dataset", cfg.Name),
	}, nil
}

// Name returns the configured dataset name.
func (d *Dataset) Name() string { return d.cfg.Name }

// Index returns the name of the backing index collection.
func (d *Dataset) Index() string { return d.cfg.Index }

// Type returns the dataset's schema family.
func (d *Dataset) Type() config.DatasetType { return d.cfg.Type }

// Schema returns the field schema for the dataset's type.
func (d *Dataset) Schema() search.Schema { return d.schema }

// IndexDocuments loads the dataset's source corpus into its index,
// creating the index first when missing. It returns the number of
// documents submitted.
func (d *Dataset) IndexDocuments(ctx context.Context) (int64, error) {
	if err := d.ensureIndex(ctx, d.cfg.Index, d.mapping()); err != nil {
		return 0, err
	}

	switch d.cfg.Type {
	case config.TypeRawSocial:
		return d.indexRawSocial(ctx)
	case config.TypeNewsCSV:
		return d.indexNewsCSV(ctx)
	case config.TypeCodedRawSocial:
		return d.indexCodedRawSocial(ctx)
	case config.TypeCodedNewsCSV:
		return d.indexCodedNewsCSV(ctx)
	default:
		return 0, fmt.Errorf("dataset %s: unknown type %q", d.cfg.Name, d.cfg.Type)
	}
}

func (d *Dataset) ensureIndex(ctx context.Context, index string, mapping map[string]any) error {
	exists, err := d.backend.IndexExists(ctx, index)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return d.backend.CreateIndex(ctx, index, mapping)
}

func (d *Dataset) indexedIndex() string { return d.cfg.Index + indexedSuffix }

// fileIndexed reports whether the side collection records name as already
// indexed.
func (d *Dataset) fileIndexed(ctx context.Context, name string) (bool, error) {
	resp, err := d.backend.Search(ctx, d.indexedIndex(), map[string]any{
		"query": search.TermQuery(search.Field{"file_name"}, name),
		"size":  0,
	})
	if err != nil {
		return false, err
	}
	return resp.Total > 0, nil
}

// markFileIndexed records name in the side collection once all of its
// documents are submitted.
func (d *Dataset) markFileIndexed(ctx context.Context, name string) error {
	return d.backend.Index(ctx, d.indexedIndex(), name, map[string]any{"file_name": name})
}

// flush bulk-indexes a buffer of documents.
func (d *Dataset) flush(ctx context.Context, docs []elastic.Document) error {
	if len(docs) == 0 {
		return nil
	}
	err := d.backend.BulkIndex(ctx, d.cfg.Index, docs)
	if d.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		d.metrics.BulkFlushesTotal.WithLabelValues(outcome).Inc()
		if err == nil {
			d.metrics.DocsIndexedTotal.WithLabelValues(d.cfg.Name).Add(float64(len(docs)))
		}
	}
	return err
}

// bulkAll submits docs in bulkSize chunks.
func (d *Dataset) bulkAll(ctx context.Context, docs []elastic.Document) error {
	for len(docs) > 0 {
		n := d.bulkSize
		if n > len(docs) {
			n = len(docs)
		}
		if err := d.flush(ctx, docs[:n]); err != nil {
			return err
		}
		docs = docs[n:]
	}
	return nil
}

// expandText writes the tokenized expansion of text into doc under field:
// the joined token stream replaces the field, the raw text moves to
// <field>_orig, and the token list lands in <field>_tokens.
func (d *Dataset) expandText(doc map[string]any, field, text, lang string) {
	if text == "" {
		return
	}
	joined, orig, tokens := d.tokenizer.Expand(text, lang)
	doc[field] = joined
	doc[field+"_orig"] = orig
	doc[field+"_tokens"] = tokens
}
