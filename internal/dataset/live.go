package dataset

import (
	"context"
	"sync"

	"github.com/lschmelzeisen/nasty-analysis/internal/archive"
	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
	"github.com/lschmelzeisen/nasty-analysis/pkg/elastic"
)

// LiveBuffer accumulates live-ingested documents and bulk-flushes them at
// the dataset's bulk size. Safe for concurrent use.
type LiveBuffer struct {
	d *Dataset

	mu  sync.Mutex
	buf []elastic.Document
}

// NewLiveBuffer returns an empty buffer for the dataset.
func (d *Dataset) NewLiveBuffer() *LiveBuffer {
	return &LiveBuffer{d: d}
}

// Add normalizes one crawled document and buffers it, flushing when the
// buffer reaches the bulk size.
func (b *LiveBuffer) Add(ctx context.Context, doc archive.Document, spec plan.QuerySpec) error {
	b.mu.Lock()
	b.buf = append(b.buf, b.d.normalizeRawSocial(doc, spec))
	var full []elastic.Document
	if len(b.buf) >= b.d.bulkSize {
		full = b.buf
		b.buf = nil
	}
	b.mu.Unlock()

	if full != nil {
		return b.d.flush(ctx, full)
	}
	return nil
}

// Flush submits any buffered documents.
func (b *LiveBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	pending := b.buf
	b.buf = nil
	b.mu.Unlock()
	return b.d.flush(ctx, pending)
}
