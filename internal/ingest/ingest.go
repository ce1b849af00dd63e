// Package ingest implements the live ingest path: a producer that walks
// the crawl archive and publishes raw documents to Kafka, and a consumer
// that normalizes and bulk-indexes them. Delivery is at-least-once; the
// stable document IDs make re-indexing idempotent.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lschmelzeisen/nasty-analysis/internal/archive"
	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
	"github.com/lschmelzeisen/nasty-analysis/pkg/kafka"
)

// Envelope is the wire format of one raw document on the ingest topic.
// The plan entry rides along so the consumer can attach the originating
// request without re-deriving it.
type Envelope struct {
	Dataset  string           `json:"dataset"`
	Query    string           `json:"query"`
	Lang     string           `json:"lang"`
	Filter   string           `json:"filter"`
	Date     string           `json:"date"`
	Document archive.Document `json:"document"`
}

// Publisher is the producing side. *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Producer publishes the documents of crawled plan entries.
type Producer struct {
	dataset   string
	archive   *archive.Archive
	publisher Publisher
	batchSize int
	logger    *slog.Logger
}

// NewProducer returns a Producer for one dataset's archive.
func NewProducer(dataset string, arc *archive.Archive, publisher Publisher, batchSize int) *Producer {
	if batchSize < 1 {
		batchSize = 100
	}
	return &Producer{
		dataset:   dataset,
		archive:   arc,
		publisher: publisher,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "ingest-producer"),
	}
}

// Run publishes every document of every crawled spec and returns the
// number of published documents.
func (p *Producer) Run(ctx context.Context, specs []plan.QuerySpec) (int64, error) {
	var (
		batch []kafka.Event
		total int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.publisher.PublishBatch(ctx, batch); err != nil {
			return err
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for _, spec := range p.archive.Entries(specs) {
		err := p.archive.Each(spec, func(doc archive.Document) error {
			env := Envelope{
				Dataset:  p.dataset,
				Query:    spec.Query,
				Lang:     spec.Lang,
				Filter:   string(spec.Filter),
				Date:     spec.Date.String(),
				Document: doc,
			}
			batch = append(batch, kafka.Event{Key: doc.IDStr, Value: env})
			if len(batch) >= p.batchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("publishing entry %s: %w", spec.Key(), err)
		}
		if err := flush(); err != nil {
			return total, err
		}
		p.logger.Info("published entry", "entry", spec.Key())
	}
	return total, nil
}

// Indexer is the indexing side the consumer flushes into.
type Indexer interface {
	IndexEnvelope(ctx context.Context, env Envelope) error
	Flush(ctx context.Context) error
}

// Consumer buffers envelopes from the topic and hands them to an Indexer.
// Handler errors are logged, not fatal: the documents will be seen again
// on the next batch run.
type Consumer struct {
	indexer Indexer
	logger  *slog.Logger

	mu       sync.Mutex
	received int64
}

// NewConsumer returns a Consumer feeding indexer.
func NewConsumer(indexer Indexer) *Consumer {
	return &Consumer{
		indexer: indexer,
		logger:  slog.Default().With("component", "ingest-consumer"),
	}
}

// Handle is the kafka.MessageHandler for the raw-documents topic.
func (c *Consumer) Handle(ctx context.Context, key, value []byte) error {
	env, err := kafka.DecodeJSON[Envelope](value)
	if err != nil {
		c.logger.Warn("dropping undecodable message", "key", string(key), "error", err)
		return nil
	}
	if err := c.indexer.IndexEnvelope(ctx, env); err != nil {
		return fmt.Errorf("indexing document %s: %w", env.Document.IDStr, err)
	}
	c.mu.Lock()
	c.received++
	c.mu.Unlock()
	return nil
}

// Received reports how many envelopes were accepted so far.
func (c *Consumer) Received() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.received
}
