package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/internal/archive"
	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
	"github.com/lschmelzeisen/nasty-analysis/pkg/kafka"
)

// fakePublisher records every published batch.
type fakePublisher struct {
	batches [][]kafka.Event
}

func (p *fakePublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	batch := make([]kafka.Event, len(events))
	copy(batch, events)
	p.batches = append(p.batches, batch)
	return nil
}

func (p *fakePublisher) events() []kafka.Event {
	var all []kafka.Event
	for _, batch := range p.batches {
		all = append(all, batch...)
	}
	return all
}

// writeArchive lays down a crawled data file for spec and returns the
// archive reading it.
func writeArchive(t *testing.T, spec plan.QuerySpec, ids ...string) *archive.Archive {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, archive.DataFileName(spec))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating archive dirs: %v", err)
	}
	var lines []byte
	for _, id := range ids {
		line := fmt.Sprintf(`{"id_str":%q,"full_text":"corona is spreading","lang":%q}`, id, spec.Lang)
		lines = append(lines, line...)
		lines = append(lines, '\n')
	}
	if err := os.WriteFile(path, lines, 0o644); err != nil {
		t.Fatalf("writing data file: %v", err)
	}
	return archive.Open(dir)
}

// TestProducerPublishesDecodableEnvelopes verifies that published events
// carry the document ID as key and an envelope the consumer side can
// decode from the wire bytes the producer writes.
func TestProducerPublishesDecodableEnvelopes(t *testing.T) {
	spec := plan.QuerySpec{
		Query:  "corona",
		Lang:   "en",
		Filter: plan.FilterTop,
		Date:   dates.New(2020, time.February, 1),
	}
	arc := writeArchive(t, spec, "101", "102", "103")
	pub := &fakePublisher{}
	producer := NewProducer("tweets", arc, pub, 2)

	total, err := producer.Run(context.Background(), []plan.QuerySpec{spec})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if total != 3 {
		t.Errorf("Run() = %d documents, want 3", total)
	}
	if len(pub.batches) != 2 {
		t.Errorf("batches = %d, want 2 at batch size 2", len(pub.batches))
	}

	events := pub.events()
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	for i, want := range []string{"101", "102", "103"} {
		if events[i].Key != want {
			t.Errorf("event %d key = %q, want %q", i, events[i].Key, want)
		}
		// The producer serialises Value once; decode exactly those bytes
		// the way the consumer does.
		wire, err := json.Marshal(events[i].Value)
		if err != nil {
			t.Fatalf("marshaling event value: %v", err)
		}
		env, err := kafka.DecodeJSON[Envelope](wire)
		if err != nil {
			t.Fatalf("decoding event %d: %v", i, err)
		}
		if env.Dataset != "tweets" || env.Query != "corona" || env.Date != "2020-02-01" {
			t.Errorf("envelope %d = %+v", i, env)
		}
		if env.Document.IDStr != want {
			t.Errorf("envelope %d document = %q, want %q", i, env.Document.IDStr, want)
		}
	}
}

// TestProducerSkipsUncrawledSpecs verifies that plan entries without a
// data file publish nothing.
func TestProducerSkipsUncrawledSpecs(t *testing.T) {
	crawled := plan.QuerySpec{
		Query:  "corona",
		Lang:   "en",
		Filter: plan.FilterTop,
		Date:   dates.New(2020, time.February, 1),
	}
	uncrawled := crawled
	uncrawled.Date = dates.New(2020, time.February, 2)

	arc := writeArchive(t, crawled, "101")
	pub := &fakePublisher{}
	producer := NewProducer("tweets", arc, pub, 10)

	total, err := producer.Run(context.Background(), []plan.QuerySpec{crawled, uncrawled})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if total != 1 {
		t.Errorf("Run() = %d documents, want 1", total)
	}
}

// fakeIndexer records the envelopes handed to it.
type fakeIndexer struct {
	envelopes []Envelope
}

func (i *fakeIndexer) IndexEnvelope(ctx context.Context, env Envelope) error {
	i.envelopes = append(i.envelopes, env)
	return nil
}

func (i *fakeIndexer) Flush(ctx context.Context) error { return nil }

// TestConsumerHandlesAndCounts verifies that decodable messages reach the
// indexer and undecodable ones are dropped without failing the handler.
func TestConsumerHandlesAndCounts(t *testing.T) {
	idx := &fakeIndexer{}
	consumer := NewConsumer(idx)

	wire, err := json.Marshal(Envelope{
		Dataset: "tweets",
		Query:   "corona",
		Lang:    "en",
		Filter:  "top",
		Date:    "2020-02-01",
		Document: archive.Document{
			IDStr:    "101",
			FullText: "corona is spreading",
			Lang:     "en",
		},
	})
	if err != nil {
		t.Fatalf("marshaling envelope: %v", err)
	}

	if err := consumer.Handle(context.Background(), []byte("101"), wire); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if err := consumer.Handle(context.Background(), []byte("bad"), []byte("{not json")); err != nil {
		t.Fatalf("Handle() with undecodable payload error = %v", err)
	}

	if len(idx.envelopes) != 1 {
		t.Fatalf("indexed envelopes = %d, want 1", len(idx.envelopes))
	}
	if idx.envelopes[0].Document.IDStr != "101" {
		t.Errorf("indexed document = %q, want %q", idx.envelopes[0].Document.IDStr, "101")
	}
	if got := consumer.Received(); got != 1 {
		t.Errorf("Received() = %d, want 1", got)
	}
}
