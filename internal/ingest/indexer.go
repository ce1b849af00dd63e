package ingest

import (
	"context"
	"fmt"

	"github.com/lschmelzeisen/nasty-analysis/internal/dataset"
	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
	"github.com/lschmelzeisen/nasty-analysis/internal/plan"
)

// DatasetIndexer adapts a dataset's live buffer to the consumer side.
type DatasetIndexer struct {
	dataset string
	buffer  *dataset.LiveBuffer
}

// NewDatasetIndexer returns an Indexer writing into ds.
func NewDatasetIndexer(ds *dataset.Dataset) *DatasetIndexer {
	return &DatasetIndexer{dataset: ds.Name(), buffer: ds.NewLiveBuffer()}
}

// IndexEnvelope buffers one envelope's document.
func (i *DatasetIndexer) IndexEnvelope(ctx context.Context, env Envelope) error {
	if env.Dataset != i.dataset {
		return fmt.Errorf("envelope for dataset %q on a consumer for %q", env.Dataset, i.dataset)
	}
	spec, err := envelopeSpec(env)
	if err != nil {
		return err
	}
	return i.buffer.Add(ctx, env.Document, spec)
}

// Flush submits any buffered documents.
func (i *DatasetIndexer) Flush(ctx context.Context) error {
	return i.buffer.Flush(ctx)
}

func envelopeSpec(env Envelope) (plan.QuerySpec, error) {
	filter, err := plan.ParseFilter(env.Filter)
	if err != nil {
		return plan.QuerySpec{}, err
	}
	day, err := dates.Parse(env.Date)
	if err != nil {
		return plan.QuerySpec{}, fmt.Errorf("parsing envelope date %q: %w", env.Date, err)
	}
	return plan.QuerySpec{
		Query:  env.Query,
		Lang:   env.Lang,
		Filter: filter,
		Date:   day,
	}, nil
}
