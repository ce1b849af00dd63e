package trends

import (
	"context"
	"log/slog"
	"sync"
)

// Update is one completed background computation. The series is immutable
// once delivered.
type Update struct {
	Selection Selection
	Series    *Series
	Err       error
}

// Updater runs series computations in the background and delivers results
// to a single consumer. Concurrent triggers are tolerated; whichever
// computation completes last determines the delivered state, matching the
// interactive "latest answer wins" behavior of the view layer.
type Updater struct {
	assembler *Assembler
	cache     *Cache
	updates   chan Update

	mu      sync.Mutex
	pending int

	logger *slog.Logger
}

// NewUpdater returns an Updater delivering onto an unread-latest channel.
func NewUpdater(assembler *Assembler, cache *Cache) *Updater {
	return &Updater{
		assembler: assembler,
		cache:     cache,
		updates:   make(chan Update, 1),
		logger:    slog.Default().With("component", "trends-updater"),
	}
}

// Updates returns the consumer channel. Only the most recent undelivered
// update is retained.
func (u *Updater) Updates() <-chan Update {
	return u.updates
}

// Pending reports how many computations are in flight.
func (u *Updater) Pending() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.pending
}

// Trigger starts a background computation for sel and returns
// immediately.
func (u *Updater) Trigger(ctx context.Context, sel Selection) {
	u.mu.Lock()
	u.pending++
	u.mu.Unlock()

	go func() {
		series, err := u.cache.GetOrCompute(ctx, sel, func(ctx context.Context) (*Series, error) {
			return u.assembler.Assemble(ctx, sel)
		})
		if err != nil {
			u.logger.Error("series computation failed", "selection", sel.CacheKey(), "error", err)
		}

		u.mu.Lock()
		u.pending--
		u.mu.Unlock()

		u.deliver(Update{Selection: sel, Series: series, Err: err})
	}()
}

// deliver replaces any undelivered update with upd.
func (u *Updater) deliver(upd Update) {
	for {
		select {
		case u.updates <- upd:
			return
		default:
			select {
			case <-u.updates:
			default:
			}
		}
	}
}
