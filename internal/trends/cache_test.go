package trends

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lschmelzeisen/nasty-analysis/internal/dates"
)

func TestGetOrComputeWithoutRedis(t *testing.T) {
	cache := NewCache(nil, time.Minute, nil)
	want := &Series{Start: dates.New(2020, 1, 1), End: dates.New(2020, 1, 1)}

	calls := 0
	got, err := cache.GetOrCompute(context.Background(), Selection{Dataset: "tweets", Lang: "en"},
		func(ctx context.Context) (*Series, error) {
			calls++
			return want, nil
		})
	if err != nil {
		t.Fatalf("computing: %v", err)
	}
	if got != want {
		t.Error("expected the computed series back")
	}
	if calls != 1 {
		t.Errorf("expected one compute, got %d", calls)
	}
}

func TestGetOrComputePropagatesErrors(t *testing.T) {
	cache := NewCache(nil, time.Minute, nil)
	sentinel := errors.New("index unavailable")

	_, err := cache.GetOrCompute(context.Background(), Selection{Dataset: "tweets", Lang: "en"},
		func(ctx context.Context) (*Series, error) {
			return nil, sentinel
		})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected compute error, got %v", err)
	}
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	cache := NewCache(nil, time.Minute, nil)
	sel := Selection{Dataset: "tweets", Lang: "en"}

	var mu sync.Mutex
	calls := 0
	release := make(chan struct{})
	compute := func(ctx context.Context) (*Series, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return &Series{Start: dates.New(2020, 1, 1), End: dates.New(2020, 1, 1)}, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	started := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			if _, err := cache.GetOrCompute(context.Background(), sel, compute); err != nil {
				t.Errorf("computing: %v", err)
			}
		}()
	}
	for i := 0; i < workers; i++ {
		<-started
	}
	// Give the goroutines a moment to queue on the singleflight key, then
	// let the leader finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected a single shared compute, got %d", calls)
	}
}

func TestInvalidateWithoutRedisIsNoop(t *testing.T) {
	cache := NewCache(nil, time.Minute, nil)
	cache.Invalidate(context.Background())
}
