package reference

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu      sync.Mutex
	results [][]Option
}

func (c *capture) deliver(options []Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, options)
}

func (c *capture) all() [][]Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]Option, len(c.results))
	copy(out, c.results)
	return out
}

func (c *capture) waitFor(t *testing.T, n int) [][]Option {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := c.all(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d deliveries, have %d", n, len(c.all()))
	return nil
}

func staticSearcher(options ...Option) Searcher {
	return SearcherFunc(func(context.Context, string, string, int) ([]Option, error) {
		return options, nil
	})
}

func TestResolver_ShortQueryClearsWithoutSearching(t *testing.T) {
	searched := false
	cap := &capture{}
	r := NewResolver(Config{
		Module: "contacts",
		Searcher: SearcherFunc(func(context.Context, string, string, int) ([]Option, error) {
			searched = true
			return nil, nil
		}),
		Deliver:  cap.deliver,
		Debounce: time.Millisecond,
	})
	defer r.Close()

	r.Query(context.Background(), "a")

	got := cap.waitFor(t, 1)
	assert.Equal(t, []Option{}, got[0])
	assert.False(t, searched)
}

func TestResolver_DebouncedSearchDelivers(t *testing.T) {
	cap := &capture{}
	want := []Option{{ID: "c-1", Label: "Ada Lovelace"}}
	r := NewResolver(Config{
		Module:   "contacts",
		Searcher: staticSearcher(want...),
		Deliver:  cap.deliver,
		Debounce: 5 * time.Millisecond,
	})
	defer r.Close()

	r.Query(context.Background(), "ada")

	got := cap.waitFor(t, 1)
	assert.Equal(t, want, got[0])
}

func TestResolver_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	searcher := SearcherFunc(func(_ context.Context, _ string, query string, _ int) ([]Option, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			<-release // first search is slow
		}
		return []Option{{ID: query, Label: query}}, nil
	})

	cap := &capture{}
	r := NewResolver(Config{
		Module:   "contacts",
		Searcher: searcher,
		Deliver:  cap.deliver,
		Debounce: time.Millisecond,
	})
	defer r.Close()

	ctx := context.Background()
	r.Query(ctx, "ad")
	// Wait for the slow search to start, then type again.
	time.Sleep(20 * time.Millisecond)
	r.Query(ctx, "ada")

	got := cap.waitFor(t, 1)
	require.Equal(t, "ada", got[0][0].ID)

	// Release the slow first search; its result must never arrive.
	close(release)
	time.Sleep(30 * time.Millisecond)
	for _, delivery := range cap.all() {
		for _, opt := range delivery {
			assert.NotEqual(t, "ad", opt.ID, "stale result delivered")
		}
	}
}

func TestResolver_SearchFailureDeliversEmpty(t *testing.T) {
	cap := &capture{}
	r := NewResolver(Config{
		Module: "contacts",
		Searcher: SearcherFunc(func(context.Context, string, string, int) ([]Option, error) {
			return nil, errors.New("backend down")
		}),
		Deliver:  cap.deliver,
		Debounce: time.Millisecond,
	})
	defer r.Close()

	r.Query(context.Background(), "ada")

	got := cap.waitFor(t, 1)
	assert.Equal(t, []Option{}, got[0])
}

func TestResolver_SelectionCache(t *testing.T) {
	r := NewResolver(Config{Module: "contacts", Searcher: staticSearcher()})
	defer r.Close()

	_, ok := r.Label("c-1")
	assert.False(t, ok)

	r.Select(Option{ID: "c-1", Label: "Ada Lovelace"})
	label, ok := r.Label("c-1")
	assert.True(t, ok)
	assert.Equal(t, "Ada Lovelace", label)
}

func TestResolver_CloseDropsPendingSearch(t *testing.T) {
	cap := &capture{}
	r := NewResolver(Config{
		Module:   "contacts",
		Searcher: staticSearcher(Option{ID: "c-1", Label: "Ada"}),
		Deliver:  cap.deliver,
		Debounce: 10 * time.Millisecond,
	})

	r.Query(context.Background(), "ada")
	r.Close()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, cap.all())
}
