// Package reference resolves reference and lookup field values to display
// options: debounced typeahead search against a record searcher, plus a
// small cache of already-selected id/label pairs so a form can render a
// stored id without a round trip.
package reference

import (
	"context"
	"strings"
	"sync"
	"time"

	"crmforge/pkg/logger"
)

// Option is one resolvable choice of a reference field.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Searcher finds candidate records for a typeahead query.
type Searcher interface {
	Search(ctx context.Context, module, query string, limit int) ([]Option, error)
}

// SearcherFunc adapts a plain function to Searcher.
type SearcherFunc func(ctx context.Context, module, query string, limit int) ([]Option, error)

func (f SearcherFunc) Search(ctx context.Context, module, query string, limit int) ([]Option, error) {
	return f(ctx, module, query, limit)
}

const (
	defaultDebounce = 300 * time.Millisecond
	defaultLimit    = 10
	minQueryLen     = 2
)

// Resolver drives typeahead for one reference field. Keystrokes arrive via
// Query; after the debounce window the searcher runs and results are handed
// to the deliver callback. Every keystroke bumps a generation counter and a
// search result is delivered only while its generation is still current, so
// a slow early response can never overwrite a newer one.
type Resolver struct {
	module   string
	searcher Searcher
	deliver  func(options []Option)

	debounce time.Duration
	limit    int

	mu       sync.Mutex
	gen      uint64
	timer    *time.Timer
	selected map[string]string
	closed   bool
}

// Config assembles a resolver. Deliver is called with the result set for the
// latest still-current query; it is invoked from the search goroutine.
type Config struct {
	Module   string
	Searcher Searcher
	Deliver  func(options []Option)
	Debounce time.Duration // 0 means the default
	Limit    int           // 0 means the default
}

func NewResolver(cfg Config) *Resolver {
	r := &Resolver{
		module:   cfg.Module,
		searcher: cfg.Searcher,
		deliver:  cfg.Deliver,
		debounce: cfg.Debounce,
		limit:    cfg.Limit,
		selected: make(map[string]string),
	}
	if r.debounce <= 0 {
		r.debounce = defaultDebounce
	}
	if r.limit <= 0 {
		r.limit = defaultLimit
	}
	return r
}

// Query registers a keystroke. Queries shorter than two characters clear the
// result list immediately without hitting the searcher.
func (r *Resolver) Query(ctx context.Context, query string) {
	query = strings.TrimSpace(query)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.gen++
	gen := r.gen
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}

	if len([]rune(query)) < minQueryLen {
		r.mu.Unlock()
		r.deliverIfCurrent(gen, nil)
		return
	}

	r.timer = time.AfterFunc(r.debounce, func() {
		r.search(ctx, gen, query)
	})
	r.mu.Unlock()
}

// search runs the actual lookup once the debounce window has elapsed.
func (r *Resolver) search(ctx context.Context, gen uint64, query string) {
	if !r.isCurrent(gen) {
		return
	}

	options, err := r.searcher.Search(ctx, r.module, query, r.limit)
	if err != nil {
		// Search failure degrades to an empty list; the form stays usable.
		logger.Warn(ctx, "reference search failed",
			"module", r.module, "query", query, "error", err)
		options = nil
	}

	r.deliverIfCurrent(gen, options)
}

// Select records a chosen option so its label renders without another search.
func (r *Resolver) Select(opt Option) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected[opt.ID] = opt.Label
}

// Label returns the cached display label for a stored id.
func (r *Resolver) Label(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	label, ok := r.selected[id]
	return label, ok
}

// Close cancels any pending search; late results are discarded.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Resolver) isCurrent(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && gen == r.gen
}

func (r *Resolver) deliverIfCurrent(gen uint64, options []Option) {
	if options == nil {
		options = []Option{}
	}
	if !r.isCurrent(gen) {
		return
	}
	if r.deliver != nil {
		r.deliver(options)
	}
}
