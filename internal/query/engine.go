package query

import (
	"context"
	"strings"
	"sync"

	"github.com/sadopc/cumpli/internal/store"
)

// FilterState is the set of facets that select the pending list.
type FilterState struct {
	Category      *store.Category
	Sort          store.SortMode
	Search        string
	RemindersOnly bool
}

// DefaultFilter is the state at start and after Clear.
func DefaultFilter() FilterState {
	return FilterState{Sort: store.SortByPriority}
}

// Active reports whether any facet differs from DefaultFilter.
func (f FilterState) Active() bool {
	return f.Category != nil || f.Sort != store.SortByPriority || f.searchText() != "" || f.RemindersOnly
}

func (f FilterState) searchText() string {
	return strings.TrimSpace(f.Search)
}

// Resolve picks the underlying query for f. The first matching rule wins:
// search, then reminders-only (always by due date), then category, then all.
func Resolve(f FilterState) store.PendingQuery {
	switch {
	case f.searchText() != "":
		return store.PendingQuery{Search: f.searchText(), Sort: f.Sort}
	case f.RemindersOnly:
		return store.PendingQuery{RemindersOnly: true, Sort: store.SortByDate}
	case f.Category != nil:
		c := *f.Category
		return store.PendingQuery{Category: &c, Sort: f.Sort}
	default:
		return store.PendingQuery{Sort: f.Sort}
	}
}

// ListState is one of Loading, Empty, EmptySearch, Success or Failed.
type ListState interface {
	isListState()
}

type (
	Loading     struct{}
	Empty       struct{}
	EmptySearch struct{ Query string }
	Success     struct{ Activities []store.Activity }
	Failed      struct{ Err error }
)

func (Loading) isListState()     {}
func (Empty) isListState()       {}
func (EmptySearch) isListState() {}
func (Success) isListState()     {}
func (Failed) isListState()      {}

// StateFor derives the list state for a result produced under f.
func StateFor(f FilterState, activities []store.Activity, err error) ListState {
	switch {
	case err != nil:
		return Failed{Err: err}
	case len(activities) > 0:
		return Success{Activities: activities}
	case f.searchText() != "":
		return EmptySearch{Query: f.searchText()}
	default:
		return Empty{}
	}
}

// PendingSource is the store surface the engine needs.
type PendingSource interface {
	Source
	ListPending(ctx context.Context, q store.PendingQuery) ([]store.Activity, error)
}

// Engine owns the filter facets and publishes the pending list for the
// latest facet combination. Every change cancels the previous query; a
// result computed for an older combination is never delivered.
type Engine struct {
	ctx  context.Context
	stop context.CancelFunc
	src  PendingSource

	mu     sync.Mutex
	filter FilterState
	gen    uint64
	cancel context.CancelFunc
	closed bool
	out    chan ListState
}

// NewEngine starts an engine with DefaultFilter. It publishes Loading
// immediately and stops when ctx is done or Close is called.
func NewEngine(ctx context.Context, src PendingSource) *Engine {
	ctx, stop := context.WithCancel(ctx)
	e := &Engine{
		ctx:    ctx,
		stop:   stop,
		src:    src,
		filter: DefaultFilter(),
		out:    make(chan ListState, 1),
	}
	e.out <- Loading{}

	e.mu.Lock()
	e.restartLocked()
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.Close()
	}()
	return e
}

// States delivers the latest list state. It is closed by Close.
func (e *Engine) States() <-chan ListState {
	return e.out
}

func (e *Engine) Filter() FilterState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

func (e *Engine) SetCategory(c *store.Category) {
	e.Update(func(f *FilterState) {
		if c == nil {
			f.Category = nil
			return
		}
		v := *c
		f.Category = &v
	})
}

func (e *Engine) SetSort(m store.SortMode) {
	e.Update(func(f *FilterState) { f.Sort = m })
}

func (e *Engine) SetSearch(q string) {
	e.Update(func(f *FilterState) { f.Search = q })
}

func (e *Engine) SetRemindersOnly(on bool) {
	e.Update(func(f *FilterState) { f.RemindersOnly = on })
}

// Clear resets every facet in a single change.
func (e *Engine) Clear() {
	e.Update(func(f *FilterState) { *f = DefaultFilter() })
}

// Update applies fn to the facets atomically and re-queries. A change that
// leaves the facets as they were does not re-query.
func (e *Engine) Update(fn func(*FilterState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	next := e.filter
	if next.Category != nil {
		c := *next.Category
		next.Category = &c
	}
	fn(&next)
	if sameFilter(next, e.filter) {
		return
	}
	e.filter = next
	e.restartLocked()
}

// Close stops the current query and closes States. It is safe to call more
// than once.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.cancel != nil {
		e.cancel()
	}
	e.stop()
	close(e.out)
}

func (e *Engine) restartLocked() {
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	gen := e.gen
	filter := e.filter
	q := Resolve(filter)

	ctx, cancel := context.WithCancel(e.ctx)
	e.cancel = cancel

	// Whatever is still buffered belongs to the previous combination.
	select {
	case st := <-e.out:
		if _, ok := st.(Loading); ok {
			e.out <- st
		}
	default:
	}

	results := Watch(ctx, e.src, func(ctx context.Context) ([]store.Activity, error) {
		return e.src.ListPending(ctx, q)
	})
	go func() {
		for r := range results {
			e.publish(gen, StateFor(filter, r.Value, r.Err))
		}
	}()
}

func (e *Engine) publish(gen uint64, st ListState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.gen {
		return
	}
	replace(e.out, st)
}

func sameFilter(a, b FilterState) bool {
	if a.Sort != b.Sort || a.Search != b.Search || a.RemindersOnly != b.RemindersOnly {
		return false
	}
	if a.Category == nil || b.Category == nil {
		return a.Category == b.Category
	}
	return *a.Category == *b.Category
}
