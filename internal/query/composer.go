// Package query maps raw user inputs to a canonical list query, debouncing
// free-text search.
package query

import (
	"strings"
	"sync"
	"time"

	"tdsync/internal/service"
)

// DefaultDebounce is the search quiet period when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// DefaultLimit is the fixed page size; pagination beyond the first page is
// out of scope.
const DefaultLimit = 100

// Composer turns search text, status filter and sort selection into an
// immutable ListQuery, and signals when a requery should fire. Search
// changes are debounced; filter and sort changes requery immediately.
type Composer struct {
	mu       sync.Mutex
	search   string
	status   service.StatusFilter
	sort     service.SortOrder
	limit    int
	debounce time.Duration
	timer    *time.Timer
	requery  func()
}

// New creates a Composer with the given quiet period and page size.
// Zero values select the defaults. The initial query is: no search,
// all statuses, newest first.
func New(debounce time.Duration, limit int) *Composer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Composer{
		status:   service.StatusAll,
		sort:     service.SortCreatedDesc,
		limit:    limit,
		debounce: debounce,
	}
}

// OnQueryChanged sets the callback invoked when a requery should fire.
func (c *Composer) OnQueryChanged(fn func()) {
	c.mu.Lock()
	c.requery = fn
	c.mu.Unlock()
}

// SetSearchText records the search text and restarts the quiet-period
// timer. A new call cancels any pending timer, so rapid typing produces
// exactly one requery after the user pauses.
func (c *Composer) SetSearchText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = strings.TrimSpace(text)
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.fire)
}

// SetStatusFilter records the filter and requeries immediately.
func (c *Composer) SetStatusFilter(f service.StatusFilter) {
	c.mu.Lock()
	c.status = f
	c.mu.Unlock()
	c.fire()
}

// SetSortOrder records the sort order and requeries immediately.
func (c *Composer) SetSortOrder(o service.SortOrder) {
	c.mu.Lock()
	c.sort = o
	c.mu.Unlock()
	c.fire()
}

// Compose returns the canonical query for the current inputs.
func (c *Composer) Compose() service.ListQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return service.ListQuery{
		Search: c.search,
		Status: c.status,
		Sort:   c.sort,
		Limit:  c.limit,
		Offset: 0,
	}
}

// Close cancels any pending requery timer.
func (c *Composer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// fire cancels a pending timer and invokes the requery callback. The
// immediate paths cancel the timer too; the composed query already carries
// the latest search text, so a trailing debounced requery would be redundant.
func (c *Composer) fire() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	fn := c.requery
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
