package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 2 * time.Minute

// StalenessPolicy decides when a cached collection must be fetched again
type StalenessPolicy interface {
	IsStale(fetchedAt, now time.Time) bool
}

// TTLPolicy считает данные устаревшими через фиксированное время
type TTLPolicy struct {
	TTL time.Duration
}

func (p TTLPolicy) IsStale(fetchedAt, now time.Time) bool {
	return fetchedAt.IsZero() || now.Sub(fetchedAt) >= p.TTL
}

type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Collection caches a fetched list in memory. Concurrent fetches of the same
// collection share one call to the fetcher; failed fetches are retried per
// the RetryPolicy. Local mutations change the cached items without a refetch
// and keep the fetch time.
type Collection[T any] struct {
	name      string
	fetch     Fetcher[T]
	staleness StalenessPolicy
	retry     RetryPolicy
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	group singleflight.Group

	mu        sync.RWMutex
	items     []T
	fetchedAt time.Time
	lastErr   error
}

type Option[T any] func(*Collection[T])

func WithStaleness[T any](p StalenessPolicy) Option[T] {
	return func(c *Collection[T]) { c.staleness = p }
}

func WithRetry[T any](p RetryPolicy) Option[T] {
	return func(c *Collection[T]) { c.retry = p }
}

func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Collection[T]) { c.now = now }
}

func NewCollection[T any](name string, fetch Fetcher[T], opts ...Option[T]) *Collection[T] {
	c := &Collection[T]{
		name:      name,
		fetch:     fetch,
		staleness: TTLPolicy{TTL: DefaultTTL},
		retry:     DefaultRetryPolicy,
		now:       time.Now,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns cached items, fetching only when they are stale
func (c *Collection[T]) Get(ctx context.Context) ([]T, error) {
	return c.Fetch(ctx, false)
}

// Fetch loads the collection. Without force it is a no-op while the cache is
// fresh; with or without force it joins a fetch already in flight.
func (c *Collection[T]) Fetch(ctx context.Context, force bool) ([]T, error) {
	if !force {
		c.mu.RLock()
		fresh := !c.staleness.IsStale(c.fetchedAt, c.now())
		c.mu.RUnlock()
		if fresh {
			return c.Items(), nil
		}
	}

	_, err, _ := c.group.Do(c.name, func() (any, error) {
		var items []T
		err := c.retry.do(ctx, func(ctx context.Context) error {
			var ferr error
			items, ferr = c.fetch(ctx)
			return ferr
		}, c.sleep)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.lastErr = err
			return nil, err
		}
		c.items = items
		c.fetchedAt = c.now()
		c.lastErr = nil
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return c.Items(), nil
}

// Items returns a copy of the cached items
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Err is the error of the last fetch, nil after a success
func (c *Collection[T]) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Collection[T]) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Invalidate marks the collection stale; items stay readable
func (c *Collection[T]) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

// Add prepends item
func (c *Collection[T]) Add(item T) {
	c.mu.Lock()
	c.items = append([]T{item}, c.items...)
	c.mu.Unlock()
}

// Replace swaps the first item matching match; false when none matched
func (c *Collection[T]) Replace(match func(T) bool, item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if match(c.items[i]) {
			c.items[i] = item
			return true
		}
	}
	return false
}

// Update applies fn to each item in place
func (c *Collection[T]) Update(fn func(*T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		fn(&c.items[i])
	}
}

// Remove drops every item matching match and reports how many went
func (c *Collection[T]) Remove(match func(T) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0]
	removed := 0
	for _, it := range c.items {
		if match(it) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	c.items = kept
	return removed
}

// Append adds item at the end
func (c *Collection[T]) Append(item T) {
	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()
}
