package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory TTL cache with least-recently-used eviction.
type MemoryCache struct {
	mu     sync.RWMutex
	items  map[string]*list.Element
	order  *list.List // front is most recently used
	policy Policy
	now    func() time.Time

	hits   uint64
	misses uint64
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// Option configures a MemoryCache.
type Option func(*MemoryCache)

// WithClock replaces the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemoryCache creates a new in-memory cache with the given policy.
func NewMemoryCache(policy Policy, opts ...Option) *MemoryCache {
	c := &MemoryCache{
		items:  make(map[string]*list.Element, max(policy.MaxEntries, 0)),
		order:  list.New(),
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value from the cache. Returns (nil, false) on miss or expiry.
// A hit marks the entry as most recently used.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}

	e := elem.Value.(*entry)
	if !c.now().Before(e.expiresAt) {
		c.removeElement(elem)
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return e.value, true
}

// Set stores a value for the policy TTL. When the cache is full, expired
// entries are dropped first and then the least-recently-used entry.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if !c.policy.ShouldCache() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expiresAt := now.Add(c.policy.TTL)

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return nil
	}

	if len(c.items) >= c.policy.MaxEntries {
		c.purgeExpired(now)
	}
	for len(c.items) >= c.policy.MaxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
	}

	c.items[key] = c.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	return nil
}

// Delete removes a value from the cache. Idempotent - no error on miss.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	return nil
}

// Clear drops every entry. Counters are kept.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, max(c.policy.MaxEntries, 0))
	c.order.Init()
}

// Stats reports counters and the number of unexpired entries.
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	size := 0
	for _, elem := range c.items {
		if now.Before(elem.Value.(*entry).expiresAt) {
			size++
		}
	}
	return newStats(c.hits, c.misses, size)
}

// Policy returns the policy the cache was built with.
func (c *MemoryCache) Policy() Policy {
	return c.policy
}

func (c *MemoryCache) purgeExpired(now time.Time) {
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if !now.Before(elem.Value.(*entry).expiresAt) {
			c.removeElement(elem)
		}
		elem = prev
	}
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}

// Ensure MemoryCache implements Cache
var _ Cache = (*MemoryCache)(nil)
