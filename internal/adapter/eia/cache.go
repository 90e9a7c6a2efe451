package eia

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gasebb/gas-forecast-etl/internal/domain"
	"github.com/gasebb/gas-forecast-etl/internal/observability"
)

// CachedProvider wraps a Provider with an in-memory LRU cache keyed by
// series and date range. Refresh cycles repeat identical range queries, so
// hits avoid re-fetching whole windows from the API.
type CachedProvider struct {
	inner   Provider
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner Provider, maxEntries int, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedProvider) SpotPrices(ctx context.Context, start, end time.Time) ([]domain.PriceDay, error) {
	key := rangeKey("spot", "", start, end)
	if v, ok := c.cache.get(key); ok {
		c.metrics.EIACache.WithLabelValues("spot", "hit").Inc()
		return v.prices, nil
	}
	c.metrics.EIACache.WithLabelValues("spot", "miss").Inc()
	prices, err := c.inner.SpotPrices(ctx, start, end)
	if err != nil {
		return prices, err
	}
	// Only cache non-empty results so transient empty responses can be retried.
	if len(prices) > 0 {
		c.cache.put(key, cached{prices: prices})
	}
	return prices, nil
}

func (c *CachedProvider) WeeklyStorage(ctx context.Context, region string, start, end time.Time) ([]domain.Observation, error) {
	key := rangeKey("storage", region, start, end)
	if v, ok := c.cache.get(key); ok {
		c.metrics.EIACache.WithLabelValues("storage", "hit").Inc()
		return v.observations, nil
	}
	c.metrics.EIACache.WithLabelValues("storage", "miss").Inc()
	obs, err := c.inner.WeeklyStorage(ctx, region, start, end)
	if err != nil {
		return obs, err
	}
	if len(obs) > 0 {
		c.cache.put(key, cached{observations: obs})
	}
	return obs, nil
}

func rangeKey(series, region string, start, end time.Time) string {
	return fmt.Sprintf("%s:%s|%s|%s", series, region,
		start.Format("2006-01-02"), end.Format("2006-01-02"))
}

type cached struct {
	prices       []domain.PriceDay
	observations []domain.Observation
}

// lruCache is a simple thread-safe LRU cache for fetched series.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value cached
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (cached, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return cached{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value cached) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
