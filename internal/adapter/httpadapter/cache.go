package httpadapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"

	"github.com/couchcryptid/trail-data-etl/internal/observability"
	"github.com/couchcryptid/trail-data-etl/internal/preview"
)

// previewTTL matches the Cache-Control max-age sent with previews, so a
// re-ingested geometry shows up within a day.
const previewTTL = 24 * time.Hour

// GeometryLoader loads the stored geometry of one trail. found is false when
// the trail does not exist.
type GeometryLoader interface {
	TrailGeometry(ctx context.Context, id string) (g orb.Geometry, found bool, err error)
}

// PreviewService renders trail previews through an in-memory LRU cache keyed
// by trail id and image size.
type PreviewService struct {
	loader  GeometryLoader
	cache   *lruCache
	metrics *observability.Metrics
}

// NewPreviewService creates a caching preview renderer. maxEntries <= 0
// disables caching.
func NewPreviewService(loader GeometryLoader, maxEntries int, metrics *observability.Metrics, clock clockwork.Clock) *PreviewService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PreviewService{
		loader:  loader,
		cache:   newLRUCache(maxEntries, previewTTL, clock),
		metrics: metrics,
	}
}

// Preview returns the SVG for trail id. found is false for unknown trails,
// which are never cached.
func (p *PreviewService) Preview(ctx context.Context, id string, width, height int) (svg []byte, found bool, err error) {
	key := fmt.Sprintf("%s|%dx%d", id, width, height)
	if svg, ok := p.cache.get(key); ok {
		p.metrics.PreviewCache.WithLabelValues("hit").Inc()
		return svg, true, nil
	}
	p.metrics.PreviewCache.WithLabelValues("miss").Inc()

	g, found, err := p.loader.TrailGeometry(ctx, id)
	if err != nil || !found {
		return nil, found, err
	}
	svg = preview.Render(g, width, height)
	p.cache.put(key, svg)
	return svg, true, nil
}

// lruCache is a thread-safe LRU cache of rendered previews whose entries
// expire after ttl.
type lruCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key     string
	value   []byte
	expires time.Time
	prev    *entry
	next    *entry
}

func newLRUCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)
		c.remove(e)
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []byte) {
	if c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
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
