package collision

import (
	"encoding/binary"
	"math"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// polygonKey addresses a polygon by its world-space vertices.
type polygonKey struct {
	sum uint64
	n   int
}

type cacheEntry struct {
	vertices []float32
	tris     [][6]float32
}

// Cache keeps triangulations across queries, keyed by polygon content, so
// two bodies share an entry only when their vertices are identical. It is
// bounded and evicts the oldest entries first. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[polygonKey]cacheEntry
	ring    []polygonKey
	next    int
	limit   int

	hits, misses uint64
}

// NewCache creates a cache holding at most limit polygon triangulations.
func NewCache(limit int) *Cache {
	limit = max(limit, 1)
	return &Cache{
		entries: make(map[polygonKey]cacheEntry, limit),
		ring:    make([]polygonKey, 0, limit),
		limit:   limit,
	}
}

// CacheStats is a snapshot of cache usage.
type CacheStats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// Stats returns current cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}

func keyOf(polygon []float32) polygonKey {
	buf := make([]byte, 0, 4*len(polygon))
	for _, v := range polygon {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return polygonKey{sum: xxhash.Sum64(buf), n: len(polygon)}
}

func (c *Cache) get(polygon []float32) ([][6]float32, bool) {
	k := keyOf(polygon)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok || !slices.Equal(e.vertices, polygon) {
		c.misses++
		return nil, false
	}
	c.hits++
	return e.tris, true
}

func (c *Cache) put(polygon []float32, tris [][6]float32) {
	k := keyOf(polygon)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[k]; ok {
		// Same key: a hash collision or a racing put. Keep the first.
		return
	}
	if len(c.ring) < c.limit {
		c.ring = append(c.ring, k)
	} else {
		delete(c.entries, c.ring[c.next])
		c.ring[c.next] = k
		c.next = (c.next + 1) % c.limit
	}
	c.entries[k] = cacheEntry{vertices: slices.Clone(polygon), tris: tris}
}
