// Package ewma tracks decaying exponentially-weighted moving averages of
// round-trip times, one per (name server name, address) pair. Decay happens
// only on read, so no background sweeper is needed to keep values fresh.
package ewma

import (
	"math"
	"net/netip"
	"sync"
	"time"
)

// Value is a single decaying EWMA, keyed by nothing (the key lives in the
// owning Collection). Submitting a sample when the value has never been
// touched initializes it rather than blending it in.
type Value struct {
	last time.Time
	val  float64
}

func (v *Value) submit(usec float64, now time.Time) {
	if v.last.IsZero() {
		v.val = usec
	} else {
		dt := v.last.Sub(now).Seconds() // <= 0
		factor := math.Exp(dt) / 2
		v.val = (1-factor)*usec + factor*v.val
	}
	v.last = now
}

// Peek returns the stored value with no decay side effect.
func (v *Value) Peek() float64 {
	return v.val
}

// Collection holds the per-address EWMAs for a single name server name.
type Collection struct {
	mu      sync.Mutex
	byAddr  map[netip.Addr]*Value
	lastGet time.Time
}

// NewCollection returns an empty per-NS collection.
func NewCollection() *Collection {
	return &Collection{byAddr: make(map[netip.Addr]*Value)}
}

// Submit records a new round-trip sample in microseconds for addr.
func (c *Collection) Submit(addr netip.Addr, usec float64, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.byAddr[addr]
	if !ok {
		v = &Value{}
		c.byAddr[addr] = v
	}
	v.submit(usec, now)
}

// factor returns the collection-wide decay applied at read time: exp((lastGet-now)/60), always <= 1.0.
func (c *Collection) factor(now time.Time) float64 {
	if c.lastGet.IsZero() {
		return 1
	}
	dt := c.lastGet.Sub(now).Seconds() / 60
	return math.Exp(dt)
}

// Get returns the minimum decayed EWMA across all known addresses, and
// updates the collection's last-get timestamp. Returns 0 if no addresses
// have ever been submitted.
func (c *Collection) Get(now time.Time) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.byAddr) == 0 {
		return 0
	}
	if c.lastGet.IsZero() {
		c.lastGet = now
	}
	factor := c.factor(now)
	best := math.MaxFloat64
	for _, v := range c.byAddr {
		v.val *= factor
		if v.val < best {
			best = v.val
		}
	}
	c.lastGet = now
	return best
}

// Peek returns the current stored value for addr with no decay side effect.
func (c *Collection) Peek(addr netip.Addr) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.byAddr[addr]; ok {
		return v.Peek()
	}
	return 0
}

// Purge removes addresses absent from keep.
func (c *Collection) Purge(keep map[netip.Addr]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for addr := range c.byAddr {
		if _, ok := keep[addr]; !ok {
			delete(c.byAddr, addr)
		}
	}
}

// Stale reports whether this collection hasn't been read since before cutoff.
func (c *Collection) Stale(cutoff time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastGet.Before(cutoff)
}

// Collections is the per-worker map of NS name -> Collection, the Go
// analogue of pdns's nsspeeds_t.
type Collections struct {
	mu sync.Mutex
	m  map[string]*Collection
}

// NewCollections returns an empty NS-speed map.
func NewCollections() *Collections {
	return &Collections{m: make(map[string]*Collection)}
}

func (c *Collections) get(ns string) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	coll, ok := c.m[ns]
	if !ok {
		coll = NewCollection()
		c.m[ns] = coll
	}
	return coll
}

// Submit records a round-trip sample for (ns, addr).
func (c *Collections) Submit(ns string, addr netip.Addr, usec float64, now time.Time) {
	c.get(ns).Submit(addr, usec, now)
}

// Get returns the minimum decayed EWMA for ns across all known addresses.
func (c *Collections) Get(ns string, now time.Time) float64 {
	c.mu.Lock()
	coll, ok := c.m[ns]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	return coll.Get(now)
}

// Peek returns the raw stored value for (ns, addr) with no decay side effect.
func (c *Collections) Peek(ns string, addr netip.Addr) float64 {
	c.mu.Lock()
	coll, ok := c.m[ns]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	return coll.Peek(addr)
}

// Purge drops addresses from ns's collection that are absent from keep.
func (c *Collections) Purge(ns string, keep map[netip.Addr]struct{}) {
	c.mu.Lock()
	coll, ok := c.m[ns]
	c.mu.Unlock()
	if ok {
		coll.Purge(keep)
	}
}

// PruneStale removes NS collections that have not been read since cutoff.
func (c *Collections) PruneStale(cutoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ns, coll := range c.m {
		if coll.Stale(cutoff) {
			delete(c.m, ns)
		}
	}
}

// Size returns the number of tracked name servers.
func (c *Collections) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Clear empties the map.
func (c *Collections) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string]*Collection)
}
