// Package throttle implements the bounded, expiry-ordered maps that gate
// which name servers may be contacted: per-(server,name,qtype) throttling,
// per-server EDNS compatibility mode, and saturating failure counters.
package throttle

import (
	"container/heap"
	"sync"
	"time"
)

type entry[K comparable] struct {
	key    K
	expiry time.Time
	count  uint32
	index  int // position in the expiry heap
}

// expiryHeap orders *entry[K] by ascending expiry, giving Throttle an
// ordered-by-expiry index alongside the primary key map, the same two
// orderings pdns keeps via a multi_index_container.
type expiryHeap[K comparable] []*entry[K]

func (h expiryHeap[K]) Len() int            { return len(h) }
func (h expiryHeap[K]) Less(i, j int) bool  { return h[i].expiry.Before(h[j].expiry) }
func (h expiryHeap[K]) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *expiryHeap[K]) Push(x interface{}) { e := x.(*entry[K]); e.index = len(*h); *h = append(*h, e) }
func (h *expiryHeap[K]) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Throttle tracks (key -> expiry, remaining-count) triples. The triple key
// form lets callers throttle per-(server,target,qtype) or globally per
// server using a sentinel target/qtype, exactly as spec.md's Throttle
// entry.
type Throttle[K comparable] struct {
	mu      sync.Mutex
	byKey   map[K]*entry[K]
	byExpir expiryHeap[K]
}

// New returns an empty Throttle.
func New[K comparable]() *Throttle[K] {
	return &Throttle[K]{byKey: make(map[K]*entry[K])}
}

// ShouldThrottle reports whether key is currently throttled. On a positive
// match the remaining count is decremented; once exhausted, or once its
// expiry has passed, the entry is erased.
func (t *Throttle[K]) ShouldThrottle(now time.Time, key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byKey[key]
	if !ok {
		return false
	}
	if now.After(e.expiry) || e.count == 0 {
		t.erase(e)
		return false
	}
	e.count--
	return true
}

// Throttle upserts an entry for key. Per DESIGN NOTES, on an existing entry
// this takes the max of expiry and the max of count *independently* —
// reproducing the source's documented quirk rather than "fixing" it, since
// the two may then describe an entry that outlives either input's intent.
func (t *Throttle[K]) Throttle(now time.Time, key K, ttl time.Duration, count uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ttd := now.Add(ttl)
	e, ok := t.byKey[key]
	if !ok {
		e = &entry[K]{key: key, expiry: ttd, count: count}
		t.byKey[key] = e
		heap.Push(&t.byExpir, e)
		return
	}
	if ttd.After(e.expiry) || count > e.count {
		if ttd.After(e.expiry) {
			e.expiry = ttd
		}
		if count > e.count {
			e.count = count
		}
		heap.Fix(&t.byExpir, e.index)
	}
}

// Size returns the number of entries currently tracked.
func (t *Throttle[K]) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byKey)
}

// Clear removes all entries.
func (t *Throttle[K]) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byKey = make(map[K]*entry[K])
	t.byExpir = nil
}

// Prune removes every entry whose expiry has passed, in expiry order, via
// the secondary heap — the cheap walk pdns gets from its ordered index.
func (t *Throttle[K]) Prune(now time.Time) (erased int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for len(t.byExpir) > 0 && !t.byExpir[0].expiry.After(now) {
		e := heap.Pop(&t.byExpir).(*entry[K])
		delete(t.byKey, e.key)
		erased++
	}
	return
}

func (t *Throttle[K]) erase(e *entry[K]) {
	delete(t.byKey, e.key)
	heap.Remove(&t.byExpir, e.index)
}
