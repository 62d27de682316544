package throttle

import (
	"container/heap"
	"net/netip"
	"sync"
	"time"
)

// Mode is the observed EDNS compatibility of a server.
type Mode int

const (
	Unknown Mode = iota
	OK
	Ignorant
	NoEDNS
)

type ednsEntry struct {
	addr      netip.Addr
	mode      Mode
	modeSetAt time.Time
	index     int
}

type ednsHeap []*ednsEntry

func (h ednsHeap) Len() int            { return len(h) }
func (h ednsHeap) Less(i, j int) bool  { return h[i].modeSetAt.Before(h[j].modeSetAt) }
func (h ednsHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *ednsHeap) Push(x interface{}) { e := x.(*ednsEntry); e.index = len(*h); *h = append(*h, e) }
func (h *ednsHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// EDNSStatus tracks the observed EDNS compatibility of each server address,
// prunable by the age of when its mode was last set.
type EDNSStatus struct {
	mu     sync.Mutex
	byAddr map[netip.Addr]*ednsEntry
	byAge  ednsHeap
}

// NewEDNSStatus returns an empty EDNS status map.
func NewEDNSStatus() *EDNSStatus {
	return &EDNSStatus{byAddr: make(map[netip.Addr]*ednsEntry)}
}

// Get returns the current mode for addr, or Unknown if never observed.
func (s *EDNSStatus) Get(addr netip.Addr) Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byAddr[addr]; ok {
		return e.mode
	}
	return Unknown
}

// SetMode records a new observed mode for addr.
func (s *EDNSStatus) SetMode(addr netip.Addr, mode Mode, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byAddr[addr]
	if !ok {
		e = &ednsEntry{addr: addr, modeSetAt: now}
		s.byAddr[addr] = e
		heap.Push(&s.byAge, e)
	}
	e.mode = mode
	s.setTS(e, now)
}

func (s *EDNSStatus) setTS(e *ednsEntry, now time.Time) {
	e.modeSetAt = now
	heap.Fix(&s.byAge, e.index)
}

// Size returns the number of tracked addresses.
func (s *EDNSStatus) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byAddr)
}

// Clear removes every tracked address.
func (s *EDNSStatus) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAddr = make(map[netip.Addr]*ednsEntry)
	s.byAge = nil
}

// Prune removes every entry whose mode was set before cutoff.
func (s *EDNSStatus) Prune(cutoff time.Time) (erased int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.byAge) > 0 && s.byAge[0].modeSetAt.Before(cutoff) {
		e := heap.Pop(&s.byAge).(*ednsEntry)
		delete(s.byAddr, e.addr)
		erased++
	}
	return
}
