package ewma

import (
	"net/netip"
	"testing"
	"time"
)

func TestValueInitializesOnFirstSubmit(t *testing.T) {
	c := NewCollection()
	addr := netip.MustParseAddr("192.0.2.1")
	now := time.Now()
	c.Submit(addr, 100, now)
	if x := c.Peek(addr); x != 100 {
		t.Fatalf("expected 100, got %v", x)
	}
}

func TestSubmitBlendsWithDecayingFactor(t *testing.T) {
	c := NewCollection()
	addr := netip.MustParseAddr("192.0.2.1")
	now := time.Now()
	c.Submit(addr, 100, now)
	later := now.Add(time.Second)
	c.Submit(addr, 50, later)
	v := c.Peek(addr)
	if v <= 50 || v >= 100 {
		t.Fatalf("expected blended value between 50 and 100, got %v", v)
	}
}

func TestGetReturnsMinimumAcrossAddresses(t *testing.T) {
	c := NewCollection()
	a1 := netip.MustParseAddr("192.0.2.1")
	a2 := netip.MustParseAddr("192.0.2.2")
	now := time.Now()
	c.Submit(a1, 200, now)
	c.Submit(a2, 50, now)
	if got := c.Get(now); got != 50 {
		t.Fatalf("expected min 50, got %v", got)
	}
}

func TestGetIsMonotoneNonIncreasingWithoutSubmissions(t *testing.T) {
	c := NewCollection()
	addr := netip.MustParseAddr("192.0.2.1")
	now := time.Now()
	c.Submit(addr, 100, now)
	first := c.Get(now)
	second := c.Get(now.Add(30 * time.Second))
	third := c.Get(now.Add(90 * time.Second))
	if !(first >= second && second >= third) {
		t.Fatalf("expected monotone non-increasing sequence, got %v %v %v", first, second, third)
	}
}

func TestPurgeDropsAddressesNotInKeepSet(t *testing.T) {
	c := NewCollection()
	a1 := netip.MustParseAddr("192.0.2.1")
	a2 := netip.MustParseAddr("192.0.2.2")
	now := time.Now()
	c.Submit(a1, 10, now)
	c.Submit(a2, 20, now)
	c.Purge(map[netip.Addr]struct{}{a1: {}})
	if x := c.Peek(a2); x != 0 {
		t.Fatalf("expected a2 purged, got %v", x)
	}
	if x := c.Peek(a1); x != 10 {
		t.Fatalf("expected a1 kept, got %v", x)
	}
}

func TestCollectionsStaleByLastGet(t *testing.T) {
	cs := NewCollections()
	addr := netip.MustParseAddr("192.0.2.1")
	now := time.Now()
	cs.Submit("ns1.example.", addr, 10, now)
	cs.Get("ns1.example.", now)
	cs.PruneStale(now.Add(-time.Minute))
	if cs.Size() != 1 {
		t.Fatalf("expected collection kept, size=%d", cs.Size())
	}
	cs.PruneStale(now.Add(time.Minute))
	if cs.Size() != 0 {
		t.Fatalf("expected collection pruned, size=%d", cs.Size())
	}
}
