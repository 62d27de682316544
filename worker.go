// Package resolver implements an iterative, QNAME-minimizing DNS resolver
// using github.com/miekg/dns for wire format, with per-worker decaying
// server-speed/throttle/EDNS state and a handful of items shared across
// workers behind their own locks.
package resolver

//go:generate go run ./cmd/genhints roothints.go

import (
	"net"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nsloop/recur/authdomain"
	"github.com/nsloop/recur/dnscache"
	"github.com/nsloop/recur/dnssec"
	"github.com/nsloop/recur/nsstate/ewma"
	"github.com/nsloop/recur/nsstate/throttle"
	"github.com/nsloop/recur/rconfig"
	"github.com/nsloop/recur/taskqueue"
	"github.com/nsloop/recur/transport"
)

// throttleKey identifies a throttled (server, target-name, qtype) triple,
// per spec.md §3's Throttle entry.
type throttleKey struct {
	Server netip.Addr
	Target string
	Qtype  uint16
}

// Shared holds exactly the three items spec.md §5 says must be shared
// across workers, each behind its own mutex with the critical section
// limited to the map operation — plus the lock-free auth-domain snapshot.
type Shared struct {
	Fails        *throttle.Counters[netip.Addr] // global per-server failure counts
	NonResolving *throttle.Counters[string]      // non-resolving NS names
	Queue        *taskqueue.Queue
	Zones        *authdomain.Holder
}

// NewShared returns a Shared with empty state and an empty zone map.
func NewShared() *Shared {
	return &Shared{
		Fails:        throttle.NewCounters[netip.Addr](),
		NonResolving: throttle.NewCounters[string](),
		Queue:        taskqueue.New(),
		Zones:        authdomain.NewHolder(),
	}
}

// Worker is the per-goroutine resolution context: its own decaying
// server-speed, throttle, and EDNS-status maps, created fresh per Worker
// and discarded when it's done, plus the collaborators injected from the
// outside (transport, cache, DNSSEC verifier, limits).
type Worker struct {
	*Shared
	proxy.ContextDialer

	Transport transport.Transport
	DoT       transport.Transport // optional DNS-over-TLS transport for authdomain.Domain.ForwardDoT zones
	Cache     *dnscache.Memory
	Verifier  dnssec.Verifier
	Limits    rconfig.Limits

	mu          sync.RWMutex // protects the fields below
	useIPv4     bool
	useIPv6     bool
	useUDP      bool
	rootServers []netip.Addr

	dontQuery []netip.Prefix // parsed from Limits.DontQuery, never mutated after NewWorker

	speeds   *ewma.Collections
	throttle *throttle.Throttle[throttleKey]
	edns     *throttle.EDNSStatus
}

// NewWorker returns a Worker seeded with the IANA root servers and the
// given shared state, limits, cache, transport, and DNSSEC verifier.
func NewWorker(shared *Shared, limits rconfig.Limits, cache *dnscache.Memory, tr transport.Transport, verifier dnssec.Verifier) *Worker {
	var roots []netip.Addr
	roots = append(roots, Roots4...)
	roots = append(roots, Roots6...)
	var blocked []netip.Prefix
	for _, cidr := range limits.DontQuery {
		if p, err := netip.ParsePrefix(cidr); err == nil {
			blocked = append(blocked, p)
		}
	}
	return &Worker{
		Shared:        shared,
		ContextDialer: &net.Dialer{},
		Transport:     tr,
		Cache:         cache,
		Verifier:      verifier,
		Limits:        limits,
		useIPv4:       limits.UseIPv4 && len(Roots4) > 0,
		useIPv6:       limits.UseIPv6 && len(Roots6) > 0,
		useUDP:        true,
		rootServers:   roots,
		dontQuery:     blocked,
		speeds:        ewma.NewCollections(),
		throttle:      throttle.New[throttleKey](),
		edns:          throttle.NewEDNSStatus(),
	}
}

// isBlocked reports whether addr falls inside one of Limits.DontQuery's
// netmasks, per spec.md §6.
func (w *Worker) isBlocked(addr netip.Addr) bool {
	for _, p := range w.dontQuery {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (w *Worker) addrPort(addr netip.Addr) netip.AddrPort {
	port := w.Limits.DNSPort
	if port == 0 {
		port = 53
	}
	return netip.AddrPortFrom(addr, port)
}

func (w *Worker) timeout() time.Duration {
	if w.Limits.Timeout > 0 {
		return w.Limits.Timeout
	}
	return 3 * time.Second
}
