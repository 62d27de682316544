// Package dnscache holds the answer, negative, and packet caches the
// resolution engine consults before sending anything on the wire, per
// spec.md §6. Memory is the default implementation of all three,
// adapted from linkdata-resolver's cache package: qtype-sharded maps with
// per-entry expiry, no background eviction goroutine.
package dnscache

import (
	"time"

	"github.com/miekg/dns"
)

const (
	DefaultMinTTL = 10 * time.Second
	DefaultMaxTTL = 6 * time.Hour
	DefaultNXTTL  = time.Hour
	maxQtype      = 260
)

// Positive answers successful (NOERROR, non-empty) lookups.
type Positive interface {
	Get(qname string, qtype uint16) (msg *dns.Msg, ok bool)
	Set(msg *dns.Msg)
}

// Negative answers NXDOMAIN/NODATA lookups, held separately so an
// authoritative zone's SOA-derived negative TTL never collides with the
// positive cache's TTL rules.
type Negative interface {
	Get(qname string, qtype uint16) (soa *dns.SOA, ok bool)
	Set(qname string, qtype uint16, soa *dns.SOA, ttl time.Duration)
}

// Packet caches whole wire-format responses keyed by Fingerprint, for
// identical queries arriving with the same (name, type, class, ECS,
// DO-bit) tuple — spec.md §6's "packet cache".
type Packet interface {
	Get(fp uint64) (msg *dns.Msg, ok bool)
	Set(fp uint64, msg *dns.Msg, ttl time.Duration)
}

// Memory is the module's default cache, combining a Positive, a
// Negative, and a Packet implementation behind one handle.
type Memory struct {
	pos *posCache
	neg *negCache
	pkt *pktCache
}

// NewMemory returns a Memory cache with spec.md's default TTL bounds.
func NewMemory() *Memory {
	return NewMemoryWithLimits(DefaultMinTTL, DefaultMaxTTL, DefaultNXTTL)
}

// NewMemoryWithLimits returns a Memory cache whose TTL floor/ceiling and
// negative-answer TTL come from the caller's configuration, per
// rconfig.Limits' MinTTL/MaxTTL/NXTTL.
func NewMemoryWithLimits(minTTL, maxTTL, nxTTL time.Duration) *Memory {
	return &Memory{
		pos: newPosCache(minTTL, maxTTL),
		neg: newNegCache(nxTTL),
		pkt: newPktCache(),
	}
}

// MinTTL returns the configured positive-cache TTL floor.
func (m *Memory) MinTTL() time.Duration { return m.pos.minTTL }

// MaxTTL returns the configured positive-cache TTL ceiling.
func (m *Memory) MaxTTL() time.Duration { return m.pos.maxTTL }

// Positive returns the Positive-cache view of m.
func (m *Memory) Positive() Positive { return m.pos }

// Negative returns the Negative-cache view of m.
func (m *Memory) Negative() Negative { return m.neg }

// Packet returns the Packet-cache view of m.
func (m *Memory) Packet() Packet { return m.pkt }

// HitRatio returns the positive-cache hit ratio as a percentage.
func (m *Memory) HitRatio() float64 { return m.pos.hitRatio() }

// Entries returns the number of live positive-cache entries.
func (m *Memory) Entries() int { return m.pos.entries() }

// Clear empties every cache.
func (m *Memory) Clear() {
	m.pos.clear()
	m.neg.clear()
	m.pkt.clear()
}

// Clean evicts expired entries from every cache without waiting for a Get.
func (m *Memory) Clean() {
	now := time.Now()
	m.pos.clean(now)
	m.neg.clean(now)
	m.pkt.clean(now)
}

func minDNSMsgTTL(msg *dns.Msg) int {
	minTTL := -1
	consider := func(rrs []dns.RR) {
		for _, rr := range rrs {
			if rr == nil || rr.Header().Rrtype == dns.TypeOPT {
				continue
			}
			ttl := int(rr.Header().Ttl)
			if minTTL < 0 || ttl < minTTL {
				minTTL = ttl
			}
		}
	}
	consider(msg.Answer)
	consider(msg.Ns)
	consider(msg.Extra)
	return minTTL
}
