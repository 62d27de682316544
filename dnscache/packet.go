package dnscache

import (
	"strconv"
	"time"

	"github.com/miekg/dns"
)

// pktCache stores whole responses keyed by a precomputed Fingerprint, for
// replaying identical queries without re-walking the positive/negative
// caches or the delegation chain.
type pktCache struct {
	s *shard[*dns.Msg]
}

func newPktCache() *pktCache {
	return &pktCache{s: newGenericShard[*dns.Msg]()}
}

func fpKey(fp uint64) string {
	return strconv.FormatUint(fp, 16)
}

func (p *pktCache) Get(fp uint64) (*dns.Msg, bool) {
	return p.s.get(fpKey(fp))
}

func (p *pktCache) Set(fp uint64, msg *dns.Msg, ttl time.Duration) {
	if msg == nil || ttl <= 0 {
		return
	}
	p.s.set(fpKey(fp), msg.Copy(), ttl)
}

func (p *pktCache) clear()              { p.s.clear() }
func (p *pktCache) clean(now time.Time) { p.s.clean(now) }
