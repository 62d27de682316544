package dnscache

import (
	"sync/atomic"
	"time"

	"github.com/miekg/dns"
)

// posCache shards positive answers by qtype, exactly as linkdata-resolver's
// Cache shards its cache []*cacheQtype slice, so a busy qtype's lock
// contention never touches the others.
type posCache struct {
	minTTL time.Duration
	maxTTL time.Duration
	count  atomic.Uint64
	hits   atomic.Uint64
	byType []*shard[*dns.Msg]
}

func newPosCache(minTTL, maxTTL time.Duration) *posCache {
	byType := make([]*shard[*dns.Msg], maxQtype+1)
	for i := range byType {
		byType[i] = newGenericShard[*dns.Msg]()
	}
	return &posCache{minTTL: minTTL, maxTTL: maxTTL, byType: byType}
}

func (p *posCache) Get(qname string, qtype uint16) (*dns.Msg, bool) {
	p.count.Add(1)
	if qtype > maxQtype {
		return nil, false
	}
	msg, ok := p.byType[qtype].get(dns.CanonicalName(qname))
	if ok {
		p.hits.Add(1)
	}
	return msg, ok
}

func (p *posCache) Set(msg *dns.Msg) {
	if msg == nil || msg.Rcode != dns.RcodeSuccess || len(msg.Question) != 1 || len(msg.Answer) == 0 {
		return
	}
	qtype := msg.Question[0].Qtype
	if qtype > maxQtype {
		return
	}
	clone := msg.Copy()
	ttl := max(p.minTTL, time.Duration(minDNSMsgTTL(clone))*time.Second)
	if qtype != dns.TypeNS {
		ttl = min(p.maxTTL, ttl)
	}
	p.byType[qtype].set(dns.CanonicalName(clone.Question[0].Name), clone, ttl)
}

func (p *posCache) hitRatio() float64 {
	if count := p.count.Load(); count > 0 {
		return float64(p.hits.Load()*100) / float64(count)
	}
	return 0
}

func (p *posCache) entries() (n int) {
	for _, s := range p.byType {
		n += s.entries()
	}
	return
}

func (p *posCache) clear() {
	for _, s := range p.byType {
		s.clear()
	}
}

func (p *posCache) clean(now time.Time) {
	for _, s := range p.byType {
		s.clean(now)
	}
}
