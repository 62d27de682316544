package dnscache

import (
	"strconv"
	"time"

	"github.com/miekg/dns"
)

// negCache holds NXDOMAIN/NODATA results keyed by (qname, qtype), each
// entry carrying the zone SOA a caller needs to synthesize the response
// again without re-querying.
type negCache struct {
	defaultTTL time.Duration
	s          *shard[*dns.SOA]
}

func newNegCache(defaultTTL time.Duration) *negCache {
	return &negCache{defaultTTL: defaultTTL, s: newGenericShard[*dns.SOA]()}
}

func negKey(qname string, qtype uint16) string {
	return dns.CanonicalName(qname) + "|" + strconv.FormatUint(uint64(qtype), 10)
}

func (n *negCache) Get(qname string, qtype uint16) (*dns.SOA, bool) {
	return n.s.get(negKey(qname, qtype))
}

func (n *negCache) Set(qname string, qtype uint16, soa *dns.SOA, ttl time.Duration) {
	if ttl <= 0 {
		ttl = n.defaultTTL
	}
	n.s.set(negKey(qname, qtype), soa, ttl)
}

func (n *negCache) clear()            { n.s.clear() }
func (n *negCache) clean(now time.Time) { n.s.clean(now) }
