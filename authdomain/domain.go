// Package authdomain serves answers from a locally loaded authoritative
// zone map, or forwards them statically — the engine's "auth zone / out of
// band" collaborator (spec.md §4.5), ported from pdns's SyncRes::AuthDomain.
package authdomain

import (
	"net/netip"
	"sort"
	"strings"

	"github.com/miekg/dns"
)

type record struct {
	name  string // lowercase, FQDN
	qtype uint16
	rr    dns.RR
}

// Domain is one authoritative or forward zone. Its record index is kept
// sorted by (name, type) — the Go stand-in for pdns's
// composite_key<name, type> ordered multi_index_container — and located by
// binary search rather than a tree.
type Domain struct {
	Name             string
	records          []record // sorted by (name, qtype)
	Forwarders       []netip.Addr
	ForwardRecursive bool
	ForwardDoT       bool // forwarders speak DNS-over-TLS rather than plain UDP/TCP
	soa              *dns.SOA
}

// New returns an empty Domain for zone name, expecting records to be
// loaded via AddRecord before use.
func New(name string) *Domain {
	return &Domain{Name: strings.ToLower(dns.Fqdn(name))}
}

// AddRecord inserts rr into the domain's record index, keeping it sorted.
func (d *Domain) AddRecord(rr dns.RR) {
	rec := record{name: strings.ToLower(rr.Header().Name), qtype: rr.Header().Rrtype, rr: rr}
	if soa, ok := rr.(*dns.SOA); ok && strings.EqualFold(rr.Header().Name, d.Name) {
		d.soa = soa
	}
	i := sort.Search(len(d.records), func(i int) bool { return !less(d.records[i], rec) })
	d.records = append(d.records, record{})
	copy(d.records[i+1:], d.records[i:])
	d.records[i] = rec
}

func less(a, b record) bool {
	if a.name != b.name {
		return a.name < b.name
	}
	return a.qtype < b.qtype
}

// IsAuth reports whether this zone is served authoritatively (no
// forwarders configured).
func (d *Domain) IsAuth() bool { return len(d.Forwarders) == 0 }

// IsForward reports whether this zone forwards to configured servers.
func (d *Domain) IsForward() bool { return !d.IsAuth() }

// ShouldRecurse reports whether outbound forwarded queries should carry RD.
func (d *Domain) ShouldRecurse() bool { return d.ForwardRecursive }

// GetRecords returns the records matching (qname, qtype). ANY returns every
// type held for qname. If nothing matches but qname is Z or a
// descendant of Z, the zone's SOA is returned to let the caller synthesize
// NODATA/NXDOMAIN.
func (d *Domain) GetRecords(qname string, qtype uint16) (matches []dns.RR, soa *dns.SOA) {
	qname = strings.ToLower(dns.Fqdn(qname))
	lo, hi := d.boundsFor(qname)
	for i := lo; i < hi; i++ {
		rec := d.records[i]
		if qtype == dns.TypeANY || rec.qtype == qtype {
			matches = append(matches, rec.rr)
		}
	}
	if len(matches) == 0 && (qname == d.Name || strings.HasSuffix(qname, "."+d.Name)) {
		soa = d.soa
	}
	return
}

// boundsFor returns the half-open index range of records whose name equals
// qname, via two binary searches over the (name, type)-sorted index.
func (d *Domain) boundsFor(qname string) (lo, hi int) {
	lo = sort.Search(len(d.records), func(i int) bool { return d.records[i].name >= qname })
	hi = sort.Search(len(d.records), func(i int) bool { return d.records[i].name > qname })
	return
}
