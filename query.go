package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/nsloop/recur/authdomain"
	"github.com/nsloop/recur/dnscache"
	"github.com/nsloop/recur/dnssec"
	"github.com/nsloop/recur/nsstate/throttle"
	"github.com/nsloop/recur/transport"
)

// query is the per-invocation state threaded through one Resolve call: a
// loop-protection budget (depth, outgoing-query count) and a running
// DNSSEC validation-state accumulator, layered on top of the Worker's
// longer-lived decaying state.
type query struct {
	*Worker
	ctx      context.Context
	writer   io.Writer
	start    time.Time
	depth    int
	queries  int
	valState dnssec.Result
}

const maxQueries = 1024 // max queries to make for a single resolve, spec.md §4.4 Budget

var ErrTooManyQueries = errors.New("resolver: too many queries, possible loop")

func (q *query) dive() (err error) {
	q.depth++
	limit := q.Limits.MaxDepth
	if limit <= 0 {
		limit = 16
	}
	if q.depth > limit {
		err = newOutcome(OutcomeResourceLimit, "recursion depth exceeded", nil)
	}
	return
}

func (q *query) surface() {
	q.depth--
}

// resolve is the engine's recursive entry point for one (qname, qtype)
// pair: auth-zone dispatch, cache consultation, then the delegation walk
// down from the root, per spec.md §4.4 steps 2-6. There is no special-name
// step: reserved names such as localhost get no local answer and are
// resolved like any other name.
func (q *query) resolve(qname string, qtype uint16) (resp *dns.Msg, srv netip.Addr, err error) {
	if err = q.dive(); err == nil {
		defer q.surface()
		q.logf("RESOLVE %s %q\n", dns.Type(qtype), qname)

		if resp, srv, handled := q.tryAuthDomain(qname, qtype); handled {
			return resp, srv, nil
		}

		if resp, ok := q.cacheLookup(qname, qtype); ok {
			return resp, netip.Addr{}, nil
		}

		servers := append([]netip.Addr(nil), q.rootServers...)
		labels := dns.SplitDomainName(qname)

		qminSteps := q.Limits.MaxQMinSteps
		if qminSteps <= 0 {
			qminSteps = 32
		}

		var parentResp *dns.Msg
		steps := 0
		for i := len(labels) - 1; i >= 0; i-- {
			if steps >= qminSteps {
				q.logf("qmin step budget exhausted qname=%s", qname)
				break
			}
			steps++
			zone := dns.Fqdn(strings.Join(labels[i:], "."))
			nsSet, nextAddrs, stepResp, stepErr := q.queryForDelegation(zone, servers, qname)
			parentResp = stepResp
			if stepErr != nil {
				q.logf("delegation error zone=%s err=%v", zone, stepErr)
				return nil, netip.Addr{}, stepErr
			}

			if zone == qname {
				targetServers := nextAddrs
				if len(targetServers) == 0 {
					targetServers = servers
				}
				return q.queryFinal(qname, qtype, targetServers, parentResp)
			}

			if len(nsSet) == 0 {
				if parentResp != nil && parentResp.Rcode == dns.RcodeNameError {
					q.logf("delegation NXDOMAIN zone=%s continuing", zone)
					return q.queryFinal(qname, qtype, servers, parentResp)
				}
				q.logf("delegation empty ns zone=%s", zone)
				continue
			}
			servers = nextAddrs
		}
		return q.queryFinal(qname, qtype, servers, parentResp)
	}
	return
}

// tryAuthDomain serves qname out of a locally loaded authoritative zone, or
// forwards it to the zone's configured forwarders, per spec.md §4.5,
// bypassing the iterative walk entirely either way.
func (q *query) tryAuthDomain(qname string, qtype uint16) (*dns.Msg, netip.Addr, bool) {
	domain, ok := q.Zones.Load().Lookup(qname)
	if !ok {
		return nil, netip.Addr{}, false
	}
	if domain.IsForward() {
		return q.forwardQuery(domain, qname, qtype)
	}
	matches, soa := domain.GetRecords(qname, qtype)
	switch {
	case len(matches) > 0:
		q.logf("authdomain hit qname=%s zone=%s", qname, domain.Name)
		return newResponseMsg(qname, qtype, dns.RcodeSuccess, matches, nil, nil), netip.Addr{}, true
	case soa != nil:
		rcode := dns.RcodeSuccess
		if all, _ := domain.GetRecords(qname, dns.TypeANY); len(all) == 0 {
			rcode = dns.RcodeNameError
		}
		q.logf("authdomain negative qname=%s zone=%s rcode=%s", qname, domain.Name, dns.RcodeToString[rcode])
		return newResponseMsg(qname, qtype, rcode, nil, []dns.RR{soa}, nil), netip.Addr{}, true
	default:
		return nil, netip.Addr{}, false
	}
}

// forwardQuery sends qname/qtype to one of domain's configured forwarders,
// with RD set per domain.ShouldRecurse, ranking candidates the same way the
// iterative walk does.
func (q *query) forwardQuery(domain *authdomain.Domain, qname string, qtype uint16) (*dns.Msg, netip.Addr, bool) {
	m := new(dns.Msg)
	m.SetQuestion(qname, qtype)
	m.RecursionDesired = domain.ShouldRecurse()
	setEDNS(m)
	tr := q.Transport
	if domain.ForwardDoT && q.DoT != nil {
		tr = q.DoT
	}
	for _, svr := range q.rank(domain.Name, qname, qtype, domain.Forwarders) {
		resp, err := q.exchangeVia(domain.Name, m, svr, tr)
		if err != nil || resp == nil {
			q.logf("forward miss zone=%s server=%s err=%v", domain.Name, q.addrPort(svr), err)
			continue
		}
		q.logf("forward hit zone=%s server=%s", domain.Name, q.addrPort(svr))
		q.cacheStore(resp)
		return resp, svr, true
	}
	return nil, netip.Addr{}, false
}

// cacheLookup consults the positive cache and, on miss, the negative cache
// (spec.md §4.4 steps 3-4). A positive hit close to expiry queues a
// background pre-refresh task; a negative hit is replayed as a synthesized
// NXDOMAIN/NODATA answer carrying the cached SOA.
func (q *query) cacheLookup(qname string, qtype uint16) (*dns.Msg, bool) {
	if q.Cache == nil {
		return nil, false
	}
	if msg, ok := q.Cache.Positive().Get(qname, qtype); ok {
		q.maybeQueueRefresh(qname, qtype, msg)
		return msg, true
	}
	if soa, ok := q.Cache.Negative().Get(qname, qtype); ok {
		q.logf("negative cache hit qname=%s qtype=%s", qname, dns.Type(qtype))
		return newResponseMsg(qname, qtype, negativeRcode(qname, soa), nil, []dns.RR{soa}, nil), true
	}
	return nil, false
}

// negativeRcode reports NXDOMAIN when the SOA's owner name differs from
// qname (the name itself doesn't exist), NOERROR/NODATA when it matches
// (the name exists but has no records of this type).
func negativeRcode(qname string, soa *dns.SOA) int {
	if dns.CanonicalName(soa.Hdr.Name) == dns.CanonicalName(qname) {
		return dns.RcodeSuccess
	}
	return dns.RcodeNameError
}

func (q *query) maybeQueueRefresh(qname string, qtype uint16, msg *dns.Msg) {
	pct := q.Limits.RefreshTTLPercent
	if pct <= 0 || len(msg.Answer) == 0 {
		return
	}
	original := time.Duration(msg.Answer[0].Header().Ttl) * time.Second
	if original <= 0 {
		return
	}
	q.Queue.PushAlmostExpiredTask(qname, qtype, time.Now().Add(original), func(ctx context.Context) error {
		return nil // the worker that pops this task re-resolves via its own Worker.Resolve
	})
}

// queryForDelegation performs the QMIN step at `zone` against `parentServers`.
// If servers REFUSE/NOTIMP the minimized NS query, retry with non-QMIN (ask NS for the full qname).
// Returns: (nsOwnerNames, resolvedServerAddrs, lastResponse, error)
func (q *query) queryForDelegation(zone string, parentServers []netip.Addr, fullQname string) (nsOwnerNames []string, resolvedServerAddrs []netip.Addr, last *dns.Msg, err error) {
	if err = q.dive(); err == nil {
		defer q.surface()
		m := new(dns.Msg)
		m.SetQuestion(zone, dns.TypeNS)
		m.RecursionDesired = false
		setEDNS(m)

		refusedSeen := false
		for _, svr := range q.rank(zone, zone, dns.TypeNS, parentServers) {
			serverStr := q.addrPort(svr).String()
			q.logf("delegation query zone=%s server=%s", zone, serverStr)
			resp, err := q.exchange(zone, m, svr)
			if err != nil {
				q.logf("delegation error zone=%s server=%s err=%v", zone, serverStr, err)
				continue
			}
			if resp == nil {
				continue
			}
			last = resp
			q.logf("delegation response zone=%s server=%s rcode=%s", zone, serverStr, dns.RcodeToString[resp.Rcode])

			if resp.Rcode == dns.RcodeRefused || resp.Rcode == dns.RcodeNotImplemented {
				refusedSeen = true
				continue
			}
			if resp.Rcode == dns.RcodeNameError {
				q.cacheStore(resp)
				return nil, nil, resp, nil
			}

			nsOwners := extractDelegationNS(resp, zone)
			if len(nsOwners) == 0 {
				if resp.Rcode == dns.RcodeNameError {
					q.cacheStore(resp)
					return nil, nil, resp, nil
				}
				continue
			}
			addrs := glueAddresses(resp, zone)
			if len(addrs) == 0 {
				addrs = q.resolveNSAddrs(nsOwners)
			}
			if len(addrs) > 0 {
				q.speeds.Purge(zone, addrSet(addrs))
				return nsOwners, addrs, resp, nil
			}
		}
		// Fallback to non-QMIN if we observed REFUSED/NOTIMP
		if refusedSeen {
			q.logf("delegation fallback zone=%s", zone)
			m2 := new(dns.Msg)
			m2.SetQuestion(fullQname, dns.TypeNS)
			m2.RecursionDesired = false
			setEDNS(m2)
			for _, svr := range q.rank(zone, fullQname, dns.TypeNS, parentServers) {
				serverStr := q.addrPort(svr).String()
				q.logf("delegation fallback query full=%s server=%s", fullQname, serverStr)
				resp, err := q.exchange(zone, m2, svr)
				if err != nil {
					q.logf("delegation fallback error full=%s server=%s err=%v", fullQname, serverStr, err)
					continue
				}
				if resp == nil {
					continue
				}
				last = resp
				q.logf("delegation fallback response full=%s server=%s rcode=%s", fullQname, serverStr, dns.RcodeToString[resp.Rcode])
				if resp.Rcode == dns.RcodeNameError {
					q.cacheStore(resp)
					return nil, nil, resp, nil
				}
				nsOwners := extractDelegationNS(resp, fullQname)
				if len(nsOwners) == 0 {
					continue
				}
				addrs := glueAddresses(resp, zone)
				if len(addrs) == 0 {
					addrs = q.resolveNSAddrs(nsOwners)
				}
				if len(addrs) > 0 {
					q.logf("delegation returning zone=%s addrs=%d", fullQname, len(addrs))
					q.speeds.Purge(zone, addrSet(addrs))
					return nsOwners, addrs, resp, nil
				}
			}
		}
	}

	if last == nil {
		return nil, nil, nil, errors.New("resolver: no response from parent servers")
	}
	return
}

// queryFinal asks the authoritative (or closest) servers for the target qname/qtype.
// It also performs CNAME/DNAME chasing, with a loop bound controlled by depth.
func (q *query) queryFinal(qname string, qtype uint16, authServers []netip.Addr, parentResp *dns.Msg) (*dns.Msg, netip.Addr, error) {
	q.logf("final query qname=%s qtype=%s servers=%d", qname, dns.Type(qtype), len(authServers))
	m := new(dns.Msg)
	m.SetQuestion(qname, qtype)
	m.RecursionDesired = false
	setEDNS(m)

	var last *dns.Msg
	var lastServer netip.Addr
	for _, svr := range q.rank(qname, qname, qtype, authServers) {
		resp, err := q.exchange(qname, m, svr)
		if err != nil || resp == nil {
			continue
		}
		last = resp
		lastServer = svr

		switch resp.Rcode {
		case dns.RcodeSuccess:
			q.logf("final success partial qname=%s server=%s", qname, q.addrPort(svr))
			if hasRRType(resp.Answer, qtype) {
				q.logf("final returning answer qname=%s server=%s", qname, q.addrPort(svr))
				q.validateAnswer(qname, qtype, resp)
				q.cacheStore(resp)
				return resp, svr, nil
			}

			if tgt, ok := cnameTarget(resp, qname); ok {
				if err := q.chaseBudget(); err != nil {
					return nil, netip.Addr{}, err
				}
				q.logf("final cname qname=%s target=%s", qname, tgt)
				msg, origin, err := q.resolve(tgt, qtype)
				if err != nil {
					return nil, netip.Addr{}, err
				}
				msg = cloneIfCached(msg)
				prependRecords(msg, resp, qname, cnameChainRecords)
				q.cacheStore(msg)
				return msg, origin, nil
			}

			if tgt, ok := dnameSynthesize(resp, qname); ok {
				if err := q.chaseBudget(); err != nil {
					return nil, netip.Addr{}, err
				}
				q.logf("final dname qname=%s target=%s", qname, tgt)
				msg, origin, err := q.resolve(tgt, qtype)
				if err != nil {
					return nil, netip.Addr{}, err
				}
				msg = cloneIfCached(msg)
				prependRecords(msg, resp, qname, dnameRecords)
				q.cacheStore(msg)
				return msg, origin, nil
			}

			if q.cacheStore(resp) {
				q.logf("final cached soa qname=%s", qname)
				return resp, svr, nil
			}

		case dns.RcodeNameError:
			q.cacheStore(resp)
			q.logf("final NXDOMAIN qname=%s", qname)
			return resp, svr, nil
		}
	}

	if last == nil {
		if parentResp != nil && qtype == dns.TypeNS {
			if answers := delegationRecords(parentResp, qname); len(answers) > 0 {
				q.logf("final parent delegation qname=%s count=%d", qname, len(answers))
				parent := parentResp.Copy()
				parent.Answer = append([]dns.RR(nil), answers...)
				q.cacheStore(parent)
				return parent, netip.Addr{}, nil
			}
		}
		q.logf("final no response qname=%s", qname)
		return nil, netip.Addr{}, errors.New("resolver: no response from authoritative servers")
	}
	q.logf("final completed qname=%s server=%s rcode=%s", qname, q.addrPort(lastServer), dns.RcodeToString[last.Rcode])
	q.cacheStore(last)
	return last, lastServer, nil
}

// validateAnswer folds the validation state of one answer into q.valState,
// per spec.md §4.4 step 9: absent an RRSIG the span is Insecure; present an
// RRSIG, its zone's DNSKEY set is fetched and handed to the injected
// Verifier. DNSSECMode "off" leaves the accumulator untouched.
func (q *query) validateAnswer(qname string, qtype uint16, resp *dns.Msg) {
	if q.Limits.DNSSECMode == "off" || q.Verifier == nil {
		return
	}
	var sigs []*dns.RRSIG
	var covered []dns.RR
	for _, rr := range resp.Answer {
		if sig, ok := rr.(*dns.RRSIG); ok && sig.TypeCovered == qtype {
			sigs = append(sigs, sig)
			continue
		}
		if rr.Header().Rrtype == qtype {
			covered = append(covered, rr)
		}
	}
	if len(sigs) == 0 {
		q.valState = dnssec.Combine(q.valState, dnssec.Ok(dnssec.Insecure))
		return
	}
	zone := dns.Fqdn(sigs[0].SignerName)
	keyMsg, _, err := q.resolve(zone, dns.TypeDNSKEY)
	if err != nil || keyMsg == nil {
		q.valState = dnssec.Combine(q.valState, dnssec.BogusResult(dnssec.BogusMissingKey))
		return
	}
	var keys []*dns.DNSKEY
	for _, rr := range keyMsg.Answer {
		if key, ok := rr.(*dns.DNSKEY); ok {
			keys = append(keys, key)
		}
	}
	if anchors := q.Verifier.TrustAnchors(); len(anchors) > 0 {
		if ds, configured := anchors[zone]; configured && !anyKeyMatchesDS(keys, ds) {
			q.valState = dnssec.Combine(q.valState, dnssec.BogusResult(dnssec.BogusNoValidDS))
			return
		}
	}
	result := q.Verifier.Validate(covered, sigs, keys, time.Now())
	q.valState = dnssec.Combine(q.valState, result)
}

// anyKeyMatchesDS reports whether any of keys hashes, under its DS's digest
// type, to one of the configured DS records for the zone.
func anyKeyMatchesDS(keys []*dns.DNSKEY, anchors []*dns.DS) bool {
	for _, key := range keys {
		for _, ds := range anchors {
			if computed := key.ToDS(ds.DigestType); computed != nil && strings.EqualFold(computed.Digest, ds.Digest) {
				return true
			}
		}
	}
	return false
}

// chaseBudget refuses a further CNAME/DNAME chase once the query's recursion
// depth reaches MaxCNAME. Depth also counts the resolve levels above this
// point, so a top-level query follows at most MaxCNAME-1 links, and a chase
// that starts deeper (e.g. while resolving a name server's address) fewer.
func (q *query) chaseBudget() error {
	limit := q.Limits.MaxCNAME
	if limit <= 0 {
		limit = maxChase
	}
	if q.depth >= limit {
		return newOutcome(OutcomeResourceLimit, "cname/dname chain too deep", ErrCNAMEChainTooDeep)
	}
	return nil
}

const maxChase = 16

var ErrCNAMEChainTooDeep = errors.New("resolver: cname/dname chain too deep")

// resolveNSAddrs minimally resolves NS owner names to addresses by asking the roots → ...
func (q *query) resolveNSAddrs(nsOwners []string) []netip.Addr {
	var addrs []netip.Addr
	limit := q.Limits.MaxNSAddrSub
	if limit <= 0 {
		limit = 32
	}
	nonResolvingCutoff := uint64(q.Limits.ServerDownMaxFails)
	if nonResolvingCutoff == 0 {
		nonResolvingCutoff = 4
	}
	for i, host := range nsOwners {
		if i >= limit {
			break
		}
		host = dns.Fqdn(strings.ToLower(host))
		if q.NonResolving.Value(host) >= nonResolvingCutoff {
			q.logf("resolveNS skipping known non-resolving host=%s", host)
			continue
		}
		var resolved []netip.Addr
		haveIPv4 := false
		if msg, _, err := q.resolve(host, dns.TypeA); err == nil {
			for _, rr := range msg.Answer {
				if a, ok := rr.(*dns.A); ok {
					if addr := ipToAddr(a.A); addr.IsValid() {
						resolved = append(resolved, addr)
						haveIPv4 = true
					}
				}
			}
		}
		if !haveIPv4 {
			if msg, _, err := q.resolve(host, dns.TypeAAAA); err == nil {
				for _, rr := range msg.Answer {
					if a, ok := rr.(*dns.AAAA); ok {
						if addr := ipToAddr(a.AAAA); addr.IsValid() {
							resolved = append(resolved, addr)
						}
					}
				}
			}
		}
		resolved = dedupAddrs(resolved)
		if len(resolved) > 0 {
			q.logf("resolveNS resolved host=%s addrs=%d", host, len(resolved))
			addrs = append(addrs, resolved...)
		} else {
			q.NonResolving.Incr(host, time.Now())
		}
	}
	q.logf("resolveNS total addrs=%d", len(addrs))
	return dedupAddrs(addrs)
}

// rank orders candidate server addresses for (target, qtype) queries against
// zone: throttled candidates and unusable ones (inside a DontQuery netmask,
// or reachable only over a disabled protocol or address family) are dropped,
// the rest sorted ascending by the EWMA round-trip time stored under zone
// (read with Peek). NS names already marked non-resolving are skipped
// earlier, in resolveNSAddrs, and never reach this point.
func (q *query) rank(zone, target string, qtype uint16, candidates []netip.Addr) []netip.Addr {
	now := time.Now()
	var keep []netip.Addr
	for _, addr := range candidates {
		if q.throttle.ShouldThrottle(now, throttleKey{Server: addr, Target: "", Qtype: 0}) {
			continue
		}
		if q.throttle.ShouldThrottle(now, throttleKey{Server: addr, Target: target, Qtype: qtype}) {
			continue
		}
		if !q.usable("udp", addr) && !q.usable("tcp", addr) {
			continue
		}
		keep = append(keep, addr)
	}
	sort.Slice(keep, func(i, j int) bool {
		return q.speeds.Peek(zone, keep[i]) < q.speeds.Peek(zone, keep[j])
	})
	return keep
}

func (w *Worker) usable(protocol string, addr netip.Addr) (yes bool) {
	if w.isBlocked(addr) {
		return false
	}
	yes = strings.HasPrefix(protocol, "tcp") || w.usingUDP()
	if addr.Is4() {
		w.mu.RLock()
		yes = yes && w.useIPv4
		w.mu.RUnlock()
	} else {
		yes = yes && w.usingIPv6()
	}
	return
}

func (q *query) logf(format string, args ...any) {
	if q.writer != nil {
		_, _ = fmt.Fprintf(q.writer, "\n[%6dms]%*s", time.Since(q.start).Milliseconds(), 1+q.depth*2, "")
		_, _ = fmt.Fprintf(q.writer, format, args...)
	}
}

func (q *query) deadline() time.Time {
	var deadline time.Time
	if q.ctx != nil {
		if d, ok := q.ctx.Deadline(); ok {
			deadline = d
		}
	}
	if to := q.timeout(); to > 0 {
		limit := time.Now().Add(to)
		if deadline.IsZero() || limit.Before(deadline) {
			deadline = limit
		}
	}
	return deadline
}

// exchange sends m to server over q.Transport. See exchangeVia.
func (q *query) exchange(nsName string, m *dns.Msg, server netip.Addr) (resp *dns.Msg, err error) {
	return q.exchangeVia(nsName, m, server, q.Transport)
}

// exchangeVia sends m to server over tr, consulting the packet cache first,
// recording the result into the per-NS EWMA and failure/throttle state, and
// promoting UDP to TCP on truncation. tr lets forwardQuery route a DoT-only
// zone's traffic through Worker.DoT instead of the plain UDP/TCP transport.
func (q *query) exchangeVia(nsName string, m *dns.Msg, server netip.Addr, tr transport.Transport) (resp *dns.Msg, err error) {
	if err = q.dive(); err == nil {
		defer q.surface()
		q.queries++
		limit := q.Limits.MaxQueries
		if limit <= 0 {
			limit = maxQueries
		}
		if q.queries > limit {
			return nil, newOutcome(OutcomeResourceLimit, "too many queries, possible loop", ErrTooManyQueries)
		}

		fp := dnscache.Fingerprint(m.Question[0].Name, m.Question[0].Qtype, dns.ClassINET, "", false)
		if q.Cache != nil {
			if cached, ok := q.Cache.Packet().Get(fp); ok {
				return cached, nil
			}
			if cached, ok := q.Cache.Positive().Get(m.Question[0].Name, m.Question[0].Qtype); ok {
				return cached, nil
			}
		}

		ctx := q.ctx
		if deadline := q.deadline(); !deadline.IsZero() {
			var cancel context.CancelFunc
			ctx, cancel = context.WithDeadline(q.ctx, deadline)
			defer cancel()
		}

		var rtt time.Duration
		var network string
		resp, rtt, network, err = transport.ExchangeWithPromotion(ctx, tr, q.addrPort(server), m, q.usingUDP())
		if err != nil {
			q.maybeDisableUdp(err)
			q.maybeDisableIPv6(err)
			q.recordFailure(server)
			q.logf("EXCHANGE FAIL %s @%s err=%v", network, server, err)
			return nil, err
		}
		q.logQueryReceive(network, server, m.Question[0], resp, rtt)
		q.speeds.Submit(nsName, server, float64(rtt.Microseconds()), time.Now())
		q.recordEDNS(server, m, resp)
		if resp != nil && q.Cache != nil {
			q.Cache.Positive().Set(resp)
			q.Cache.Packet().Set(fp, resp, time.Duration(minMsgTTL(resp))*time.Second)
		}
	}
	return
}

// recordEDNS tracks whether server honors EDNS0: OK if it echoed an OPT
// record, NoEDNS if it answered FORMERR/NOTIMP without one, Ignorant for any
// other reply without one, per spec.md §3's EDNS status entry.
func (q *query) recordEDNS(server netip.Addr, sent, resp *dns.Msg) {
	if resp == nil || sent.IsEdns0() == nil {
		return
	}
	now := time.Now()
	switch {
	case resp.IsEdns0() != nil:
		q.edns.SetMode(server, throttle.OK, now)
	case resp.Rcode == dns.RcodeFormatError || resp.Rcode == dns.RcodeNotImplemented:
		q.edns.SetMode(server, throttle.NoEDNS, now)
	default:
		q.edns.SetMode(server, throttle.Ignorant, now)
	}
}

func minMsgTTL(msg *dns.Msg) int {
	best := 30
	for _, rr := range msg.Answer {
		if t := int(rr.Header().Ttl); t > 0 && t < best {
			best = t
		}
	}
	return best
}

// recordFailure increments the shared per-server failure counter and, once
// it crosses the configured threshold, throttles the server globally for
// the configured duration — spec.md §4.4's throttle test behavior.
func (q *query) recordFailure(server netip.Addr) {
	now := time.Now()
	n := q.Fails.Incr(server, now)
	maxFails := uint64(q.Limits.ServerDownMaxFails)
	if maxFails == 0 {
		maxFails = 4
	}
	if n >= maxFails {
		throttleFor := q.Limits.ServerDownThrottle
		if throttleFor <= 0 {
			throttleFor = 60 * time.Second
		}
		q.throttle.Throttle(now, throttleKey{Server: server, Target: "", Qtype: 0}, throttleFor, ^uint32(0))
	}
}

func (q *query) logQueryReceive(network string, addr netip.Addr, question dns.Question, resp *dns.Msg, dur time.Duration) {
	if resp != nil {
		var flag string
		if resp.Authoritative {
			flag = " AUTH"
		}
		q.logf("RECEIVED %s: @%s %s %q => %s [%s] (%v, %d bytes%s)",
			formatProto(network, addr),
			addr.String(),
			dns.Type(question.Qtype),
			question.Name,
			dns.RcodeToString[resp.Rcode],
			formatCounts(resp),
			dur.Round(time.Millisecond),
			resp.Len(),
			flag,
		)
	}
}

// -------- Cache helpers ---------

func (q *query) cacheStore(msg *dns.Msg) (cached bool) {
	if q.Cache == nil || msg == nil || len(msg.Question) != 1 {
		return false
	}
	question := msg.Question[0]
	if msg.Rcode == dns.RcodeSuccess && len(msg.Answer) > 0 {
		q.Cache.Positive().Set(msg)
		return true
	}
	if soa := soaFromAuthority(msg); soa != nil {
		q.Cache.Negative().Set(question.Name, question.Qtype, soa, time.Duration(soa.Hdr.Ttl)*time.Second)
		return true
	}
	return false
}

func soaFromAuthority(msg *dns.Msg) *dns.SOA {
	for _, rr := range msg.Ns {
		if soa, ok := rr.(*dns.SOA); ok {
			return soa
		}
	}
	return nil
}

func addrSet(addrs []netip.Addr) map[netip.Addr]struct{} {
	set := make(map[netip.Addr]struct{}, len(addrs))
	for _, a := range addrs {
		set[a] = struct{}{}
	}
	return set
}

func cloneIfCached(msg *dns.Msg) *dns.Msg {
	if msg == nil {
		return nil
	}
	return msg.Copy()
}
