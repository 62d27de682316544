package resolver

import (
	"context"
	"io"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/nsloop/recur/dnssec"
)

// Resolve performs iterative resolution with QNAME minimization for
// qname/qtype, consulting w's caches and auth-domain zones first. The
// returned dnssec.Result is the validation state accumulated across every
// span of the answer, per spec.md §7's error-handling boundary.
func (w *Worker) Resolve(ctx context.Context, qname string, qtype uint16, logw io.Writer) (msg *dns.Msg, origin netip.Addr, state dnssec.Result, err error) {
	qry := &query{
		Worker: w,
		ctx:    ctx,
		writer: logw,
		start:  time.Now(),
	}
	qry.logf("resolve start qname=%s qtype=%s", qname, dns.Type(qtype))
	msg, origin, err = qry.resolve(dns.Fqdn(strings.ToLower(qname)), qtype)
	if err != nil {
		msg = servfailWithExtendedError(qname, qtype, err)
	}
	return msg, origin, qry.valState, err
}

// servfailWithExtendedError synthesizes a SERVFAIL answer carrying an RFC
// 8914 Extended DNS Error option describing the underlying Go error, so a
// caller downstream of Resolve doesn't need to inspect err to know why.
func servfailWithExtendedError(qname string, qtype uint16, cause error) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(qname), qtype)
	m.Rcode = dns.RcodeServerFailure
	opt := &dns.OPT{Hdr: dns.RR_Header{Name: ".", Rrtype: dns.TypeOPT}}
	opt.SetUDPSize(dns.DefaultMsgSize)
	opt.Option = append(opt.Option, &dns.EDNS0_EDE{
		InfoCode:  ExtendedErrorCodeFromError(cause),
		ExtraText: cause.Error(),
	})
	m.Extra = append(m.Extra, opt)
	return m
}
