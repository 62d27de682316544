// Package transport provides the resolution engine's injected "ask one
// server" primitive, so the engine never dials a socket itself — grounded
// on linkdata-resolver's exchange/exchangeWithNetwork/dialDNSConn, pulled
// out from the query type into a standalone, swappable collaborator per
// spec.md §6.
package transport

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/net/proxy"
)

// Transport sends one query to one server and returns its reply, or an
// error if no reply arrived before ctx's deadline.
type Transport interface {
	Exchange(ctx context.Context, network string, server netip.AddrPort, m *dns.Msg) (*dns.Msg, time.Duration, error)
}

// DialTransport is the default Transport: it dials whichever network the
// caller names (ExchangeWithPromotion asks for UDP first and retries over
// TCP on truncation) through an injected proxy.ContextDialer so callers can
// route through SOCKS5 or a custom dialer exactly as linkdata-resolver does
// via its embedded proxy.ContextDialer.
type DialTransport struct {
	Dialer proxy.ContextDialer
}

// NewDialTransport returns a DialTransport using the system dialer.
func NewDialTransport() *DialTransport {
	return &DialTransport{Dialer: &net.Dialer{}}
}

func (t *DialTransport) Exchange(ctx context.Context, network string, server netip.AddrPort, m *dns.Msg) (resp *dns.Msg, rtt time.Duration, err error) {
	var rawConn net.Conn
	if rawConn, err = t.Dialer.DialContext(ctx, network, server.String()); err != nil {
		return nil, 0, err
	}
	defer rawConn.Close()
	dnsConn := &dns.Conn{Conn: rawConn}
	if strings.HasPrefix(network, "udp") {
		dnsConn.UDPSize = dns.DefaultMsgSize
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = dnsConn.SetDeadline(deadline)
	}
	start := time.Now()
	if err = dnsConn.WriteMsg(m); err != nil {
		return nil, 0, err
	}
	resp, err = dnsConn.ReadMsg()
	rtt = time.Since(start)
	return
}

// ExchangeWithPromotion sends m over UDP, retrying over TCP when the UDP
// reply is truncated or absent — the promotion rule every caller needs, so
// it lives once here instead of being re-implemented per Transport.
func ExchangeWithPromotion(ctx context.Context, t Transport, server netip.AddrPort, m *dns.Msg, useUDP bool) (resp *dns.Msg, rtt time.Duration, network string, err error) {
	if useUDP {
		network = "udp"
		if server.Addr().Is6() {
			network = "udp6"
		}
		resp, rtt, err = t.Exchange(ctx, network, server, m)
	}
	if err != nil || resp == nil || resp.Truncated {
		network = "tcp"
		if server.Addr().Is6() {
			network = "tcp6"
		}
		resp, rtt, err = t.Exchange(ctx, network, server, m)
	}
	return
}
