package transport

import (
	"context"
	"crypto/tls"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// DoTTransport speaks DNS-over-TLS to a fixed set of forwarders, for the
// authdomain forward-zone case where a configured upstream requires
// encrypted transport. ServerName maps each server address to the name its
// certificate should present, since netip.Addr carries no hostname.
type DoTTransport struct {
	ServerName map[netip.Addr]string
	Timeout    time.Duration
}

func (t *DoTTransport) Exchange(ctx context.Context, network string, server netip.AddrPort, m *dns.Msg) (resp *dns.Msg, rtt time.Duration, err error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	dialer := &net.Dialer{Timeout: timeout}
	start := time.Now()
	rawConn, err := dialer.DialContext(ctx, "tcp", server.String())
	if err != nil {
		return nil, 0, err
	}
	defer rawConn.Close()

	serverName := t.ServerName[server.Addr()]
	conn := tls.Client(rawConn, &tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12})
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}
	if err = conn.Handshake(); err != nil {
		return nil, time.Since(start), err
	}

	dnsConn := &dns.Conn{Conn: conn}
	if err = dnsConn.WriteMsg(m); err != nil {
		return nil, time.Since(start), err
	}
	resp, err = dnsConn.ReadMsg()
	return resp, time.Since(start), err
}
