package resolver

import (
	"net/netip"
	"testing"

	"github.com/nsloop/recur/dnscache"
	"github.com/nsloop/recur/dnssec"
	"github.com/nsloop/recur/rconfig"
	"github.com/nsloop/recur/transport"
)

func newTestWorker(t *testing.T, limits rconfig.Limits) *Worker {
	t.Helper()
	return NewWorker(NewShared(), limits, dnscache.NewMemory(), transport.NewDialTransport(), dnssec.NewLibVerifier(nil))
}

func TestIsBlockedHonorsDontQuery(t *testing.T) {
	limits := rconfig.Default()
	limits.DontQuery = []string{"10.0.0.0/8", "fd00::/8"}
	w := newTestWorker(t, limits)

	blocked := netip.MustParseAddr("10.1.2.3")
	allowed := netip.MustParseAddr("192.0.2.1")
	if !w.isBlocked(blocked) {
		t.Fatal("expected 10.1.2.3 to be blocked by 10.0.0.0/8")
	}
	if w.isBlocked(allowed) {
		t.Fatal("expected 192.0.2.1 to be unblocked")
	}
}

func TestIsBlockedIgnoresUnparseableNetmasks(t *testing.T) {
	limits := rconfig.Default()
	limits.DontQuery = []string{"not-a-cidr"}
	w := newTestWorker(t, limits)
	if w.isBlocked(netip.MustParseAddr("192.0.2.1")) {
		t.Fatal("an unparseable netmask should block nothing")
	}
}

func TestUsableRejectsBlockedAddressRegardlessOfProtocol(t *testing.T) {
	limits := rconfig.Default()
	limits.DontQuery = []string{"192.0.2.0/24"}
	w := newTestWorker(t, limits)
	addr := netip.MustParseAddr("192.0.2.53")
	if w.usable("udp", addr) || w.usable("tcp", addr) {
		t.Fatal("expected a blocked address to be unusable over any protocol")
	}
}

func TestUsableRejectsIPv6WhenDisabled(t *testing.T) {
	limits := rconfig.Default()
	limits.UseIPv6 = false
	w := newTestWorker(t, limits)
	addr := netip.MustParseAddr("2001:db8::1")
	if w.usable("udp", addr) {
		t.Fatal("expected an ipv6 address to be unusable when UseIPv6 is false")
	}
}

func TestAddrPortDefaultsPortTo53(t *testing.T) {
	w := newTestWorker(t, rconfig.Default())
	ap := w.addrPort(netip.MustParseAddr("192.0.2.1"))
	if ap.Port() != 53 {
		t.Fatalf("expected default port 53, got %d", ap.Port())
	}
}
