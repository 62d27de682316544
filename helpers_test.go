package resolver

import (
	"net/netip"
	"testing"

	"github.com/miekg/dns"
)

func TestCnameTargetFindsMatchingOwner(t *testing.T) {
	resp := new(dns.Msg)
	resp.Answer = []dns.RR{mustRR(t, "www.example.com. 300 IN CNAME edge.example.net.")}
	target, ok := cnameTarget(resp, "www.example.com.")
	if !ok || target != "edge.example.net." {
		t.Fatalf("expected edge.example.net., got %q ok=%v", target, ok)
	}
}

func TestCnameTargetNoMatch(t *testing.T) {
	resp := new(dns.Msg)
	resp.Answer = []dns.RR{mustRR(t, "other.example.com. 300 IN CNAME edge.example.net.")}
	if _, ok := cnameTarget(resp, "www.example.com."); ok {
		t.Fatal("expected no match for a differently-owned CNAME")
	}
}

func TestDnameSynthesizeRewritesPrefix(t *testing.T) {
	resp := new(dns.Msg)
	resp.Answer = []dns.RR{mustRR(t, "example.com. 300 IN DNAME example.net.")}
	target, ok := dnameSynthesize(resp, "www.example.com.")
	if !ok || target != "www.example.net." {
		t.Fatalf("expected www.example.net., got %q ok=%v", target, ok)
	}
}

func TestDedupAddrsPreservesFirstOccurrenceOrder(t *testing.T) {
	a := netip.MustParseAddr("192.0.2.1")
	b := netip.MustParseAddr("192.0.2.2")
	got := dedupAddrs([]netip.Addr{a, b, a, a, b})
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("unexpected dedup result: %v", got)
	}
}

func TestGlueAddressesExtractsAAndAAAA(t *testing.T) {
	resp := new(dns.Msg)
	resp.Extra = []dns.RR{
		mustRR(t, "ns1.example.com. 300 IN A 192.0.2.53"),
		mustRR(t, "ns1.example.com. 300 IN AAAA 2001:db8::53"),
	}
	addrs := glueAddresses(resp, "example.com.")
	if len(addrs) != 2 {
		t.Fatalf("expected 2 glue addresses, got %d", len(addrs))
	}
}

func TestGlueAddressesDropsOutOfBailiwickRecords(t *testing.T) {
	resp := new(dns.Msg)
	resp.Extra = []dns.RR{
		mustRR(t, "ns1.example.com. 300 IN A 192.0.2.53"),
		mustRR(t, "attacker.evil.com. 300 IN A 198.51.100.9"),
	}
	addrs := glueAddresses(resp, "example.com.")
	if len(addrs) != 1 {
		t.Fatalf("expected only the in-bailiwick glue to survive, got %d addresses", len(addrs))
	}
	if addrs[0].String() != "192.0.2.53" {
		t.Fatalf("expected 192.0.2.53, got %s", addrs[0])
	}
}

func TestInBailiwick(t *testing.T) {
	if !inBailiwick("example.com.", "example.com.") {
		t.Fatal("a zone's own apex should be in its own bailiwick")
	}
	if !inBailiwick("example.com.", "ns1.example.com.") {
		t.Fatal("a subdomain should be in the zone's bailiwick")
	}
	if inBailiwick("example.com.", "attacker.evil.com.") {
		t.Fatal("an unrelated domain should not be in the zone's bailiwick")
	}
	if inBailiwick("example.com.", "notexample.com.") {
		t.Fatal("a same-suffix-but-different label should not be in bailiwick")
	}
}

func TestExtractDelegationNSFiltersByZone(t *testing.T) {
	resp := new(dns.Msg)
	resp.Ns = []dns.RR{
		mustRR(t, "example.com. 300 IN NS ns1.example.com."),
		mustRR(t, "other.com. 300 IN NS ns1.other.com."),
	}
	got := extractDelegationNS(resp, "example.com.")
	if len(got) != 1 || got[0] != "ns1.example.com." {
		t.Fatalf("unexpected delegation NS set: %v", got)
	}
}

func TestHasRRType(t *testing.T) {
	rrs := []dns.RR{mustRR(t, "example.com. 300 IN A 192.0.2.1")}
	if !hasRRType(rrs, dns.TypeA) {
		t.Fatal("expected hasRRType to find the A record")
	}
	if hasRRType(rrs, dns.TypeAAAA) {
		t.Fatal("expected hasRRType to report false for an absent type")
	}
}

func mustRR(t *testing.T, s string) dns.RR {
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatal(err)
	}
	return rr
}
