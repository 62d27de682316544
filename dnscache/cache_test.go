package dnscache

import (
	"testing"
	"time"

	"github.com/miekg/dns"
)

func answerMsg(t *testing.T, qname string, ttl uint32) *dns.Msg {
	t.Helper()
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(qname), dns.TypeA)
	rr, err := dns.NewRR(qname + " " + "300" + " IN A 192.0.2.1")
	if err != nil {
		t.Fatal(err)
	}
	rr.Header().Ttl = ttl
	m.Answer = append(m.Answer, rr)
	m.Rcode = dns.RcodeSuccess
	return m
}

func TestPositiveSetGetRoundTrip(t *testing.T) {
	c := NewMemory()
	m := answerMsg(t, "example.com.", 300)
	c.Positive().Set(m)
	got, ok := c.Positive().Get("example.com.", dns.TypeA)
	if !ok {
		t.Fatal("expected a hit")
	}
	if len(got.Answer) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(got.Answer))
	}
}

func TestPositiveGetMissIsNotAHit(t *testing.T) {
	c := NewMemory()
	if _, ok := c.Positive().Get("nowhere.example.", dns.TypeA); ok {
		t.Fatal("expected a miss")
	}
	if c.HitRatio() != 0 {
		t.Fatalf("expected 0%% hit ratio, got %v", c.HitRatio())
	}
}

func TestPositiveTTLFloorIsMinTTL(t *testing.T) {
	c := NewMemory()
	c.pos.minTTL = time.Minute
	m := answerMsg(t, "short.example.", 1)
	c.Positive().Set(m)
	c.pos.byType[dns.TypeA].mu.RLock()
	e := c.pos.byType[dns.TypeA].cache[dns.CanonicalName("short.example.")]
	c.pos.byType[dns.TypeA].mu.RUnlock()
	if time.Until(e.expires) < 30*time.Second {
		t.Fatal("expected TTL floor to apply")
	}
}

func TestNegativeSetGetRoundTrip(t *testing.T) {
	c := NewMemory()
	soa := &dns.SOA{Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeSOA}}
	c.Negative().Set("missing.example.com.", dns.TypeAAAA, soa, time.Minute)
	got, ok := c.Negative().Get("missing.example.com.", dns.TypeAAAA)
	if !ok || got == nil {
		t.Fatal("expected a negative-cache hit")
	}
}

func TestNegativeKeyIsQtypeSpecific(t *testing.T) {
	c := NewMemory()
	soa := &dns.SOA{Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeSOA}}
	c.Negative().Set("example.com.", dns.TypeA, soa, time.Minute)
	if _, ok := c.Negative().Get("example.com.", dns.TypeAAAA); ok {
		t.Fatal("expected a miss for a different qtype")
	}
}

func TestPacketSetGetRoundTrip(t *testing.T) {
	c := NewMemory()
	fp := Fingerprint("example.com.", dns.TypeA, dns.ClassINET, "", false)
	m := answerMsg(t, "example.com.", 300)
	c.Packet().Set(fp, m, time.Minute)
	got, ok := c.Packet().Get(fp)
	if !ok || got == nil {
		t.Fatal("expected a packet-cache hit")
	}
}

func TestCleanEvictsExpiredEntries(t *testing.T) {
	c := NewMemory()
	c.pos.minTTL = 0
	m := answerMsg(t, "expiring.example.", 0)
	c.Positive().Set(m)
	c.pos.byType[dns.TypeA].mu.Lock()
	for k, e := range c.pos.byType[dns.TypeA].cache {
		e.expires = time.Now().Add(-time.Second)
		c.pos.byType[dns.TypeA].cache[k] = e
	}
	c.pos.byType[dns.TypeA].mu.Unlock()
	c.Clean()
	if c.Entries() != 0 {
		t.Fatalf("expected Clean to evict expired entries, got %d left", c.Entries())
	}
}

func TestFingerprintDiffersOnDOBit(t *testing.T) {
	a := Fingerprint("example.com.", dns.TypeA, dns.ClassINET, "", false)
	b := Fingerprint("example.com.", dns.TypeA, dns.ClassINET, "", true)
	if a == b {
		t.Fatal("expected DO-bit to change the fingerprint")
	}
}
