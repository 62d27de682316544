package resolver

import (
	"errors"
	"testing"

	"github.com/miekg/dns"
)

func TestServfailWithExtendedErrorCarriesEDE(t *testing.T) {
	msg := servfailWithExtendedError("example.com.", dns.TypeA, errors.New("boom"))
	if msg.Rcode != dns.RcodeServerFailure {
		t.Fatalf("expected SERVFAIL, got %s", dns.RcodeToString[msg.Rcode])
	}
	opt := msg.IsEdns0()
	if opt == nil {
		t.Fatal("expected an OPT record carrying the extended error")
	}
	var found bool
	for _, o := range opt.Option {
		if ede, ok := o.(*dns.EDNS0_EDE); ok {
			found = true
			if ede.ExtraText != "boom" {
				t.Fatalf("expected extra text %q, got %q", "boom", ede.ExtraText)
			}
		}
	}
	if !found {
		t.Fatal("expected an EDNS0_EDE option on the synthesized response")
	}
}

func TestServfailWithExtendedErrorPreservesQuestion(t *testing.T) {
	msg := servfailWithExtendedError("www.example.com", dns.TypeAAAA, errors.New("x"))
	if len(msg.Question) != 1 || msg.Question[0].Name != "www.example.com." {
		t.Fatalf("expected fqdn question preserved, got %+v", msg.Question)
	}
	if msg.Question[0].Qtype != dns.TypeAAAA {
		t.Fatalf("expected qtype AAAA preserved, got %s", dns.Type(msg.Question[0].Qtype))
	}
}
