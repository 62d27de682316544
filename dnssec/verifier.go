package dnssec

import (
	"time"

	"github.com/miekg/dns"
)

// DSMap is a zone name -> DS-record-set map, the shape of a trust anchor
// table (spec.md §6's "dsmap").
type DSMap map[string][]*dns.DS

// Verifier is the cryptographic collaborator the engine consumes: it
// validates signatures over an RRset given a candidate keyset, and exposes
// the configured trust anchors. The core never implements the crypto
// itself — only LibVerifier below does, by delegating to miekg/dns.
type Verifier interface {
	// Validate checks sigs (RRSIGs) over rrset using keys (DNSKEYs) and
	// returns the resulting Result.
	Validate(rrset []dns.RR, sigs []*dns.RRSIG, keys []*dns.DNSKEY, now time.Time) Result
	// TrustAnchors returns the configured DS trust anchors, keyed by zone.
	TrustAnchors() DSMap
}

// LibVerifier implements Verifier using github.com/miekg/dns's own RRSIG
// verification primitives (RRSIG.Verify / RRSIG.ValidityPeriod), which is
// the idiomatic way to do DNSSEC crypto in Go rather than hand-rolling it.
type LibVerifier struct {
	Anchors DSMap
}

// NewLibVerifier returns a Verifier backed by the supplied trust anchors.
func NewLibVerifier(anchors DSMap) *LibVerifier {
	if anchors == nil {
		anchors = make(DSMap)
	}
	return &LibVerifier{Anchors: anchors}
}

func (v *LibVerifier) TrustAnchors() DSMap { return v.Anchors }

// Validate attempts each signature against each candidate key, accepting
// the first combination that verifies and falls within its validity
// period. No matching key is a BogusMissingKey verdict; a present-but-bad
// signature is BogusInvalidSignature; an absent signature entirely is
// BogusNoRRSIG.
func (v *LibVerifier) Validate(rrset []dns.RR, sigs []*dns.RRSIG, keys []*dns.DNSKEY, now time.Time) Result {
	if len(rrset) == 0 {
		return Ok(Insecure)
	}
	if len(sigs) == 0 {
		return BogusResult(BogusNoRRSIG)
	}
	if len(keys) == 0 {
		return BogusResult(BogusMissingKey)
	}
	sawKeyMatch := false
	for _, sig := range sigs {
		if !sig.ValidityPeriod(now) {
			continue
		}
		for _, key := range keys {
			if key.KeyTag() != sig.KeyTag {
				continue
			}
			sawKeyMatch = true
			if err := sig.Verify(key, rrset); err == nil {
				return Ok(Secure)
			}
		}
	}
	if !sawKeyMatch {
		return BogusResult(BogusMissingKey)
	}
	return BogusResult(BogusInvalidSignature)
}
