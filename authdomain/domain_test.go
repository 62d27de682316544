package authdomain

import (
	"testing"

	"github.com/miekg/dns"
)

func mustRR(t *testing.T, s string) dns.RR {
	rr, err := dns.NewRR(s)
	if err != nil {
		t.Fatal(err)
	}
	return rr
}

func TestGetRecordsExactMatch(t *testing.T) {
	d := New("example.com.")
	d.AddRecord(mustRR(t, "example.com. 3600 IN A 192.0.2.1"))
	d.AddRecord(mustRR(t, "www.example.com. 3600 IN A 192.0.2.2"))
	matches, soa := d.GetRecords("www.example.com.", dns.TypeA)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if soa != nil {
		t.Fatal("expected no soa on a positive match")
	}
}

func TestGetRecordsAnyReturnsAllTypes(t *testing.T) {
	d := New("example.com.")
	d.AddRecord(mustRR(t, "example.com. 3600 IN A 192.0.2.1"))
	d.AddRecord(mustRR(t, "example.com. 3600 IN AAAA ::1"))
	matches, _ := d.GetRecords("example.com.", dns.TypeANY)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
}

func TestGetRecordsSynthesizesSOAForNoData(t *testing.T) {
	d := New("example.com.")
	d.AddRecord(mustRR(t, "example.com. 3600 IN SOA ns1.example.com. hostmaster.example.com. 1 3600 900 604800 3600"))
	d.AddRecord(mustRR(t, "example.com. 3600 IN A 192.0.2.1"))
	matches, soa := d.GetRecords("example.com.", dns.TypeAAAA)
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(matches))
	}
	if soa == nil {
		t.Fatal("expected synthesized SOA for NODATA")
	}
}

func TestIsAuthVsIsForward(t *testing.T) {
	auth := New("example.com.")
	if !auth.IsAuth() || auth.IsForward() {
		t.Fatal("expected zone with no forwarders to be authoritative")
	}
}

func TestMapLookupLongestSuffix(t *testing.T) {
	m := Map{
		"com.":         New("com."),
		"example.com.": New("example.com."),
	}
	d, ok := m.Lookup("deep.sub.example.com.")
	if !ok {
		t.Fatal("expected a match")
	}
	if d.Name != "example.com." {
		t.Fatalf("expected longest suffix example.com., got %s", d.Name)
	}
}
