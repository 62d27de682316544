package authdomain

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/miekg/dns"
)

func TestLoadZoneFileParsesRecordsIntoDomain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.com.zone")
	zone := "example.com. 3600 IN SOA ns1.example.com. hostmaster.example.com. 1 3600 900 604800 3600\n" +
		"example.com. 3600 IN A 192.0.2.1\n" +
		"www.example.com. 3600 IN A 192.0.2.2\n"
	if err := os.WriteFile(path, []byte(zone), 0o600); err != nil {
		t.Fatal(err)
	}

	d, err := LoadZoneFile("example.com.", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	matches, _ := d.GetRecords("www.example.com.", dns.TypeA)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match for www.example.com., got %d", len(matches))
	}
	if !d.IsAuth() {
		t.Fatal("a zone loaded from a zone file should be authoritative")
	}
}

func TestLoadZoneFileMissingFile(t *testing.T) {
	if _, err := LoadZoneFile("example.com.", filepath.Join(t.TempDir(), "missing.zone")); err == nil {
		t.Fatal("expected an error for a missing zone file")
	}
}

func TestNewForwardDomainIsForward(t *testing.T) {
	servers := []netip.Addr{netip.MustParseAddr("192.0.2.53")}
	d := NewForwardDomain("corp.internal.", servers, true, false)
	if !d.IsForward() || d.IsAuth() {
		t.Fatal("expected a domain with forwarders to report IsForward")
	}
	if !d.ShouldRecurse() {
		t.Fatal("expected ShouldRecurse to reflect the recurse argument")
	}
}

func TestParseForwardSpec(t *testing.T) {
	name, servers, err := ParseForwardSpec("corp.internal.=192.0.2.53,192.0.2.54")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "corp.internal." {
		t.Fatalf("expected fqdn zone name, got %q", name)
	}
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(servers))
	}
}

func TestParseForwardSpecRejectsMalformedInput(t *testing.T) {
	cases := []string{"", "corp.internal.", "corp.internal.=", "=192.0.2.1", "corp.internal.=not-an-ip"}
	for _, spec := range cases {
		if _, _, err := ParseForwardSpec(spec); err == nil {
			t.Fatalf("expected an error for spec %q", spec)
		}
	}
}
