package authdomain

import (
	"fmt"
	"net/netip"
	"os"
	"strings"

	"github.com/miekg/dns"
)

// LoadZoneFile parses a standard zone-file at path into a new authoritative
// Domain for name, using dns.ZoneParser the same way cmd/genhints parses
// named.root.
func LoadZoneFile(name, path string) (*Domain, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := New(name)
	zp := dns.NewZoneParser(f, dns.Fqdn(name), path)
	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		d.AddRecord(rr)
	}
	if err := zp.Err(); err != nil {
		return nil, fmt.Errorf("authdomain: parsing %s: %w", path, err)
	}
	return d, nil
}

// NewForwardDomain returns a Domain for name that forwards every query to
// servers instead of answering out of a local record index.
func NewForwardDomain(name string, servers []netip.Addr, recurse, dot bool) *Domain {
	d := New(name)
	d.Forwarders = servers
	d.ForwardRecursive = recurse
	d.ForwardDoT = dot
	return d
}

// ParseForwardSpec parses a "zone=ip1,ip2" command-line spec into the zone
// name and its forwarder addresses.
func ParseForwardSpec(spec string) (name string, servers []netip.Addr, err error) {
	parts := strings.SplitN(spec, "=", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", nil, fmt.Errorf("authdomain: malformed forward spec %q, want zone=ip1,ip2", spec)
	}
	name = dns.Fqdn(parts[0])
	for _, ipStr := range strings.Split(parts[1], ",") {
		addr, err := netip.ParseAddr(strings.TrimSpace(ipStr))
		if err != nil {
			return "", nil, fmt.Errorf("authdomain: invalid forwarder address %q: %w", ipStr, err)
		}
		servers = append(servers, addr)
	}
	return name, servers, nil
}
