package dnscache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the fields that make two queries cacheable under the
// same packet-cache slot: name, type, class, EDNS Client Subnet, and the
// DNSSEC-OK bit, per spec.md §6 ("fingerprint = hash of (name, type,
// class, ECS, DO-bit, etc.)").
func Fingerprint(name string, qtype, qclass uint16, ecs string, do bool) uint64 {
	var b strings.Builder
	b.WriteString(strings.ToLower(name))
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(uint64(qtype), 10))
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(uint64(qclass), 10))
	b.WriteByte('|')
	b.WriteString(ecs)
	b.WriteByte('|')
	if do {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	return xxhash.Sum64String(b.String())
}
