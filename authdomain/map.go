package authdomain

import (
	"strings"
	"sync/atomic"
)

// Map is an immutable snapshot of zone name -> *Domain. Reloads install a
// new snapshot via Holder.Store rather than mutating one in place, per
// spec.md §3 Lifecycle: "Auth-domain maps are immutable snapshots; reloads
// install a new snapshot pointer atomically."
type Map map[string]*Domain

// Holder publishes Map snapshots for lock-free concurrent reads.
type Holder struct {
	ptr atomic.Pointer[Map]
}

// NewHolder returns a Holder seeded with an empty map.
func NewHolder() *Holder {
	h := &Holder{}
	empty := Map{}
	h.ptr.Store(&empty)
	return h
}

// Store atomically installs a new snapshot.
func (h *Holder) Store(m Map) {
	h.ptr.Store(&m)
}

// Load returns the current snapshot.
func (h *Holder) Load() Map {
	return *h.ptr.Load()
}

// Lookup finds the longest auth-zone suffix of qname present in the map,
// per spec.md §4.4 step 2. qname should already be lowercase and FQDN.
func (m Map) Lookup(qname string) (*Domain, bool) {
	for {
		if d, ok := m[qname]; ok {
			return d, true
		}
		i := strings.IndexByte(qname, '.')
		if i < 0 || i+1 >= len(qname) {
			return nil, false
		}
		qname = qname[i+1:]
	}
}
