// Package rconfig loads the resolution engine's numeric limits and toggles
// from a JSON file once at process start, the way treemana-godot loads its
// Option struct from godot.json — but kept immutable afterward, since
// spec.md §6 says runtime reconfiguration is not required by the core.
package rconfig

import (
	"encoding/json"
	"os"
	"time"
)

// Limits is the immutable configuration surface consumed by every Worker,
// covering exactly the knobs spec.md §6 lists.
type Limits struct {
	MinTTL time.Duration `json:"min_ttl"`
	MaxTTL time.Duration `json:"max_ttl"`
	NXTTL  time.Duration `json:"nx_ttl"`

	MaxQueries   int `json:"max_queries"`    // max total outgoing queries per resolution
	MaxDepth     int `json:"max_depth"`      // max total recursion depth
	MaxCNAME     int `json:"max_cname"`      // max CNAME/DNAME chain length
	MaxNSAddrSub int `json:"max_ns_addr_sub"` // max NS-address-resolution sub-queries
	MaxQMinSteps int `json:"max_qmin_steps"` // max QNAME-minimization steps per resolution

	QNameMinimization bool `json:"qname_minimization"`
	DNSSECMode        string `json:"dnssec_mode"` // "off", "process", "validate"
	UseIPv4           bool   `json:"use_ipv4"`
	UseIPv6           bool   `json:"use_ipv6"`

	DontQuery []string `json:"dont_query"` // CIDR netmasks the engine refuses to query

	NSSpeedCutoff         time.Duration `json:"ns_speed_cutoff"`
	ServerDownMaxFails    int           `json:"server_down_max_fails"`
	ServerDownThrottle    time.Duration `json:"server_down_throttle_time"`
	RefreshTTLPercent     int           `json:"refresh_ttl_percent"` // queue a refresh once remaining TTL drops below this % of original

	DNSPort uint16        `json:"dns_port"`
	Timeout time.Duration `json:"timeout"`
}

// Default returns the limits the engine uses absent a config file,
// matching linkdata-resolver's built-in defaults where spec.md is silent.
func Default() Limits {
	return Limits{
		MinTTL:             10 * time.Second,
		MaxTTL:             6 * time.Hour,
		NXTTL:              time.Hour,
		MaxQueries:         1024,
		MaxDepth:           16,
		MaxCNAME:           16,
		MaxNSAddrSub:       32,
		MaxQMinSteps:       32,
		QNameMinimization:  true,
		DNSSECMode:         "process",
		UseIPv4:            true,
		UseIPv6:            true,
		NSSpeedCutoff:      2 * time.Second,
		ServerDownMaxFails: 4,
		ServerDownThrottle: 60 * time.Second,
		RefreshTTLPercent:  10,
		DNSPort:            53,
		Timeout:            3 * time.Second,
	}
}

// Load reads a JSON config file and overlays it onto Default().
func Load(path string) (Limits, error) {
	limits := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return limits, err
	}
	if err := json.Unmarshal(raw, &limits); err != nil {
		return limits, err
	}
	return limits, nil
}
