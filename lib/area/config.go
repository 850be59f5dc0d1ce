package area

import "github.com/nodalmesh/kvstore/lib/kv"

// Config holds the per-area tunables: node identity, TTL defaults, flood
// rate limiting, ingress filters and sync backoff/cap parameters.
type Config struct {
	Area     string
	NodeName string

	KeyTTLMs       int64
	TTLDecrementMs int64

	FloodMsgsPerSec float64 // 0 means unlimited
	FloodBurst      int

	IngressFilter kv.Filter
	SetLeafNode   bool

	SyncBackoff        BackoffPolicy
	InitialSyncCap     int
	MaxSyncCap         int

	// KeepAliveIntervalMs is the base interval between keep-alive probes;
	// ~20% jitter is applied by the caller (spec §5).
	KeepAliveIntervalMs int64

	// UnsetThrottleMs is how long Unset waits before draining a pending
	// tombstone, giving a racing persist on the same key a chance to win
	// (spec §4.6).
	UnsetThrottleMs int64
}

// DefaultConfig returns sane defaults for tests and for a single-area
// deployment, matching the magnitudes implied by spec §4.3/§5 without
// pinning to any one operator's tuning.
func DefaultConfig(area, nodeName string) Config {
	return Config{
		Area:                area,
		NodeName:            nodeName,
		KeyTTLMs:            ignoreTTL,
		TTLDecrementMs:      1,
		InitialSyncCap:      4,
		MaxSyncCap:          64,
		SyncBackoff:         BackoffPolicy{InitialMs: 100, MaxMs: 30000},
		KeepAliveIntervalMs: 5000,
		UnsetThrottleMs:     200,
	}
}

const ignoreTTL int64 = 3_600_000
