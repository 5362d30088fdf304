package airindex

// StorageProfile is the cost contract the planner treats as a black box
// (spec §4.1): pure, total, no I/O, additive over independent requests and
// linear in bytes.
type StorageProfile interface {
	// Cost predicts, in nanoseconds, the time to issue nRequests independent
	// reads totalling nBytes against this storage.
	Cost(nRequests int, nBytes uint64) float64
}

// AffineProfile is the core's one built-in StorageProfile: cost(n, b) =
// n·L + b/W (spec §4.1).
type AffineProfile struct {
	// LatencyNs is the per-request latency term L, in nanoseconds.
	LatencyNs float64
	// BandwidthMBps is the bandwidth term W, in megabytes per second.
	BandwidthMBps float64
}

// Cost implements StorageProfile.
func (p AffineProfile) Cost(nRequests int, nBytes uint64) float64 {
	return float64(nRequests)*p.LatencyNs + float64(nBytes)*1e9/(p.BandwidthMBps*1e6)
}

// Validate rejects a malformed profile before any I/O (spec §7 ConfigError).
func (p AffineProfile) Validate() error {
	if p.LatencyNs < 0 {
		return NewError(ConfigError, "affine-latency-ns must be >= 0, got %v", p.LatencyNs)
	}
	if p.BandwidthMBps <= 0 {
		return NewError(ConfigError, "affine-bandwidth-mbps must be > 0, got %v", p.BandwidthMBps)
	}
	return nil
}
