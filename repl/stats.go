package repl

import (
	"fmt"
	"io"
)

// Stats holds the engine's access counters. All counts are monotonic over a
// run; Report returns a copy, so callers can diff snapshots.
type Stats struct {
	Accesses  uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Bypasses  uint64

	// AccessesByType splits Accesses by the AccessType of each call.
	AccessesByType [numAccessTypes]uint64
}

// HitRate returns the fraction of accesses that hit, or zero before the
// first access.
func (s Stats) HitRate() float64 {
	if s.Accesses == 0 {
		return 0
	}

	return float64(s.Hits) / float64(s.Accesses)
}

// WriteTo writes a human-readable summary, in the format the periodic
// heartbeat uses.
func (s Stats) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "%s\n", s.String())

	return int64(n), err
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"accesses=%d hits=%d misses=%d evictions=%d bypasses=%d "+
			"loads=%d rfos=%d prefetches=%d writebacks=%d hitrate=%.4f",
		s.Accesses, s.Hits, s.Misses, s.Evictions, s.Bypasses,
		s.AccessesByType[Load], s.AccessesByType[RFO],
		s.AccessesByType[Prefetch], s.AccessesByType[Writeback],
		s.HitRate())
}
