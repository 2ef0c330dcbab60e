// Package stream detects spatial streaming: signatures that touch blocks at
// a constant stride. Streaming fills are inserted with moderate priority so
// that one-pass scans do not wipe out the rest of the set.
package stream

import "fmt"

const runLengthCap = 255

type entry struct {
	lastBlock  int64
	lastStride int64
	runLength  uint8
	seen       bool
}

// A Detector tracks, per signature, the last block address, the last stride,
// and the length of the current constant-stride run.
type Detector struct {
	entries []entry

	threshold uint8
	maxStride int64
}

// NewDetector creates a detector with one tracker per signature slot. A run
// is reported as streaming once it reaches threshold repetitions. If
// maxStride is positive, only strides with |stride| <= maxStride qualify;
// zero disables the bound.
func NewDetector(size uint32, threshold uint8, maxStride int64) *Detector {
	if size == 0 || size&(size-1) != 0 {
		panic(fmt.Sprintf(
			"stream detector size %d is not a power of two", size))
	}

	if threshold == 0 {
		panic("stream threshold must be positive")
	}

	return &Detector{
		entries:   make([]entry, size),
		threshold: threshold,
		maxStride: maxStride,
	}
}

// Observe records a block access for a signature and reports whether the
// signature is currently streaming. The first observation for a signature
// never streams; a stride change resets the run to length one.
func (d *Detector) Observe(sig uint32, blockAddr uint64) bool {
	e := &d.entries[sig]
	curr := int64(blockAddr)

	if !e.seen {
		e.seen = true
		e.lastBlock = curr
		e.lastStride = 0
		e.runLength = 1

		return false
	}

	stride := curr - e.lastBlock
	if stride == e.lastStride {
		if e.runLength < runLengthCap {
			e.runLength++
		}
	} else {
		e.lastStride = stride
		e.runLength = 1
	}

	e.lastBlock = curr

	if e.runLength < d.threshold {
		return false
	}

	if d.maxStride > 0 && abs(e.lastStride) > d.maxStride {
		return false
	}

	return true
}

// RunLength returns the current constant-stride run length for a signature.
func (d *Detector) RunLength(sig uint32) int {
	return int(d.entries[sig].runLength)
}

// Reset clears all trackers.
func (d *Detector) Reset() {
	for i := range d.entries {
		d.entries[i] = entry{}
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}

	return v
}
