// Package deadblock predicts signatures whose fills are very unlikely to be
// reused, so the engine can insert them at distant priority (bypass). A
// two-hash Bloom filter over signatures learns from dead evictions; a small
// per-signature miss-streak counter catches thrashing signatures before the
// filter saturates.
package deadblock

import (
	"fmt"

	"github.com/sarchlab/rriplab/repl/internal/counter"
)

// Knuth's multiplicative hash constant.
const hashMultiplier = 2654435761

// A Predictor flags signatures as dead. Once a signature is trained, Predict
// keeps returning true until the next filter reset; false positives are
// expected and bounded by periodic resets.
type Predictor struct {
	filter     []uint64
	filterMask uint32

	missStreaks   []counter.Counter
	missThreshold uint32
}

// NewPredictor creates a predictor with a filter of filterBits bits and one
// miss-streak counter per signature slot. Both sizes must be powers of two.
// A signature whose miss streak saturates at missCtrMax is treated as dead
// even if the filter has not seen it.
func NewPredictor(filterBits, sigTableSize, missCtrMax uint32) *Predictor {
	if filterBits < 64 || filterBits&(filterBits-1) != 0 {
		panic(fmt.Sprintf(
			"dead-block filter size %d is not a power of two", filterBits))
	}

	if sigTableSize == 0 || sigTableSize&(sigTableSize-1) != 0 {
		panic(fmt.Sprintf(
			"miss-streak table size %d is not a power of two", sigTableSize))
	}

	p := &Predictor{
		filter:        make([]uint64, filterBits/64),
		filterMask:    filterBits - 1,
		missStreaks:   make([]counter.Counter, sigTableSize),
		missThreshold: missCtrMax,
	}

	p.Reset()

	return p
}

func (p *Predictor) hash1(sig uint32) uint32 {
	return (sig * hashMultiplier) & p.filterMask
}

func (p *Predictor) hash2(sig uint32) uint32 {
	return ((sig ^ 0xdead) * hashMultiplier) & p.filterMask
}

func (p *Predictor) setBit(pos uint32) {
	p.filter[pos/64] |= 1 << (pos % 64)
}

func (p *Predictor) bit(pos uint32) bool {
	return p.filter[pos/64]&(1<<(pos%64)) != 0
}

// Train records that a line filled under this signature was evicted without
// ever being hit.
func (p *Predictor) Train(sig uint32) {
	p.setBit(p.hash1(sig))
	p.setBit(p.hash2(sig))
	p.missStreaks[sig].Inc()
}

// ObserveReuse clears the miss streak for a signature that produced a hit.
// The Bloom filter is deliberately left alone; it only forgets on reset.
func (p *Predictor) ObserveReuse(sig uint32) {
	p.missStreaks[sig].Set(0)
}

// Predict reports whether fills under this signature should bypass.
func (p *Predictor) Predict(sig uint32) bool {
	if p.bit(p.hash1(sig)) && p.bit(p.hash2(sig)) {
		return true
	}

	return p.missStreaks[sig].IsMax()
}

// Reset clears the filter and all miss streaks. Called at construction and
// on periodic phase resets to bound the false-positive rate.
func (p *Predictor) Reset() {
	for i := range p.filter {
		p.filter[i] = 0
	}

	for i := range p.missStreaks {
		p.missStreaks[i] = counter.New(p.missThreshold, 0)
	}
}
