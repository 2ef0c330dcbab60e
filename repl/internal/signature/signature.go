// Package signature implements PC-based signature derivation and the
// Signature History Counter Table (SHCT) that predicts whether lines filled
// by a given instruction are likely to be reused.
package signature

import (
	"fmt"

	"github.com/sarchlab/rriplab/repl/internal/counter"
)

// Derive hashes an instruction address into a table index. The low bits of
// the PC are constant for a cache-block-sized instruction region, so two
// shifted copies are folded together before masking. Collisions are expected
// and tolerated.
func Derive(pc uint64, tableSize uint32) uint32 {
	return uint32((pc>>2)^(pc>>12)) & (tableSize - 1)
}

// DeriveWithAddr folds the block address into the PC hash. Some policies use
// this to separate streams issued by the same instruction.
func DeriveWithAddr(pc, addr uint64, blockShift uint, tableSize uint32) uint32 {
	return uint32((pc>>2)^(pc>>12)^(addr>>blockShift)) & (tableSize - 1)
}

// Table is the SHCT: one saturating counter per signature slot.
type Table struct {
	counters []counter.Counter

	ctrMax      uint32
	rewardReuse bool
}

// NewTable creates an SHCT with the given number of slots. The size must be
// a power of two because signature derivation masks into it. All counters
// start at the weakly-not-reused midpoint. When rewardReuse is set, evicting
// a line that was hit at least once increments its signature's counter;
// otherwise reused evictions leave the counter alone.
func NewTable(size, ctrMax uint32, rewardReuse bool) *Table {
	if size == 0 || size&(size-1) != 0 {
		panic(fmt.Sprintf("SHCT size %d is not a power of two", size))
	}

	t := &Table{
		counters:    make([]counter.Counter, size),
		ctrMax:      ctrMax,
		rewardReuse: rewardReuse,
	}

	t.Reset()

	return t
}

// Size returns the number of slots in the table.
func (t *Table) Size() uint32 {
	return uint32(len(t.counters))
}

// Reset restores every counter to its initial midpoint value.
func (t *Table) Reset() {
	initial := t.ctrMax >> 1
	for i := range t.counters {
		t.counters[i] = counter.New(t.ctrMax, initial)
	}
}

// OnHit reinforces the signature stored on a line that just hit.
func (t *Table) OnHit(sig uint32) {
	t.counters[sig].Inc()
}

// OnEviction trains the table from an eviction. Lines that were never hit
// since fill penalize their signature. Reused lines reinforce it only when
// the table was built with rewardReuse.
func (t *Table) OnEviction(sig uint32, reused bool) {
	if !reused {
		t.counters[sig].Dec()
		return
	}

	if t.rewardReuse {
		t.counters[sig].Inc()
	}
}

// Predict returns the current counter value for a signature. Callers compare
// it against their insertion-band thresholds.
func (t *Table) Predict(sig uint32) uint32 {
	return t.counters[sig].Value()
}

// HalveAll decays every counter by half. Used by periodic phase resets so the
// table adapts to workload phase changes without losing all history.
func (t *Table) HalveAll() {
	for i := range t.counters {
		t.counters[i].Halve()
	}
}
