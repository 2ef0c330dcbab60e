// Package trace drives a replacement engine the way the surrounding
// cycle-level simulator would: it keeps the tag array that maps addresses to
// (set, way) and issues the SelectVictim/Update call pair once per access.
// Workloads are synthetic; trace file ingestion belongs to the excluded
// harness.
package trace

import (
	"fmt"

	"github.com/sarchlab/rriplab/repl"
)

// An Access is one memory reference of a workload.
type Access struct {
	PC   uint64
	Addr uint64
	Type repl.AccessType
}

type tagEntry struct {
	block uint64
	valid bool
}

// A Replayer owns the tag state of one cache and the engine that makes its
// replacement decisions.
type Replayer struct {
	engine *repl.Engine

	numSets    int
	numWays    int
	blockShift uint

	sets [][]tagEntry
}

// NewReplayer creates a replayer around an engine, sized from the engine's
// geometry and using the engine's block shift for address-to-block mapping.
func NewReplayer(engine *repl.Engine) *Replayer {
	numSets, numWays := engine.Geometry()

	r := &Replayer{
		engine:     engine,
		numSets:    numSets,
		numWays:    numWays,
		blockShift: engine.BlockShift(),
		sets:       make([][]tagEntry, numSets),
	}

	for i := range r.sets {
		r.sets[i] = make([]tagEntry, numWays)
	}

	return r
}

// Engine returns the engine under replay.
func (r *Replayer) Engine() *repl.Engine {
	return r.engine
}

func (r *Replayer) setIndex(block uint64) int {
	return int(block % uint64(r.numSets))
}

func (r *Replayer) lookup(set int, block uint64) (int, bool) {
	for way, entry := range r.sets[set] {
		if entry.valid && entry.block == block {
			return way, true
		}
	}

	return 0, false
}

// Play runs one access through the cache and reports whether it hit.
func (r *Replayer) Play(a Access) bool {
	block := a.Addr >> r.blockShift
	set := r.setIndex(block)

	if way, ok := r.lookup(set, block); ok {
		r.engine.Update(0, set, way, a.PC, a.Addr, 0, a.Type, true)
		return true
	}

	way := r.engine.SelectVictim(0, set, a.PC, a.Addr, a.Type)
	if way < 0 || way >= r.numWays {
		panic(fmt.Sprintf("engine chose way %d of %d", way, r.numWays))
	}

	victim := r.sets[set][way]
	victimAddr := victim.block << r.blockShift

	r.engine.Update(0, set, way, a.PC, a.Addr, victimAddr, a.Type, false)
	r.sets[set][way] = tagEntry{block: block, valid: true}

	return false
}

// PlayAll runs a whole workload and returns the final statistics.
func (r *Replayer) PlayAll(workload []Access) repl.Stats {
	for _, a := range workload {
		r.Play(a)
	}

	return r.engine.Report()
}
