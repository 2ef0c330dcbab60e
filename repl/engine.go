// Package repl implements a last-level-cache replacement-policy decision
// engine. The engine owns the replacement metadata for every (set, way) and
// decides victim selection and insertion priority; the surrounding simulator
// owns the actual tags and data and drives the engine once per access.
//
// Every mechanism is optional and configured through the Builder, so the
// classic policies (SRRIP, BRRIP, DRRIP, DIP, SHiP and their stream- and
// dead-block-augmented combinations) are configurations of one engine rather
// than separate implementations.
package repl

import (
	"fmt"
	"io"

	"github.com/sarchlab/rriplab/repl/internal/deadblock"
	"github.com/sarchlab/rriplab/repl/internal/dueling"
	"github.com/sarchlab/rriplab/repl/internal/signature"
	"github.com/sarchlab/rriplab/repl/internal/stream"
)

// An Engine holds the replacement state of one LLC partition. Engines are
// independent; build one per simulated core or slice. All methods are driven
// by a single simulation thread, so the engine does no locking.
type Engine struct {
	name string

	numSets    int
	numWays    int
	rrpvMax    uint8
	insertRRPV uint8
	streamRRPV uint8
	blockShift uint

	lines [][]LineState

	victimFinder VictimFinder

	sigTableSize uint32
	useAddrInSig bool

	shct    *signature.Table
	bands   []InsertionBand
	streams *stream.Detector
	dead    *deadblock.Predictor
	duel    *dueling.Controller

	policyA PolicyKind
	policyB PolicyKind

	brripNearProb uint32
	rng           RandSource

	phaseResetInterval uint64
	accessCount        uint64

	stats Stats
}

// Name returns the engine's name.
func (e *Engine) Name() string {
	return e.name
}

// Geometry returns the number of sets and ways the engine was built for.
func (e *Engine) Geometry() (numSets, numWays int) {
	return e.numSets, e.numWays
}

// BlockShift returns the log2 of the block size the engine folds addresses
// by. Callers that map addresses to blocks must use the same shift.
func (e *Engine) BlockShift() uint {
	return e.blockShift
}

// Reset restores the engine to its just-constructed state: all lines
// invalid at the distant RRPV, all predictor tables at their initial values,
// statistics cleared. Safe to call before any access and at any point after.
func (e *Engine) Reset() {
	for set := range e.lines {
		for way := range e.lines[set] {
			e.lines[set][way] = LineState{RRPV: e.rrpvMax}
		}
	}

	if e.shct != nil {
		e.shct.Reset()
	}

	if e.streams != nil {
		e.streams.Reset()
	}

	if e.dead != nil {
		e.dead.Reset()
	}

	if e.duel != nil {
		e.duel.Reset()
	}

	e.accessCount = 0
	e.stats = Stats{}
}

// SelectVictim returns the way in a set whose line may be overwritten by the
// fill for the given access. It is only called on misses that need a way.
// The PC, address, and access type are accepted for parity with predictors
// that select victims from access metadata; the RRIP finder ignores them.
func (e *Engine) SelectVictim(
	cpu, set int,
	pc, addr uint64,
	accessType AccessType,
) int {
	return e.victimFinder.FindVictim(e.lines[set])
}

// Update is the single mutation point for all predictor state. The simulator
// calls it once per access: on a hit, way is the hit way; on a miss, way is
// the fill way previously returned by SelectVictim.
func (e *Engine) Update(
	cpu, set, way int,
	pc, addr, victimAddr uint64,
	accessType AccessType,
	hit bool,
) {
	e.accessCount++
	e.stats.Accesses++
	e.stats.AccessesByType[accessType]++

	e.maybePhaseReset()

	if e.duel != nil {
		if hit {
			e.duel.ObserveHit(set)
		} else {
			e.duel.ObserveMiss(set)
		}
	}

	if hit {
		e.updateOnHit(set, way)
		return
	}

	e.updateOnMiss(set, way, pc, addr)
}

func (e *Engine) updateOnHit(set, way int) {
	e.stats.Hits++

	line := &e.lines[set][way]
	line.RRPV = 0
	line.SeenHit = true

	if e.shct != nil {
		e.shct.OnHit(line.Signature)
	}

	if e.dead != nil {
		e.dead.ObserveReuse(line.Signature)
	}
}

func (e *Engine) updateOnMiss(set, way int, pc, addr uint64) {
	e.stats.Misses++

	line := &e.lines[set][way]
	if line.Valid {
		e.trainOnEviction(line)
	}

	sig := e.deriveSignature(pc, addr)

	isStreaming := false
	if e.streams != nil {
		isStreaming = e.streams.Observe(sig, addr>>e.blockShift)
	}

	rrpv, bypassed := e.chooseInsertionRRPV(set, sig, isStreaming)
	if bypassed {
		e.stats.Bypasses++
	}

	*line = LineState{
		RRPV:      rrpv,
		Signature: sig,
		SeenHit:   false,
		Valid:     true,
	}
}

func (e *Engine) trainOnEviction(line *LineState) {
	e.stats.Evictions++

	if e.shct != nil {
		e.shct.OnEviction(line.Signature, line.SeenHit)
	}

	if e.dead != nil && !line.SeenHit {
		e.dead.Train(line.Signature)
	}
}

func (e *Engine) deriveSignature(pc, addr uint64) uint32 {
	if e.useAddrInSig {
		return signature.DeriveWithAddr(pc, addr, e.blockShift, e.sigTableSize)
	}

	return signature.Derive(pc, e.sigTableSize)
}

func (e *Engine) maybePhaseReset() {
	if e.phaseResetInterval == 0 {
		return
	}

	if e.accessCount%e.phaseResetInterval != 0 {
		return
	}

	if e.shct != nil {
		e.shct.HalveAll()
	}

	if e.dead != nil {
		e.dead.Reset()
	}
}

// Report returns a snapshot of the statistics counters.
func (e *Engine) Report() Stats {
	return e.stats
}

// ReportPeriodic writes the heartbeat summary for the current point of the
// run, including the PSEL value when dueling is enabled.
func (e *Engine) ReportPeriodic(w io.Writer) {
	_, _ = e.stats.WriteTo(w)

	if e.duel != nil {
		fmt.Fprintf(w, "psel=%d\n", e.duel.PSEL())
	}
}

// PSEL returns the current policy-selector value. The second return value is
// false when set dueling is disabled.
func (e *Engine) PSEL() (uint32, bool) {
	if e.duel == nil {
		return 0, false
	}

	return e.duel.PSEL(), true
}

// Line returns a copy of the replacement metadata for one (set, way).
func (e *Engine) Line(set, way int) LineState {
	return e.lines[set][way]
}
