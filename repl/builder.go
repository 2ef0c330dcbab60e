package repl

import (
	"fmt"
	"math/rand"

	"github.com/sarchlab/rriplab/repl/internal/counter"
	"github.com/sarchlab/rriplab/repl/internal/deadblock"
	"github.com/sarchlab/rriplab/repl/internal/dueling"
	"github.com/sarchlab/rriplab/repl/internal/signature"
	"github.com/sarchlab/rriplab/repl/internal/stream"
)

// Builder can build replacement engines. The zero defaults describe a
// 2MB-class LLC slice (2048 sets, 16 ways) running plain SRRIP with 2-bit
// RRPVs; each With* call enables or tunes one mechanism. Misconfiguration
// (non-power-of-two tables, unsorted bands, leaders that do not fit the
// dueling period) panics at Build time.
type Builder struct {
	numSets    int
	numWays    int
	rrpvBits   uint
	blockShift uint

	policyA PolicyKind
	policyB PolicyKind
	useDuel bool

	pselBits       uint
	duelPeriod     uint32
	duelLeaderSpan uint32
	duelTrainOnHit bool

	sigTableSize uint32
	sigCtrBits   uint
	useAddrInSig bool
	rewardReuse  bool
	useShct      bool
	bands        []InsertionBand

	useStream       bool
	streamThreshold uint8
	streamMaxStride int64
	streamRRPVSet   bool
	streamRRPV      uint8

	useDeadBlock    bool
	deadFilterBits  uint32
	deadMissCtrBits uint
	phaseResetEvery uint64
	brripNearProb   uint32
	rngSeed         int64
	rng             RandSource
	insertRRPVSet   bool
	insertRRPV      uint8
	victimFinder    VictimFinder
}

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		numSets:    2048,
		numWays:    16,
		rrpvBits:   2,
		blockShift: 6,

		policyA: SRRIP,

		pselBits:       10,
		duelPeriod:     64,
		duelLeaderSpan: 8,

		sigTableSize: 4096,
		sigCtrBits:   2,
		bands: []InsertionBand{
			{MinCounter: 2, RRPV: 0},
		},

		streamThreshold: 2,
		streamMaxStride: 8,

		deadFilterBits:  8192,
		deadMissCtrBits: 2,

		brripNearProb: 32,
		rngSeed:       1,
	}
}

// WithGeometry sets the number of sets and ways.
func (b Builder) WithGeometry(numSets, numWays int) Builder {
	b.numSets = numSets
	b.numWays = numWays
	return b
}

// WithRRPVBits sets the RRPV width. The maximum RRPV is 2^bits - 1.
func (b Builder) WithRRPVBits(bits uint) Builder {
	b.rrpvBits = bits
	return b
}

// WithBlockShift sets the log2 of the cache line size, used to turn
// addresses into block numbers.
func (b Builder) WithBlockShift(shift uint) Builder {
	b.blockShift = shift
	return b
}

// WithPolicy makes the engine run a single insertion policy.
func (b Builder) WithPolicy(kind PolicyKind) Builder {
	b.policyA = kind
	b.useDuel = false
	return b
}

// WithDuelingPolicies enables set dueling between two insertion policies.
func (b Builder) WithDuelingPolicies(a, c PolicyKind) Builder {
	b.policyA = a
	b.policyB = c
	b.useDuel = true
	return b
}

// WithDuelingPeriod sets the set-classification period and the number of
// leader sets per policy within each period.
func (b Builder) WithDuelingPeriod(period, leaderSpan uint32) Builder {
	b.duelPeriod = period
	b.duelLeaderSpan = leaderSpan
	return b
}

// WithPSELBits sets the policy-selector counter width.
func (b Builder) WithPSELBits(bits uint) Builder {
	b.pselBits = bits
	return b
}

// WithDuelTrainOnHit makes leader-set hits move PSEL too, DIP-style.
func (b Builder) WithDuelTrainOnHit() Builder {
	b.duelTrainOnHit = true
	return b
}

// WithSignatureTable enables the SHCT with the given slot count and counter
// width. SignatureGuided policies enable it implicitly with the defaults.
func (b Builder) WithSignatureTable(size uint32, ctrBits uint) Builder {
	b.useShct = true
	b.sigTableSize = size
	b.sigCtrBits = ctrBits
	return b
}

// WithInsertionBands sets the SHCT-value-to-RRPV mapping, hottest band
// first. Bands must be strictly descending in MinCounter.
func (b Builder) WithInsertionBands(bands ...InsertionBand) Builder {
	b.bands = bands
	return b
}

// WithAddressFoldedSignature folds the block address into the signature
// hash instead of hashing the PC alone.
func (b Builder) WithAddressFoldedSignature() Builder {
	b.useAddrInSig = true
	return b
}

// WithRewardReusedEvictions makes evictions of reused lines reinforce their
// signature instead of leaving it alone.
func (b Builder) WithRewardReusedEvictions() Builder {
	b.rewardReuse = true
	return b
}

// WithStreamDetector enables stream detection. A maxStride of zero accepts
// any stride.
func (b Builder) WithStreamDetector(threshold uint8, maxStride int64) Builder {
	b.useStream = true
	b.streamThreshold = threshold
	b.streamMaxStride = maxStride
	return b
}

// WithStreamInsertRRPV overrides the RRPV assigned to streaming fills. The
// default is one step hotter than the SRRIP insertion RRPV.
func (b Builder) WithStreamInsertRRPV(rrpv uint8) Builder {
	b.streamRRPVSet = true
	b.streamRRPV = rrpv
	return b
}

// WithDeadBlockFilter enables dead-block bypass with a Bloom filter of
// filterBits bits and missCtrBits-wide thrash counters.
func (b Builder) WithDeadBlockFilter(
	filterBits uint32,
	missCtrBits uint,
) Builder {
	b.useDeadBlock = true
	b.deadFilterBits = filterBits
	b.deadMissCtrBits = missCtrBits
	return b
}

// WithPhaseResetInterval enables the periodic decay of predictor state,
// every interval accesses. Zero disables it.
func (b Builder) WithPhaseResetInterval(interval uint64) Builder {
	b.phaseResetEvery = interval
	return b
}

// WithBRRIPNearProb sets BRRIP's near-insertion probability to 1-in-n.
func (b Builder) WithBRRIPNearProb(n uint32) Builder {
	b.brripNearProb = n
	return b
}

// WithInsertRRPV overrides the SRRIP mid-range insertion RRPV. The default
// is the maximum RRPV minus one.
func (b Builder) WithInsertRRPV(rrpv uint8) Builder {
	b.insertRRPVSet = true
	b.insertRRPV = rrpv
	return b
}

// WithRandSeed seeds the default pseudo-random source. Runs with the same
// seed and workload are bit-identical.
func (b Builder) WithRandSeed(seed int64) Builder {
	b.rngSeed = seed
	return b
}

// WithRandSource injects a pseudo-random source, replacing the seeded
// default.
func (b Builder) WithRandSource(src RandSource) Builder {
	b.rng = src
	return b
}

// WithVictimFinder replaces the RRIP victim finder. The finder must honor
// the engine's RRPV range.
func (b Builder) WithVictimFinder(vf VictimFinder) Builder {
	b.victimFinder = vf
	return b
}

// Build builds an engine.
func (b Builder) Build(name string) *Engine {
	b.mustBeValid()

	rrpvMax := uint8(counter.MaxForBits(b.rrpvBits))

	e := &Engine{
		name:       name,
		numSets:    b.numSets,
		numWays:    b.numWays,
		rrpvMax:    rrpvMax,
		blockShift: b.blockShift,

		victimFinder: b.victimFinder,

		sigTableSize: b.sigTableSize,
		useAddrInSig: b.useAddrInSig,
		bands:        b.bands,

		policyA: b.policyA,
		policyB: b.policyB,

		brripNearProb:      b.brripNearProb,
		phaseResetInterval: b.phaseResetEvery,
	}

	e.insertRRPV = rrpvMax - 1
	if b.insertRRPVSet {
		e.insertRRPV = b.insertRRPV
	}

	e.streamRRPV = 0
	if e.insertRRPV > 0 {
		e.streamRRPV = e.insertRRPV - 1
	}
	if b.streamRRPVSet {
		e.streamRRPV = b.streamRRPV
	}

	if e.victimFinder == nil {
		e.victimFinder = NewRRIPVictimFinder(rrpvMax)
	}

	b.buildSubComponents(e)

	e.rng = b.rng
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(b.rngSeed))
	}

	e.lines = make([][]LineState, b.numSets)
	for set := range e.lines {
		e.lines[set] = make([]LineState, b.numWays)
	}

	e.Reset()

	return e
}

func (b Builder) buildSubComponents(e *Engine) {
	if b.useShct || b.usesSignatureGuided() {
		e.shct = signature.NewTable(
			b.sigTableSize,
			counter.MaxForBits(b.sigCtrBits),
			b.rewardReuse,
		)
	}

	if b.useStream {
		e.streams = stream.NewDetector(
			b.sigTableSize,
			b.streamThreshold,
			b.streamMaxStride,
		)
	}

	if b.useDeadBlock {
		e.dead = deadblock.NewPredictor(
			b.deadFilterBits,
			b.sigTableSize,
			counter.MaxForBits(b.deadMissCtrBits),
		)
	}

	if b.useDuel {
		e.duel = dueling.NewController(
			counter.MaxForBits(b.pselBits),
			b.duelPeriod,
			b.duelLeaderSpan,
			b.duelTrainOnHit,
		)
	}
}

func (b Builder) usesSignatureGuided() bool {
	if b.policyA == SignatureGuided {
		return true
	}

	return b.useDuel && b.policyB == SignatureGuided
}

func (b Builder) mustBeValid() {
	if b.numSets <= 0 || b.numWays <= 0 {
		panic(fmt.Sprintf(
			"invalid geometry: %d sets x %d ways", b.numSets, b.numWays))
	}

	if b.rrpvBits == 0 || b.rrpvBits > 8 {
		panic(fmt.Sprintf("RRPV width %d out of range", b.rrpvBits))
	}

	rrpvMax := uint8(counter.MaxForBits(b.rrpvBits))
	if b.insertRRPVSet && b.insertRRPV > rrpvMax {
		panic(fmt.Sprintf(
			"insertion RRPV %d exceeds max RRPV %d", b.insertRRPV, rrpvMax))
	}

	if b.streamRRPVSet && b.streamRRPV > rrpvMax {
		panic(fmt.Sprintf(
			"stream RRPV %d exceeds max RRPV %d", b.streamRRPV, rrpvMax))
	}

	if b.brripNearProb == 0 {
		panic("BRRIP near-insertion probability must be positive")
	}

	b.mustHaveDescendingBands(rrpvMax)
}

func (b Builder) mustHaveDescendingBands(rrpvMax uint8) {
	for i, band := range b.bands {
		if band.RRPV > rrpvMax {
			panic(fmt.Sprintf(
				"band %d RRPV %d exceeds max RRPV %d", i, band.RRPV, rrpvMax))
		}

		if i > 0 && band.MinCounter >= b.bands[i-1].MinCounter {
			panic("insertion bands must be strictly descending in MinCounter")
		}
	}
}
