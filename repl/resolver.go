package repl

import "github.com/sarchlab/rriplab/repl/internal/dueling"

// PolicyKind names a base insertion policy. Set dueling arbitrates between
// two of them; without dueling the engine runs a single kind.
type PolicyKind int

// The insertion policy kinds the resolver understands.
const (
	// SRRIP inserts every fill at the configured mid-range RRPV.
	SRRIP PolicyKind = iota

	// BRRIP inserts at the distant RRPV, with a rare 1-in-N mid-range
	// insertion to resist thrashing.
	BRRIP

	// SignatureGuided maps the fill signature's SHCT counter through the
	// insertion bands, falling back to the mid-range RRPV.
	SignatureGuided
)

func (k PolicyKind) String() string {
	switch k {
	case SRRIP:
		return "SRRIP"
	case BRRIP:
		return "BRRIP"
	case SignatureGuided:
		return "SignatureGuided"
	default:
		return "Unknown"
	}
}

// An InsertionBand maps SHCT counter values at or above MinCounter to an
// insertion RRPV. Bands are evaluated hottest-first; the first band whose
// MinCounter the prediction reaches wins.
type InsertionBand struct {
	MinCounter uint32
	RRPV       uint8
}

// A RandSource supplies the pseudo-random numbers behind BRRIP's bimodal
// choice. Injecting it keeps insertion decisions reproducible under a fixed
// seed. *math/rand.Rand satisfies it.
type RandSource interface {
	Uint32() uint32
}

// chooseInsertionRRPV is the per-fill decision table. Exactly one branch
// fires: dead-block bypass, streaming override, signature bands, or the
// dueling-resolved default.
func (e *Engine) chooseInsertionRRPV(
	set int,
	sig uint32,
	isStreaming bool,
) (rrpv uint8, bypassed bool) {
	if e.dead != nil && e.dead.Predict(sig) {
		return e.rrpvMax, true
	}

	if isStreaming {
		return e.streamRRPV, false
	}

	kind := e.resolvePolicyKind(set)

	switch kind {
	case SignatureGuided:
		return e.bandedRRPV(sig), false
	case BRRIP:
		if e.rng.Uint32()%e.brripNearProb == 0 {
			return e.insertRRPV, false
		}

		return e.rrpvMax, false
	default:
		return e.insertRRPV, false
	}
}

func (e *Engine) resolvePolicyKind(set int) PolicyKind {
	if e.duel == nil {
		return e.policyA
	}

	if e.duel.Resolve(set) == dueling.PolicyA {
		return e.policyA
	}

	return e.policyB
}

func (e *Engine) bandedRRPV(sig uint32) uint8 {
	prediction := e.shct.Predict(sig)

	for _, band := range e.bands {
		if prediction >= band.MinCounter {
			return band.RRPV
		}
	}

	return e.insertRRPV
}
