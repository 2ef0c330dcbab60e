package repl

import "fmt"

// Presets return builders preconfigured as the classic policies. Callers can
// keep chaining With* calls to tune them.

// SRRIPBuilder is plain static RRIP: every fill at the mid-range RRPV.
func SRRIPBuilder() Builder {
	return MakeBuilder().WithPolicy(SRRIP)
}

// BRRIPBuilder is bimodal RRIP: distant insertion with a rare near one.
func BRRIPBuilder() Builder {
	return MakeBuilder().WithPolicy(BRRIP)
}

// DRRIPBuilder duels SRRIP against BRRIP.
func DRRIPBuilder() Builder {
	return MakeBuilder().WithDuelingPolicies(SRRIP, BRRIP)
}

// SHiPBuilder inserts based on the signature reuse predictor: hot signatures
// at MRU, the rest at the distant RRPV.
func SHiPBuilder() Builder {
	return MakeBuilder().
		WithPolicy(SignatureGuided).
		WithSignatureTable(8192, 2).
		WithInsertionBands(InsertionBand{MinCounter: 2, RRPV: 0}).
		WithInsertRRPV(3)
}

// SHiPStreamBuilder augments SHiP with small-stride stream detection so
// scans are inserted at moderate priority instead of polluting the set.
func SHiPStreamBuilder() Builder {
	return MakeBuilder().
		WithRRPVBits(3).
		WithPolicy(SignatureGuided).
		WithSignatureTable(4096, 2).
		WithInsertionBands(InsertionBand{MinCounter: 2, RRPV: 0}).
		WithStreamDetector(2, 8)
}

// DDSHBuilder is the maximal corpus configuration: dead-block bypass, set
// dueling between signature-guided and SRRIP insertion, stream detection,
// and periodic phase resets.
func DDSHBuilder() Builder {
	return MakeBuilder().
		WithRRPVBits(3).
		WithDuelingPolicies(SignatureGuided, SRRIP).
		WithDuelTrainOnHit().
		WithSignatureTable(4096, 2).
		WithInsertionBands(InsertionBand{MinCounter: 2, RRPV: 0}).
		WithStreamDetector(2, 8).
		WithDeadBlockFilter(8192, 2).
		WithPhaseResetInterval(1 << 20)
}

// BuilderForPreset returns the builder registered under a preset name.
func BuilderForPreset(name string) (Builder, error) {
	switch name {
	case "srrip":
		return SRRIPBuilder(), nil
	case "brrip":
		return BRRIPBuilder(), nil
	case "drrip":
		return DRRIPBuilder(), nil
	case "ship":
		return SHiPBuilder(), nil
	case "ship-stream":
		return SHiPStreamBuilder(), nil
	case "ddsh":
		return DDSHBuilder(), nil
	default:
		return Builder{}, fmt.Errorf("unknown policy preset %q", name)
	}
}

// PresetNames lists the registered preset names.
func PresetNames() []string {
	return []string{"srrip", "brrip", "drrip", "ship", "ship-stream", "ddsh"}
}
