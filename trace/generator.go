package trace

import (
	"math/rand"

	"github.com/sarchlab/rriplab/repl"
)

// Block size used by the workload generators.
const blockBytes = 64

// SequentialWorkload returns n accesses walking blocks at a constant stride
// from a single PC, the shape a streaming kernel produces.
func SequentialWorkload(pc, startAddr uint64, stride int64, n int) []Access {
	accesses := make([]Access, n)
	addr := int64(startAddr)

	for i := range accesses {
		accesses[i] = Access{PC: pc, Addr: uint64(addr), Type: repl.Load}
		addr += stride * blockBytes
	}

	return accesses
}

// LoopWorkload returns n accesses cycling through a fixed working set of
// footprintBlocks blocks. Working sets that fit in the cache hit on every
// pass after the first; larger ones thrash LRU-like policies.
func LoopWorkload(pc uint64, footprintBlocks, n int) []Access {
	accesses := make([]Access, n)

	for i := range accesses {
		block := uint64(i % footprintBlocks)
		accesses[i] = Access{
			PC:   pc + 4*(block%8),
			Addr: block * blockBytes,
			Type: repl.Load,
		}
	}

	return accesses
}

// RandomWorkload returns n accesses drawn uniformly from footprintBlocks
// blocks, with PCs drawn from a small pool and a demand-heavy mix of access
// types. The same seed reproduces the same workload.
func RandomWorkload(seed int64, footprintBlocks, n int) []Access {
	rng := rand.New(rand.NewSource(seed))
	accesses := make([]Access, n)

	for i := range accesses {
		block := uint64(rng.Intn(footprintBlocks))
		accesses[i] = Access{
			PC:   0x400000 + 4*uint64(rng.Intn(64)),
			Addr: block * blockBytes,
			Type: randomAccessType(rng),
		}
	}

	return accesses
}

func randomAccessType(rng *rand.Rand) repl.AccessType {
	switch rng.Intn(8) {
	case 0:
		return repl.RFO
	case 1:
		return repl.Writeback
	default:
		return repl.Load
	}
}

// MixedWorkload interleaves a cache-friendly loop, a streaming scan, and
// random traffic, the phase mix the dueling mechanisms are built for.
func MixedWorkload(seed int64, n int) []Access {
	rng := rand.New(rand.NewSource(seed))
	loop := LoopWorkload(0x400000, 512, n)
	scan := SequentialWorkload(0x500000, 1<<30, 1, n)
	random := RandomWorkload(seed+1, 1<<16, n)

	accesses := make([]Access, n)
	for i := range accesses {
		switch rng.Intn(4) {
		case 0:
			accesses[i] = scan[i]
		case 1:
			accesses[i] = random[i]
		default:
			accesses[i] = loop[i]
		}
	}

	return accesses
}

// WorkloadByName builds one of the named workloads. Returns false when the
// name is not registered.
func WorkloadByName(name string, seed int64, n int) ([]Access, bool) {
	switch name {
	case "loop":
		return LoopWorkload(0x400000, 4096, n), true
	case "stream":
		return SequentialWorkload(0x400000, 0, 1, n), true
	case "random":
		return RandomWorkload(seed, 1<<16, n), true
	case "mixed":
		return MixedWorkload(seed, n), true
	default:
		return nil, false
	}
}

// WorkloadNames lists the registered workload names.
func WorkloadNames() []string {
	return []string{"loop", "stream", "random", "mixed"}
}
