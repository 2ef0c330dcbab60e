package repl

// AccessType tells the engine what kind of memory access triggered a call.
// It mirrors the request types a cycle-level simulator distinguishes.
type AccessType int

// The access types the engine recognizes.
const (
	Load AccessType = iota
	RFO
	Prefetch
	Writeback

	numAccessTypes
)

func (t AccessType) String() string {
	switch t {
	case Load:
		return "Load"
	case RFO:
		return "RFO"
	case Prefetch:
		return "Prefetch"
	case Writeback:
		return "Writeback"
	default:
		return "Unknown"
	}
}

// A LineState is the replacement metadata for one (set, way). The engine
// owns one fixed-size array of these for its whole life; entries are
// overwritten on every fill and never freed individually.
type LineState struct {
	RRPV      uint8
	Signature uint32
	SeenHit   bool
	Valid     bool
}
