package repl

import "fmt"

// A VictimFinder decides which way of a set should be evicted. It may mutate
// the RRPV fields of the set while searching.
type VictimFinder interface {
	FindVictim(set []LineState) int
}

// RRIPVictimFinder implements the standard RRIP eviction scan: pick any line
// at the maximum RRPV, aging the whole set until one appears. Invalid ways
// are taken immediately so cold fills never evict live data.
type RRIPVictimFinder struct {
	rrpvMax uint8
}

// NewRRIPVictimFinder returns a victim finder for the given RRPV range.
func NewRRIPVictimFinder(rrpvMax uint8) *RRIPVictimFinder {
	return &RRIPVictimFinder{rrpvMax: rrpvMax}
}

// FindVictim returns the way to evict. Aging is monotonic, so a victim must
// appear within rrpvMax rounds; the hard cap defends against a corrupted
// RRPV that escaped its range.
func (f *RRIPVictimFinder) FindVictim(set []LineState) int {
	for way := range set {
		if !set[way].Valid {
			return way
		}
	}

	for round := 0; round <= int(f.rrpvMax)+1; round++ {
		for way := range set {
			if set[way].RRPV == f.rrpvMax {
				return way
			}
		}

		for way := range set {
			if set[way].RRPV < f.rrpvMax {
				set[way].RRPV++
			}
		}
	}

	panic(fmt.Sprintf(
		"no victim found after %d aging rounds, RRPV state is corrupted",
		f.rrpvMax+1))
}
