// Package dueling implements DIP/DRRIP-style set dueling: two small leader
// groups each run one fixed insertion policy, a shared saturating selector
// (PSEL) records which group misses less, and all follower sets use the
// currently winning policy.
package dueling

import (
	"fmt"

	"github.com/sarchlab/rriplab/repl/internal/counter"
)

// Group classifies a set for dueling purposes.
type Group int

// The three set classes.
const (
	Follower Group = iota
	LeaderA
	LeaderB
)

// Policy identifies one of the two dueled insertion policies.
type Policy int

// The two dueled policies. The meaning of A and B is up to the resolver; the
// controller only arbitrates between them.
const (
	PolicyA Policy = iota
	PolicyB
)

// A Controller owns the PSEL counter and the leader classification. The
// classification depends only on the set index and the construction
// parameters, so it is stable for the life of the engine.
type Controller struct {
	psel counter.Counter

	period     uint32
	leaderSpan uint32
	trainOnHit bool
}

// NewController creates a controller. Sets with set%period in [0,
// leaderSpan) lead for policy A, [leaderSpan, 2*leaderSpan) for policy B,
// everything else follows. PSEL is pselMax+1 values wide and starts at the
// midpoint. With trainOnHit set, hits in leader sets also move PSEL
// (DIP-style); otherwise only misses train it (DRRIP-style).
func NewController(
	pselMax, period, leaderSpan uint32,
	trainOnHit bool,
) *Controller {
	if leaderSpan == 0 || 2*leaderSpan > period {
		panic(fmt.Sprintf(
			"leader span %d does not fit in dueling period %d",
			leaderSpan, period))
	}

	psel := counter.New(pselMax, 0)
	psel.Set(psel.Midpoint())

	return &Controller{
		psel:       psel,
		period:     period,
		leaderSpan: leaderSpan,
		trainOnHit: trainOnHit,
	}
}

// Classify reports which dueling group a set belongs to.
func (c *Controller) Classify(set int) Group {
	slot := uint32(set) % c.period

	switch {
	case slot < c.leaderSpan:
		return LeaderA
	case slot < 2*c.leaderSpan:
		return LeaderB
	default:
		return Follower
	}
}

// ObserveMiss records a miss in a set. A miss in a leader set moves PSEL one
// step toward the other policy. High PSEL favors policy A.
func (c *Controller) ObserveMiss(set int) {
	switch c.Classify(set) {
	case LeaderA:
		c.psel.Dec()
	case LeaderB:
		c.psel.Inc()
	case Follower:
	}
}

// ObserveHit records a hit in a set. It only moves PSEL when the controller
// was built with trainOnHit.
func (c *Controller) ObserveHit(set int) {
	if !c.trainOnHit {
		return
	}

	switch c.Classify(set) {
	case LeaderA:
		c.psel.Inc()
	case LeaderB:
		c.psel.Dec()
	case Follower:
	}
}

// Resolve returns the policy a set must use: leaders always run their own
// policy, followers run whichever side PSEL currently favors.
func (c *Controller) Resolve(set int) Policy {
	switch c.Classify(set) {
	case LeaderA:
		return PolicyA
	case LeaderB:
		return PolicyB
	default:
		if c.psel.Value() > c.psel.Midpoint() {
			return PolicyA
		}

		return PolicyB
	}
}

// PSEL returns the current selector value, for reporting.
func (c *Controller) PSEL() uint32 {
	return c.psel.Value()
}

// Reset restores PSEL to its midpoint.
func (c *Controller) Reset() {
	c.psel.Set(c.psel.Midpoint())
}
