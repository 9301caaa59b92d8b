package universe

import (
	"log"
	"math/rand"
	"time"
)

// CellView is the read-only slice of a cell's state handed to a movement
// policy.
type CellView struct {
	ID     string
	Energy float64
	Age    int
	Pos    Vec2
	Vel    Vec2
}

// ResourceView is a visible food or venom item: remaining value plus
// position.
type ResourceView struct {
	ID    string
	Value float64
	Pos   Vec2
}

// Neighborhood carries everything a policy may see: food and venom within
// the cell's vision radius.
type Neighborhood struct {
	Foods  []ResourceView
	Venoms []ResourceView
}

// MovementPolicy decides a cell's next velocity. Implementations may call
// out of process; the engine bounds each call with a timeout and clamps
// whatever comes back to the configured max speed. A nil policy selects the
// built-in heuristic (mean-reverting random walk with food attraction).
type MovementPolicy interface {
	Decide(own CellView, hood Neighborhood) (vx, vy float64, err error)
}

type policyDecision struct {
	vx, vy float64
	err    error
}

// policyRunner wraps an external MovementPolicy with the timeout/fallback
// contract: a policy that errors, times out, or returns non-finite output
// costs that one cell its decision for the tick, never the tick itself.
type policyRunner struct {
	policy   MovementPolicy
	timeout  time.Duration
	log      *log.Logger
	failures uint64
}

// decide returns the policy's velocity and true, or false when the caller
// must substitute the fallback. Only called from the universe loop.
func (r *policyRunner) decide(own CellView, hood Neighborhood) (Vec2, bool) {
	if r.policy == nil {
		return Vec2{}, false
	}

	ch := make(chan policyDecision, 1)
	go func() {
		vx, vy, err := r.policy.Decide(own, hood)
		ch <- policyDecision{vx, vy, err}
	}()

	timeout := r.timeout
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d := <-ch:
		if d.err != nil {
			r.fail(own.ID, "policy error: %v", d.err)
			return Vec2{}, false
		}
		if !isFinite(d.vx) || !isFinite(d.vy) {
			r.fail(own.ID, "policy returned non-finite velocity (%v, %v)", d.vx, d.vy)
			return Vec2{}, false
		}
		return Vec2{d.vx, d.vy}, true
	case <-timer.C:
		// The stray goroutine finishes into the buffered channel.
		r.fail(own.ID, "policy timed out after %s", timeout)
		return Vec2{}, false
	}
}

func (r *policyRunner) fail(cellID, format string, args ...any) {
	r.failures++
	if r.log != nil {
		r.log.Printf("cell %s: "+format, append([]any{cellID}, args...)...)
	}
}

// fallbackVelocity is the safe substitute when a policy fails: small
// bounded jitter so the cell keeps drifting instead of freezing.
func fallbackVelocity(rng *rand.Rand, maxSpeed float64) Vec2 {
	s := maxSpeed * 0.1
	return Vec2{
		X: (rng.Float64()*2 - 1) * s,
		Y: (rng.Float64()*2 - 1) * s,
	}
}
