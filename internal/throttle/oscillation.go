package throttle

import "sync"

// OscillationGuardConfig configures D1 (SPEC_FULL.md §4.9). It is engine-wide
// (one config for every registered sensor), set at NewEngine time.
type OscillationGuardConfig struct {
	WindowTicks     int     // ticks tracked in the sign-flip window
	MaxSignFlipsPct float64 // trip threshold, percent of the window
	CooldownTicks   int     // ticks the P-term stays scaled down after a trip
}

// DefaultOscillationGuardConfig returns §4.9's stated defaults
// (window_ticks=20, max_sign_flips_pct=60) plus a cooldown_ticks default
// the spec leaves unstated; half the window gives the sensor enough ticks
// to resettle before the guard can trip again on the same swing.
func DefaultOscillationGuardConfig() OscillationGuardConfig {
	return OscillationGuardConfig{
		WindowTicks:     20,
		MaxSignFlipsPct: 60.0,
		CooldownTicks:   10,
	}
}

// oscillationGuard is the D1 component: a per-sensor, tick-count sliding
// window over the sign of this tick's combined-request delta for the
// sensor's highest-weighted bound CDEV. It lives next to ThrottlingStatus
// (held in Engine.guards, not as one of its fields) since it is
// advisory/safety state, not part of the invariant set in §3, and is
// independent of tran_cycle.
//
// Grounded on the corpus's controller-adjacent oscillation detector
// (internal/control/pid/circuitbreaker.go, deleted — see DESIGN.md), which
// keeps signal history alongside, not inside, the control law; the signal
// tracked and the window/trip model are rebuilt to match §4.9's tick-count
// window and sign-flip-on-combined-request contract rather than that
// file's time-window, zero-crossing-on-control-signal one.
type oscillationGuard struct {
	cfg OscillationGuardConfig

	mu                sync.Mutex
	signs             []int // -1/0/+1 per tick, oldest first, len <= cfg.WindowTicks
	hasPrevRequest    bool
	prevRequest       int
	cooldownRemaining int
}

func newOscillationGuard(cfg OscillationGuardConfig) *oscillationGuard {
	return &oscillationGuard{cfg: cfg}
}

// beginTick reports the P-term scale and integral-hold flag to apply to
// this tick's PidBudgetCalculator.Compute call, and consumes one tick of
// an active cooldown. Called exactly once per sensor per tick, from
// Compute itself, before the P-term is computed.
func (g *oscillationGuard) beginTick() (pScale float64, holdIntegral bool, justReset bool) {
	if g == nil {
		return 1.0, false, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cooldownRemaining <= 0 {
		return 1.0, false, false
	}

	g.cooldownRemaining--
	if g.cooldownRemaining == 0 {
		return 0.1, true, true
	}
	return 0.1, true, false
}

// recordDelta records the sign of this tick's change in combined request
// for the sensor's highest-weighted bound CDEV, evaluates the trip
// condition, and arms the cooldown on a fresh trip. Called exactly once
// per sensor per tick, after the Combiner pass.
func (g *oscillationGuard) recordDelta(req int) (trippedNow bool) {
	if g == nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	sign := 0
	if g.hasPrevRequest {
		switch {
		case req > g.prevRequest:
			sign = 1
		case req < g.prevRequest:
			sign = -1
		}
	}
	g.prevRequest = req
	g.hasPrevRequest = true

	g.signs = append(g.signs, sign)
	if len(g.signs) > g.cfg.WindowTicks {
		g.signs = g.signs[1:]
	}

	if len(g.signs) < g.cfg.WindowTicks {
		return false
	}

	flips := 0
	for i := 1; i < len(g.signs); i++ {
		if g.signs[i] != g.signs[i-1] {
			flips++
		}
	}
	pct := float64(flips) / float64(len(g.signs)-1) * 100

	if pct < g.cfg.MaxSignFlipsPct {
		return false
	}
	if g.cooldownRemaining > 0 {
		// Already tripped; this is not a new trip event.
		return false
	}

	g.cooldownRemaining = g.cfg.CooldownTicks
	return true
}

// isActive reports whether the guard is currently scaling the PID P-term
// (i.e. a cooldown is in progress), for metrics/logging.
func (g *oscillationGuard) isActive() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cooldownRemaining > 0
}

// windowFill reports how many ticks of sign history the guard has
// accumulated, for logging.
func (g *oscillationGuard) windowFill() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.signs)
}

// reset clears all guard state, used when a sensor's throttling data is
// cleared.
func (g *oscillationGuard) reset() {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.signs = nil
	g.hasPrevRequest = false
	g.prevRequest = 0
	g.cooldownRemaining = 0
}

// highestWeightedCdev returns the name of the bound CDEV with the largest
// positive (non-NaN) CdevWeightForPID at severity curr, breaking ties by name so
// the choice is deterministic across map-iteration order. Returns ok=false
// if no bound CDEV has a positive weight at curr.
func highestWeightedCdev(bindings map[string]*BindedCdevInfo, curr Severity) (name string, ok bool) {
	bestWeight := 0.0
	for cdev, b := range bindings {
		if !b.HasPID(curr) {
			continue
		}
		w := b.CdevWeightForPID[curr]
		if !ok || w > bestWeight || (w == bestWeight && cdev < name) {
			name, bestWeight, ok = cdev, w, true
		}
	}
	return name, ok
}
