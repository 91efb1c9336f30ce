package simulate

import "math/rand"

// TemperatureTrace generates a synthetic temperature reading per tick for
// --simulate mode: a linear ramp toward Target at RampPerTick degrees/tick,
// plus uniform jitter in [-Jitter, Jitter]. Never used by the control core
// itself; only by the CLI's demonstration loop.
type TemperatureTrace struct {
	Start       float64
	Target      float64
	RampPerTick float64
	Jitter      float64

	rng  *rand.Rand
	curr float64
}

// NewTemperatureTrace creates a trace starting at start and seeded from seed
// for reproducible jitter across runs.
func NewTemperatureTrace(start, target, rampPerTick, jitter float64, seed int64) *TemperatureTrace {
	return &TemperatureTrace{
		Start:       start,
		Target:      target,
		RampPerTick: rampPerTick,
		Jitter:      jitter,
		rng:         rand.New(rand.NewSource(seed)),
		curr:        start,
	}
}

// Next advances the trace by one tick and returns the new temperature.
func (t *TemperatureTrace) Next() float64 {
	if t.curr < t.Target {
		t.curr += t.RampPerTick
		if t.curr > t.Target {
			t.curr = t.Target
		}
	} else if t.curr > t.Target {
		t.curr -= t.RampPerTick
		if t.curr < t.Target {
			t.curr = t.Target
		}
	}

	if t.Jitter > 0 {
		t.curr += (t.rng.Float64()*2 - 1) * t.Jitter
	}
	return t.curr
}
