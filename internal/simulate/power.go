package simulate

import (
	"math"
	"sync"

	"github.com/thermalguard/enginecore/internal/throttle"
)

// PowerStatusProvider is an in-memory throttle.PowerStatusMap source for
// tests and --simulate mode. Rails start at NaN ("warm-up, no data yet")
// until SetAvgPower records a reading, matching §6's "values may be NaN
// during warm-up" contract.
type PowerStatusProvider struct {
	mu    sync.RWMutex
	rails map[string]float64
}

// NewPowerStatusProvider creates a provider with no rails yet populated.
func NewPowerStatusProvider() *PowerStatusProvider {
	return &PowerStatusProvider{rails: make(map[string]float64)}
}

// SetAvgPower records rail's current average power reading, in mW.
func (p *PowerStatusProvider) SetAvgPower(rail string, avgMilliwatts float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rails[rail] = avgMilliwatts
}

// ClearAvgPower reverts rail to the NaN warm-up state.
func (p *PowerStatusProvider) ClearAvgPower(rail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.rails, rail)
}

// Snapshot returns the current throttle.PowerStatusMap for rails, with a
// NaN entry for any requested rail that has no reading set.
func (p *PowerStatusProvider) Snapshot(rails []string) throttle.PowerStatusMap {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(throttle.PowerStatusMap, len(rails))
	for _, rail := range rails {
		avg, ok := p.rails[rail]
		if !ok {
			avg = math.NaN()
		}
		out[rail] = throttle.PowerStatus{LastUpdatedAvgPower: avg}
	}
	return out
}
