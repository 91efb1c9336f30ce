package throttle

// TickSnapshot is a read-only copy of a sensor's tick-local state, safe to
// hand to pkg/metrics without holding any of the engine's locks.
type TickSnapshot struct {
	Sensor           string
	Profile          string
	PrevErr          float64
	IBudget          float64
	PrevPowerBudget  float64
	BudgetTransient  float64
	PIDPowerBudget   map[string]float64
	PIDCdevRequest   map[string]int
	HardlimitRequest map[string]int
	ReleaseStep      map[string]int
}

// Snapshot returns a copy of sensor's current tick state for metrics
// emission. ok is false if sensor is not registered.
func (e *Engine) Snapshot(sensor string) (snap TickSnapshot, ok bool) {
	e.mu.RLock()
	status, exists := e.statuses[sensor]
	e.mu.RUnlock()
	if !exists {
		return TickSnapshot{}, false
	}

	status.mu.Lock()
	defer status.mu.Unlock()

	return TickSnapshot{
		Sensor:           sensor,
		Profile:          status.Profile,
		PrevErr:          status.PrevErr,
		IBudget:          status.IBudget,
		PrevPowerBudget:  status.PrevPowerBudget,
		BudgetTransient:  status.BudgetTransient,
		PIDPowerBudget:   copyFloatMap(status.PIDPowerBudget),
		PIDCdevRequest:   copyIntMap(status.PIDCdevRequest),
		HardlimitRequest: copyIntMap(status.HardlimitRequest),
		ReleaseStep:      copyIntMap(status.ReleaseStep),
	}, true
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
