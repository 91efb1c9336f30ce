package simulate

import "sync"

// StatsRecorder is a reference throttle.StatsHelper: it counts how many
// times each (sensor, cdev) combined request changed and remembers the
// most recent state, for --simulate mode and scenario assertions.
type StatsRecorder struct {
	mu      sync.Mutex
	changes map[string]int
	last    map[string]int
}

// NewStatsRecorder creates an empty StatsRecorder.
func NewStatsRecorder() *StatsRecorder {
	return &StatsRecorder{
		changes: make(map[string]int),
		last:    make(map[string]int),
	}
}

// UpdateSensorCdevRequestStats implements throttle.StatsHelper.
func (r *StatsRecorder) UpdateSensorCdevRequestStats(sensor, cdev string, state int) {
	key := sensor + "/" + cdev
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes[key]++
	r.last[key] = state
}

// ChangeCount returns how many times (sensor, cdev)'s combined request changed.
func (r *StatsRecorder) ChangeCount(sensor, cdev string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes[sensor+"/"+cdev]
}

// LastState returns the most recent combined request recorded for (sensor, cdev).
func (r *StatsRecorder) LastState(sensor, cdev string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.last[sensor+"/"+cdev]
	return s, ok
}
