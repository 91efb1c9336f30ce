package simulate

import "sync"

// ProfileSource is a scripted throttle.SeveritySource: it returns whatever
// profile name was last set for a sensor via SetProfile, defaulting to the
// empty string (the default binding) for sensors never set.
type ProfileSource struct {
	mu       sync.RWMutex
	profiles map[string]string
}

// NewProfileSource creates a ProfileSource with every sensor defaulted to
// the empty (default-binding) profile.
func NewProfileSource() *ProfileSource {
	return &ProfileSource{profiles: make(map[string]string)}
}

// GetProfile implements throttle.SeveritySource.
func (p *ProfileSource) GetProfile(sensor string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.profiles[sensor]
}

// SetProfile scripts the profile a subsequent GetProfile call will return
// for sensor, e.g. to drive a scenario test through a profile switch.
func (p *ProfileSource) SetProfile(sensor, profile string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[sensor] = profile
}
