package throttle

// ProfileSelector is C8: it resolves the active profile name for a sensor
// from an external runtime property, falling back to the default binding
// when unset or unrecognized. Switching profiles changes which bindings
// the allocator iterates but never touches PID memory.
type ProfileSelector struct {
	Source SeveritySource
	Logger func(sensor, from, to string)
}

// Select updates status.Profile in place and returns the resolved value.
func (p ProfileSelector) Select(sensor *SensorInfo, status *ThrottlingStatus) string {
	if p.Source == nil {
		return status.Profile
	}

	requested := p.Source.GetProfile(sensor.Name)
	next := ""
	if requested != "" {
		if _, ok := sensor.Throttling.Profiles[requested]; ok {
			next = requested
		}
	}

	if next != status.Profile {
		if p.Logger != nil {
			p.Logger(sensor.Name, status.Profile, next)
		}
		status.Profile = next
	}
	return status.Profile
}
