package throttle

// HardLimitResolver is C5: a severity-table lookup that runs independently
// of the PID path, so a CDEV is never left unbounded solely because PID
// gains are misconfigured.
type HardLimitResolver struct{}

// Resolve writes status.HardlimitRequest for every bound CDEV.
func (HardLimitResolver) Resolve(sensor *SensorInfo, status *ThrottlingStatus, curr Severity) {
	bindings := sensor.Throttling.activeBindings(status.Profile)
	for name, b := range bindings {
		if !b.Enabled {
			status.HardlimitRequest[name] = 0
			continue
		}
		status.HardlimitRequest[name] = b.LimitInfo[curr]
	}
}
