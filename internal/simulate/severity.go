// Package simulate provides in-memory reference implementations of the
// control core's external collaborators (severity/profile source, power
// status, cooling-device actuator), used by the CLI's --simulate mode and
// by scenario-style tests. None of it is part of the control core itself;
// a real deployment reads thermal zones and writes sysfs nodes instead.
package simulate

import (
	"math"

	"github.com/thermalguard/enginecore/internal/throttle"
)

// SeverityFromThresholds derives a sensor's current severity by scanning its
// configured hot_thresholds for the highest trip point temp has met or
// exceeded, mirroring the kernel thermal framework's trip-point model that a
// real severity source would read from a thermal zone's sysfs nodes.
func SeverityFromThresholds(sensor *throttle.SensorInfo, temp float64) throttle.Severity {
	result := throttle.SeverityNone
	for s := throttle.SeverityLight; s <= throttle.SeverityShutdown; s++ {
		threshold := sensor.HotThresholds[s]
		if math.IsNaN(threshold) {
			continue
		}
		if temp >= threshold {
			result = s
		}
	}
	return result
}
