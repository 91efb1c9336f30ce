package throttle

import "math"

// ReleaseEvaluator is C6: it relaxes or tightens a CDEV's combined request
// based on whether measured rail power is over or under its per-severity
// threshold, independent of the PID and hard-limit paths.
type ReleaseEvaluator struct{}

// Evaluate updates status.ReleaseStep for every bound CDEV whose release
// logic is not ReleaseNone. A CDEV with no usable rail reading gets 0
// (maxState when power-linked); one with a reading and a defined threshold
// for curr steps according to its policy; otherwise its step is unchanged.
func (ReleaseEvaluator) Evaluate(sensor *SensorInfo, status *ThrottlingStatus, curr Severity, maxState int, powerStatus PowerStatusMap) {
	bindings := sensor.Throttling.activeBindings(status.Profile)
	for name, b := range bindings {
		if b.Release == ReleaseNone {
			continue
		}

		avg := math.NaN()
		if b.PowerRail != "" {
			if ps, ok := powerStatus[b.PowerRail]; ok {
				avg = ps.LastUpdatedAvgPower
			}
		}

		if math.IsNaN(avg) || avg < 0 {
			if b.ThrottlingWithPowerLink {
				status.ReleaseStep[name] = maxState
			} else {
				status.ReleaseStep[name] = 0
			}
			continue
		}

		threshold := b.PowerThresholds[curr]
		if math.IsNaN(threshold) {
			continue
		}

		var isOverBudget bool
		if b.HighPowerCheck {
			isOverBudget = avg <= threshold
		} else {
			isOverBudget = avg >= threshold
		}

		step := status.ReleaseStep[name]
		switch b.Release {
		case ReleaseIncrease:
			if isOverBudget {
				step = 0
			} else {
				step--
			}
		case ReleaseDecrease:
			if isOverBudget {
				step = 0
			} else {
				step++
			}
		case ReleaseStepwise:
			if isOverBudget {
				step--
			} else {
				step++
			}
		case ReleaseToFloor:
			if isOverBudget {
				step = 0
			} else {
				step = maxState
			}
		}

		if step > maxState {
			step = maxState
		}
		if step < -maxState {
			step = -maxState
		}
		status.ReleaseStep[name] = step
	}
}
