package throttle

import "math"

// applyExcludedPowerAdjustment implements SPEC_FULL.md §4.3: subtract each
// excluded rail's measured average power, scaled by its per-severity
// weight, from the sensor's budget. Rails with no measurement yet (NaN)
// contribute nothing. The result is clamped to a non-negative budget.
func applyExcludedPowerAdjustment(info *ThrottlingInfo, curr Severity, budget float64, powerStatus PowerStatusMap) float64 {
	if math.IsInf(budget, 1) {
		return budget
	}
	for rail, weights := range info.ExcludedRail {
		ps, ok := powerStatus[rail]
		if !ok || math.IsNaN(ps.LastUpdatedAvgPower) {
			continue
		}
		budget -= ps.LastUpdatedAvgPower * weights[curr]
	}
	if budget < 0 {
		budget = 0
	}
	return budget
}
