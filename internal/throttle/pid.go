package throttle

import "math"

// selectTargetState resolves the severity index used to look up every PID
// gain table this tick (SPEC_FULL.md §4.1). NaN SPower entries mean "no
// control at this severity"; the selector walks severities 0..curr
// recording the last non-NaN index seen, falling back to the lowest
// non-NaN severity above curr if none was found at or below it.
//
// This reproduces an observed quirk rather than a designed one: when every
// severity at or below curr is NaN, the first valid severity strictly
// above curr is used even though it exceeds curr. See DESIGN.md's Open
// Question decisions.
func selectTargetState(info *ThrottlingInfo, curr Severity) Severity {
	lastValid := -1
	for s := 0; s <= int(curr); s++ {
		if !math.IsNaN(info.Gains[s].SPower) {
			lastValid = s
		}
	}
	if lastValid >= 0 {
		return Severity(lastValid)
	}
	for s := int(curr) + 1; s < numSeverities; s++ {
		if !math.IsNaN(info.Gains[s].SPower) {
			return Severity(s)
		}
	}
	return curr
}

// PidBudgetCalculator computes a sensor's total power budget each tick
// using the severity-indexed PID law of SPEC_FULL.md §4.2.
type PidBudgetCalculator struct{}

// pidRequest returns the previously computed pid_cdev_request for cdev, or
// 0 if this is the first tick touching it.
func pidRequest(status *ThrottlingStatus, cdev string) int {
	return status.PIDCdevRequest[cdev]
}

// saturationFlags computes is_fully_release and is_fully_throttle over the
// sensor's currently active bindings (SPEC_FULL.md §4.2 step 1).
func saturationFlags(bindings map[string]*BindedCdevInfo, status *ThrottlingStatus, curr Severity) (isFullyRelease, isFullyThrottle bool) {
	isFullyRelease = true
	isFullyThrottle = true
	for name, b := range bindings {
		req := pidRequest(status, name)
		if req > b.LimitInfo[curr] {
			isFullyRelease = false
		}
		if req < b.CdevCeiling[curr] {
			isFullyThrottle = false
		}
	}
	return isFullyRelease, isFullyThrottle
}

// Compute runs one tick of the PID law for sensor, returning the total
// power budget (possibly +Inf when curr == SeverityNone). It mutates
// status's PID memory fields (PrevErr, IBudget, PrevTarget, TranCycle,
// BudgetTransient, PrevPowerBudget) in place.
//
// guard is this sensor's D1 oscillation guard (may be nil for an
// uncontrolled sensor's caller, though Compute is never reached for one).
// While its cooldown is active, the P-term is scaled by 0.1 and the
// integral is held at its current value rather than accumulated.
func (PidBudgetCalculator) Compute(
	sensor *SensorInfo,
	status *ThrottlingStatus,
	curr Severity,
	temp float64,
	dtMs float64,
	maxThrottling bool,
	predictions []float64,
	registry *CdevVoteRegistry,
	cdevInfo CoolingDeviceInfoMap,
	guard *oscillationGuard,
) float64 {
	if curr == SeverityNone {
		return math.Inf(1)
	}

	pScale, holdIntegral, _ := guard.beginTick()

	info := sensor.Throttling
	bindings := info.activeBindings(status.Profile)

	isFullyRelease, isFullyThrottle := saturationFlags(bindings, status, curr)

	// A target change (re)arms the transient countdown at its full
	// configured length; step 12 below counts it back down to zero over
	// the following ticks. See DESIGN.md's Open Question decisions.
	targetChanged := false
	if status.PrevTarget != SeverityNone && status.PrevTarget != curr && info.TranCycle > 0 {
		status.TranCycle = info.TranCycle
		targetChanged = true
	}
	status.PrevTarget = curr

	targetState := selectTargetState(info, curr)
	gains := info.Gains[targetState]

	target := sensor.HotThresholds[targetState]
	err := target - temp

	if maxThrottling && err <= 0 {
		return gains.MinAllocPower
	}

	var p float64
	if err < 0 {
		p = err * gains.KPOverheat
	} else {
		p = err * gains.KPUnderheat
	}
	p *= pScale

	if math.IsNaN(status.IBudget) {
		if math.IsNaN(info.IDefaultPct) {
			status.IBudget = info.IDefault
		} else {
			var totalAttainable float64
			for name := range bindings {
				state, ok := registry.Max(name)
				if !ok {
					state = 0
				}
				if ci, ok := cdevInfo[name]; ok {
					totalAttainable += ci.PowerAtState(state)
				}
			}
			status.IBudget = totalAttainable * info.IDefaultPct / 100
		}
	}

	if !holdIntegral && err < gains.ICutoff {
		if err < 0 && status.PrevPowerBudget > gains.MinAllocPower && !isFullyThrottle {
			status.IBudget += err * gains.KIOverheat
		} else if err > 0 && status.PrevPowerBudget < gains.MaxAllocPower && !isFullyRelease {
			status.IBudget += err * gains.KIUnderheat
		}
	}
	if status.IBudget > gains.IMax {
		status.IBudget = gains.IMax
	} else if status.IBudget < -gains.IMax {
		status.IBudget = -gains.IMax
	}

	var d float64
	if !math.IsNaN(status.PrevErr) && dtMs > 0 {
		d = gains.KD * (err - status.PrevErr) / dtMs
	}

	var comp float64
	if sensor.Predictor != nil && sensor.Predictor.SupportPIDCompensation && len(predictions) > 0 {
		var sum float64
		for i, w := range sensor.Predictor.PredictionWeights {
			if i >= len(predictions) {
				break
			}
			sum += w * (target - predictions[i]*sensor.Multiplier)
		}
		comp = sensor.Predictor.KPCompensate[targetState] * sum
	}

	raw := gains.SPower + p + status.IBudget + d + comp
	budget := clamp(raw, gains.MinAllocPower, gains.MaxAllocPower)

	if targetChanged {
		status.BudgetTransient = status.PrevPowerBudget - budget
		if math.IsNaN(status.BudgetTransient) {
			status.BudgetTransient = 0
		}
	}
	if status.TranCycle > 0 {
		budget += status.BudgetTransient * (float64(status.TranCycle) / float64(info.TranCycle))
		status.TranCycle--
	}

	status.PrevErr = err
	status.PrevPowerBudget = budget
	return budget
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
