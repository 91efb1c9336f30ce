package throttle

import (
	"math"
	"sort"
)

// PowerAllocator is C4: it splits a sensor's total power budget across its
// bound CDEVs by per-severity weight, excluding already-floored low-power
// CDEVs in a first pass, then allocating the remainder with slew limiting
// in a second pass (SPEC_FULL.md §4.4).
type PowerAllocator struct{}

type allocPlan struct {
	budget    float64
	allocated bool // true once pass 2 has written a new budget for this cdev
}

// Allocate runs both allocation passes and the budget-to-state mapping,
// writing status.PIDPowerBudget and status.PIDCdevRequest for every CDEV
// it touches. It returns false (PowerLinkInvalid, §7) if a CDEV with
// ThrottlingWithPowerLink set has no usable rail data; callers must then
// zero every pid_cdev_request entry for this sensor this tick.
func (PowerAllocator) Allocate(
	sensor *SensorInfo,
	status *ThrottlingStatus,
	curr Severity,
	totalBudget float64,
	maxThrottling bool,
	powerStatus PowerStatusMap,
	cdevInfo CoolingDeviceInfoMap,
	registry *CdevVoteRegistry,
) bool {
	bindings := sensor.Throttling.activeBindings(status.Profile)

	type active struct {
		name   string
		b      *BindedCdevInfo
		weight float64
	}
	var actives []active
	totalWeight := 0.0
	for name, b := range bindings {
		if !b.Enabled || !b.HasPID(curr) {
			continue
		}
		w := b.CdevWeightForPID[curr]
		actives = append(actives, active{name, b, w})
		totalWeight += w
	}
	sort.Slice(actives, func(i, j int) bool { return actives[i].name < actives[j].name })

	allocated := make(map[string]bool)
	var allocatedPower, allocatedWeight float64
	dataInvalidByCdev := make(map[string]bool)
	avgPowerByCdev := make(map[string]float64)

	powerDataInvalid := false
	for _, a := range actives {
		avg := math.NaN()
		if a.b.PowerRail != "" {
			if ps, ok := powerStatus[a.b.PowerRail]; ok {
				avg = ps.LastUpdatedAvgPower
			}
		}
		invalid := math.IsNaN(avg) || a.b.PowerRail == ""
		dataInvalidByCdev[a.name] = invalid
		avgPowerByCdev[a.name] = avg

		if invalid && a.b.ThrottlingWithPowerLink {
			return false
		}
		if invalid {
			powerDataInvalid = true
			break
		}

		target := totalBudget * a.weight / totalWeight
		adj := target - avg
		if adj > 0 && status.PIDCdevRequest[a.name] == 0 {
			allocated[a.name] = true
			allocatedPower += avg
			allocatedWeight += a.weight
		}
	}

	if !powerDataInvalid {
		totalBudget -= allocatedPower
		totalWeight -= allocatedWeight
	} else {
		// Pass 1 aborted partway through; whichever CDEVs it had already
		// excluded (in sorted order, so deterministically the same set
		// every call) must not be skipped by pass 2 without their
		// allocated_power/allocated_weight having been subtracted above.
		for k := range allocated {
			delete(allocated, k)
		}
	}

	for _, a := range actives {
		if allocated[a.name] {
			continue
		}

		ci := cdevInfo[a.name]
		if ci == nil {
			continue
		}

		// An aborted pass 1 invalidates power data for the whole sensor:
		// every CDEV falls back to weight-only allocation this tick.
		dataInvalid := powerDataInvalid || dataInvalidByCdev[a.name]
		avg := avgPowerByCdev[a.name]

		var target float64
		if totalWeight > 0 {
			target = totalBudget * a.weight / totalWeight
		}
		adj := target - avg
		currVote := status.PIDCdevRequest[a.name]

		if !dataInvalid && adj < 0 && currVote >= ci.MaxState {
			continue
		}

		currBudget, hadBudget := status.PIDPowerBudget[a.name]

		var budget float64
		switch {
		case !a.b.Enabled:
			budget = ci.PowerAtState(0)
		case !dataInvalid && a.b.PowerRail != "" && hadBudget:
			if avg > currBudget && avg > 0 {
				budget = currBudget + adj*(currBudget/avg)
			} else {
				budget = currBudget + adj
			}
		default:
			budget = target
		}

		ceiling := ci.PowerAtState(0)
		budget = clamp(budget, 0, ceiling)

		if !maxThrottling {
			if (dataInvalid || adj > 0) && a.b.MaxReleaseStep != math.MaxInt32 {
				step := a.b.MaxReleaseStep
				for currVote-step > a.b.LimitInfo[curr] &&
					currVote-step >= 0 && ci.PowerAtState(currVote-step) == ci.PowerAtState(currVote) {
					step++
				}
				target := currVote - step
				if target < 0 {
					target = 0
				}
				if !dataInvalid {
					if max, ok := registry.Max(a.name); ok && currVote < max {
						budget = ci.PowerAtState(currVote)
					} else {
						budget = ci.PowerAtState(target)
					}
				} else {
					budget = ci.PowerAtState(target)
				}
			}
			if (dataInvalid || adj < 0) && a.b.MaxThrottleStep != math.MaxInt32 {
				step := a.b.MaxThrottleStep
				for currVote+step < a.b.CdevCeiling[curr] && ci.PowerAtState(currVote+step) == ci.PowerAtState(currVote) {
					step++
				}
				targetState := currVote + step
				if targetState > a.b.CdevCeiling[curr] {
					targetState = a.b.CdevCeiling[curr]
				}
				if v := ci.PowerAtState(targetState); v > budget {
					budget = v
				}
			}
		}

		status.PIDPowerBudget[a.name] = budget
		status.PIDCdevRequest[a.name] = budgetToState(ci, budget)
	}

	return true
}

// budgetToState maps a power budget to the lowest-index CDEV state whose
// draw is at or below it (SPEC_FULL.md §4.4, budget-to-state mapping).
func budgetToState(ci *CdevInfo, budget float64) int {
	for i, p := range ci.State2Power {
		if p <= budget {
			return i
		}
	}
	return len(ci.State2Power) - 1
}
