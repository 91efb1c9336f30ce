package throttle

// Combiner is C7: per sensor, per bound CDEV, it fuses the PID request,
// hard-limit request and release step into one final vote, updates the
// CdevVoteRegistry, and reports which CDEVs' effective (max-of-votes)
// state changed as a result.
type Combiner struct{}

// Combine runs the fusion for every CDEV in status.CdevStatus and returns
// the names of CDEVs whose registry max changed this tick. stats is
// notified once per CDEV whose combined request (this sensor's own vote,
// not necessarily the registry max) changed.
func (Combiner) Combine(sensor *SensorInfo, status *ThrottlingStatus, curr Severity, registry *CdevVoteRegistry, stats StatsHelper) []string {
	bindings := sensor.Throttling.activeBindings(status.Profile)
	var changed []string

	for name := range status.CdevStatus {
		b, ok := bindings[name]
		if !ok {
			continue
		}

		pid := status.PIDCdevRequest[name]
		hard := status.HardlimitRequest[name]
		rs := status.ReleaseStep[name]

		req := pid
		if hard > req {
			req = hard
		}

		if rs != 0 {
			if rs >= req {
				req = 0
			} else {
				req -= rs
			}
			if floor := b.CdevFloorWithPowerLink[curr]; req < floor {
				req = floor
			}
		}
		if ceiling := b.CdevCeiling[curr]; req > ceiling {
			req = ceiling
		}

		prev, hadPrev := status.lastCombinedRequest[name]
		if !hadPrev || prev != req {
			registryChanged := registry.Update(name, hadPrev, prev, req)
			status.lastCombinedRequest[name] = req
			if stats != nil {
				stats.UpdateSensorCdevRequestStats(sensor.Name, name, req)
			}
			if registryChanged {
				changed = append(changed, name)
			}
		}
	}

	return changed
}
