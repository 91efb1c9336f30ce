package config

import (
	"math"

	"github.com/thermalguard/enginecore/internal/throttle"
)

// BuildCdevInfoMap converts the static CDEV power tables into the form the
// throttle engine expects.
func BuildCdevInfoMap(cfg *EngineConfig) throttle.CoolingDeviceInfoMap {
	out := make(throttle.CoolingDeviceInfoMap, len(cfg.Cdevs))
	for name, c := range cfg.Cdevs {
		out[name] = &throttle.CdevInfo{
			State2Power: append([]float64(nil), c.State2Power...),
			MaxState:    c.MaxState,
		}
	}
	return out
}

// BuildOscillationGuardConfig converts the root-level oscillation_guard
// override, falling back to throttle's stated defaults when absent.
func BuildOscillationGuardConfig(cfg *EngineConfig) throttle.OscillationGuardConfig {
	if cfg.OscillationGuard == nil {
		return throttle.DefaultOscillationGuardConfig()
	}
	return throttle.OscillationGuardConfig{
		WindowTicks:     cfg.OscillationGuard.WindowTicks,
		MaxSignFlipsPct: cfg.OscillationGuard.MaxSignFlipsPct,
		CooldownTicks:   cfg.OscillationGuard.CooldownTicks,
	}
}

// BuildSensors converts every configured sensor into a throttle.SensorInfo,
// ready for Engine.RegisterThermalThrottling.
func BuildSensors(cfg *EngineConfig) ([]*throttle.SensorInfo, error) {
	sensors := make([]*throttle.SensorInfo, 0, len(cfg.Sensors))
	for _, sc := range cfg.Sensors {
		si, err := buildSensor(sc)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, si)
	}
	return sensors, nil
}

func buildSensor(sc SensorConfig) (*throttle.SensorInfo, error) {
	si := &throttle.SensorInfo{
		Name:       sc.Name,
		Multiplier: sc.Multiplier,
	}
	fillSeverityFloats(si.HotThresholds[:], sc.HotThresholds)

	if sc.Predictor != nil {
		p := &throttle.PredictorInfo{
			SupportPIDCompensation: sc.Predictor.SupportPIDCompensation,
			PredictionWeights:      append([]float64(nil), sc.Predictor.PredictionWeights...),
		}
		fillSeverityFloats(p.KPCompensate[:], sc.Predictor.KPCompensate)
		si.Predictor = p
	}

	if sc.Throttling != nil {
		ti, err := buildThrottling(sc.Throttling)
		if err != nil {
			return nil, err
		}
		si.Throttling = ti
	}

	return si, nil
}

func buildThrottling(tc *ThrottlingConfig) (*throttle.ThrottlingInfo, error) {
	ti := &throttle.ThrottlingInfo{
		IDefault:  tc.IDefault,
		TranCycle: tc.TranCycle,
	}
	ti.IDefaultPct = math.NaN()
	if tc.IDefaultPct != nil {
		ti.IDefaultPct = *tc.IDefaultPct
	}

	for i := range ti.Gains {
		ti.Gains[i].SPower = math.NaN()
	}
	for i, g := range tc.Gains {
		if i >= len(ti.Gains) {
			break
		}
		gt := throttle.GainTable{
			KPOverheat:    g.KPOverheat,
			KPUnderheat:   g.KPUnderheat,
			KIOverheat:    g.KIOverheat,
			KIUnderheat:   g.KIUnderheat,
			KD:            g.KD,
			IMax:          g.IMax,
			ICutoff:       g.ICutoff,
			MinAllocPower: g.MinAllocPower,
			MaxAllocPower: g.MaxAllocPower,
		}
		gt.SPower = math.NaN()
		if g.SPower != nil {
			gt.SPower = *g.SPower
		}
		ti.Gains[i] = gt
	}

	ti.BindedCdevs = make(map[string]*throttle.BindedCdevInfo, len(tc.BindedCdevs))
	for name, bc := range tc.BindedCdevs {
		ti.BindedCdevs[name] = buildBinding(bc)
	}

	if len(tc.Profiles) > 0 {
		ti.Profiles = make(map[string]map[string]*throttle.BindedCdevInfo, len(tc.Profiles))
		for profile, bindings := range tc.Profiles {
			out := make(map[string]*throttle.BindedCdevInfo, len(bindings))
			for name, bc := range bindings {
				out[name] = buildBinding(bc)
			}
			ti.Profiles[profile] = out
		}
	}

	if len(tc.ExcludedPower) > 0 {
		ti.ExcludedRail = make(map[string][7]float64, len(tc.ExcludedPower))
		for rail, weights := range tc.ExcludedPower {
			var arr [7]float64
			fillSeverityFloatsFromPlain(arr[:], weights)
			ti.ExcludedRail[rail] = arr
		}
	}

	return ti, nil
}

func buildBinding(bc BindingConfig) *throttle.BindedCdevInfo {
	b := &throttle.BindedCdevInfo{
		PowerRail:               bc.PowerRail,
		HighPowerCheck:          bc.HighPowerCheck,
		Enabled:                 bc.Enabled,
		ThrottlingWithPowerLink: bc.ThrottlingWithPowerLink,
		Release:                 releaseLogicFromString(bc.Release),
		MaxThrottleStep:         math.MaxInt32,
		MaxReleaseStep:          math.MaxInt32,
	}
	if bc.MaxThrottleStep != nil {
		b.MaxThrottleStep = *bc.MaxThrottleStep
	}
	if bc.MaxReleaseStep != nil {
		b.MaxReleaseStep = *bc.MaxReleaseStep
	}

	fillSeverityFloats(b.CdevWeightForPID[:], bc.CdevWeightForPID)
	fillSeverityInts(b.LimitInfo[:], bc.LimitInfo)
	fillSeverityInts(b.CdevCeiling[:], bc.CdevCeiling)
	fillSeverityInts(b.CdevFloorWithPowerLink[:], bc.CdevFloorWithPowerLink)

	for i := range b.PowerThresholds {
		b.PowerThresholds[i] = math.NaN()
	}
	fillSeverityFloats(b.PowerThresholds[:], bc.PowerThresholds)

	return b
}

func releaseLogicFromString(s string) throttle.ReleaseLogic {
	switch s {
	case "INCREASE":
		return throttle.ReleaseIncrease
	case "DECREASE":
		return throttle.ReleaseDecrease
	case "STEPWISE":
		return throttle.ReleaseStepwise
	case "RELEASE_TO_FLOOR":
		return throttle.ReleaseToFloor
	default:
		return throttle.ReleaseNone
	}
}

func fillSeverityFloats(dst []float64, src []*float64) {
	for i := 0; i < len(dst) && i < len(src); i++ {
		if src[i] == nil {
			dst[i] = math.NaN()
		} else {
			dst[i] = *src[i]
		}
	}
}

func fillSeverityFloatsFromPlain(dst []float64, src []float64) {
	for i := range dst {
		dst[i] = math.NaN()
	}
	for i := 0; i < len(dst) && i < len(src); i++ {
		dst[i] = src[i]
	}
}

func fillSeverityInts(dst []int, src []int) {
	for i := 0; i < len(dst) && i < len(src); i++ {
		dst[i] = src[i]
	}
}
