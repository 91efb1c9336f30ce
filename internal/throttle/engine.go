package throttle

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Engine is A3: the orchestrator wiring C1-C8 together behind the
// external interface of SPEC_FULL.md §6. One Engine instance owns every
// registered sensor's state and the shared CdevVoteRegistry.
type Engine struct {
	mu       sync.RWMutex
	sensors  map[string]*SensorInfo
	statuses map[string]*ThrottlingStatus
	guards   map[string]*oscillationGuard
	cdevInfo CoolingDeviceInfoMap

	registry *CdevVoteRegistry
	profiles ProfileSelector
	guardCfg OscillationGuardConfig

	pid        PidBudgetCalculator
	allocator  PowerAllocator
	hardlimit  HardLimitResolver
	release    ReleaseEvaluator
	combiner   Combiner

	onTick func(sensor string, guardActive bool, guardWindowFill int)
}

// NewEngine creates an Engine with no sensors registered. guardCfg
// configures every sensor's D1 oscillation guard (SPEC_FULL.md §4.9).
func NewEngine(cdevInfo CoolingDeviceInfoMap, profiles ProfileSelector, guardCfg OscillationGuardConfig) *Engine {
	return &Engine{
		sensors:  make(map[string]*SensorInfo),
		statuses: make(map[string]*ThrottlingStatus),
		guards:   make(map[string]*oscillationGuard),
		cdevInfo: cdevInfo,
		registry: NewCdevVoteRegistry(),
		profiles: profiles,
		guardCfg: guardCfg,
	}
}

// OnTick installs an observer called at the end of every
// ComputeCoolingDevicesRequest that runs the Combiner (a registered,
// controlled sensor above SeverityNone), reporting the sensor's oscillation guard
// state: whether its cooldown is currently active, and how many ticks of
// sign history it has accumulated. Edge-triggered trip/reset logging is
// the caller's responsibility (see cmd/thermal-enginectl); the core only
// reports raw per-tick state so pkg/metrics can sample it as a gauge.
func (e *Engine) OnTick(f func(sensor string, guardActive bool, guardWindowFill int)) {
	e.onTick = f
}

// RegisterThermalThrottling registers sensor, failing with a *ConfigError
// if any CDEV it binds to (default binding or any profile) is unknown, or
// if the sensor is already registered.
func (e *Engine) RegisterThermalThrottling(info *SensorInfo) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.sensors[info.Name]; exists {
		return &ConfigError{Sensor: info.Name, Reason: "already registered"}
	}

	if info.Throttling != nil {
		for name := range info.Throttling.BindedCdevs {
			if _, ok := e.cdevInfo[name]; !ok {
				return &ConfigError{Sensor: info.Name, Reason: fmt.Sprintf("unknown bound cdev %q", name)}
			}
		}
		for _, bindings := range info.Throttling.Profiles {
			for name := range bindings {
				if _, ok := e.cdevInfo[name]; !ok {
					return &ConfigError{Sensor: info.Name, Reason: fmt.Sprintf("unknown bound cdev %q in profile", name)}
				}
			}
		}
	}

	status := newThrottlingStatus()
	if info.Throttling != nil {
		for name, b := range info.Throttling.BindedCdevs {
			if hasAnyWeight(b) || hasAnyHardLimit(b) || hasAnyThreshold(b) {
				status.CdevStatus[name] = struct{}{}
				status.PIDCdevRequest[name] = 0
				status.HardlimitRequest[name] = 0
				status.ReleaseStep[name] = 0
			}
		}
	}

	e.sensors[info.Name] = info
	e.statuses[info.Name] = status
	if info.Throttling != nil {
		e.guards[info.Name] = newOscillationGuard(e.guardCfg)
	}
	return nil
}

func hasAnyWeight(b *BindedCdevInfo) bool {
	for _, w := range b.CdevWeightForPID {
		if !math.IsNaN(w) && w > 0 {
			return true
		}
	}
	return false
}

func hasAnyHardLimit(b *BindedCdevInfo) bool {
	for _, l := range b.LimitInfo {
		if l != 0 {
			return true
		}
	}
	return false
}

func hasAnyThreshold(b *BindedCdevInfo) bool {
	for _, t := range b.PowerThresholds {
		if !math.IsNaN(t) {
			return true
		}
	}
	return false
}

// ClearThrottlingData resets a sensor's PID memory and per-CDEV fields and
// removes its votes from the registry.
func (e *Engine) ClearThrottlingData(sensor string) {
	e.mu.RLock()
	status, ok := e.statuses[sensor]
	guard := e.guards[sensor]
	e.mu.RUnlock()
	if !ok {
		return
	}

	status.mu.Lock()
	defer status.mu.Unlock()

	for name := range status.CdevStatus {
		if req, had := status.lastCombinedRequest[name]; had {
			e.registry.RemoveSensor(name, req)
		}
	}
	status.reset()
	guard.reset()
}

// GetCdevMaxRequest returns the registry's current maximum vote for cdev.
func (e *Engine) GetCdevMaxRequest(cdev string) (int, bool) {
	return e.registry.Max(cdev)
}

// Sensor returns the frozen configuration registered for sensor, letting
// callers (the CLI tick loop, pkg/metrics) read static fields like
// HotThresholds without reaching into the engine's internal maps directly.
func (e *Engine) Sensor(name string) (*SensorInfo, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	info, ok := e.sensors[name]
	return info, ok
}

// ThermalThrottlingUpdate is the per-sensor control tick: profile
// selection, PID budget, excluded-power adjustment, allocation,
// hard-limit resolution and release evaluation. It does not touch the
// CdevVoteRegistry; call ComputeCoolingDevicesRequest afterward to fuse
// and publish the result.
func (e *Engine) ThermalThrottlingUpdate(
	sensor string,
	temp float64,
	curr Severity,
	dt time.Duration,
	powerStatus PowerStatusMap,
	maxThrottling bool,
	predictions []float64,
) error {
	e.mu.RLock()
	info, ok := e.sensors[sensor]
	status := e.statuses[sensor]
	guard := e.guards[sensor]
	e.mu.RUnlock()
	if !ok {
		return &ConfigError{Sensor: sensor, Reason: "not registered"}
	}

	status.mu.Lock()
	defer status.mu.Unlock()

	if info.Throttling == nil {
		// An uncontrolled sensor has no profiles to select among; never
		// call ProfileSelector.Select for one (it dereferences
		// Throttling.Profiles).
		return nil
	}

	e.profiles.Select(info, status)

	if curr == SeverityNone {
		// No budgeting, no allocation, no vote: a sensor below its lowest
		// threshold casts no request at all this tick (SPEC_FULL.md §8,
		// cold-start scenario).
		return nil
	}

	dtMs := float64(dt.Milliseconds())

	budget := e.pid.Compute(info, status, curr, temp, dtMs, maxThrottling, predictions, e.registry, e.cdevInfo, guard)
	budget = applyExcludedPowerAdjustment(info.Throttling, curr, budget, powerStatus)

	ok = e.allocator.Allocate(info, status, curr, budget, maxThrottling, powerStatus, e.cdevInfo, e.registry)
	if !ok {
		for name := range status.CdevStatus {
			status.PIDCdevRequest[name] = 0
		}
	}

	e.hardlimit.Resolve(info, status, curr)
	maxState := 0
	for name := range status.CdevStatus {
		if ci := e.cdevInfo[name]; ci != nil && ci.MaxState > maxState {
			maxState = ci.MaxState
		}
	}
	e.release.Evaluate(info, status, curr, maxState, powerStatus)

	return nil
}

// ComputeCoolingDevicesRequest fuses this tick's pid/hardlimit/release
// requests into final per-CDEV votes, updates the CdevVoteRegistry, and
// returns the CDEVs whose effective (max-of-votes) state changed.
func (e *Engine) ComputeCoolingDevicesRequest(sensor string, curr Severity, stats StatsHelper) ([]string, error) {
	e.mu.RLock()
	info, ok := e.sensors[sensor]
	status := e.statuses[sensor]
	guard := e.guards[sensor]
	e.mu.RUnlock()
	if !ok {
		return nil, &ConfigError{Sensor: sensor, Reason: "not registered"}
	}

	status.mu.Lock()
	defer status.mu.Unlock()

	if info.Throttling == nil || curr == SeverityNone {
		return nil, nil
	}
	changed := e.combiner.Combine(info, status, curr, e.registry, stats)

	bindings := info.Throttling.activeBindings(status.Profile)
	if name, ok := highestWeightedCdev(bindings, curr); ok {
		guard.recordDelta(status.lastCombinedRequest[name])
	}
	if e.onTick != nil {
		e.onTick(sensor, guard.isActive(), guard.windowFill())
	}

	return changed, nil
}
