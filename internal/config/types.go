// Package config loads and validates the engine's sensor/CDEV binding
// configuration and converts it into the throttle package's runtime types.
package config

// SeverityCount mirrors throttle.numSeverities without importing the
// throttle package's internal constant. The config schema requires exactly
// this many entries in hot_thresholds, k_p_compensate and gains; the
// per-severity arrays inside bindings and excluded_power are not
// length-checked by the schema.
const SeverityCount = 7

// EngineConfig is the root configuration document.
type EngineConfig struct {
	SamplingIntervalMs int                     `yaml:"sampling_interval_ms"`
	Sensors            []SensorConfig          `yaml:"sensors"`
	Cdevs              map[string]CdevConfig   `yaml:"cdevs"`
	Metrics            MetricsConfig           `yaml:"metrics"`
	OscillationGuard   *OscillationGuardConfig `yaml:"oscillation_guard,omitempty"`
}

// CdevConfig is the static per-CDEV power table.
type CdevConfig struct {
	State2Power []float64 `yaml:"state2power"`
	MaxState    int       `yaml:"max_state"`
}

// MetricsConfig holds the metrics section of the document. It is parsed
// but not read by thermal-enginectl, whose HTTP listen address comes from
// the run command's --listen flag.
type MetricsConfig struct {
	PrometheusListenAddr string `yaml:"prometheus_listen_addr"`
}

// SensorConfig is one sensor's full configuration.
type SensorConfig struct {
	Name          string            `yaml:"name"`
	HotThresholds []*float64        `yaml:"hot_thresholds"`
	Multiplier    float64           `yaml:"multiplier"`
	Predictor     *PredictorConfig  `yaml:"predictor,omitempty"`
	Throttling    *ThrottlingConfig `yaml:"throttling,omitempty"`
}

// PredictorConfig configures optional predictive feed-forward compensation.
type PredictorConfig struct {
	SupportPIDCompensation bool       `yaml:"support_pid_compensation"`
	PredictionWeights      []float64  `yaml:"prediction_weights"`
	KPCompensate           []*float64 `yaml:"k_p_compensate"`
}

// ThrottlingConfig is the PID/binding configuration for a controlled sensor.
type ThrottlingConfig struct {
	Gains          []GainConfig                      `yaml:"gains"`
	IDefault       float64                            `yaml:"i_default"`
	IDefaultPct    *float64                           `yaml:"i_default_pct,omitempty"`
	TranCycle      int                                `yaml:"tran_cycle"`
	BindedCdevs    map[string]BindingConfig           `yaml:"binded_cdevs"`
	Profiles       map[string]map[string]BindingConfig `yaml:"profiles,omitempty"`
	ExcludedPower  map[string][]float64               `yaml:"excluded_power,omitempty"`
}

// GainConfig is one severity level's PID gain table. A nil SPower means
// "no control at this severity" (NaN at the throttle-package boundary).
type GainConfig struct {
	SPower        *float64 `yaml:"s_power"`
	KPOverheat    float64  `yaml:"k_po"`
	KPUnderheat   float64  `yaml:"k_pu"`
	KIOverheat    float64  `yaml:"k_io"`
	KIUnderheat   float64  `yaml:"k_iu"`
	KD            float64  `yaml:"k_d"`
	IMax          float64  `yaml:"i_max"`
	ICutoff       float64  `yaml:"i_cutoff"`
	MinAllocPower float64  `yaml:"min_alloc_power"`
	MaxAllocPower float64  `yaml:"max_alloc_power"`
}

// BindingConfig is one (sensor, CDEV) binding.
type BindingConfig struct {
	CdevWeightForPID       []*float64 `yaml:"cdev_weight_for_pid"`
	LimitInfo              []int      `yaml:"limit_info"`
	CdevCeiling             []int      `yaml:"cdev_ceiling"`
	CdevFloorWithPowerLink  []int      `yaml:"cdev_floor_with_power_link"`
	PowerRail               string     `yaml:"power_rail,omitempty"`
	PowerThresholds         []*float64 `yaml:"power_thresholds,omitempty"`
	HighPowerCheck          bool       `yaml:"high_power_check"`
	Release                 string     `yaml:"release_logic"`
	MaxThrottleStep         *int       `yaml:"max_throttle_step,omitempty"`
	MaxReleaseStep          *int       `yaml:"max_release_step,omitempty"`
	Enabled                 bool       `yaml:"enabled"`
	ThrottlingWithPowerLink bool       `yaml:"throttling_with_power_link"`
}

// OscillationGuardConfig overrides D1's default tick-count sliding-window
// parameters, engine-wide.
type OscillationGuardConfig struct {
	WindowTicks     int     `yaml:"window_ticks"`
	MaxSignFlipsPct float64 `yaml:"max_sign_flips_pct"`
	CooldownTicks   int     `yaml:"cooldown_ticks"`
}
