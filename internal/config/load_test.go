package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermalguard/enginecore/internal/config"
	"github.com/thermalguard/enginecore/internal/throttle"
)

const validDoc = `
sensors:
  - name: skin
    hot_thresholds: [null, null, 45.0, null, null, null, null]
    multiplier: 1.0
    throttling:
      gains:
        - {}
        - {}
        - s_power: 1000
          k_po: -100
          k_pu: 0
          i_max: 1000
          min_alloc_power: 0
          max_alloc_power: 2000
        - {}
        - {}
        - {}
        - {}
      i_default: 0
      tran_cycle: 4
      binded_cdevs:
        fan:
          cdev_weight_for_pid: [null, null, 1.0, null, null, null, null]
          limit_info: [0, 0, 0, 0, 0, 0, 0]
          cdev_ceiling: [4, 4, 4, 4, 4, 4, 4]
          cdev_floor_with_power_link: [0, 0, 0, 0, 0, 0, 0]
          enabled: true
          release_logic: NONE
cdevs:
  fan:
    state2power: [2000, 1500, 1000, 500, 0]
    max_state: 4
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(validDoc))
	require.NoError(t, err)
	require.Len(t, cfg.Sensors, 1)
	assert.Equal(t, "skin", cfg.Sensors[0].Name)
	assert.Equal(t, 45.0, *cfg.Sensors[0].HotThresholds[2])
}

func TestParseMissingRequiredField(t *testing.T) {
	_, err := config.Parse([]byte("sensors: []\n"))
	assert.Error(t, err)
}

func TestOscillationGuardDefaultsWhenAbsent(t *testing.T) {
	cfg, err := config.Parse([]byte(validDoc))
	require.NoError(t, err)
	assert.Nil(t, cfg.OscillationGuard)

	got := config.BuildOscillationGuardConfig(cfg)
	assert.Equal(t, throttle.DefaultOscillationGuardConfig(), got)
}

func TestOscillationGuardOverrideFromRootDocument(t *testing.T) {
	doc := validDoc + "oscillation_guard:\n  window_ticks: 5\n  max_sign_flips_pct: 50\n  cooldown_ticks: 2\n"
	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, cfg.OscillationGuard)

	got := config.BuildOscillationGuardConfig(cfg)
	assert.Equal(t, throttle.OscillationGuardConfig{WindowTicks: 5, MaxSignFlipsPct: 50, CooldownTicks: 2}, got)
}

func TestBuildSensorsAndCdevs(t *testing.T) {
	cfg, err := config.Parse([]byte(validDoc))
	require.NoError(t, err)

	cdevInfo := config.BuildCdevInfoMap(cfg)
	require.Contains(t, cdevInfo, "fan")
	assert.Equal(t, 4, cdevInfo["fan"].MaxState)

	sensors, err := config.BuildSensors(cfg)
	require.NoError(t, err)
	require.Len(t, sensors, 1)

	sensor := sensors[0]
	require.NotNil(t, sensor.Throttling)
	assert.Equal(t, 1000.0, sensor.Throttling.Gains[2].SPower)
	require.Contains(t, sensor.Throttling.BindedCdevs, "fan")
	assert.Equal(t, 1.0, sensor.Throttling.BindedCdevs["fan"].CdevWeightForPID[2])
}
