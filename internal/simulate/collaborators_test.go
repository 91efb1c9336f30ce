package simulate_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/thermalguard/enginecore/internal/simulate"
)

func TestProfileSourceDefaultsEmpty(t *testing.T) {
	p := simulate.NewProfileSource()
	assert.Equal(t, "", p.GetProfile("skin"))

	p.SetProfile("skin", "gaming")
	assert.Equal(t, "gaming", p.GetProfile("skin"))
}

func TestPowerStatusProviderWarmup(t *testing.T) {
	p := simulate.NewPowerStatusProvider()
	snap := p.Snapshot([]string{"vdd_apc"})
	assert.True(t, math.IsNaN(snap["vdd_apc"].LastUpdatedAvgPower))

	p.SetAvgPower("vdd_apc", 1200)
	snap = p.Snapshot([]string{"vdd_apc"})
	assert.Equal(t, 1200.0, snap["vdd_apc"].LastUpdatedAvgPower)

	p.ClearAvgPower("vdd_apc")
	snap = p.Snapshot([]string{"vdd_apc"})
	assert.True(t, math.IsNaN(snap["vdd_apc"].LastUpdatedAvgPower))
}

func TestLoggingActuatorRecordsState(t *testing.T) {
	a := simulate.NewLoggingActuator(zap.NewNop())

	_, ok := a.State("fan")
	assert.False(t, ok)

	assert.NoError(t, a.Apply("fan", 2))
	state, ok := a.State("fan")
	assert.True(t, ok)
	assert.Equal(t, 2, state)
}

func TestStatsRecorderCounts(t *testing.T) {
	r := simulate.NewStatsRecorder()
	assert.Equal(t, 0, r.ChangeCount("skin", "fan"))

	r.UpdateSensorCdevRequestStats("skin", "fan", 1)
	r.UpdateSensorCdevRequestStats("skin", "fan", 2)

	assert.Equal(t, 2, r.ChangeCount("skin", "fan"))
	last, ok := r.LastState("skin", "fan")
	assert.True(t, ok)
	assert.Equal(t, 2, last)
}
