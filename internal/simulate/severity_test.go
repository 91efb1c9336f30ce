package simulate_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thermalguard/enginecore/internal/simulate"
	"github.com/thermalguard/enginecore/internal/throttle"
)

func thresholdsSensor() *throttle.SensorInfo {
	s := &throttle.SensorInfo{Name: "skin"}
	for i := range s.HotThresholds {
		s.HotThresholds[i] = math.NaN()
	}
	s.HotThresholds[throttle.SeverityModerate] = 45.0
	s.HotThresholds[throttle.SeveritySevere] = 55.0
	return s
}

func TestSeverityFromThresholdsBelowLowest(t *testing.T) {
	assert.Equal(t, throttle.SeverityNone, simulate.SeverityFromThresholds(thresholdsSensor(), 30))
}

func TestSeverityFromThresholdsPicksHighestMet(t *testing.T) {
	assert.Equal(t, throttle.SeverityModerate, simulate.SeverityFromThresholds(thresholdsSensor(), 46))
	assert.Equal(t, throttle.SeveritySevere, simulate.SeverityFromThresholds(thresholdsSensor(), 60))
}

func TestSeverityFromThresholdsExactBoundary(t *testing.T) {
	assert.Equal(t, throttle.SeverityModerate, simulate.SeverityFromThresholds(thresholdsSensor(), 45.0))
}
