package simulate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thermalguard/enginecore/internal/simulate"
)

func TestTemperatureTraceRampsTowardTarget(t *testing.T) {
	tr := simulate.NewTemperatureTrace(30, 50, 2, 0, 1)

	var last float64
	for i := 0; i < 20; i++ {
		last = tr.Next()
	}
	assert.Equal(t, 50.0, last)
}

func TestTemperatureTraceRampsDownToTarget(t *testing.T) {
	tr := simulate.NewTemperatureTrace(60, 40, 5, 0, 1)

	var last float64
	for i := 0; i < 10; i++ {
		last = tr.Next()
	}
	assert.Equal(t, 40.0, last)
}
