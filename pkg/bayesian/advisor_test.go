package bayesian

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimAdvisorSuggestStaysInBounds(t *testing.T) {
	adv := NewTrimAdvisor(GainRange{
		MinKPOverheat: -200, MaxKPOverheat: -50,
		MinKPUnderheat: 0, MaxKPUnderheat: 50,
	})

	history := []TickSample{
		{Severity: 2, Err: -5, Overshoot: 1.2},
		{Severity: 2, Err: -6, Overshoot: 1.6},
		{Severity: 2, Err: -4, Overshoot: 0.9},
		{Severity: 2, Err: 3, Overshoot: -0.4},
	}

	kpo, kpu := adv.Suggest(history)
	assert.GreaterOrEqual(t, kpo, -200.0)
	assert.LessOrEqual(t, kpo, -50.0)
	assert.GreaterOrEqual(t, kpu, 0.0)
	assert.LessOrEqual(t, kpu, 50.0)
}

func TestTrimAdvisorEmptyHistoryReturnsMidpoint(t *testing.T) {
	adv := NewTrimAdvisor(GainRange{
		MinKPOverheat: -100, MaxKPOverheat: -100,
		MinKPUnderheat: 10, MaxKPUnderheat: 10,
	})

	kpo, kpu := adv.Suggest(nil)
	assert.Equal(t, -100.0, kpo)
	assert.Equal(t, 10.0, kpu)
}

func TestTrimAdvisorBestKnownTracksImprovement(t *testing.T) {
	adv := NewTrimAdvisor(GainRange{
		MinKPOverheat: -150, MaxKPOverheat: -20,
		MinKPUnderheat: 0, MaxKPUnderheat: 40,
	})

	history := []TickSample{
		{Severity: 3, Err: -8, Overshoot: 2.0},
		{Severity: 3, Err: -7, Overshoot: 1.7},
	}
	adv.Suggest(history)

	kpo, kpu, fitness := adv.BestKnown()
	assert.GreaterOrEqual(t, kpo, -150.0)
	assert.LessOrEqual(t, kpu, 40.0)
	assert.LessOrEqual(t, fitness, 0.0)
}
