package metrics_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thermalguard/enginecore/internal/throttle"
	"github.com/thermalguard/enginecore/pkg/metrics"
)

func TestNewRegistersInstruments(t *testing.T) {
	e, err := metrics.New()
	require.NoError(t, err)
	require.NotNil(t, e.Handler())
}

func TestRecordTickExposesGauges(t *testing.T) {
	e, err := metrics.New()
	require.NoError(t, err)

	e.RecordTick(context.Background(), throttle.TickSnapshot{
		Sensor:          "skin",
		PrevErr:         -5,
		IBudget:         100,
		PrevPowerBudget: 1500,
		PIDCdevRequest:  map[string]int{"fan": 2},
	})
	e.RecordGuard("skin", true)
	e.RecordRegistryMax("fan", 2)
	e.RecordReload(context.Background())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	e.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "enginecore_pid_error")
	assert.Contains(t, body, "enginecore_allocator_cdev_request")
	assert.Contains(t, body, "enginecore_oscillation_guard_tripped")
	assert.Contains(t, body, "enginecore_registry_max_request")
	assert.Contains(t, body, "enginecore_config_reload_total")
}
