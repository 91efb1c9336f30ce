package simulate

import (
	"sync"

	"go.uber.org/zap"
)

// LoggingActuator implements throttle.CoolingDeviceActuator by logging every
// applied state and recording it in memory, standing in for a real
// sysfs-writing actuator in --simulate mode and in tests. Grounded on the
// corpus's constructor-injected *zap.Logger convention (e.g.
// internal/control/pid's StreamlinedController).
type LoggingActuator struct {
	logger *zap.Logger

	mu     sync.RWMutex
	states map[string]int
}

// NewLoggingActuator creates a LoggingActuator that logs through logger.
func NewLoggingActuator(logger *zap.Logger) *LoggingActuator {
	return &LoggingActuator{logger: logger, states: make(map[string]int)}
}

// Apply implements throttle.CoolingDeviceActuator.
func (a *LoggingActuator) Apply(cdev string, state int) error {
	a.mu.Lock()
	a.states[cdev] = state
	a.mu.Unlock()

	a.logger.Info("cdev state applied",
		zap.String("cdev", cdev),
		zap.Int("state", state),
	)
	return nil
}

// State returns the last state applied to cdev, or false if never applied.
func (a *LoggingActuator) State(cdev string) (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.states[cdev]
	return s, ok
}
