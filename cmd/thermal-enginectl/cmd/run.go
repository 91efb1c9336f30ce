package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thermalguard/enginecore/internal/config"
	"github.com/thermalguard/enginecore/internal/simulate"
	"github.com/thermalguard/enginecore/internal/throttle"
	"github.com/thermalguard/enginecore/pkg/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load the engine config and drive the tick loop",
	RunE:  runEngine,
}

func init() {
	runCmd.Flags().String("listen", ":9090", "HTTP listen address for /metrics and /cdev/{name}")
	runCmd.Flags().Duration("tick-interval", 0, "interval between control ticks (0 = use the config's sampling_interval_ms, falling back to 1s)")
	runCmd.Flags().Bool("simulate", true, "drive temperature/power/actuation from the in-memory simulator (the only collaborator implementation this build ships)")
	rootCmd.AddCommand(runCmd)
}

// engineHolder lets the config watcher swap in a freshly-built engine
// without the tick loop ever observing a half-updated one.
type engineHolder struct {
	mu     sync.RWMutex
	engine *throttle.Engine
	cfg    *config.EngineConfig
}

func (h *engineHolder) get() (*throttle.Engine, *config.EngineConfig) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.engine, h.cfg
}

func (h *engineHolder) swap(e *throttle.Engine, cfg *config.EngineConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.engine = e
	h.cfg = cfg
}

func runEngine(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	configPath, _ := cmd.Flags().GetString("config")
	listenAddr, _ := cmd.Flags().GetString("listen")
	tickInterval, _ := cmd.Flags().GetDuration("tick-interval")
	simulateMode, _ := cmd.Flags().GetBool("simulate")

	if !simulateMode {
		return fmt.Errorf("thermal-enginectl: real sysfs/hardware collaborators are not part of this build; rerun with --simulate")
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	emitter, err := metrics.New()
	if err != nil {
		return fmt.Errorf("building metrics emitter: %w", err)
	}

	holder := &engineHolder{}
	profiles := simulate.NewProfileSource()
	power := simulate.NewPowerStatusProvider()
	actuator := simulate.NewLoggingActuator(logger)
	stats := simulate.NewStatsRecorder()

	build := func() error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		e, err := buildEngine(cfg, profiles, logger, emitter)
		if err != nil {
			return err
		}
		holder.swap(e, cfg)
		return nil
	}
	if err := build(); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if tickInterval <= 0 {
		if _, cfg := holder.get(); cfg != nil && cfg.SamplingIntervalMs > 0 {
			tickInterval = time.Duration(cfg.SamplingIntervalMs) * time.Millisecond
		} else {
			tickInterval = time.Second
		}
	}

	watcher := config.NewWatcher(configPath, logger, func(cfg *config.EngineConfig) {
		e, err := buildEngine(cfg, profiles, logger, emitter)
		if err != nil {
			logger.Error("rejecting reloaded config", zap.Error(err))
			return
		}
		holder.swap(e, cfg)
		emitter.RecordReload(context.Background())
	})
	if err := watcher.Start(); err != nil {
		logger.Warn("config watcher unavailable, hot-reload disabled", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	router := chi.NewRouter()
	router.Handle("/metrics", emitter.Handler())
	router.Get("/cdev/{name}", debugCdevHandler(holder))

	server := &http.Server{Addr: listenAddr, Handler: router}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	traces := make(map[string]*simulate.TemperatureTrace)

	logger.Info("thermal-enginectl started", zap.String("listen", listenAddr), zap.String("config", configPath))

	for {
		select {
		case <-ticker.C:
			runTick(ctx, holder, traces, power, actuator, stats, emitter, logger, tickInterval)

		case <-stop:
			logger.Info("shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = server.Shutdown(shutdownCtx)
			_ = emitter.Shutdown(shutdownCtx)
			return nil
		}
	}
}

func runTick(
	ctx context.Context,
	holder *engineHolder,
	traces map[string]*simulate.TemperatureTrace,
	power *simulate.PowerStatusProvider,
	actuator *simulate.LoggingActuator,
	stats *simulate.StatsRecorder,
	emitter *metrics.Emitter,
	logger *zap.Logger,
	dt time.Duration,
) {
	engine, cfg := holder.get()
	if engine == nil || cfg == nil {
		return
	}

	for _, sc := range cfg.Sensors {
		trace, ok := traces[sc.Name]
		if !ok {
			trace = simulate.NewTemperatureTrace(25, 25, 0, 0.2, int64(len(traces)+1))
			traces[sc.Name] = trace
		}
		temp := trace.Next()

		sensor, ok := engine.Sensor(sc.Name)
		if !ok {
			continue
		}
		severity := simulate.SeverityFromThresholds(sensor, temp)

		if err := engine.ThermalThrottlingUpdate(sc.Name, temp, severity, dt, power.Snapshot(railsFor(sensor)), false, nil); err != nil {
			logger.Error("tick failed", zap.String("sensor", sc.Name), zap.Error(err))
			continue
		}

		changed, err := engine.ComputeCoolingDevicesRequest(sc.Name, severity, stats)
		if err != nil {
			logger.Error("combine failed", zap.String("sensor", sc.Name), zap.Error(err))
			continue
		}

		for _, cdev := range changed {
			max, ok := engine.GetCdevMaxRequest(cdev)
			if !ok {
				continue
			}
			if err := actuator.Apply(cdev, max); err != nil {
				logger.Error("actuator apply failed", zap.String("cdev", cdev), zap.Error(err))
			}
			emitter.RecordRegistryMax(cdev, max)
		}

		if snap, ok := engine.Snapshot(sc.Name); ok {
			emitter.RecordTick(ctx, snap)
		}
	}
}

func railsFor(sensor *throttle.SensorInfo) []string {
	if sensor.Throttling == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var rails []string
	add := func(b *throttle.BindedCdevInfo) {
		if b.PowerRail == "" {
			return
		}
		if _, ok := seen[b.PowerRail]; ok {
			return
		}
		seen[b.PowerRail] = struct{}{}
		rails = append(rails, b.PowerRail)
	}
	for _, b := range sensor.Throttling.BindedCdevs {
		add(b)
	}
	for _, bindings := range sensor.Throttling.Profiles {
		for _, b := range bindings {
			add(b)
		}
	}
	return rails
}

func buildEngine(cfg *config.EngineConfig, profiles *simulate.ProfileSource, logger *zap.Logger, emitter *metrics.Emitter) (*throttle.Engine, error) {
	cdevInfo := config.BuildCdevInfoMap(cfg)
	sensors, err := config.BuildSensors(cfg)
	if err != nil {
		return nil, err
	}

	selector := throttle.ProfileSelector{
		Source: profiles,
		Logger: func(sensor, from, to string) {
			logger.Info("profile changed", zap.String("sensor", sensor), zap.String("from", from), zap.String("to", to))
		},
	}

	engine := throttle.NewEngine(cdevInfo, selector, config.BuildOscillationGuardConfig(cfg))

	wasActive := make(map[string]bool)
	engine.OnTick(func(sensor string, active bool, windowFill int) {
		emitter.RecordGuard(sensor, active)
		if active && !wasActive[sensor] {
			logger.Info("oscillation guard tripped", zap.String("sensor", sensor), zap.Int("window_fill", windowFill))
		} else if !active && wasActive[sensor] {
			logger.Info("oscillation guard reset", zap.String("sensor", sensor), zap.Int("window_fill", windowFill))
		}
		wasActive[sensor] = active
	})

	for _, s := range sensors {
		if err := engine.RegisterThermalThrottling(s); err != nil {
			return nil, fmt.Errorf("registering sensor %q: %w", s.Name, err)
		}
	}
	return engine, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func debugCdevHandler(holder *engineHolder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		engine, _ := holder.get()
		if engine == nil {
			http.Error(w, "engine not ready", http.StatusServiceUnavailable)
			return
		}

		max, ok := engine.GetCdevMaxRequest(name)
		if !ok {
			http.Error(w, fmt.Sprintf("cdev %q has no recorded votes", name), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"cdev":        name,
			"max_request": max,
		})
	}
}
