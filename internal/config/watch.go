package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Watcher watches a config file's containing directory and invokes onReload
// whenever the file is written or recreated, debouncing to let editors and
// atomic-rename writers finish. Adapted from the corpus's policy-file
// watch loop (internal/extension/piccontrolext).
//
// onReload receives a freshly parsed, schema-valid EngineConfig; the
// caller is expected to build a new throttle.Engine from it and swap the
// reference atomically rather than mutate sensors already registered on
// the running one — per-sensor configuration stays frozen for the
// lifetime of its registration.
type Watcher struct {
	path     string
	onReload func(*EngineConfig)
	logger   *zap.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// NewWatcher creates a Watcher for path. Call Start to begin watching.
func NewWatcher(path string, logger *zap.Logger, onReload func(*EngineConfig)) *Watcher {
	return &Watcher{
		path:     path,
		onReload: onReload,
		logger:   logger,
		debounce: 100 * time.Millisecond,
	}
}

// Start begins watching the config file's directory in a background
// goroutine. Call Stop to end it.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fw

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			time.Sleep(w.debounce)
			// Coalesce the rest of the burst into this one reload.
		drain:
			for {
				select {
				case _, ok := <-w.watcher.Events:
					if !ok {
						return
					}
				default:
					break drain
				}
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Error("config reload failed, keeping previous configuration", zap.Error(err))
				continue
			}
			w.logger.Info("config reloaded",
				zap.String("path", w.path),
				zap.String("reload_id", uuid.New().String()),
			)
			w.onReload(cfg)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", zap.Error(err))

		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the watch goroutine.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}
