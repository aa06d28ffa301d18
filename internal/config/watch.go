package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads a table-listener configuration file, emitting
// the freshly validated Config on every write. It is structured the
// same way the teacher's FileTrigger watches a workflow directory:
// an fsnotify.Watcher driving a select loop with an explicit done
// channel, started and stopped as an owned resource.
type Watcher struct {
	logger  *zap.Logger
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
	updates chan *Config
	errs    chan error
}

// NewWatcher creates a Watcher for the given configuration file path.
func NewWatcher(path string, logger *zap.Logger) *Watcher {
	return &Watcher{
		logger:  logger,
		path:    path,
		done:    make(chan struct{}),
		updates: make(chan *Config, 1),
		errs:    make(chan error, 1),
	}
}

// Start begins watching the configuration file. Updates are delivered
// on Updates(); parse/validation failures on Errors(). The file is
// read once immediately so the first Config is available without
// waiting for a write.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: new watcher: %w", err)
	}
	w.watcher = watcher

	if cfg, err := LoadFile(w.path); err == nil {
		w.updates <- cfg
	} else {
		w.errs <- err
	}

	go func() {
		defer watcher.Close()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				w.logger.Debug("table listener config changed", zap.String("file", event.Name))

				cfg, err := LoadFile(w.path)
				if err != nil {
					w.logger.Warn("failed to reload table listener config", zap.Error(err))
					select {
					case w.errs <- err:
					default:
					}
					continue
				}

				select {
				case w.updates <- cfg:
				default:
					// drop the stale pending update in favor of the fresh one
					select {
					case <-w.updates:
					default:
					}
					w.updates <- cfg
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Error("config watcher error", zap.Error(err))

			case <-w.done:
				return
			}
		}
	}()

	if err := watcher.Add(w.path); err != nil {
		return fmt.Errorf("config: watch %s: %w", w.path, err)
	}

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
}

// Updates returns the channel of freshly validated configs.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Errors returns the channel of reload failures.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}
