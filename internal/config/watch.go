package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the configuration when the config file changes on
// disk, so tunables (quiet window, retry backoff, classifier timeout)
// can be adjusted without restarting the assistant.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
	done    chan struct{}
}

// Watch starts watching the config directory and invokes onReload with
// the freshly loaded configuration after every write to config.yaml.
func Watch(onReload func(*Config), logger zerolog.Logger) (*Watcher, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(configDir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		logger:  logger.With().Str("component", "config-watch").Logger(),
		done:    make(chan struct{}),
	}

	go w.loop(onReload)
	return w, nil
}

func (w *Watcher) loop(onReload func(*Config)) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if filepath.Base(event.Name) != "config.yaml" {
				continue
			}
			cfg, err := Load()
			if err != nil {
				w.logger.Warn().Err(err).Msg("Config reload failed, keeping previous values")
				continue
			}
			w.logger.Info().Msg("Config reloaded")
			onReload(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Config watcher error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
