package config

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Manager holds the current configuration and reloads it when the file
// changes on disk. Readers get copies; a reload never mutates a config a
// running session already took.
type Manager struct {
	mu       sync.RWMutex
	path     string
	config   *Config
	onChange []func(*Config)
	watcher  *fsnotify.Watcher
	wg       sync.WaitGroup
}

// NewManager loads path (default location when empty), falling back to
// defaults when the file does not exist yet.
func NewManager(path string) (*Manager, error) {
	configPath, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	config, err := LoadOrDefault(configPath)
	if err != nil {
		log.Error().Err(err).Msg("Config manager: failed to load initial configuration")
		return nil, err
	}

	if err := config.Validate(); err != nil {
		log.Warn().Err(err).Msg("Config manager: validation warning")
	}

	return &Manager{path: configPath, config: config}, nil
}

// Path is the file the manager loads and watches.
func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.clone()
}

// OnChange registers fn to run after every successful reload.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

func (m *Manager) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory: editors replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop(ctx)

	log.Info().Str("path", m.path).Msg("Config manager: watching for changes")
	return nil
}

func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Close()
	}
	m.wg.Wait()
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()
	configFileName := filepath.Base(m.path)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				log.Debug().Str("event", event.Op.String()).Msg("Config manager: file change detected")
				m.Reload()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Config manager: watcher error")

		case <-ctx.Done():
			return
		}
	}
}

// Reload re-reads the file. Invalid or unreadable files keep the previous
// configuration.
func (m *Manager) Reload() bool {
	newConfig, err := LoadFrom(m.path)
	if err != nil {
		log.Warn().Err(err).Msg("Config manager: failed to reload config")
		return false
	}
	if err := newConfig.Validate(); err != nil {
		log.Warn().Err(err).Msg("Config manager: invalid config after reload")
		return false
	}

	m.mu.Lock()
	m.config = newConfig
	callbacks := slices.Clone(m.onChange)
	m.mu.Unlock()

	log.Info().Msg("Config manager: configuration reloaded")
	for _, fn := range callbacks {
		fn(newConfig.clone())
	}
	return true
}

func (c *Config) clone() *Config {
	out := *c
	out.Providers = make(map[string]ProviderConfig, len(c.Providers))
	for k, v := range c.Providers {
		out.Providers[k] = v
	}
	out.Filter.ExtraPhrases = append([]string(nil), c.Filter.ExtraPhrases...)
	return &out
}
