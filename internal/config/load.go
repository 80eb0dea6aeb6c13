package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

var ErrConfigNotFound = errors.New("config not found")

// GetConfigPath returns ~/.config/livesub/config.toml, creating the directory.
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	dir := filepath.Join(configDir, "livesub")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(dir, "config.toml"), nil
}

// resolvePath returns path, or the default location when path is empty.
func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return GetConfigPath()
}

func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads the file at path on top of DefaultConfig, so keys missing
// from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	configPath, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w at %s: run livesub configure", ErrConfigNotFound, configPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	log.Debug().Str("path", configPath).Msg("Config: loading configuration")
	config := DefaultConfig()
	meta, err := toml.DecodeFile(configPath, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		log.Warn().Str("path", configPath).Msgf("Config: ignoring unknown keys %v", undecoded)
	}

	if config.Providers == nil {
		config.Providers = make(map[string]ProviderConfig)
	}

	log.Debug().Msg("Config: configuration loaded successfully")
	return config, nil
}

// LoadOrDefault falls back to DefaultConfig when no file exists.
func LoadOrDefault(path string) (*Config, error) {
	config, err := LoadFrom(path)
	if errors.Is(err, ErrConfigNotFound) {
		log.Info().Msg("Config: no config file found, using defaults")
		return DefaultConfig(), nil
	}
	return config, err
}

func Save(config *Config) error {
	return SaveTo("", config)
}

// SaveTo writes config atomically to path (default location when empty).
func SaveTo(path string, config *Config) error {
	configPath, err := resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(configPath), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(configHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config header: %w", err)
	}
	if err := toml.NewEncoder(tmp).Encode(config); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close config file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to chmod config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info().Str("path", configPath).Msg("Config: configuration saved")
	return nil
}

const configHeader = `# livesub configuration
# Changes are picked up by a running daemon and apply to the next session.
#
# recording.backend: "pipewire" (pw-record), "malgo" (miniaudio), "file"
# transcription.provider: "whisper-cli", "whisper-cpp", "openai", "groq", "mistral", "deepgram"
# transcription.task: "transcribe" or "translate" (to English)
# notifications.type: "desktop", "log", "none"

`
