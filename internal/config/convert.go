package config

import (
	"fmt"

	"github.com/leonardotrapani/livesub/internal/audio"
	"github.com/leonardotrapani/livesub/internal/filter"
	"github.com/leonardotrapani/livesub/internal/models"
	"github.com/leonardotrapani/livesub/internal/provider"
	"github.com/leonardotrapani/livesub/internal/recording"
	"github.com/leonardotrapani/livesub/internal/segment"
	"github.com/leonardotrapani/livesub/internal/subtitle"
	"github.com/leonardotrapani/livesub/internal/transcriber"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		Backend:           c.Recording.Backend,
		SampleRate:        c.Recording.SampleRate,
		Channels:          c.Recording.Channels,
		BlockSize:         c.Recording.BlockSize,
		Device:            c.Recording.Device,
		ChannelBufferSize: c.Recording.ChannelBufferSize,
		InputFile:         c.Recording.InputFile,
		Realtime:          c.Recording.Realtime,
	}
}

// ToSegmentConfig always runs the engine at the pipeline rate; sources
// resample to it.
func (c *Config) ToSegmentConfig() segment.Config {
	return segment.Config{
		SampleRate:              audio.SampleRate,
		SilenceThreshold:        c.Segmentation.SilenceThreshold,
		SilenceDurationRequired: c.Segmentation.SilenceDurationRequired,
		MaxSegmentDuration:      c.Segmentation.MaxSegmentDuration,
		MinSegmentSamples:       c.Segmentation.MinSegmentSamples,
		MinRecognizerSamples:    c.Segmentation.MinRecognizerSamples,
		MaxBufferDuration:       c.Segmentation.MaxBufferDuration,
	}
}

func (c *Config) ToSubtitleConfig() subtitle.Config {
	return subtitle.Config{
		MinimumDisplayTime: c.Display.MinimumDisplayTime,
		WordsPerSecond:     c.Display.WordsPerSecond,
	}
}

func (c *Config) ToFilterConfig() filter.Config {
	return filter.Config{
		Enabled:        c.Filter.Enabled,
		ExtraPhrases:   append([]string(nil), c.Filter.ExtraPhrases...),
		MaxRepeatRatio: c.Filter.MaxRepeatRatio,
	}
}

// ToTranscriberConfig resolves the API key and, for local providers, the
// model file.
func (c *Config) ToTranscriberConfig() (transcriber.Config, error) {
	config := transcriber.Config{
		Provider:   c.Transcription.Provider,
		APIKey:     c.ResolveAPIKey(c.Transcription.Provider),
		Model:      c.Transcription.Model,
		Language:   c.Transcription.Language,
		Task:       c.Transcription.Task,
		Threads:    c.Transcription.Threads,
		BaseURL:    c.Transcription.BaseURL,
		SampleRate: audio.SampleRate,
	}

	p := provider.Get(config.Provider)
	if p == nil {
		return config, fmt.Errorf("unsupported transcription.provider: %s", config.Provider)
	}
	if config.Model == "" {
		config.Model = p.DefaultModel
	}

	if p.Local {
		store, err := c.ModelStore()
		if err != nil {
			return config, err
		}
		path, err := store.Resolve(config.Model)
		if err != nil {
			return config, err
		}
		config.ModelPath = path
	}

	return config, nil
}

// ModelStore opens the ggml model directory.
func (c *Config) ModelStore() (*models.Store, error) {
	return models.NewStore(c.Transcription.ModelDir)
}

// ResolveAPIKey returns the key from [providers.<name>], then the
// provider's environment variable.
func (c *Config) ResolveAPIKey(providerName string) string {
	if c.Providers != nil {
		if pc, ok := c.Providers[providerName]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}
	if p := provider.Get(providerName); p != nil {
		return p.APIKeyFromEnv()
	}
	return ""
}
