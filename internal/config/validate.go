package config

import (
	"fmt"
	"net"

	"github.com/leonardotrapani/livesub/internal/language"
	"github.com/leonardotrapani/livesub/internal/provider"
	"github.com/leonardotrapani/livesub/internal/transcriber"
)

func (c *Config) Validate() error {
	if err := c.ToRecordingConfig().Validate(); err != nil {
		return fmt.Errorf("invalid recording: %w", err)
	}
	if err := c.ToSegmentConfig().Validate(); err != nil {
		return fmt.Errorf("invalid segmentation: %w", err)
	}
	if err := c.ToSubtitleConfig().Validate(); err != nil {
		return fmt.Errorf("invalid display: %w", err)
	}
	if err := c.ToFilterConfig().Validate(); err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}

	if c.Overlay.Enabled {
		if _, _, err := net.SplitHostPort(c.Overlay.Addr); err != nil {
			return fmt.Errorf("invalid overlay.addr: %q: %w", c.Overlay.Addr, err)
		}
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	if c.Session.MaxDuration < 0 {
		return fmt.Errorf("invalid session.max_duration: %v", c.Session.MaxDuration)
	}

	return nil
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	p := provider.Get(t.Provider)
	if p == nil {
		return fmt.Errorf("unsupported transcription.provider: %q (must be one of %v)", t.Provider, provider.List())
	}

	switch t.Task {
	case "", transcriber.TaskTranscribe:
	case transcriber.TaskTranslate:
		if !p.SupportsTranslation {
			return fmt.Errorf("transcription.task = translate is not supported by %s", p.Name)
		}
	default:
		return fmt.Errorf("invalid transcription.task: %s (must be transcribe or translate)", t.Task)
	}

	if t.Language != "" && !language.IsValidCode(t.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use empty string for auto-detect or ISO-639-1 codes like 'en', 'es', 'fr')", t.Language)
	}
	model := t.Model
	if model == "" {
		model = p.DefaultModel
	}
	if !provider.SupportsLanguage(p.Name, model, language.Normalize(t.Language)) {
		return fmt.Errorf("model %s on %s does not support language %s", model, p.Name, t.Language)
	}

	if t.Threads < 0 {
		return fmt.Errorf("invalid transcription.threads: %d", t.Threads)
	}

	if p.RequiresAPIKey {
		key := c.ResolveAPIKey(p.Name)
		if key == "" {
			return fmt.Errorf("%s API key required: not found in config (providers.%s.api_key) or environment variable (%s)", p.DisplayName, p.Name, p.EnvVar)
		}
		if !p.ValidateAPIKey(key) {
			return fmt.Errorf("%s API key looks malformed (expected prefix %q)", p.DisplayName, p.KeyPrefix)
		}
	}

	return nil
}
