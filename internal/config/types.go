package config

import "time"

type Config struct {
	Recording     RecordingConfig           `toml:"recording"`
	Segmentation  SegmentationConfig        `toml:"segmentation"`
	Display       DisplayConfig             `toml:"display"`
	Transcription TranscriptionConfig       `toml:"transcription"`
	Providers     map[string]ProviderConfig `toml:"providers"`
	Filter        FilterConfig              `toml:"filter"`
	Overlay       OverlayConfig             `toml:"overlay"`
	Notifications NotificationsConfig       `toml:"notifications"`
	Session       SessionConfig             `toml:"session"`
}

// ProviderConfig holds API key for a provider
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}

type RecordingConfig struct {
	Backend           string `toml:"backend"` // "pipewire", "malgo", "file"
	SampleRate        int    `toml:"sample_rate"`
	Channels          int    `toml:"channels"`
	BlockSize         int    `toml:"block_size"`
	Device            string `toml:"device"`
	ChannelBufferSize int    `toml:"channel_buffer_size"`
	InputFile         string `toml:"input_file"`
	Realtime          bool   `toml:"realtime"`
}

// SegmentationConfig carries the segmentation engine tunables.
type SegmentationConfig struct {
	SilenceThreshold        float32       `toml:"silence_threshold"`
	SilenceDurationRequired time.Duration `toml:"silence_duration_required"`
	MaxSegmentDuration      time.Duration `toml:"max_segment_duration"`
	MinSegmentSamples       int           `toml:"min_segment_samples"`
	MinRecognizerSamples    int           `toml:"min_recognizer_samples"`
	MaxBufferDuration       time.Duration `toml:"max_buffer_duration"`
}

type DisplayConfig struct {
	MinimumDisplayTime time.Duration `toml:"minimum_display_time"`
	WordsPerSecond     float64       `toml:"words_per_second"`
	Terminal           bool          `toml:"terminal"`
}

type TranscriptionConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`    // empty for the provider's default
	Language string `toml:"language"` // empty for auto-detect
	Task     string `toml:"task"`     // "transcribe" or "translate"
	Threads  int    `toml:"threads"`  // CPU threads for local recognition (0 = auto)
	BaseURL  string `toml:"base_url"`
	ModelDir string `toml:"model_dir"` // ggml model directory (empty = default)
}

type FilterConfig struct {
	Enabled        bool     `toml:"enabled"`
	ExtraPhrases   []string `toml:"extra_phrases"`
	MaxRepeatRatio float64  `toml:"max_repeat_ratio"`
}

type OverlayConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

type SessionConfig struct {
	// MaxDuration stops a listening session automatically; 0 disables it.
	MaxDuration time.Duration `toml:"max_duration"`
}
