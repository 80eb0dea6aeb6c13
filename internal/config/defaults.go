package config

import (
	"github.com/leonardotrapani/livesub/internal/filter"
	"github.com/leonardotrapani/livesub/internal/provider"
	"github.com/leonardotrapani/livesub/internal/recording"
	"github.com/leonardotrapani/livesub/internal/segment"
	"github.com/leonardotrapani/livesub/internal/subtitle"
	"github.com/leonardotrapani/livesub/internal/transcriber"
)

// DefaultConfig returns the configuration used when no file exists yet.
func DefaultConfig() *Config {
	rec := recording.DefaultConfig()
	seg := segment.DefaultConfig()
	sub := subtitle.DefaultConfig()
	flt := filter.DefaultConfig()

	return &Config{
		Recording: RecordingConfig{
			Backend:           rec.Backend,
			SampleRate:        rec.SampleRate,
			Channels:          rec.Channels,
			BlockSize:         rec.BlockSize,
			Device:            rec.Device,
			ChannelBufferSize: rec.ChannelBufferSize,
			Realtime:          rec.Realtime,
		},
		Segmentation: SegmentationConfig{
			SilenceThreshold:        seg.SilenceThreshold,
			SilenceDurationRequired: seg.SilenceDurationRequired,
			MaxSegmentDuration:      seg.MaxSegmentDuration,
			MinSegmentSamples:       seg.MinSegmentSamples,
			MinRecognizerSamples:    seg.MinRecognizerSamples,
			MaxBufferDuration:       seg.MaxBufferDuration,
		},
		Display: DisplayConfig{
			MinimumDisplayTime: sub.MinimumDisplayTime,
			WordsPerSecond:     sub.WordsPerSecond,
			Terminal:           true,
		},
		Transcription: TranscriptionConfig{
			Provider: provider.WhisperCLI,
			Task:     transcriber.TaskTranscribe,
		},
		Providers: make(map[string]ProviderConfig),
		Filter: FilterConfig{
			Enabled:        flt.Enabled,
			MaxRepeatRatio: flt.MaxRepeatRatio,
		},
		Overlay: OverlayConfig{
			Enabled: false,
			Addr:    "127.0.0.1:7766",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
	}
}
