package segment

import (
	"fmt"
	"time"

	"github.com/leonardotrapani/livesub/internal/audio"
)

// Config holds the segmentation tunables. All of them are required; use
// DefaultConfig for sensible speech defaults.
type Config struct {
	SampleRate int

	// SilenceThreshold is the RMS below which a block counts as silence.
	SilenceThreshold float32

	// SilenceDurationRequired is how long silence must last after speech
	// before the utterance is cut.
	SilenceDurationRequired time.Duration

	// MaxSegmentDuration forces a cut so a single segment never exceeds the
	// recognizer's input ceiling.
	MaxSegmentDuration time.Duration

	// MinSegmentSamples is the smallest buffer a silence cut may extract.
	MinSegmentSamples int

	// MinRecognizerSamples is the length extracted segments are zero-padded to.
	MinRecognizerSamples int

	// MaxBufferDuration is the absolute ceiling; older samples are dropped past it.
	MaxBufferDuration time.Duration
}

func DefaultConfig() Config {
	return Config{
		SampleRate:              audio.SampleRate,
		SilenceThreshold:        0.02,
		SilenceDurationRequired: 800 * time.Millisecond,
		MaxSegmentDuration:      15 * time.Second,
		MinSegmentSamples:       audio.SampleRate / 10,
		MinRecognizerSamples:    audio.SampleRate,
		MaxBufferDuration:       30 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", c.SampleRate)
	}
	if c.SilenceThreshold <= 0 {
		return fmt.Errorf("invalid SilenceThreshold: %f", c.SilenceThreshold)
	}
	if c.SilenceDurationRequired <= 0 {
		return fmt.Errorf("invalid SilenceDurationRequired: %v", c.SilenceDurationRequired)
	}
	if c.MaxSegmentDuration <= 0 {
		return fmt.Errorf("invalid MaxSegmentDuration: %v", c.MaxSegmentDuration)
	}
	if c.MinSegmentSamples < 0 {
		return fmt.Errorf("invalid MinSegmentSamples: %d", c.MinSegmentSamples)
	}
	if c.MinRecognizerSamples < 0 {
		return fmt.Errorf("invalid MinRecognizerSamples: %d", c.MinRecognizerSamples)
	}
	if c.MaxBufferDuration < c.MaxSegmentDuration {
		return fmt.Errorf("MaxBufferDuration %v must not be below MaxSegmentDuration %v",
			c.MaxBufferDuration, c.MaxSegmentDuration)
	}
	return nil
}

func (c Config) maxBufferSamples() int {
	return audio.DurationToSamples(c.MaxBufferDuration, c.SampleRate)
}
