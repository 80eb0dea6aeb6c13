package subtitle

import (
	"fmt"
	"strings"
	"time"
)

// Config controls how long a caption must stay on screen.
type Config struct {
	MinimumDisplayTime time.Duration
	WordsPerSecond     float64
}

func DefaultConfig() Config {
	return Config{
		MinimumDisplayTime: 2 * time.Second,
		WordsPerSecond:     3.0,
	}
}

func (c Config) Validate() error {
	if c.MinimumDisplayTime <= 0 {
		return fmt.Errorf("invalid MinimumDisplayTime: %v", c.MinimumDisplayTime)
	}
	if c.WordsPerSecond <= 0 {
		return fmt.Errorf("invalid WordsPerSecond: %f", c.WordsPerSecond)
	}
	return nil
}

// RequiredTime is max(MinimumDisplayTime, words/WordsPerSecond), where
// words are whitespace separated.
func (c Config) RequiredTime(text string) time.Duration {
	words := len(strings.Fields(text))
	reading := time.Duration(float64(words) / c.WordsPerSecond * float64(time.Second))
	if reading < c.MinimumDisplayTime {
		return c.MinimumDisplayTime
	}
	return reading
}

// RequiredTime uses the default pacing.
func RequiredTime(text string) time.Duration {
	return DefaultConfig().RequiredTime(text)
}
