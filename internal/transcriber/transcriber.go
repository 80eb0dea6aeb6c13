package transcriber

import (
	"context"
	"fmt"

	"github.com/leonardotrapani/livesub/internal/provider"
)

// Recognizer turns one extracted segment into text. Implementations must be
// safe for concurrent use; segments overlap when a duration cut fires
// while an earlier segment is still being recognized.
type Recognizer interface {
	Recognize(ctx context.Context, samples []float32, segmentNumber int) (string, error)
}

const (
	TaskTranscribe = "transcribe"
	TaskTranslate  = "translate"
)

type Config struct {
	Provider string
	APIKey   string
	Model    string
	Language string
	Task     string
	Threads  int
	// BaseURL overrides the provider's API endpoint.
	BaseURL string
	// ModelPath is the ggml model file for local providers.
	ModelPath  string
	SampleRate int
}

func (c Config) Validate() error {
	p := provider.Get(c.Provider)
	if p == nil {
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
	switch c.Task {
	case "", TaskTranscribe:
	case TaskTranslate:
		if !p.SupportsTranslation {
			return fmt.Errorf("provider %s does not support translation", c.Provider)
		}
	default:
		return fmt.Errorf("invalid task: %s", c.Task)
	}
	if p.RequiresAPIKey && c.APIKey == "" {
		return fmt.Errorf("%s API key required (set providers.%s.api_key or %s)", p.Name, p.Name, p.EnvVar)
	}
	if p.Local && c.ModelPath == "" {
		return fmt.Errorf("%s needs a model path", p.Name)
	}
	return nil
}

func (c Config) translate() bool {
	return c.Task == TaskTranslate
}

// New builds the recognizer for cfg.Provider.
func New(cfg Config) (Recognizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = provider.Get(cfg.Provider).DefaultModel
	}

	switch cfg.Provider {
	case provider.OpenAI, provider.Groq, provider.Mistral:
		return NewOpenAIRecognizer(cfg), nil
	case provider.Deepgram:
		return NewDeepgramRecognizer(cfg), nil
	case provider.WhisperCLI:
		return NewWhisperCLIRecognizer(cfg), nil
	case provider.WhisperCpp:
		return NewWhisperCppRecognizer(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
