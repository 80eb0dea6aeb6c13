//go:build whisper_cpp

package transcriber

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/livesub/internal/language"
	"github.com/leonardotrapani/livesub/internal/provider"
)

// WhisperCppRecognizer runs whisper.cpp in-process through its Go bindings.
// The model is loaded once; segments are processed one at a time.
type WhisperCppRecognizer struct {
	model    whisperpkg.Model
	config   Config
	threads  uint
	language string
	mu       sync.Mutex
}

func NewWhisperCppRecognizer(config Config) (Recognizer, error) {
	model, err := whisperpkg.New(config.ModelPath)
	if err != nil {
		return nil, NewFatalRecognitionError(fmt.Errorf("load model %q: %w", config.ModelPath, err))
	}

	threads := uint(runtime.NumCPU())
	if config.Threads > 0 {
		threads = uint(config.Threads)
	}

	log.Info().
		Str("model", config.ModelPath).
		Uint("threads", threads).
		Msg("Transcriber: whisper.cpp model loaded")

	return &WhisperCppRecognizer{
		model:    model,
		config:   config,
		threads:  threads,
		language: language.ForProvider(config.Language, provider.WhisperCpp),
	}, nil
}

func (r *WhisperCppRecognizer) Recognize(ctx context.Context, samples []float32, segmentNumber int) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	wctx, err := r.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create context: %w", err)
	}
	wctx.SetThreads(r.threads)
	if err := wctx.SetLanguage(r.language); err != nil {
		return "", NewFatalRecognitionError(fmt.Errorf("set language %q: %w", r.language, err))
	}
	wctx.SetTranslate(r.config.translate())

	start := time.Now()
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process audio: %w", err)
	}

	var parts []string
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("next segment: %w", err)
		}
		parts = append(parts, strings.TrimSpace(seg.Text))
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	log.Debug().
		Int("segment", segmentNumber).
		Dur("took", time.Since(start)).
		Str("text", text).
		Msg("Transcriber: whisper.cpp segment recognized")
	return text, nil
}

func (r *WhisperCppRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model != nil {
		return r.model.Close()
	}
	return nil
}
