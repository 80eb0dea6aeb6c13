package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/leonardotrapani/livesub/internal/audio"
	"github.com/leonardotrapani/livesub/internal/language"
	"github.com/leonardotrapani/livesub/internal/provider"
)

// OpenAIRecognizer sends segments to an OpenAI-compatible audio API
// (OpenAI, Groq, Mistral).
type OpenAIRecognizer struct {
	client *openai.Client
	config Config
}

func NewOpenAIRecognizer(config Config) *OpenAIRecognizer {
	clientConfig := openai.DefaultConfig(config.APIKey)
	switch {
	case config.BaseURL != "":
		clientConfig.BaseURL = config.BaseURL
	case provider.Get(config.Provider) != nil:
		clientConfig.BaseURL = provider.Get(config.Provider).BaseURL
	}
	if config.SampleRate == 0 {
		config.SampleRate = audio.SampleRate
	}

	return &OpenAIRecognizer{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

func (a *OpenAIRecognizer) Recognize(ctx context.Context, samples []float32, segmentNumber int) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	path, err := audio.WriteTempWAV(samples, a.config.SampleRate)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	req := openai.AudioRequest{
		Model:    a.config.Model,
		FilePath: path,
	}

	start := time.Now()
	var resp openai.AudioResponse
	if a.config.translate() {
		resp, err = a.client.CreateTranslation(ctx, req)
	} else {
		req.Language = language.ForProvider(a.config.Language, a.config.Provider)
		resp, err = a.client.CreateTranscription(ctx, req)
	}
	duration := time.Since(start)

	if err != nil {
		log.Warn().
			Str("provider", a.config.Provider).
			Int("segment", segmentNumber).
			Dur("after", duration).
			Err(err).
			Msg("Transcriber: API call failed")
		return "", classifyAPIError(fmt.Errorf("%s %s: %w", a.config.Provider, a.taskName(), err))
	}

	log.Debug().
		Str("provider", a.config.Provider).
		Int("segment", segmentNumber).
		Dur("took", duration).
		Str("text", resp.Text).
		Msg("Transcriber: segment recognized")
	return resp.Text, nil
}

func (a *OpenAIRecognizer) taskName() string {
	if a.config.translate() {
		return "translation"
	}
	return "transcription"
}

// classifyAPIError marks credential and missing-model responses as fatal;
// everything else (rate limits, timeouts, 5xx) only costs the segment.
func classifyAPIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return NewFatalRecognitionError(err)
	}
	return err
}
