package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/livesub/internal/audio"
	"github.com/leonardotrapani/livesub/internal/language"
	"github.com/leonardotrapani/livesub/internal/provider"
)

// DeepgramRecognizer posts each segment to Deepgram's pre-recorded API.
type DeepgramRecognizer struct {
	config   Config
	endpoint string
	client   *http.Client
}

type deepgramResponse struct {
	Results *struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results,omitempty"`
	ErrCode string `json:"err_code,omitempty"`
	ErrMsg  string `json:"err_msg,omitempty"`
}

func NewDeepgramRecognizer(config Config) *DeepgramRecognizer {
	endpoint := config.BaseURL
	if endpoint == "" {
		endpoint = provider.Get(provider.Deepgram).BaseURL
	}
	if config.SampleRate == 0 {
		config.SampleRate = audio.SampleRate
	}
	return &DeepgramRecognizer{
		config:   config,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (a *DeepgramRecognizer) Recognize(ctx context.Context, samples []float32, segmentNumber int) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	path, err := audio.WriteTempWAV(samples, a.config.SampleRate)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	wavData, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read wav: %w", err)
	}

	apiURL, err := a.buildURL()
	if err != nil {
		return "", fmt.Errorf("build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(wavData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+a.config.APIKey)
	req.Header.Set("Content-Type", "audio/wav")

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("deepgram api error (status %d): %s", resp.StatusCode, string(body))
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "", NewFatalRecognitionError(err)
		}
		return "", err
	}

	var result deepgramResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if result.ErrMsg != "" {
		return "", fmt.Errorf("deepgram error %s: %s", result.ErrCode, result.ErrMsg)
	}

	var text string
	if result.Results != nil && len(result.Results.Channels) > 0 && len(result.Results.Channels[0].Alternatives) > 0 {
		text = result.Results.Channels[0].Alternatives[0].Transcript
	}

	log.Debug().
		Int("segment", segmentNumber).
		Dur("took", time.Since(start)).
		Str("text", text).
		Msg("Transcriber: deepgram segment recognized")
	return text, nil
}

func (a *DeepgramRecognizer) buildURL() (string, error) {
	u, err := url.Parse(a.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	q.Set("model", a.config.Model)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	if lang := language.ForProvider(a.config.Language, provider.Deepgram); lang != "" {
		q.Set("language", lang)
	} else {
		q.Set("detect_language", "true")
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}
