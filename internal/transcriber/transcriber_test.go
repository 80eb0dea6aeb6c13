package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leonardotrapani/livesub/internal/provider"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"openai ok", Config{Provider: provider.OpenAI, APIKey: "sk-x"}, ""},
		{"openai translate", Config{Provider: provider.OpenAI, APIKey: "sk-x", Task: TaskTranslate}, ""},
		{"unknown provider", Config{Provider: "elevenlabs"}, "unsupported provider"},
		{"missing key", Config{Provider: provider.Groq}, "API key required"},
		{"deepgram translate", Config{Provider: provider.Deepgram, APIKey: "k", Task: TaskTranslate}, "does not support translation"},
		{"bad task", Config{Provider: provider.OpenAI, APIKey: "sk-x", Task: "summarize"}, "invalid task"},
		{"local without model", Config{Provider: provider.WhisperCLI}, "needs a model path"},
		{"local ok", Config{Provider: provider.WhisperCLI, ModelPath: "/m.bin"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		check  func(Recognizer) bool
	}{
		{"openai", Config{Provider: provider.OpenAI, APIKey: "sk-x"}, func(r Recognizer) bool { _, ok := r.(*OpenAIRecognizer); return ok }},
		{"groq", Config{Provider: provider.Groq, APIKey: "gsk_x"}, func(r Recognizer) bool { _, ok := r.(*OpenAIRecognizer); return ok }},
		{"mistral", Config{Provider: provider.Mistral, APIKey: "x"}, func(r Recognizer) bool { _, ok := r.(*OpenAIRecognizer); return ok }},
		{"deepgram", Config{Provider: provider.Deepgram, APIKey: "x"}, func(r Recognizer) bool { _, ok := r.(*DeepgramRecognizer); return ok }},
		{"whisper-cli", Config{Provider: provider.WhisperCLI, ModelPath: "/m.bin"}, func(r Recognizer) bool { _, ok := r.(*WhisperCLIRecognizer); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.config)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if !tt.check(r) {
				t.Errorf("New() returned %T", r)
			}
		})
	}

	if _, err := New(Config{Provider: "nope"}); err == nil {
		t.Error("New() should reject unknown providers")
	}
}

func TestFatalRecognitionError(t *testing.T) {
	base := errors.New("bad key")
	err := fmt.Errorf("segment 2: %w", NewFatalRecognitionError(base))

	if !IsFatalRecognitionError(err) {
		t.Error("wrapped fatal error not detected")
	}
	if !errors.Is(err, base) {
		t.Error("fatal error should unwrap to its cause")
	}
	if IsFatalRecognitionError(base) {
		t.Error("plain error reported as fatal")
	}
	if NewFatalRecognitionError(nil) != nil {
		t.Error("wrapping nil should return nil")
	}
}

func newOpenAIServer(t *testing.T, status int, text string) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":{"message":"nope","type":"invalid_request_error"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
	t.Cleanup(server.Close)
	return server, &paths
}

func TestOpenAIRecognizer(t *testing.T) {
	t.Run("transcription", func(t *testing.T) {
		server, paths := newOpenAIServer(t, http.StatusOK, "hello there")
		r := NewOpenAIRecognizer(Config{Provider: provider.OpenAI, APIKey: "sk-test", Model: "whisper-1", BaseURL: server.URL})

		text, err := r.Recognize(context.Background(), make([]float32, 16000), 0)
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if text != "hello there" {
			t.Errorf("text = %q", text)
		}
		if len(*paths) != 1 || (*paths)[0] != "/audio/transcriptions" {
			t.Errorf("paths = %v", *paths)
		}
	})

	t.Run("translation", func(t *testing.T) {
		server, paths := newOpenAIServer(t, http.StatusOK, "good morning")
		r := NewOpenAIRecognizer(Config{Provider: provider.OpenAI, APIKey: "sk-test", Model: "whisper-1", Task: TaskTranslate, BaseURL: server.URL})

		text, err := r.Recognize(context.Background(), make([]float32, 16000), 1)
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if text != "good morning" {
			t.Errorf("text = %q", text)
		}
		if len(*paths) != 1 || (*paths)[0] != "/audio/translations" {
			t.Errorf("paths = %v", *paths)
		}
	})

	t.Run("empty samples skip the request", func(t *testing.T) {
		server, paths := newOpenAIServer(t, http.StatusOK, "x")
		r := NewOpenAIRecognizer(Config{Provider: provider.OpenAI, APIKey: "sk-test", BaseURL: server.URL})
		if text, err := r.Recognize(context.Background(), nil, 0); err != nil || text != "" {
			t.Errorf("Recognize(nil) = %q, %v", text, err)
		}
		if len(*paths) != 0 {
			t.Errorf("unexpected requests: %v", *paths)
		}
	})

	tests := []struct {
		status    int
		wantFatal bool
	}{
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusNotFound, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			server, _ := newOpenAIServer(t, tt.status, "")
			r := NewOpenAIRecognizer(Config{Provider: provider.OpenAI, APIKey: "sk-test", BaseURL: server.URL})
			_, err := r.Recognize(context.Background(), make([]float32, 1600), 0)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := IsFatalRecognitionError(err); got != tt.wantFatal {
				t.Errorf("fatal = %v, want %v (err: %v)", got, tt.wantFatal, err)
			}
		})
	}
}

func TestDeepgramRecognizer(t *testing.T) {
	t.Run("transcript", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Token dg-key" {
				t.Errorf("Authorization = %q", got)
			}
			if got := r.Header.Get("Content-Type"); got != "audio/wav" {
				t.Errorf("Content-Type = %q", got)
			}
			q := r.URL.Query()
			if q.Get("model") != "nova-3" || q.Get("language") != "en-US" {
				t.Errorf("query = %v", q)
			}
			body, _ := io.ReadAll(r.Body)
			if !strings.HasPrefix(string(body), "RIFF") {
				t.Error("body is not a wav file")
			}
			_, _ = io.WriteString(w, `{"results":{"channels":[{"alternatives":[{"transcript":"Hello world."}]}]}}`)
		}))
		defer server.Close()

		r := NewDeepgramRecognizer(Config{Provider: provider.Deepgram, APIKey: "dg-key", Model: "nova-3", Language: "en", BaseURL: server.URL})
		text, err := r.Recognize(context.Background(), make([]float32, 16000), 0)
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if text != "Hello world." {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("auto language", func(t *testing.T) {
		r := NewDeepgramRecognizer(Config{Provider: provider.Deepgram, Model: "nova-2", BaseURL: "https://example.invalid/v1/listen"})
		u, err := r.buildURL()
		if err != nil {
			t.Fatalf("buildURL() error = %v", err)
		}
		if !strings.Contains(u, "detect_language=true") || strings.Contains(u, "language=&") {
			t.Errorf("url = %s", u)
		}
	})

	t.Run("unauthorized is fatal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"err_code":"INVALID_AUTH"}`, http.StatusUnauthorized)
		}))
		defer server.Close()

		r := NewDeepgramRecognizer(Config{Provider: provider.Deepgram, APIKey: "bad", Model: "nova-3", BaseURL: server.URL})
		_, err := r.Recognize(context.Background(), make([]float32, 1600), 0)
		if !IsFatalRecognitionError(err) {
			t.Errorf("expected fatal error, got %v", err)
		}
	})

	t.Run("server error is not fatal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		r := NewDeepgramRecognizer(Config{Provider: provider.Deepgram, APIKey: "k", Model: "nova-3", BaseURL: server.URL})
		_, err := r.Recognize(context.Background(), make([]float32, 1600), 0)
		if err == nil || IsFatalRecognitionError(err) {
			t.Errorf("expected non-fatal error, got %v", err)
		}
	})
}
