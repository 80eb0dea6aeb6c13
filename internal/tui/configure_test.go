package tui

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/livesub/internal/config"
	"github.com/leonardotrapani/livesub/internal/models"
	"github.com/leonardotrapani/livesub/internal/provider"
)

func TestGetTranscriptionModelOptions(t *testing.T) {
	options := getTranscriptionModelOptions(provider.Groq, nil)
	if len(options) != 2 {
		t.Fatalf("expected 2 options for groq, got %d", len(options))
	}
	for _, opt := range options {
		if opt.Value == "whisper-large-v3-turbo" && !strings.Contains(opt.Key, "(recommended)") {
			t.Errorf("default model not marked: %s", opt.Key)
		}
	}

	if got := getTranscriptionModelOptions("nope", nil); got != nil {
		t.Errorf("unknown provider returned %d options", len(got))
	}
}

func TestGetTranscriptionModelOptionsMarksInstalled(t *testing.T) {
	store, err := models.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path, _ := store.Path("tiny")
	if err := os.WriteFile(path, []byte("ggml"), 0o644); err != nil {
		t.Fatal(err)
	}

	options := getTranscriptionModelOptions(provider.WhisperCLI, store)
	if len(options) != len(models.List()) {
		t.Fatalf("expected one option per catalogue model, got %d", len(options))
	}
	for _, opt := range options {
		installed := strings.Contains(opt.Key, "[installed]")
		if installed != (opt.Value == "tiny") {
			t.Errorf("option %s installed marker = %v", opt.Value, installed)
		}
	}
}

func TestGetProviderOptions(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "gsk_env")

	cfg := config.DefaultConfig()
	options := getProviderOptions(cfg)
	if len(options) != len(provider.List()) {
		t.Fatalf("got %d options, want %d", len(options), len(provider.List()))
	}

	labels := map[string]string{}
	for _, opt := range options {
		labels[opt.Value] = opt.Key
	}
	if !strings.Contains(labels[provider.OpenAI], "not configured") {
		t.Errorf("openai label = %q", labels[provider.OpenAI])
	}
	if strings.Contains(labels[provider.Groq], "not configured") {
		t.Errorf("groq key from env not honoured: %q", labels[provider.Groq])
	}
	if !strings.Contains(labels[provider.WhisperCLI], "[local]") {
		t.Errorf("whisper-cli label = %q", labels[provider.WhisperCLI])
	}
}

func TestGetLanguageOptions(t *testing.T) {
	options := getLanguageOptions(provider.WhisperCLI, "base.en")
	if options[0].Value != "" {
		t.Fatalf("first option should be auto-detect, got %q", options[0].Value)
	}
	for _, opt := range options[1:] {
		unsupported := strings.Contains(opt.Key, "unsupported")
		if unsupported != (opt.Value != "en") {
			t.Errorf("language %s unsupported marker = %v", opt.Value, unsupported)
		}
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"short", "***"},
		{"sk-1234567890abcdef", "sk-1234...cdef"},
	}
	for _, tt := range tests {
		if got := maskAPIKey(tt.key); got != tt.want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestAPIKeyValidator(t *testing.T) {
	validate := apiKeyValidator(provider.Get(provider.OpenAI))
	if err := validate(""); err != nil {
		t.Errorf("empty key should be allowed: %v", err)
	}
	if err := validate("sk-abc"); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
	if err := validate("gsk_abc"); err == nil {
		t.Error("groq key accepted for openai")
	}
}

func TestKeyedProviders(t *testing.T) {
	want := []string{provider.Deepgram, provider.Groq, provider.Mistral, provider.OpenAI}
	if got := keyedProviders(); !reflect.DeepEqual(got, want) {
		t.Errorf("keyedProviders() = %v, want %v", got, want)
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name     string
		validate func(string) error
		input    string
		wantErr  bool
	}{
		{"positive int", validatePositiveInt, "4", false},
		{"positive int zero", validatePositiveInt, "0", true},
		{"non-negative int zero", validateNonNegativeInt, "0", false},
		{"non-negative int text", validateNonNegativeInt, "four", true},
		{"duration", validatePositiveDuration, "800ms", false},
		{"duration bare number", validatePositiveDuration, "800", true},
		{"duration zero", validatePositiveDuration, "0s", true},
		{"optional duration empty", validateOptionalDuration, "", false},
		{"optional duration", validateOptionalDuration, "30m", false},
		{"optional duration negative", validateOptionalDuration, "-1s", true},
		{"ratio", validateFloatRange(0, 1), "0.6", false},
		{"ratio upper bound", validateFloatRange(0, 1), "1", false},
		{"ratio too big", validateFloatRange(0, 1), "1.5", true},
		{"ratio zero", validateFloatRange(0, 1), "0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.validate(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("validate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestParseHelpers(t *testing.T) {
	if parseInt(" 4 ") != 4 || parseFloat("0.25") != 0.25 || parseDuration("2s") != 2*time.Second {
		t.Error("parse helpers returned wrong values")
	}
	if formatDuration(0) != "" || formatDuration(time.Minute) != "1m0s" {
		t.Error("formatDuration returned wrong values")
	}
	if got := splitPhrases("  like and share \n\n\tsee you next time\n"); !reflect.DeepEqual(got, []string{"like and share", "see you next time"}) {
		t.Errorf("splitPhrases() = %q", got)
	}
}

func TestLabelsAndSummary(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := config.DefaultConfig()
	cfg.Transcription.Provider = provider.OpenAI
	cfg.Transcription.Language = "de"
	cfg.Providers[provider.OpenAI] = config.ProviderConfig{APIKey: "sk-test"}
	cfg.Overlay.Enabled = true
	cfg.Session.MaxDuration = time.Hour

	if got := formatTranscriptionLabel(cfg); got != "Transcription (openai/whisper-1, transcribe)" {
		t.Errorf("transcription label = %q", got)
	}
	if got := formatLanguageLabel(cfg); got != "Language (German)" {
		t.Errorf("language label = %q", got)
	}
	if got := formatProvidersLabel(cfg); got != "API Keys (openai)" {
		t.Errorf("providers label = %q", got)
	}

	summary := strings.Join(summaryLines(cfg), "\n")
	for _, want := range []string{
		"Transcription: openai/whisper-1 (transcribe)",
		"API keys: openai",
		"Overlay: http://" + cfg.Overlay.Addr,
		"Stop after: 1h0m0s",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}

	cfg.Filter.Enabled = false
	cfg.Notifications.Enabled = false
	if got := formatFilterLabel(cfg); got != "Hallucination Filter (off)" {
		t.Errorf("filter label = %q", got)
	}
	if got := formatNotificationsLabel(cfg); got != "Notifications (off)" {
		t.Errorf("notifications label = %q", got)
	}
}

func TestFormatAudioLabel(t *testing.T) {
	cfg := config.DefaultConfig()
	if got := formatAudioLabel(cfg); got != "Audio Input (pipewire, default)" {
		t.Errorf("audio label = %q", got)
	}
	cfg.Recording.Device = "alsa_input.usb"
	if got := formatAudioLabel(cfg); !strings.Contains(got, "alsa_input.usb") {
		t.Errorf("audio label = %q", got)
	}
}

func TestEditSection(t *testing.T) {
	t.Run("aborted form keeps config", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Providers = map[string]config.ProviderConfig{"openai": {APIKey: "sk-old"}}

		err := editSection(cfg, func(c *config.Config) error {
			c.Transcription.Provider = provider.Groq
			c.Providers["openai"] = config.ProviderConfig{APIKey: "sk-new"}
			c.Filter.ExtraPhrases = append(c.Filter.ExtraPhrases, "half typed")
			return huh.ErrUserAborted
		})
		if err != huh.ErrUserAborted {
			t.Fatalf("editSection() error = %v, want ErrUserAborted", err)
		}
		if cfg.Transcription.Provider == provider.Groq {
			t.Error("aborted edit changed the provider")
		}
		if cfg.Providers["openai"].APIKey != "sk-old" {
			t.Errorf("aborted edit changed the api key to %q", cfg.Providers["openai"].APIKey)
		}
		for _, p := range cfg.Filter.ExtraPhrases {
			if p == "half typed" {
				t.Error("aborted edit added a filter phrase")
			}
		}
	})

	t.Run("completed form applies", func(t *testing.T) {
		cfg := config.DefaultConfig()
		err := editSection(cfg, func(c *config.Config) error {
			c.Transcription.Provider = provider.Groq
			return nil
		})
		if err != nil {
			t.Fatalf("editSection() error = %v", err)
		}
		if cfg.Transcription.Provider != provider.Groq {
			t.Errorf("provider = %q, want groq", cfg.Transcription.Provider)
		}
	})
}
