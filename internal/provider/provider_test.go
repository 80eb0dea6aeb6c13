package provider

import (
	"reflect"
	"testing"
)

func TestList(t *testing.T) {
	want := []string{Deepgram, Groq, Mistral, OpenAI, WhisperCLI, WhisperCpp}
	if got := List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestProviders(t *testing.T) {
	tests := []struct {
		name          string
		requiresKey   bool
		local         bool
		translation   bool
		envVar        string
		defaultModel  string
		validKey      string
		invalidKey    string
		checkInvalids bool
	}{
		{OpenAI, true, false, true, "OPENAI_API_KEY", "whisper-1", "sk-abc", "gsk_abc", true},
		{Groq, true, false, true, "GROQ_API_KEY", "whisper-large-v3-turbo", "gsk_abc", "sk-abc", true},
		{Mistral, true, false, false, "MISTRAL_API_KEY", "voxtral-mini-latest", "anything", "", true},
		{Deepgram, true, false, false, "DEEPGRAM_API_KEY", "nova-3", "dg-key", "", true},
		{WhisperCLI, false, true, true, "", "base", "", "", false},
		{WhisperCpp, false, true, true, "", "base", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Get(tt.name)
			if p == nil {
				t.Fatalf("provider %s not registered", tt.name)
			}
			if p.RequiresAPIKey != tt.requiresKey {
				t.Errorf("RequiresAPIKey = %v, want %v", p.RequiresAPIKey, tt.requiresKey)
			}
			if p.Local != tt.local {
				t.Errorf("Local = %v, want %v", p.Local, tt.local)
			}
			if p.SupportsTranslation != tt.translation {
				t.Errorf("SupportsTranslation = %v, want %v", p.SupportsTranslation, tt.translation)
			}
			if p.EnvVar != tt.envVar {
				t.Errorf("EnvVar = %q, want %q", p.EnvVar, tt.envVar)
			}
			if p.DefaultModel != tt.defaultModel {
				t.Errorf("DefaultModel = %q, want %q", p.DefaultModel, tt.defaultModel)
			}
			if p.Model(p.DefaultModel) == nil {
				t.Errorf("default model %q not in model list %v", p.DefaultModel, p.ModelIDs())
			}
			if !p.ValidateAPIKey(tt.validKey) {
				t.Errorf("ValidateAPIKey(%q) = false, want true", tt.validKey)
			}
			if tt.checkInvalids && p.ValidateAPIKey(tt.invalidKey) {
				t.Errorf("ValidateAPIKey(%q) = true, want false", tt.invalidKey)
			}
		})
	}
}

func TestGetUnknown(t *testing.T) {
	if Get("elevenlabs") != nil {
		t.Error("unknown provider should be nil")
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_env")
	if got := Get(Groq).APIKeyFromEnv(); got != "gsk_env" {
		t.Errorf("APIKeyFromEnv() = %q, want gsk_env", got)
	}
	if got := Get(WhisperCLI).APIKeyFromEnv(); got != "" {
		t.Errorf("local provider returned key %q", got)
	}
}

func TestSupportsLanguage(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		lang     string
		want     bool
	}{
		{OpenAI, "whisper-1", "", true},
		{OpenAI, "whisper-1", "it", true},
		{OpenAI, "whisper-1", "xx", false},
		{Deepgram, "nova-3", "en", true},
		{Deepgram, "nova-2", "th", true},
		{Deepgram, "nova-3", "th", false},
		{WhisperCLI, "base.en", "en", true},
		{WhisperCLI, "base.en", "de", false},
		{WhisperCLI, "base", "de", true},
		{WhisperCLI, "/models/custom.bin", "de", true},
		{"nope", "x", "en", false},
	}

	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.model+"/"+tt.lang, func(t *testing.T) {
			if got := SupportsLanguage(tt.provider, tt.model, tt.lang); got != tt.want {
				t.Errorf("SupportsLanguage() = %v, want %v", got, tt.want)
			}
		})
	}
}
