package provider

import (
	"os"
	"sort"
	"strings"

	"github.com/leonardotrapani/livesub/internal/language"
	"github.com/leonardotrapani/livesub/internal/models"
)

// Provider names as written in transcription.provider.
const (
	OpenAI     = "openai"
	Groq       = "groq"
	Mistral    = "mistral"
	Deepgram   = "deepgram"
	WhisperCLI = "whisper-cli"
	WhisperCpp = "whisper-cpp"
)

// Provider describes a speech recognition backend.
type Provider struct {
	Name        string
	DisplayName string
	// EnvVar holds the API key when the config file does not.
	EnvVar    string
	KeyPrefix string
	BaseURL   string

	RequiresAPIKey      bool
	Local               bool
	SupportsTranslation bool

	DefaultModel string
	Models       []Model
}

// Model is a recognizer model offered by a provider.
type Model struct {
	ID          string
	Description string
	// Languages lists supported codes; nil means every Whisper language.
	Languages []string
}

func (m Model) SupportsLanguage(code string) bool {
	if code == "" || m.Languages == nil {
		return true
	}
	for _, l := range m.Languages {
		if l == code {
			return true
		}
	}
	return false
}

// ValidateAPIKey checks the key's shape only; it never calls the API.
func (p *Provider) ValidateAPIKey(key string) bool {
	if !p.RequiresAPIKey {
		return true
	}
	return key != "" && strings.HasPrefix(key, p.KeyPrefix)
}

// APIKeyFromEnv reads the provider's key from the environment.
func (p *Provider) APIKeyFromEnv() string {
	if p.EnvVar == "" {
		return ""
	}
	return os.Getenv(p.EnvVar)
}

// Model returns the named model, or nil. Local providers accept any
// catalogue model and any file path.
func (p *Provider) Model(id string) *Model {
	for i := range p.Models {
		if p.Models[i].ID == id {
			return &p.Models[i]
		}
	}
	return nil
}

func (p *Provider) ModelIDs() []string {
	ids := make([]string, len(p.Models))
	for i, m := range p.Models {
		ids[i] = m.ID
	}
	return ids
}

var registry = map[string]*Provider{}

func register(p *Provider) {
	registry[p.Name] = p
}

func init() {
	register(&Provider{
		Name:                OpenAI,
		DisplayName:         "OpenAI",
		EnvVar:              "OPENAI_API_KEY",
		KeyPrefix:           "sk-",
		BaseURL:             "https://api.openai.com/v1",
		RequiresAPIKey:      true,
		SupportsTranslation: true,
		DefaultModel:        "whisper-1",
		Models: []Model{
			{ID: "whisper-1", Description: "Whisper large-v2, transcription and translation"},
			{ID: "gpt-4o-mini-transcribe", Description: "Fast GPT-4o transcription"},
			{ID: "gpt-4o-transcribe", Description: "Most accurate GPT-4o transcription"},
		},
	})
	register(&Provider{
		Name:                Groq,
		DisplayName:         "Groq",
		EnvVar:              "GROQ_API_KEY",
		KeyPrefix:           "gsk_",
		BaseURL:             "https://api.groq.com/openai/v1",
		RequiresAPIKey:      true,
		SupportsTranslation: true,
		DefaultModel:        "whisper-large-v3-turbo",
		Models: []Model{
			{ID: "whisper-large-v3-turbo", Description: "Fast, multilingual"},
			{ID: "whisper-large-v3", Description: "Most accurate, supports translation"},
		},
	})
	register(&Provider{
		Name:           Mistral,
		DisplayName:    "Mistral",
		EnvVar:         "MISTRAL_API_KEY",
		BaseURL:        "https://api.mistral.ai/v1",
		RequiresAPIKey: true,
		DefaultModel:   "voxtral-mini-latest",
		Models: []Model{
			{ID: "voxtral-mini-latest", Description: "Latest Voxtral transcription model"},
			{ID: "voxtral-mini-2507", Description: "Stable Voxtral from July 2025"},
		},
	})
	register(&Provider{
		Name:           Deepgram,
		DisplayName:    "Deepgram",
		EnvVar:         "DEEPGRAM_API_KEY",
		BaseURL:        "https://api.deepgram.com/v1/listen",
		RequiresAPIKey: true,
		DefaultModel:   "nova-3",
		Models: []Model{
			{ID: "nova-3", Description: "Best accuracy, 40+ languages", Languages: nova3Languages},
			{ID: "nova-2", Description: "Fast, 30+ languages", Languages: nova2Languages},
		},
	})
	register(&Provider{
		Name:                WhisperCLI,
		DisplayName:         "whisper.cpp (whisper-cli)",
		Local:               true,
		SupportsTranslation: true,
		DefaultModel:        models.DefaultModel,
		Models:              localModels(),
	})
	register(&Provider{
		Name:                WhisperCpp,
		DisplayName:         "whisper.cpp (in-process)",
		Local:               true,
		SupportsTranslation: true,
		DefaultModel:        models.DefaultModel,
		Models:              localModels(),
	})
}

var nova3Languages = []string{
	"ar", "be", "bs", "bg", "ca", "hr", "cs", "da", "nl", "en", "et", "fi",
	"fr", "de", "el", "hi", "hu", "id", "it", "ja", "kn", "ko", "lv", "lt",
	"mk", "ms", "mr", "no", "pl", "pt", "ro", "ru", "sr", "sk", "sl", "es",
	"sv", "tl", "ta", "tr", "uk", "vi",
}

var nova2Languages = []string{
	"bg", "ca", "zh", "cs", "da", "nl", "en", "et", "fi", "fr", "de", "el",
	"hi", "hu", "id", "it", "ja", "ko", "lv", "lt", "ms", "no", "pl", "pt",
	"ro", "ru", "sk", "es", "sv", "th", "tr", "uk", "vi",
}

func localModels() []Model {
	catalogue := models.List()
	out := make([]Model, 0, len(catalogue))
	for _, m := range catalogue {
		var langs []string
		if !m.Multilingual {
			langs = []string{"en"}
		}
		out = append(out, Model{
			ID:          m.ID,
			Description: m.Name + " (" + m.Size + ")",
			Languages:   langs,
		})
	}
	return out
}

// Get returns the provider registered under name, or nil.
func Get(name string) *Provider {
	return registry[name]
}

// List returns every provider name in sorted order.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SupportsLanguage reports whether model on provider accepts the language.
// Unknown models are accepted; the API decides.
func SupportsLanguage(providerName, model, code string) bool {
	if code != "" && !language.IsValidCode(code) {
		return false
	}
	p := Get(providerName)
	if p == nil {
		return false
	}
	if m := p.Model(model); m != nil {
		return m.SupportsLanguage(code)
	}
	return true
}
