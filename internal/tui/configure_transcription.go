package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/livesub/internal/config"
	"github.com/leonardotrapani/livesub/internal/models"
	"github.com/leonardotrapani/livesub/internal/provider"
)

// editTranscription picks the recognizer backend, its model and the task.
func editTranscription(cfg *config.Config) error {
	selectedProvider := cfg.Transcription.Provider

	providerForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Speech Recognition").
				Description(fmt.Sprintf("Currently: %s/%s", cfg.Transcription.Provider, modelOrDefault(cfg))).
				Options(getProviderOptions(cfg)...).
				Value(&selectedProvider),
		),
	).WithTheme(getTheme())

	if err := providerForm.Run(); err != nil {
		return err
	}

	p := provider.Get(selectedProvider)
	if p == nil {
		return fmt.Errorf("unknown provider %s", selectedProvider)
	}

	if selectedProvider != cfg.Transcription.Provider {
		cfg.Transcription.Model = ""
	}
	cfg.Transcription.Provider = selectedProvider

	if p.RequiresAPIKey && cfg.ResolveAPIKey(selectedProvider) == "" {
		apiKey, err := inputAPIKey(cfg, selectedProvider)
		if err != nil {
			return err
		}
		cfg.Providers[selectedProvider] = config.ProviderConfig{APIKey: apiKey}
	}

	var store *models.Store
	if p.Local {
		store, _ = cfg.ModelStore()
	}

	selectedModel := modelOrDefault(cfg)
	task := taskOrDefault(cfg)
	if !p.SupportsTranslation {
		task = "transcribe"
	}

	fields := []huh.Field{
		huh.NewSelect[string]().
			Title("Model").
			Options(getTranscriptionModelOptions(selectedProvider, store)...).
			Value(&selectedModel),
	}
	if p.SupportsTranslation {
		fields = append(fields, huh.NewSelect[string]().
			Title("Task").
			Description("Translate turns any spoken language into English subtitles").
			Options(
				huh.NewOption("Transcribe (subtitles in the spoken language)", "transcribe"),
				huh.NewOption("Translate to English", "translate"),
			).
			Value(&task))
	}

	threads := strconv.Itoa(cfg.Transcription.Threads)
	if p.Local {
		fields = append(fields, huh.NewInput().
			Title("CPU Threads").
			Description("0 lets whisper.cpp decide").
			Validate(validateNonNegativeInt).
			Value(&threads))
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).WithTheme(getTheme()).Run(); err != nil {
		return err
	}

	cfg.Transcription.Model = selectedModel
	cfg.Transcription.Task = task
	if p.Local {
		cfg.Transcription.Threads = parseInt(threads)
		if store != nil && !store.IsInstalled(selectedModel) {
			printLine(StyleWarning.Render(fmt.Sprintf(
				"Model %s is not installed yet. Run: livesub model download %s", selectedModel, selectedModel)))
		}
	}

	return nil
}

// getProviderOptions lists every backend, marking the ones still missing an
// API key.
func getProviderOptions(cfg *config.Config) []huh.Option[string] {
	var options []huh.Option[string]
	for _, name := range provider.List() {
		p := provider.Get(name)
		label := p.DisplayName
		switch {
		case p.Local:
			label += " [local]"
		case cfg.ResolveAPIKey(name) == "":
			label += " (not configured)"
		}
		options = append(options, huh.NewOption(label, name))
	}
	return options
}

// getTranscriptionModelOptions lists the provider's models. For local
// providers store marks which ggml files are already downloaded.
func getTranscriptionModelOptions(providerName string, store *models.Store) []huh.Option[string] {
	p := provider.Get(providerName)
	if p == nil {
		return nil
	}

	options := make([]huh.Option[string], 0, len(p.Models))
	for _, m := range p.Models {
		label := fmt.Sprintf("%s - %s", m.ID, m.Description)
		if m.ID == p.DefaultModel {
			label += " (recommended)"
		}
		if store != nil && store.IsInstalled(m.ID) {
			label += " [installed]"
		}
		options = append(options, huh.NewOption(label, m.ID))
	}
	return options
}
