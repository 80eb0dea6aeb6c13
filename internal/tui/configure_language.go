package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/livesub/internal/config"
	"github.com/leonardotrapani/livesub/internal/language"
	"github.com/leonardotrapani/livesub/internal/provider"
)

// editLanguage selects the spoken language the recognizer should expect.
func editLanguage(cfg *config.Config) error {
	selected := language.Normalize(cfg.Transcription.Language)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Spoken Language").
				Description("Auto-detect works per segment; a fixed language is faster and more accurate").
				Options(getLanguageOptions(cfg.Transcription.Provider, modelOrDefault(cfg))...).
				Filtering(true).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	if !provider.SupportsLanguage(cfg.Transcription.Provider, modelOrDefault(cfg), selected) {
		printLine(StyleWarning.Render(fmt.Sprintf("%s does not support %s; pick another model before saving.",
			modelOrDefault(cfg), language.FromCode(selected).Name)))
	}

	cfg.Transcription.Language = selected
	return nil
}

// getLanguageOptions lists Auto-detect first, then every language, tagging
// the ones the current model cannot handle.
func getLanguageOptions(providerName, model string) []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption(language.Auto.Label(), "")}
	for _, lang := range language.List() {
		label := lang.Label()
		if providerName != "" && !provider.SupportsLanguage(providerName, model, lang.Code) {
			label += " (unsupported by " + model + ")"
		}
		options = append(options, huh.NewOption(label, lang.Code))
	}
	return options
}
