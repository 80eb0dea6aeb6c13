package tui

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leonardotrapani/livesub/internal/config"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionTranscription ConfigSection = "transcription"
	SectionLanguage      ConfigSection = "language"
	SectionProviders     ConfigSection = "providers"
	SectionAudio         ConfigSection = "audio"
	SectionSubtitles     ConfigSection = "subtitles"
	SectionFilter        ConfigSection = "filter"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run starts the configuration menu on a copy of existing. The caller
// saves the result.
func Run(existing *config.Config) (*ConfigureResult, error) {
	cfg := config.DefaultConfig()
	if existing != nil {
		cfg = copyConfig(existing)
	}

	for {
		clearScreen()
		printLine(Logo())
		printLine("")

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg}, nil
			}

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		case SectionTranscription:
			if err := editSection(cfg, editTranscription); err != nil {
				continue
			}

		case SectionLanguage:
			if err := editSection(cfg, editLanguage); err != nil {
				continue
			}

		case SectionProviders:
			if err := editSection(cfg, editProviders); err != nil {
				continue
			}

		case SectionAudio:
			if err := editSection(cfg, editAudio); err != nil {
				continue
			}

		case SectionSubtitles:
			if err := editSection(cfg, editSubtitles); err != nil {
				continue
			}

		case SectionFilter:
			if err := editSection(cfg, editFilter); err != nil {
				continue
			}

		case SectionNotifications:
			if err := editSection(cfg, editNotifications); err != nil {
				continue
			}
		}
	}
}

// editSection runs one section's forms on a draft and keeps the draft
// only when every form completed. An aborted form leaves cfg untouched.
func editSection(cfg *config.Config, edit func(*config.Config) error) error {
	draft := copyConfig(cfg)
	if err := edit(draft); err != nil {
		return err
	}
	*cfg = *draft
	return nil
}

func copyConfig(c *config.Config) *config.Config {
	out := *c
	out.Providers = make(map[string]config.ProviderConfig, len(c.Providers))
	for k, v := range c.Providers {
		out.Providers[k] = v
	}
	out.Filter.ExtraPhrases = append([]string(nil), c.Filter.ExtraPhrases...)
	return &out
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatTranscriptionLabel(cfg), SectionTranscription),
		huh.NewOption(formatLanguageLabel(cfg), SectionLanguage),
		huh.NewOption(formatProvidersLabel(cfg), SectionProviders),
		huh.NewOption(formatAudioLabel(cfg), SectionAudio),
		huh.NewOption(formatSubtitlesLabel(cfg), SectionSubtitles),
		huh.NewOption(formatFilterLabel(cfg), SectionFilter),
		huh.NewOption(formatNotificationsLabel(cfg), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}

	return selected, nil
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
