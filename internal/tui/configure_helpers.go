package tui

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/livesub/internal/config"
	"github.com/leonardotrapani/livesub/internal/language"
	"github.com/leonardotrapani/livesub/internal/provider"
)

func printLine(s string) {
	fmt.Fprintln(os.Stdout, s)
}

func formatTranscriptionLabel(cfg *config.Config) string {
	return fmt.Sprintf("Transcription (%s/%s, %s)", cfg.Transcription.Provider, modelOrDefault(cfg), taskOrDefault(cfg))
}

func formatLanguageLabel(cfg *config.Config) string {
	return fmt.Sprintf("Language (%s)", language.FromCode(cfg.Transcription.Language).Name)
}

func formatProvidersLabel(cfg *config.Config) string {
	configured := getConfiguredProviders(cfg)
	if len(configured) == 0 {
		return "API Keys (none)"
	}
	return fmt.Sprintf("API Keys (%s)", strings.Join(configured, ", "))
}

func formatAudioLabel(cfg *config.Config) string {
	device := cfg.Recording.Device
	if device == "" {
		device = "default"
	}
	return fmt.Sprintf("Audio Input (%s, %s)", cfg.Recording.Backend, device)
}

func formatSubtitlesLabel(cfg *config.Config) string {
	return fmt.Sprintf("Subtitles (min %s, %.1f words/s)", cfg.Display.MinimumDisplayTime, cfg.Display.WordsPerSecond)
}

func formatFilterLabel(cfg *config.Config) string {
	if !cfg.Filter.Enabled {
		return "Hallucination Filter (off)"
	}
	return fmt.Sprintf("Hallucination Filter (on, %d extra phrases)", len(cfg.Filter.ExtraPhrases))
}

func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications (off)"
	}
	return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
}

func modelOrDefault(cfg *config.Config) string {
	if cfg.Transcription.Model != "" {
		return cfg.Transcription.Model
	}
	if p := provider.Get(cfg.Transcription.Provider); p != nil {
		return p.DefaultModel
	}
	return "?"
}

func taskOrDefault(cfg *config.Config) string {
	if cfg.Transcription.Task == "" {
		return "transcribe"
	}
	return cfg.Transcription.Task
}

// summaryLines lists the settings shown before saving.
func summaryLines(cfg *config.Config) []string {
	lines := []string{
		fmt.Sprintf("Transcription: %s/%s (%s)", cfg.Transcription.Provider, modelOrDefault(cfg), taskOrDefault(cfg)),
		fmt.Sprintf("Language: %s", language.FromCode(cfg.Transcription.Language).Label()),
	}

	keys := getConfiguredProviders(cfg)
	if len(keys) > 0 {
		lines = append(lines, "API keys: "+strings.Join(keys, ", "))
	}

	lines = append(lines,
		fmt.Sprintf("Audio: %s", strings.TrimPrefix(formatAudioLabel(cfg), "Audio Input ")),
		fmt.Sprintf("Segments: cut after %s silence, max %s",
			cfg.Segmentation.SilenceDurationRequired, cfg.Segmentation.MaxSegmentDuration),
		fmt.Sprintf("Subtitles: at least %s, %.1f words/s", cfg.Display.MinimumDisplayTime, cfg.Display.WordsPerSecond),
	)

	if cfg.Overlay.Enabled {
		lines = append(lines, "Overlay: http://"+cfg.Overlay.Addr)
	}
	if cfg.Filter.Enabled {
		lines = append(lines, "Filter: enabled")
	} else {
		lines = append(lines, "Filter: disabled")
	}
	if cfg.Notifications.Enabled {
		lines = append(lines, "Notifications: "+cfg.Notifications.Type)
	} else {
		lines = append(lines, "Notifications: disabled")
	}
	if cfg.Session.MaxDuration > 0 {
		lines = append(lines, "Stop after: "+cfg.Session.MaxDuration.String())
	}
	return lines
}

func showSummary(cfg *config.Config) (bool, error) {
	printLine("")
	printLine(StyleHeader.Render("Configuration Summary"))

	for _, line := range summaryLines(cfg) {
		label, value, _ := strings.Cut(line, ": ")
		printLine(fmt.Sprintf("  %s %s", StyleLabel.Render(label+":"), value))
	}

	if err := cfg.Validate(); err != nil {
		printLine("")
		printLine(StyleWarning.Render("Warning: " + err.Error()))
	}

	sample := "Welcome back, here are tonight's headlines."
	printLine("")
	printLine(StyleMuted.Render(fmt.Sprintf("A caption like this stays on screen for %s:",
		cfg.ToSubtitleConfig().RequiredTime(sample))))
	printLine(StyleSubtitle.Render(sample))
	printLine("")

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirmed, nil
}

func getConfiguredProviders(cfg *config.Config) []string {
	var names []string
	for name, pc := range cfg.Providers {
		if pc.APIKey != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}

func validateNonNegativeInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("must be zero or a positive number")
	}
	return nil
}

func validatePositiveDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return fmt.Errorf("must be a duration like 800ms or 2s")
	}
	return nil
}

func validateOptionalDuration(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d < 0 {
		return fmt.Errorf("must be empty or a duration like 30m")
	}
	return nil
}

func validateFloatRange(min, max float64) func(string) error {
	return func(s string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || f <= min || f > max {
			return fmt.Errorf("must be a number above %g and at most %g", min, max)
		}
		return nil
	}
}

// The parse helpers run after validation, so errors fall back to zero.
func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(strings.TrimSpace(s))
	return d
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

// splitPhrases parses one phrase per line, dropping blanks.
func splitPhrases(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
