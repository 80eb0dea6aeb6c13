package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/leonardotrapani/livesub/internal/config"
	"github.com/leonardotrapani/livesub/internal/recording"
)

// editAudio configures the capture backend and segmentation.
func editAudio(cfg *config.Config) error {
	backend := cfg.Recording.Backend
	device := cfg.Recording.Device
	inputFile := cfg.Recording.InputFile

	backendForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Capture Backend").
				Options(
					huh.NewOption("PipeWire (pw-record)", recording.BackendPipeWire),
					huh.NewOption("miniaudio (ALSA/PulseAudio/CoreAudio)", recording.BackendMalgo),
					huh.NewOption("WAV file", recording.BackendFile),
				).
				Value(&backend),
		),
	).WithTheme(getTheme())

	if err := backendForm.Run(); err != nil {
		return err
	}

	var sourceField huh.Field
	switch backend {
	case recording.BackendFile:
		sourceField = huh.NewInput().
			Title("WAV File").
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("a file is required for the file backend")
				}
				return nil
			}).
			Value(&inputFile)
	case recording.BackendMalgo:
		sourceField = huh.NewSelect[string]().
			Title("Capture Device").
			Options(getDeviceOptions()...).
			Value(&device)
	default:
		sourceField = huh.NewInput().
			Title("PipeWire Target").
			Description("Node name or serial; empty for the default source").
			Value(&device)
	}

	silenceThreshold := strconv.FormatFloat(float64(cfg.Segmentation.SilenceThreshold), 'g', -1, 32)
	silence := cfg.Segmentation.SilenceDurationRequired.String()
	maxSegment := cfg.Segmentation.MaxSegmentDuration.String()

	detailsForm := huh.NewForm(
		huh.NewGroup(sourceField),
		huh.NewGroup(
			huh.NewInput().
				Title("Silence Threshold (RMS)").
				Description("Blocks quieter than this count as silence").
				Validate(validateFloatRange(0, 1)).
				Value(&silenceThreshold),
			huh.NewInput().
				Title("Silence Before Cut").
				Description("Pause length that ends a segment").
				Validate(validatePositiveDuration).
				Value(&silence),
			huh.NewInput().
				Title("Max Segment Length").
				Description("Long speech without pauses is cut here").
				Validate(validatePositiveDuration).
				Value(&maxSegment),
		).Title("Segmentation"),
	).WithTheme(getTheme())

	if err := detailsForm.Run(); err != nil {
		return err
	}

	cfg.Recording.Backend = backend
	cfg.Recording.Device = device
	cfg.Recording.InputFile = strings.TrimSpace(inputFile)
	cfg.Segmentation.SilenceThreshold = float32(parseFloat(silenceThreshold))
	cfg.Segmentation.SilenceDurationRequired = parseDuration(silence)
	cfg.Segmentation.MaxSegmentDuration = parseDuration(maxSegment)
	if cfg.Segmentation.MaxBufferDuration < cfg.Segmentation.MaxSegmentDuration {
		cfg.Segmentation.MaxBufferDuration = 2 * cfg.Segmentation.MaxSegmentDuration
	}
	return nil
}

func getDeviceOptions() []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption("System default", "")}
	devices, err := recording.ListCaptureDevices()
	if err != nil {
		printLine(StyleWarning.Render("Could not list capture devices: " + err.Error()))
		return options
	}
	for _, d := range devices {
		label := d.Name
		if d.IsDefault {
			label += " (default)"
		}
		options = append(options, huh.NewOption(label, d.Name))
	}
	return options
}

// editSubtitles configures caption timing and where captions appear.
func editSubtitles(cfg *config.Config) error {
	minimum := cfg.Display.MinimumDisplayTime.String()
	wps := strconv.FormatFloat(cfg.Display.WordsPerSecond, 'g', -1, 64)
	terminal := cfg.Display.Terminal
	overlay := cfg.Overlay.Enabled
	addr := cfg.Overlay.Addr
	maxDuration := formatDuration(cfg.Session.MaxDuration)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Minimum Display Time").
				Description("No caption is replaced sooner than this").
				Validate(validatePositiveDuration).
				Value(&minimum),
			huh.NewInput().
				Title("Reading Speed (words per second)").
				Description("Longer captions stay up for words / speed").
				Validate(validateFloatRange(0, 20)).
				Value(&wps),
		).Title("Timing"),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Print captions in the terminal?").
				Value(&terminal),
			huh.NewConfirm().
				Title("Serve the browser overlay?").
				Description("A page for OBS or a browser window, updated over WebSocket").
				Value(&overlay),
			huh.NewInput().
				Title("Overlay Address").
				Value(&addr),
			huh.NewInput().
				Title("Stop Listening After").
				Description("Empty to keep listening until toggled off").
				Placeholder("never").
				Validate(validateOptionalDuration).
				Value(&maxDuration),
		).Title("Output"),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Display.MinimumDisplayTime = parseDuration(minimum)
	cfg.Display.WordsPerSecond = parseFloat(wps)
	cfg.Display.Terminal = terminal
	cfg.Overlay.Enabled = overlay
	cfg.Overlay.Addr = strings.TrimSpace(addr)
	cfg.Session.MaxDuration = parseDuration(maxDuration)
	return nil
}

// editFilter configures the hallucination filter.
func editFilter(cfg *config.Config) error {
	enabled := cfg.Filter.Enabled
	phrases := strings.Join(cfg.Filter.ExtraPhrases, "\n")
	ratio := strconv.FormatFloat(cfg.Filter.MaxRepeatRatio, 'g', -1, 64)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Drop hallucinated captions?").
				Description("Removes [BLANK_AUDIO], credit lines and looping repeats").
				Value(&enabled),
			huh.NewText().
				Title("Extra Phrases").
				Description("One per line; matched ignoring case and punctuation").
				Value(&phrases),
			huh.NewInput().
				Title("Max Repeat Ratio").
				Description("Share of one repeated word that marks a looping result").
				Validate(validateFloatRange(0, 1)).
				Value(&ratio),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Filter.Enabled = enabled
	cfg.Filter.ExtraPhrases = splitPhrases(phrases)
	cfg.Filter.MaxRepeatRatio = parseFloat(ratio)
	return nil
}
