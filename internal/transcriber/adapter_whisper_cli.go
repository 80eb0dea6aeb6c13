package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/livesub/internal/audio"
	"github.com/leonardotrapani/livesub/internal/language"
	"github.com/leonardotrapani/livesub/internal/provider"
)

// WhisperCLIRecognizer runs the whisper.cpp command line tool once per segment.
type WhisperCLIRecognizer struct {
	config Config
	// binary is looked up on PATH unless it contains a separator.
	binary string
}

func NewWhisperCLIRecognizer(config Config) *WhisperCLIRecognizer {
	if config.SampleRate == 0 {
		config.SampleRate = audio.SampleRate
	}
	return &WhisperCLIRecognizer{config: config, binary: "whisper-cli"}
}

func (a *WhisperCLIRecognizer) Recognize(ctx context.Context, samples []float32, segmentNumber int) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	if _, err := os.Stat(a.config.ModelPath); err != nil {
		return "", NewFatalRecognitionError(fmt.Errorf("model file not found: %s", a.config.ModelPath))
	}

	whisperPath, err := exec.LookPath(a.binary)
	if err != nil {
		return "", NewFatalRecognitionError(fmt.Errorf("%s not found: install whisper.cpp first", a.binary))
	}

	path, err := audio.WriteTempWAV(samples, a.config.SampleRate)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	cmd := exec.CommandContext(ctx, whisperPath, a.args(path)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn().
			Int("segment", segmentNumber).
			Dur("after", duration).
			Str("stderr", stderr.String()).
			Err(err).
			Msg("Transcriber: whisper-cli failed")

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("whisper-cli exited with %d: %w", exitErr.ExitCode(), err)
		}
		return "", fmt.Errorf("whisper-cli failed: %w", err)
	}

	text := strings.TrimSpace(stdout.String())
	log.Debug().
		Int("segment", segmentNumber).
		Dur("took", duration).
		Str("text", text).
		Msg("Transcriber: whisper-cli segment recognized")
	return text, nil
}

func (a *WhisperCLIRecognizer) args(wavPath string) []string {
	args := []string{
		"-m", a.config.ModelPath,
		"-l", language.ForProvider(a.config.Language, provider.WhisperCLI),
		"-nt",
		"-np",
		"-f", wavPath,
	}
	if a.config.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(a.config.Threads))
	}
	if a.config.translate() {
		args = append(args, "-tr")
	}
	return args
}
