package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const logLevelEnv = "LIVESUB_LOG_LEVEL"

// resolveLogLevel prefers the flag, then the environment, then info.
func resolveLogLevel(flag string) (zerolog.Level, error) {
	value := flag
	if value == "" {
		value = os.Getenv(logLevelEnv)
	}
	if value == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(value)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", value, err)
	}
	return lvl, nil
}

// setupLogging writes human-readable logs to a terminal and JSON otherwise,
// always on stderr so captions on stdout stay clean.
func setupLogging(level zerolog.Level) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerolog.SetGlobalLevel(level)

	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
