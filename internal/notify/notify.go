package notify

import (
	"fmt"
	"os/exec"

	"github.com/rs/zerolog/log"
)

const appName = "livesub"

// Notifier reports session lifecycle events to the user.
type Notifier interface {
	SessionStarted()
	SessionStopped()
	Error(msg string)
	Notify(title, message string)
}

// New returns the notifier for a [notifications] type. Unknown types and
// disabled notifications get Nop.
func New(enabled bool, kind string) Notifier {
	if !enabled {
		return Nop{}
	}
	switch kind {
	case "desktop":
		return Desktop{}
	case "log":
		return Log{}
	default:
		return Nop{}
	}
}

// Desktop sends notifications through notify-send.
type Desktop struct{}

func (d Desktop) SessionStarted() {
	d.Notify("livesub", "Listening started")
}

func (d Desktop) SessionStopped() {
	d.Notify("livesub", "Listening stopped")
}

func (Desktop) Error(msg string) {
	cmd := exec.Command("notify-send", "-a", appName, "-u", "critical", "livesub error", msg)
	if err := cmd.Run(); err != nil {
		log.Warn().Err(err).Msg("Notify: failed to send error notification")
	}
}

func (Desktop) Notify(title, message string) {
	cmd := exec.Command("notify-send", "-a", appName, title, message)
	if err := cmd.Run(); err != nil {
		log.Warn().Err(err).Msg("Notify: failed to send notification")
	}
}

// Log writes notifications to the process log.
type Log struct{}

func (l Log) SessionStarted() {
	l.Notify("livesub", "Listening started")
}

func (l Log) SessionStopped() {
	l.Notify("livesub", "Listening stopped")
}

func (Log) Error(msg string) {
	log.Error().Msg(fmt.Sprintf("livesub error: %s", msg))
}

func (Log) Notify(title, message string) {
	log.Info().Msg(fmt.Sprintf("%s: %s", title, message))
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) SessionStarted()              {}
func (Nop) SessionStopped()              {}
func (Nop) Error(msg string)             {}
func (Nop) Notify(title, message string) {}
