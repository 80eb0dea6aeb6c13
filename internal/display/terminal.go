package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/leonardotrapani/livesub/internal/subtitle"
)

// TerminalOptions controls how captions are drawn.
type TerminalOptions struct {
	// InPlace redraws a single caption block instead of appending lines.
	InPlace bool
	// Width wraps captions; 0 disables wrapping.
	Width int
	// Timestamps prefixes appended captions with their display time.
	Timestamps bool
}

// Terminal renders captions to a terminal or any writer.
type Terminal struct {
	mu     sync.Mutex
	out    *termenv.Output
	opts   TerminalOptions
	style  lipgloss.Style
	muted  lipgloss.Style
	height int
}

// NewTerminal returns a sink writing to w. Writes are a few hundred bytes
// at most, so Show does not buffer.
func NewTerminal(w io.Writer, opts TerminalOptions) *Terminal {
	renderer := lipgloss.NewRenderer(w)
	style := renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#F8FAFC"))
	if opts.Width > 0 {
		style = style.Width(opts.Width)
	}
	return &Terminal{
		out:   termenv.NewOutput(w),
		opts:  opts,
		style: style,
		muted: renderer.NewStyle().Foreground(lipgloss.Color("#94A3B8")),
	}
}

// NewStdoutTerminal draws in place when stdout is a terminal and appends
// lines otherwise.
func NewStdoutTerminal() *Terminal {
	tty := IsTerminal(os.Stdout)
	opts := TerminalOptions{InPlace: tty, Timestamps: !tty}
	if tty {
		opts.Width = 80
	}
	return NewTerminal(os.Stdout, opts)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (t *Terminal) Show(caption subtitle.Caption) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.opts.InPlace {
		t.redraw(caption)
		return
	}
	if caption.Empty() {
		return
	}

	line := t.style.Render(caption.Text)
	if t.opts.Timestamps {
		line = t.muted.Render(caption.ShownAt.Format("15:04:05")) + " " + line
	}
	fmt.Fprintln(t.out, line)
}

func (t *Terminal) redraw(caption subtitle.Caption) {
	if t.height > 0 {
		t.out.ClearLines(t.height)
		t.out.ClearLine()
		fmt.Fprint(t.out, "\r")
		t.height = 0
	}
	if caption.Empty() {
		return
	}

	block := t.style.Render(caption.Text)
	fmt.Fprintln(t.out, block)
	t.height = strings.Count(block, "\n") + 1
}

// Clear removes an in-place caption, e.g. before the process exits.
func (t *Terminal) Clear() {
	t.Show(subtitle.Caption{})
}
