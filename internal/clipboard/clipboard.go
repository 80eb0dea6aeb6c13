package clipboard

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	atotto "github.com/atotto/clipboard"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 3 * time.Second

// writeAll is the non-Wayland fallback; tests replace it.
var writeAll = atotto.WriteAll

func wayland() bool {
	return os.Getenv("WAYLAND_DISPLAY") != ""
}

// Available reports whether Copy has a working backend.
func Available() error {
	if wayland() {
		if _, err := exec.LookPath("wl-copy"); err != nil {
			return fmt.Errorf("wl-copy not found: %w", err)
		}
		return nil
	}
	if atotto.Unsupported {
		return fmt.Errorf("no clipboard utility found (install xclip, xsel or wl-clipboard)")
	}
	return nil
}

// Copy places text on the system clipboard.
func Copy(ctx context.Context, text string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if wayland() {
		if err := wlCopy(ctx, text); err != nil {
			return err
		}
		log.Debug().Int("chars", len(text)).Msg("Clipboard: copied with wl-copy")
		return nil
	}

	write := writeAll
	done := make(chan error, 1)
	go func() {
		done <- write(text)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write clipboard: %w", err)
		}
		log.Debug().Int("chars", len(text)).Msg("Clipboard: copied")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("write clipboard: %w", ctx.Err())
	}
}

func wlCopy(ctx context.Context, text string) error {
	if _, err := exec.LookPath("wl-copy"); err != nil {
		return fmt.Errorf("wl-copy not found: %w", err)
	}
	cmd := exec.CommandContext(ctx, "wl-copy")
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("wl-copy: %w: %s", err, msg)
		}
		return fmt.Errorf("wl-copy: %w", err)
	}
	return nil
}
