package display

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/leonardotrapani/livesub/internal/subtitle"
)

var shownAt = time.Date(2024, 1, 1, 12, 0, 5, 0, time.UTC)

func TestTerminalAppend(t *testing.T) {
	tests := []struct {
		name     string
		opts     TerminalOptions
		captions []subtitle.Caption
		want     []string
		reject   []string
	}{
		{
			name:     "plain lines",
			captions: []subtitle.Caption{{Text: "hello there", ShownAt: shownAt}, {Text: "general kenobi", ShownAt: shownAt}},
			want:     []string{"hello there\n", "general kenobi\n"},
		},
		{
			name:     "empty caption prints nothing",
			captions: []subtitle.Caption{{}},
			reject:   []string{"\n"},
		},
		{
			name:     "timestamps",
			opts:     TerminalOptions{Timestamps: true},
			captions: []subtitle.Caption{{Text: "hi", ShownAt: shownAt}},
			want:     []string{"12:00:05", "hi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			term := NewTerminal(&buf, tt.opts)
			for _, c := range tt.captions {
				term.Show(c)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
			for _, r := range tt.reject {
				if strings.Contains(out, r) {
					t.Errorf("output %q should not contain %q", out, r)
				}
			}
		})
	}
}

func TestTerminalInPlace(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, TerminalOptions{InPlace: true})

	term.Show(subtitle.Caption{Text: "first"})
	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("first draw should not clear anything: %q", buf.String())
	}

	buf.Reset()
	term.Show(subtitle.Caption{Text: "second"})
	out := buf.String()
	if !strings.Contains(out, "\x1b[2K") {
		t.Errorf("redraw should erase the previous caption: %q", out)
	}
	if !strings.Contains(out, "second") {
		t.Errorf("redraw missing new caption: %q", out)
	}

	buf.Reset()
	term.Clear()
	if !strings.Contains(buf.String(), "\x1b[2K") || strings.Contains(buf.String(), "second") {
		t.Errorf("Clear() output = %q", buf.String())
	}

	buf.Reset()
	term.Clear()
	if buf.Len() != 0 {
		t.Errorf("clearing an empty screen wrote %q", buf.String())
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}

func startOverlay(t *testing.T) (*Overlay, context.CancelFunc) {
	t.Helper()
	o := NewOverlay("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	if err := o.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		cancel()
		o.Stop()
	})
	return o, cancel
}

func dialOverlay(t *testing.T, o *Overlay) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+o.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial overlay: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg
}

func waitForClients(t *testing.T, o *Overlay, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for o.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", o.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOverlayBroadcast(t *testing.T) {
	o, _ := startOverlay(t)
	conn := dialOverlay(t, o)

	if got := readMessage(t, conn); got != (Message{Type: "caption"}) {
		t.Errorf("initial message = %+v, want empty caption", got)
	}
	waitForClients(t, o, 1)

	o.Show(subtitle.Caption{Text: "hello overlay", Segment: 4})
	if got := readMessage(t, conn); got != (Message{Type: "caption", Text: "hello overlay", Segment: 4}) {
		t.Errorf("message = %+v", got)
	}

	o.Show(subtitle.Caption{})
	if got := readMessage(t, conn); got.Text != "" {
		t.Errorf("clear message = %+v", got)
	}
}

func TestOverlayLateJoinerGetsCurrentCaption(t *testing.T) {
	o, _ := startOverlay(t)
	o.Show(subtitle.Caption{Text: "already showing", Segment: 2})

	conn := dialOverlay(t, o)
	if got := readMessage(t, conn); got.Text != "already showing" || got.Segment != 2 {
		t.Errorf("initial message = %+v", got)
	}
}

func TestOverlayClientDisconnect(t *testing.T) {
	o, _ := startOverlay(t)
	conn := dialOverlay(t, o)
	readMessage(t, conn)
	waitForClients(t, o, 1)

	conn.Close()
	waitForClients(t, o, 0)

	o.Show(subtitle.Caption{Text: "nobody listening"})
}

func TestOverlayPage(t *testing.T) {
	o, _ := startOverlay(t)

	resp, err := http.Get("http://" + o.Addr() + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "WebSocket") {
		t.Errorf("GET / = %d %q", resp.StatusCode, body)
	}

	resp2, err := http.Get("http://" + o.Addr() + "/missing")
	if err != nil {
		t.Fatalf("GET /missing: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("GET /missing = %d, want 404", resp2.StatusCode)
	}
}

func TestOverlayStopClosesClients(t *testing.T) {
	o := NewOverlay("127.0.0.1:0")
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	conn := dialOverlay(t, o)
	readMessage(t, conn)

	o.Stop()
	o.Stop()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to close after Stop")
	}
}

func TestOverlayStartError(t *testing.T) {
	o := NewOverlay("256.0.0.1:bad")
	if err := o.Start(context.Background()); err == nil {
		t.Error("Start() should fail on a bad address")
	}
}
