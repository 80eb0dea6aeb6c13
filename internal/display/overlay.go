package display

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/livesub/internal/subtitle"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Message is pushed to overlay clients on every caption change. An empty
// Text clears the overlay.
type Message struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Segment int    `json:"segment"`
}

func captionMessage(c subtitle.Caption) Message {
	return Message{Type: "caption", Text: c.Text, Segment: c.Segment}
}

// Overlay serves a caption page plus a websocket feed for browser sources.
type Overlay struct {
	addr     string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*overlayClient]struct{}
	last    Message
	server  *http.Server
	ln      net.Listener
	done    chan struct{}
	wg      sync.WaitGroup
}

type overlayClient struct {
	conn *websocket.Conn
	send chan Message
	once sync.Once
}

func (c *overlayClient) close() {
	c.once.Do(func() { close(c.send) })
}

func NewOverlay(addr string) *Overlay {
	return &Overlay{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024 * 4,
		},
		clients: make(map[*overlayClient]struct{}),
		last:    Message{Type: "caption"},
	}
}

// Start listens on the configured address and serves until ctx is done or
// Stop is called.
func (o *Overlay) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", o.addr)
	if err != nil {
		return fmt.Errorf("overlay listen %s: %w", o.addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", o.handlePage)
	mux.HandleFunc("/ws", o.handleWS)

	o.mu.Lock()
	o.ln = ln
	o.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	o.done = make(chan struct{})
	server, done := o.server, o.done
	o.mu.Unlock()

	o.wg.Add(2)
	go func() {
		defer o.wg.Done()
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Overlay: server stopped")
		}
	}()
	go func() {
		defer o.wg.Done()
		select {
		case <-ctx.Done():
			o.shutdown()
		case <-done:
		}
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("Overlay: serving captions")
	return nil
}

// Addr is the bound address, useful when listening on port 0.
func (o *Overlay) Addr() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ln == nil {
		return o.addr
	}
	return o.ln.Addr().String()
}

func (o *Overlay) Stop() {
	o.shutdown()
	o.wg.Wait()
}

func (o *Overlay) shutdown() {
	o.mu.Lock()
	server := o.server
	if server == nil {
		o.mu.Unlock()
		return
	}
	o.server = nil
	close(o.done)
	clients := o.clients
	o.clients = make(map[*overlayClient]struct{})
	o.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)

	for c := range clients {
		c.close()
		_ = c.conn.Close()
	}
}

// Show broadcasts without blocking; a client whose buffer is full is
// disconnected.
func (o *Overlay) Show(caption subtitle.Caption) {
	msg := captionMessage(caption)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.last = msg
	for c := range o.clients {
		select {
		case c.send <- msg:
		default:
			log.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("Overlay: client too slow, disconnecting")
			delete(o.clients, c)
			c.close()
		}
	}
}

// Clients returns the number of connected websocket clients.
func (o *Overlay) Clients() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.clients)
}

func (o *Overlay) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := o.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Overlay: websocket upgrade failed")
		return
	}

	c := &overlayClient{conn: conn, send: make(chan Message, sendBuffer)}

	o.mu.Lock()
	if o.server == nil {
		o.mu.Unlock()
		_ = conn.Close()
		return
	}
	o.clients[c] = struct{}{}
	c.send <- o.last
	o.mu.Unlock()

	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Overlay: client connected")

	go o.writePump(c)
	o.readPump(c)
}

// readPump discards client messages and notices disconnects.
func (o *Overlay) readPump(c *overlayClient) {
	defer func() {
		o.mu.Lock()
		if _, ok := o.clients[c]; ok {
			delete(o.clients, c)
			c.close()
		}
		o.mu.Unlock()
		_ = c.conn.Close()
		log.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("Overlay: client disconnected")
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (o *Overlay) writePump(c *overlayClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (o *Overlay) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(overlayPage))
}

const overlayPage = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>livesub</title>
<style>
  html, body { margin: 0; height: 100%; background: transparent; }
  #caption {
    position: fixed; left: 50%; bottom: 8%; transform: translateX(-50%);
    max-width: 80%; padding: 0.3em 0.8em; border-radius: 0.3em;
    font: 600 36px/1.3 system-ui, sans-serif; color: #F8FAFC;
    background: rgba(15, 23, 42, 0.75); text-align: center;
  }
  #caption:empty { display: none; }
</style>
</head>
<body>
<div id="caption"></div>
<script>
  const el = document.getElementById("caption");
  function connect() {
    const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
    ws.onmessage = (ev) => {
      const msg = JSON.parse(ev.data);
      if (msg.type === "caption") el.textContent = msg.text;
    };
    ws.onclose = () => { el.textContent = ""; setTimeout(connect, 1000); };
  }
  connect();
</script>
</body>
</html>
`
