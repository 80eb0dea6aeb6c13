package daemon

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/livesub/internal/bus"
	"github.com/leonardotrapani/livesub/internal/config"
	"github.com/leonardotrapani/livesub/internal/display"
	"github.com/leonardotrapani/livesub/internal/notify"
	"github.com/leonardotrapani/livesub/internal/session"
	"github.com/leonardotrapani/livesub/internal/subtitle"
)

// SessionFactory builds one listening session. Tests swap it to inject
// mock sources and recognizers.
type SessionFactory func(cfg session.Config, deps session.Dependencies) (*session.Session, error)

type Options struct {
	// Notifier overrides the one configured in [notifications].
	Notifier   notify.Notifier
	NewSession SessionFactory
	// Sinks receive captions in addition to the terminal and overlay.
	Sinks []subtitle.Sink
}

type Daemon struct {
	mu         sync.Mutex
	configMgr  *config.Manager
	notifier   notify.Notifier
	fixedNote  bool
	newSession SessionFactory
	sinks      []subtitle.Sink
	overlay    *display.Overlay

	ctx    context.Context
	cancel context.CancelFunc

	session *session.Session
}

func New(configMgr *config.Manager, opts Options) *Daemon {
	cfg := configMgr.GetConfig()

	n := opts.Notifier
	if n == nil {
		n = notify.New(cfg.Notifications.Enabled, cfg.Notifications.Type)
	}
	newSession := opts.NewSession
	if newSession == nil {
		newSession = session.New
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		configMgr:  configMgr,
		notifier:   n,
		fixedNote:  opts.Notifier != nil,
		newSession: newSession,
		sinks:      append([]subtitle.Sink(nil), opts.Sinks...),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SessionConfig turns the file configuration into one session's settings.
func SessionConfig(cfg *config.Config) (session.Config, error) {
	if err := cfg.Validate(); err != nil {
		return session.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	tc, err := cfg.ToTranscriberConfig()
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		Recording:   cfg.ToRecordingConfig(),
		Segment:     cfg.ToSegmentConfig(),
		Subtitle:    cfg.ToSubtitleConfig(),
		Filter:      cfg.ToFilterConfig(),
		Transcriber: tc,
		MaxDuration: cfg.Session.MaxDuration,
	}, nil
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	if err := d.startDisplays(); err != nil {
		return err
	}
	defer d.stopDisplays()

	d.configMgr.OnChange(d.configChanged)
	if err := d.configMgr.StartWatching(d.ctx); err != nil {
		log.Warn().Err(err).Msg("Daemon: config hot-reload disabled")
	}
	defer d.configMgr.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("Daemon: received signal, shutting down")
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Info().Str("config", d.configMgr.Path()).Msg("Daemon: started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Info().Msg("Daemon: shutdown requested")
				d.stopSession()
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) startDisplays() error {
	cfg := d.configMgr.GetConfig()

	if cfg.Display.Terminal {
		d.sinks = append(d.sinks, display.NewStdoutTerminal())
	}
	if cfg.Overlay.Enabled {
		d.overlay = display.NewOverlay(cfg.Overlay.Addr)
		if err := d.overlay.Start(d.ctx); err != nil {
			return fmt.Errorf("start overlay: %w", err)
		}
		d.sinks = append(d.sinks, d.overlay)
	}
	return nil
}

func (d *Daemon) stopDisplays() {
	if d.overlay != nil {
		d.overlay.Stop()
	}
}

func (d *Daemon) configChanged(cfg *config.Config) {
	log.Info().Msg("Daemon: configuration reloaded, applies to the next session")
	if d.fixedNote {
		return
	}
	d.mu.Lock()
	d.notifier = notify.New(cfg.Notifications.Enabled, cfg.Notifications.Type)
	d.mu.Unlock()
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	cmd, err := bus.ReadCommand(bufio.NewReader(c))
	if err != nil {
		log.Debug().Err(err).Msg("Daemon: client read error")
		fmt.Fprint(c, bus.Err(err.Error()))
		return
	}

	switch cmd {
	case bus.CmdToggle:
		status, err := d.toggle()
		if err != nil {
			fmt.Fprint(c, bus.Err(err.Error()))
			return
		}
		fmt.Fprint(c, bus.OK(string(status)))
	case bus.CmdStatus:
		fmt.Fprint(c, d.statusLine()+"\n")
	case bus.CmdCaption:
		fmt.Fprint(c, bus.OK(d.caption()))
	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	case bus.CmdQuit:
		fmt.Fprint(c, bus.OK("quitting"))
		d.cancel()
	default:
		log.Warn().Str("command", string(cmd)).Msg("Daemon: unknown command")
		fmt.Fprint(c, bus.Err(fmt.Sprintf("unknown=%q", cmd)))
	}
}

// toggle stops the listening session or starts a new one. A session that
// ended on its own (fatal error, max duration, end of input) counts as idle.
func (d *Daemon) toggle() (session.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil && d.session.Status() == session.Listening {
		d.session.Stop()
		return session.Idle, nil
	}

	sc, err := SessionConfig(d.configMgr.GetConfig())
	if err != nil {
		go d.notifier.Error(err.Error())
		return session.Idle, err
	}

	s, err := d.newSession(sc, session.Dependencies{
		Notifier:        d.notifier,
		Sinks:           d.sinks,
		StopWhenDrained: true,
	})
	if err != nil {
		go d.notifier.Error(err.Error())
		return session.Idle, err
	}
	if err := s.Start(d.ctx); err != nil {
		log.Error().Err(err).Msg("Daemon: failed to start session")
		go d.notifier.Error(err.Error())
		return session.Idle, err
	}

	d.session = s
	return session.Listening, nil
}

func (d *Daemon) stopSession() {
	d.mu.Lock()
	s := d.session
	d.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}

// Status reports the current session state.
func (d *Daemon) Status() session.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return session.Idle
	}
	return d.session.Status()
}

func (d *Daemon) statusLine() string {
	d.mu.Lock()
	s := d.session
	d.mu.Unlock()

	if s == nil {
		return fmt.Sprintf("STATUS status=%s session=none segments=0 queued=0", session.Idle)
	}
	stats := s.Stats()
	return fmt.Sprintf("STATUS status=%s session=%s segments=%d queued=%d",
		s.Status(), s.ID(), stats.Segments, stats.Queued)
}

func (d *Daemon) caption() string {
	d.mu.Lock()
	s := d.session
	d.mu.Unlock()

	if s == nil {
		return ""
	}
	return strings.Join(strings.Fields(s.Current().Text), " ")
}
