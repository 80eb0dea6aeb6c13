package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/livesub/internal/audio"
	"github.com/leonardotrapani/livesub/internal/filter"
	"github.com/leonardotrapani/livesub/internal/notify"
	"github.com/leonardotrapani/livesub/internal/recording"
	"github.com/leonardotrapani/livesub/internal/segment"
	"github.com/leonardotrapani/livesub/internal/subtitle"
	"github.com/leonardotrapani/livesub/internal/transcriber"
)

type Status string

const (
	Idle      Status = "idle"
	Listening Status = "listening"
)

// Config gathers the per-component settings of one listening session.
type Config struct {
	Recording   recording.Config
	Segment     segment.Config
	Subtitle    subtitle.Config
	Filter      filter.Config
	Transcriber transcriber.Config
	// MaxDuration stops the session automatically; 0 disables it.
	MaxDuration time.Duration
}

func (c Config) Validate() error {
	if err := c.Recording.Validate(); err != nil {
		return fmt.Errorf("recording: %w", err)
	}
	if err := c.Segment.Validate(); err != nil {
		return fmt.Errorf("segmentation: %w", err)
	}
	if err := c.Subtitle.Validate(); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if c.MaxDuration < 0 {
		return fmt.Errorf("invalid max duration: %v", c.MaxDuration)
	}
	return nil
}

// Dependencies are the collaborators a session is wired to. Nil factories
// default to the real implementations.
type Dependencies struct {
	NewSource       func(recording.Config) (recording.Source, error)
	NewRecognizer   func(transcriber.Config) (transcriber.Recognizer, error)
	Notifier        notify.Notifier
	Clock           subtitle.Clock
	Sinks           []subtitle.Sink
	// StopWhenDrained ends the session once a finite source has run out,
	// every segment is recognized and the captions have played out.
	StopWhenDrained bool
}

// Stats counts what happened to segments during a session.
type Stats struct {
	Segments   int64
	Recognized int64
	Filtered   int64
	Failed     int64
	Queued     int
	InFlight   int
	Dropped    int
}

// Session wires a sample source through the segmentation engine and a
// recognizer into the subtitle scheduler.
type Session struct {
	id   string
	cfg  Config
	deps Dependencies

	engine    *segment.Engine
	scheduler *subtitle.Scheduler
	filter    *filter.Filter

	mu         sync.Mutex
	status     Status
	started    bool
	source     recording.Source
	recognizer transcriber.Recognizer
	cancel     context.CancelFunc
	err        error

	loopDone chan struct{}
	drained  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	workers  sync.WaitGroup

	segments   atomic.Int64
	recognized atomic.Int64
	filtered   atomic.Int64
	failed     atomic.Int64
}

func New(cfg Config, deps Dependencies) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.NewSource == nil {
		deps.NewSource = recording.New
	}
	if deps.NewRecognizer == nil {
		deps.NewRecognizer = transcriber.New
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}

	return &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		deps:      deps,
		engine:    segment.New(cfg.Segment),
		scheduler: subtitle.NewScheduler(cfg.Subtitle, deps.Clock, deps.Sinks...),
		filter:    filter.New(cfg.Filter),
		status:    Idle,
		loopDone:  make(chan struct{}),
		drained:   make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err is the error that ended the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the session has fully stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Drained is closed when a finite source ran out and every segment has
// been recognized. Queued captions may still be playing.
func (s *Session) Drained() <-chan struct{} {
	return s.drained
}

func (s *Session) Scheduler() *subtitle.Scheduler {
	return s.scheduler
}

// Current is the caption on screen right now.
func (s *Session) Current() subtitle.Caption {
	return s.scheduler.Current()
}

func (s *Session) Stats() Stats {
	state := s.engine.State()
	return Stats{
		Segments:   s.segments.Load(),
		Recognized: s.recognized.Load(),
		Filtered:   s.filtered.Load(),
		Failed:     s.failed.Load(),
		Queued:     s.scheduler.Queued(),
		InFlight:   len(state.InFlight),
		Dropped:    state.DroppedSamples,
	}
}

// Start builds the recognizer, starts the source and begins listening. A
// session can only be started once.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("session already started")
	}
	s.started = true
	err := s.startLocked(ctx)
	s.mu.Unlock()

	if err != nil {
		s.stopOnce.Do(func() {
			close(s.loopDone)
			close(s.done)
		})
		return err
	}

	log.Info().
		Str("session", s.id).
		Str("backend", s.cfg.Recording.Backend).
		Str("provider", s.cfg.Transcriber.Provider).
		Msg("Session: listening")
	go s.deps.Notifier.SessionStarted()
	return nil
}

func (s *Session) startLocked(ctx context.Context) error {
	recognizer, err := s.deps.NewRecognizer(s.cfg.Transcriber)
	if err != nil {
		return fmt.Errorf("create recognizer: %w", err)
	}

	source, err := s.deps.NewSource(s.cfg.Recording)
	if err != nil {
		closeRecognizer(recognizer)
		return fmt.Errorf("create audio source: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if s.cfg.MaxDuration > 0 {
		cancel()
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.MaxDuration)
	}

	blocks, errs, err := source.Start(runCtx)
	if err != nil {
		cancel()
		closeRecognizer(recognizer)
		return fmt.Errorf("start audio source: %w", err)
	}

	s.source = source
	s.recognizer = recognizer
	s.cancel = cancel
	s.status = Listening

	go s.run(runCtx, blocks, errs)
	return nil
}

// Stop halts the source, cancels in-flight recognition, waits for the
// workers and clears the engine and the screen. Safe to call repeatedly
// and from any goroutine except a recognition worker.
func (s *Session) Stop() {
	s.stopOnce.Do(s.stop)
	<-s.done
}

func (s *Session) stop() {
	s.mu.Lock()
	if s.source == nil {
		s.started = true
		s.mu.Unlock()
		close(s.loopDone)
		close(s.done)
		return
	}
	cancel := s.cancel
	source := s.source
	recognizer := s.recognizer
	s.mu.Unlock()

	cancel()
	source.Stop()
	<-s.loopDone
	s.workers.Wait()
	closeRecognizer(recognizer)

	s.engine.Reset()
	s.scheduler.Reset()

	s.mu.Lock()
	s.status = Idle
	s.mu.Unlock()

	stats := s.Stats()
	log.Info().
		Str("session", s.id).
		Int64("segments", stats.Segments).
		Int64("recognized", stats.Recognized).
		Int64("filtered", stats.Filtered).
		Int64("failed", stats.Failed).
		Msg("Session: stopped")
	go s.deps.Notifier.SessionStopped()
	close(s.done)
}

func (s *Session) run(ctx context.Context, blocks <-chan audio.SampleBlock, errs <-chan error) {
	defer close(s.loopDone)

	for {
		select {
		case <-ctx.Done():
			s.expire(ctx)
			return

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				s.fail(fmt.Errorf("audio source: %w", err))
				return
			}

		case block, ok := <-blocks:
			if !ok {
				if err := pendingError(errs); err != nil {
					s.fail(fmt.Errorf("audio source: %w", err))
					return
				}
				if ctx.Err() != nil {
					s.expire(ctx)
					return
				}
				s.finishInput(ctx)
				return
			}
			if seg, ok := s.engine.Ingest(block); ok {
				s.dispatch(ctx, seg)
			}
		}
	}
}

// expire stops the session once its context ends, either from the caller
// or from MaxDuration.
func (s *Session) expire(ctx context.Context) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Info().Str("session", s.id).Dur("max_duration", s.cfg.MaxDuration).Msg("Session: maximum duration reached")
	}
	go s.Stop()
}

// finishInput flushes the tail of a finite source and reports when every
// segment has been recognized.
func (s *Session) finishInput(ctx context.Context) {
	if seg, ok := s.engine.Flush(); ok {
		s.dispatch(ctx, seg)
	}
	log.Info().Str("session", s.id).Msg("Session: audio source ended")

	go func() {
		s.workers.Wait()
		close(s.drained)
		if s.deps.StopWhenDrained {
			s.PlayOut(ctx)
			log.Info().Str("session", s.id).Msg("Session: input drained, stopping")
			s.Stop()
		}
	}()
}

// PlayOut waits until queued captions have been shown and the last one has
// stayed up for its reading time.
func (s *Session) PlayOut(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for s.scheduler.Queued() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
		}
	}

	current := s.scheduler.Current()
	if current.Empty() {
		return
	}
	required := s.cfg.Subtitle.RequiredTime(current.Text)
	remaining := required - time.Since(current.ShownAt)
	if remaining <= 0 {
		return
	}
	if remaining > required {
		remaining = required
	}

	select {
	case <-ctx.Done():
	case <-s.done:
	case <-time.After(remaining):
	}
}

// pendingError returns an error the source reported before closing its
// block channel. Sources send it first, so it is already buffered.
func pendingError(errs <-chan error) error {
	if errs == nil {
		return nil
	}
	select {
	case err, ok := <-errs:
		if ok {
			return err
		}
	default:
	}
	return nil
}

func (s *Session) dispatch(ctx context.Context, seg segment.Segment) {
	s.segments.Add(1)
	s.workers.Add(1)
	go s.recognize(ctx, seg)
}

func (s *Session) recognize(ctx context.Context, seg segment.Segment) {
	defer s.workers.Done()

	start := time.Now()
	text, err := s.recognizer.Recognize(ctx, seg.Samples, seg.Number)
	s.engine.CompleteProcessing(seg.Number)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if transcriber.IsFatalRecognitionError(err) {
			s.fail(fmt.Errorf("segment %d: %w", seg.Number, err))
			return
		}
		s.failed.Add(1)
		log.Warn().
			Err(err).
			Int("segment", seg.Number).
			Dur("after", time.Since(start)).
			Msg("Session: recognition failed, segment dropped")
		return
	}

	kept, ok := s.filter.Keep(text)
	if !ok {
		s.filtered.Add(1)
		return
	}
	if ctx.Err() != nil {
		return
	}

	s.recognized.Add(1)
	log.Debug().
		Int("segment", seg.Number).
		Str("trigger", seg.Trigger.String()).
		Dur("took", time.Since(start)).
		Msg("Session: caption scheduled")
	s.scheduler.HandleResult(kept, seg.Number)
}

// fail records the first fatal error, tells the user and stops the session.
func (s *Session) fail(err error) {
	s.mu.Lock()
	first := s.err == nil
	if first {
		s.err = err
	}
	s.mu.Unlock()

	if !first {
		return
	}
	log.Error().Err(err).Str("session", s.id).Msg("Session: fatal error, stopping")
	s.deps.Notifier.Error(err.Error())
	go s.Stop()
}

func closeRecognizer(r transcriber.Recognizer) {
	if c, ok := r.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Session: failed to close recognizer")
		}
	}
}
