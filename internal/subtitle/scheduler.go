package subtitle

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Caption is what a display renders. The zero value means nothing is shown.
type Caption struct {
	Text    string
	Segment int
	ShownAt time.Time
}

func (c Caption) Empty() bool {
	return c.Text == ""
}

// Entry is a recognized result waiting for screen time.
type Entry struct {
	Text    string
	Segment int
}

// Sink is notified every time the current caption changes. Show is called
// with the scheduler's lock held: it must not block or call back into the
// scheduler.
type Sink interface {
	Show(caption Caption)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Caption)

func (f SinkFunc) Show(c Caption) { f(c) }

// Scheduler paces recognized text so each caption stays readable. Results
// play out in arrival order; none are dropped.
type Scheduler struct {
	cfg   Config
	clock Clock

	mu         sync.Mutex
	sinks      []Sink
	current    Caption
	showing    bool
	queue      []Entry
	timer      Timer
	generation uint64
}

func NewScheduler(cfg Config, clock Clock, sinks ...Sink) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	return &Scheduler{
		cfg:   cfg,
		clock: clock,
		sinks: sinks,
	}
}

// AddSink registers another display.
func (s *Scheduler) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// HandleResult schedules a recognized, already filtered text.
func (s *Scheduler) HandleResult(text string, segment int) {
	if strings.TrimSpace(text) == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) > 0 {
		s.queue = append(s.queue, Entry{Text: text, Segment: segment})
		log.Debug().Int("segment", segment).Int("queued", len(s.queue)).Msg("Subtitle: queued behind pending captions")
		return
	}

	if !s.showing {
		s.showLocked(Entry{Text: text, Segment: segment})
		return
	}

	elapsed := s.clock.Now().Sub(s.current.ShownAt)
	required := s.cfg.RequiredTime(s.current.Text)
	if elapsed >= required {
		s.showLocked(Entry{Text: text, Segment: segment})
		return
	}

	s.queue = append(s.queue, Entry{Text: text, Segment: segment})
	s.armLocked(required - elapsed)
	log.Debug().
		Int("segment", segment).
		Dur("wait", required-elapsed).
		Msg("Subtitle: queued until current caption has been read")
}

// Advance shows the next queued entry now. It is a no-op on an empty queue.
func (s *Scheduler) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked()
}

// Reset clears the current caption and queue and disarms the timer.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.queue = nil
	wasShowing := s.showing
	s.showing = false
	s.current = Caption{}
	if wasShowing {
		s.notifyLocked()
	}
}

// Current returns the caption on screen.
func (s *Scheduler) Current() Caption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Queued returns the number of captions waiting for screen time.
func (s *Scheduler) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Pending reports whether a timer is armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Scheduler) advanceLocked() {
	s.stopTimerLocked()
	if len(s.queue) == 0 {
		return
	}

	next := s.queue[0]
	s.queue[0] = Entry{}
	s.queue = s.queue[1:]
	if len(s.queue) == 0 {
		s.queue = nil
	}

	s.showLocked(next)
	if len(s.queue) > 0 {
		s.armLocked(s.cfg.RequiredTime(next.Text))
	}
}

func (s *Scheduler) showLocked(e Entry) {
	s.current = Caption{Text: e.Text, Segment: e.Segment, ShownAt: s.clock.Now()}
	s.showing = true
	log.Debug().Int("segment", e.Segment).Str("text", e.Text).Msg("Subtitle: showing caption")
	s.notifyLocked()
}

func (s *Scheduler) notifyLocked() {
	for _, sink := range s.sinks {
		sink.Show(s.current)
	}
}

func (s *Scheduler) armLocked(d time.Duration) {
	s.stopTimerLocked()
	gen := s.generation
	s.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.generation {
			return
		}
		s.timer = nil
		s.advanceLocked()
	})
}

// stopTimerLocked also invalidates any callback that already fired and is
// waiting on the lock.
func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}
