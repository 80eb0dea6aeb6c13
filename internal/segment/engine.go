package segment

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/livesub/internal/audio"
)

// Trigger records why a segment was cut.
type Trigger int

const (
	// TriggerSilence cuts after enough trailing silence; deferred while
	// another segment is in flight.
	TriggerSilence Trigger = iota
	// TriggerDuration cuts at MaxSegmentDuration regardless of in-flight work.
	TriggerDuration
	// TriggerFlush cuts whatever speech is left when the source ends.
	TriggerFlush
)

func (t Trigger) String() string {
	switch t {
	case TriggerSilence:
		return "silence"
	case TriggerDuration:
		return "duration"
	case TriggerFlush:
		return "flush"
	default:
		return "unknown"
	}
}

// Segment is an immutable snapshot handed to the recognizer.
type Segment struct {
	Number         int
	Samples        []float32 // zero-padded to MinRecognizerSamples
	SourceDuration time.Duration
	Trigger        Trigger
}

// State is a read-only view of the engine used for status and tests.
type State struct {
	BufferedSamples int
	Buffered        time.Duration
	HasSpeech       bool
	InSilence       bool
	NextSegment     int
	InFlight        []int
	DroppedSamples  int
}

// Engine accumulates sample blocks and decides segment boundaries.
// Every method takes the same mutex, so Ingest, CompleteProcessing and
// Reset are serialized in call order and Ingest never waits on recognition.
type Engine struct {
	cfg Config

	mu           sync.Mutex
	samples      []float32
	silenceStart time.Duration
	inSilence    bool
	hasSpeech    bool
	counter      int
	inFlight     map[int]struct{}
	dropped      int
}

func New(cfg Config) *Engine {
	return &Engine{
		cfg:      cfg,
		inFlight: make(map[int]struct{}),
	}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Ingest appends a block and returns a segment when a boundary is reached.
func (e *Engine) Ingest(block audio.SampleBlock) (Segment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.samples = append(e.samples, block.Samples...)

	if block.RMS < e.cfg.SilenceThreshold {
		if !e.inSilence {
			e.inSilence = true
			e.silenceStart = block.Timestamp
		}
	} else {
		e.inSilence = false
		e.hasSpeech = true
	}

	var silence time.Duration
	if e.inSilence && block.Timestamp > e.silenceStart {
		silence = block.Timestamp - e.silenceStart
	}
	buffered := audio.SamplesToDuration(len(e.samples), e.cfg.SampleRate)
	silenceReached := silence >= e.cfg.SilenceDurationRequired

	switch {
	case buffered >= e.cfg.MaxSegmentDuration && e.hasSpeech && len(e.samples) > 0:
		return e.extract(TriggerDuration), true

	case silenceReached && e.hasSpeech && len(e.samples) >= e.cfg.MinSegmentSamples && len(e.inFlight) == 0:
		return e.extract(TriggerSilence), true

	case silenceReached && !e.hasSpeech:
		log.Debug().
			Int("samples", len(e.samples)).
			Dur("silence", silence).
			Msg("Segment: discarding silent buffer")
		e.clear()
		return Segment{}, false
	}

	e.trimOverflow()
	return Segment{}, false
}

// CompleteProcessing marks a segment's recognition as finished, whatever
// its outcome. Unknown numbers are ignored.
func (e *Engine) CompleteProcessing(segmentNumber int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.inFlight[segmentNumber]; !ok {
		log.Debug().Int("segment", segmentNumber).Msg("Segment: completion for unknown segment ignored")
		return
	}
	delete(e.inFlight, segmentNumber)
}

// Flush extracts the remaining buffer at end of input. Buffers without
// speech are discarded instead.
func (e *Engine) Flush() (Segment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.hasSpeech || len(e.samples) == 0 {
		e.clear()
		return Segment{}, false
	}
	return e.extract(TriggerFlush), true
}

// InFlight reports whether any extracted segment is still being recognized.
func (e *Engine) InFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inFlight) > 0
}

// Reset returns the engine to its freshly constructed state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.samples = nil
	e.silenceStart = 0
	e.inSilence = false
	e.hasSpeech = false
	e.counter = 0
	e.inFlight = make(map[int]struct{})
	e.dropped = 0
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	inFlight := make([]int, 0, len(e.inFlight))
	for n := range e.inFlight {
		inFlight = append(inFlight, n)
	}
	sort.Ints(inFlight)

	return State{
		BufferedSamples: len(e.samples),
		Buffered:        audio.SamplesToDuration(len(e.samples), e.cfg.SampleRate),
		HasSpeech:       e.hasSpeech,
		InSilence:       e.inSilence,
		NextSegment:     e.counter,
		InFlight:        inFlight,
		DroppedSamples:  e.dropped,
	}
}

// extract must be called with mu held.
func (e *Engine) extract(trigger Trigger) Segment {
	n := len(e.samples)
	size := n
	if size < e.cfg.MinRecognizerSamples {
		size = e.cfg.MinRecognizerSamples
	}
	out := make([]float32, size)
	copy(out, e.samples)

	seg := Segment{
		Number:         e.counter,
		Samples:        out,
		SourceDuration: audio.SamplesToDuration(n, e.cfg.SampleRate),
		Trigger:        trigger,
	}
	e.counter++
	e.inFlight[seg.Number] = struct{}{}
	e.clear()

	log.Debug().
		Int("segment", seg.Number).
		Str("trigger", trigger.String()).
		Dur("duration", seg.SourceDuration).
		Int("in_flight", len(e.inFlight)).
		Msg("Segment: extracted")
	return seg
}

func (e *Engine) clear() {
	e.samples = e.samples[:0]
	e.inSilence = false
	e.silenceStart = 0
	e.hasSpeech = false
}

// trimOverflow must be called with mu held.
func (e *Engine) trimOverflow() {
	limit := e.cfg.maxBufferSamples()
	if limit <= 0 || len(e.samples) <= limit {
		return
	}
	excess := len(e.samples) - limit
	n := copy(e.samples, e.samples[excess:])
	e.samples = e.samples[:n]
	e.dropped += excess

	log.Warn().
		Int("dropped", excess).
		Int("buffered", n).
		Msg("Segment: buffer ceiling exceeded, dropped oldest samples")
}
