package segment

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/livesub/internal/audio"
)

const (
	speechLevel  = 0.5
	silenceLevel = 0.001
)

// testConfig uses a 1 kHz rate so a 100-sample block is exactly 100ms.
func testConfig() Config {
	return Config{
		SampleRate:              1000,
		SilenceThreshold:        0.02,
		SilenceDurationRequired: 800 * time.Millisecond,
		MaxSegmentDuration:      5 * time.Second,
		MinSegmentSamples:       100,
		MinRecognizerSamples:    1000,
		MaxBufferDuration:       10 * time.Second,
	}
}

type feeder struct {
	engine    *Engine
	now       time.Duration
	blockSize int
}

func newFeeder(cfg Config) *feeder {
	return &feeder{engine: New(cfg), blockSize: 100}
}

func (f *feeder) push(level float32, blocks int) []Segment {
	var out []Segment
	for i := 0; i < blocks; i++ {
		samples := make([]float32, f.blockSize)
		for j := range samples {
			samples[j] = level
		}
		if seg, ok := f.engine.Ingest(audio.NewSampleBlock(samples, f.now)); ok {
			out = append(out, seg)
		}
		f.now += 100 * time.Millisecond
	}
	return out
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"zero threshold", func(c *Config) { c.SilenceThreshold = 0 }, true},
		{"zero silence duration", func(c *Config) { c.SilenceDurationRequired = 0 }, true},
		{"zero max segment", func(c *Config) { c.MaxSegmentDuration = 0 }, true},
		{"negative min segment", func(c *Config) { c.MinSegmentSamples = -1 }, true},
		{"negative min recognizer", func(c *Config) { c.MinRecognizerSamples = -1 }, true},
		{"buffer below max segment", func(c *Config) { c.MaxBufferDuration = time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIngestWithoutBoundary(t *testing.T) {
	f := newFeeder(testConfig())

	// 4s of speech broken by pauses shorter than the silence requirement
	for i := 0; i < 8; i++ {
		if segs := f.push(speechLevel, 2); len(segs) != 0 {
			t.Fatalf("unexpected segment during speech: %+v", segs[0].Number)
		}
		if segs := f.push(silenceLevel, 3); len(segs) != 0 {
			t.Fatalf("unexpected segment during short pause: %+v", segs[0].Number)
		}
	}

	state := f.engine.State()
	if state.BufferedSamples != 8*5*100 {
		t.Errorf("buffered = %d, want %d", state.BufferedSamples, 8*5*100)
	}
	if state.NextSegment != 0 {
		t.Errorf("next segment = %d, want 0", state.NextSegment)
	}
}

func TestSilenceCut(t *testing.T) {
	f := newFeeder(testConfig())

	f.push(speechLevel, 10)
	if segs := f.push(silenceLevel, 8); len(segs) != 0 {
		t.Fatal("segment extracted before silence requirement was met")
	}

	segs := f.push(silenceLevel, 1)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	seg := segs[0]

	if seg.Number != 0 {
		t.Errorf("number = %d, want 0", seg.Number)
	}
	if seg.Trigger != TriggerSilence {
		t.Errorf("trigger = %v, want silence", seg.Trigger)
	}
	if len(seg.Samples) != 1900 {
		t.Errorf("samples = %d, want 1900", len(seg.Samples))
	}
	if seg.Samples[0] != speechLevel {
		t.Errorf("first sample = %f, want %f", seg.Samples[0], speechLevel)
	}
	if seg.SourceDuration != 1900*time.Millisecond {
		t.Errorf("source duration = %v, want 1.9s", seg.SourceDuration)
	}

	state := f.engine.State()
	if state.NextSegment != 1 {
		t.Errorf("counter = %d, want 1", state.NextSegment)
	}
	if state.BufferedSamples != 0 || state.HasSpeech || state.InSilence {
		t.Errorf("buffer not cleared after extraction: %+v", state)
	}
	if !reflect.DeepEqual(state.InFlight, []int{0}) {
		t.Errorf("in flight = %v, want [0]", state.InFlight)
	}
}

func TestSilenceCutDeferredWhileInFlight(t *testing.T) {
	f := newFeeder(testConfig())

	f.push(speechLevel, 10)
	if segs := f.push(silenceLevel, 9); len(segs) != 1 {
		t.Fatalf("first utterance: got %d segments, want 1", len(segs))
	}

	f.push(speechLevel, 10)
	if segs := f.push(silenceLevel, 12); len(segs) != 0 {
		t.Fatal("silence cut fired while a segment was in flight")
	}

	f.engine.CompleteProcessing(0)
	if f.engine.InFlight() {
		t.Fatal("engine still in flight after completion")
	}

	segs := f.push(silenceLevel, 1)
	if len(segs) != 1 {
		t.Fatalf("deferred cut: got %d segments, want 1", len(segs))
	}
	if segs[0].Number != 1 {
		t.Errorf("number = %d, want 1", segs[0].Number)
	}
	if len(segs[0].Samples) != 2300 {
		t.Errorf("deferred segment lost samples: got %d, want 2300", len(segs[0].Samples))
	}
}

func TestDurationCutWhileInFlight(t *testing.T) {
	f := newFeeder(testConfig())

	if segs := f.push(speechLevel, 49); len(segs) != 0 {
		t.Fatal("duration cut fired early")
	}
	segs := f.push(speechLevel, 1)
	if len(segs) != 1 {
		t.Fatalf("got %d segments at max duration, want 1", len(segs))
	}
	if segs[0].Trigger != TriggerDuration {
		t.Errorf("trigger = %v, want duration", segs[0].Trigger)
	}
	if len(segs[0].Samples) != 5000 {
		t.Errorf("samples = %d, want 5000", len(segs[0].Samples))
	}

	// segment 0 is never completed
	segs = f.push(speechLevel, 50)
	if len(segs) != 1 {
		t.Fatalf("forced cut did not fire while in flight: got %d segments", len(segs))
	}
	if segs[0].Number != 1 {
		t.Errorf("number = %d, want 1", segs[0].Number)
	}

	if got := f.engine.State().InFlight; !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("in flight = %v, want [0 1]", got)
	}

	f.engine.CompleteProcessing(1)
	if !f.engine.InFlight() {
		t.Error("completing segment 1 cleared segment 0")
	}
	f.engine.CompleteProcessing(0)
	if f.engine.InFlight() {
		t.Error("out-of-order completion left segments in flight")
	}
}

func TestMaxDurationWithoutSpeech(t *testing.T) {
	cfg := testConfig()
	cfg.SilenceDurationRequired = 20 * time.Second
	f := newFeeder(cfg)

	if segs := f.push(silenceLevel, 150); len(segs) != 0 {
		t.Fatalf("silent buffer extracted %d segments", len(segs))
	}

	state := f.engine.State()
	if state.BufferedSamples != 10000 {
		t.Errorf("buffered = %d, want ceiling of 10000", state.BufferedSamples)
	}
	if state.DroppedSamples != 5000 {
		t.Errorf("dropped = %d, want 5000", state.DroppedSamples)
	}
}

func TestSilentBufferDiscard(t *testing.T) {
	f := newFeeder(testConfig())

	if segs := f.push(silenceLevel, 9); len(segs) != 0 {
		t.Fatal("pure silence was extracted")
	}
	state := f.engine.State()
	if state.BufferedSamples != 0 {
		t.Errorf("buffered = %d, want 0 after discard", state.BufferedSamples)
	}
	if state.NextSegment != 0 {
		t.Errorf("counter advanced on discard: %d", state.NextSegment)
	}

	// speech after a discard starts a fresh buffer
	f.push(speechLevel, 3)
	segs := f.push(silenceLevel, 9)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if got := len(segs[0].Samples); got != 1200 {
		t.Errorf("samples = %d, want 1200", got)
	}
}

func TestExtractionPadsToRecognizerMinimum(t *testing.T) {
	cfg := testConfig()
	cfg.MinRecognizerSamples = 2000
	f := newFeeder(cfg)

	f.push(speechLevel, 1)
	segs := f.push(silenceLevel, 9)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	seg := segs[0]

	if len(seg.Samples) != 2000 {
		t.Fatalf("padded length = %d, want 2000", len(seg.Samples))
	}
	if seg.SourceDuration != time.Second {
		t.Errorf("source duration = %v, want 1s", seg.SourceDuration)
	}
	for i := 1000; i < 2000; i++ {
		if seg.Samples[i] != 0 {
			t.Fatalf("padding sample %d = %f, want 0", i, seg.Samples[i])
		}
	}
}

func TestMinSegmentSamples(t *testing.T) {
	cfg := testConfig()
	cfg.MinSegmentSamples = 1500
	f := newFeeder(cfg)

	f.push(speechLevel, 1)
	if segs := f.push(silenceLevel, 13); len(segs) != 0 {
		t.Fatal("silence cut fired below MinSegmentSamples")
	}
	segs := f.push(silenceLevel, 1)
	if len(segs) != 1 {
		t.Fatalf("got %d segments once the minimum was reached, want 1", len(segs))
	}
	if len(segs[0].Samples) != 1500 {
		t.Errorf("samples = %d, want 1500", len(segs[0].Samples))
	}
}

func TestSegmentNumbersStrictlyIncrease(t *testing.T) {
	f := newFeeder(testConfig())

	last := -1
	for i := 0; i < 6; i++ {
		f.push(speechLevel, 5)
		segs := f.push(silenceLevel, 9)
		if len(segs) != 1 {
			t.Fatalf("utterance %d: got %d segments, want 1", i, len(segs))
		}
		if segs[0].Number != last+1 {
			t.Fatalf("utterance %d: number = %d, want %d", i, segs[0].Number, last+1)
		}
		last = segs[0].Number
		f.engine.CompleteProcessing(last)
	}
}

func TestCompleteProcessingUnknownSegment(t *testing.T) {
	f := newFeeder(testConfig())

	f.push(speechLevel, 5)
	f.push(silenceLevel, 9)

	f.engine.CompleteProcessing(42)
	f.engine.CompleteProcessing(-1)
	if !f.engine.InFlight() {
		t.Fatal("unknown completion cleared the in-flight segment")
	}

	f.engine.CompleteProcessing(0)
	f.engine.CompleteProcessing(0)
	if f.engine.InFlight() {
		t.Fatal("segment still in flight after completion")
	}
}

func TestFlush(t *testing.T) {
	t.Run("speech left in buffer", func(t *testing.T) {
		f := newFeeder(testConfig())
		f.push(speechLevel, 3)
		f.push(silenceLevel, 2)

		seg, ok := f.engine.Flush()
		if !ok {
			t.Fatal("Flush() returned no segment")
		}
		if seg.Trigger != TriggerFlush || seg.Number != 0 {
			t.Errorf("segment = #%d %v", seg.Number, seg.Trigger)
		}
		if seg.SourceDuration != 500*time.Millisecond {
			t.Errorf("SourceDuration = %v, want 500ms", seg.SourceDuration)
		}
		if got := f.engine.State().InFlight; !reflect.DeepEqual(got, []int{0}) {
			t.Errorf("InFlight = %v, want [0]", got)
		}
	})

	t.Run("flush ignores in-flight work", func(t *testing.T) {
		f := newFeeder(testConfig())
		f.push(speechLevel, 2)
		f.push(silenceLevel, 9)
		f.push(speechLevel, 2)

		if _, ok := f.engine.Flush(); !ok {
			t.Error("Flush() should cut while segment 0 is in flight")
		}
	})

	t.Run("silence only", func(t *testing.T) {
		f := newFeeder(testConfig())
		f.push(silenceLevel, 3)

		if _, ok := f.engine.Flush(); ok {
			t.Error("Flush() extracted a buffer without speech")
		}
		if got := f.engine.State().BufferedSamples; got != 0 {
			t.Errorf("BufferedSamples = %d, want 0", got)
		}
	})

	t.Run("empty engine", func(t *testing.T) {
		if _, ok := New(testConfig()).Flush(); ok {
			t.Error("Flush() on an empty engine returned a segment")
		}
	})
}

func TestReset(t *testing.T) {
	fresh := New(testConfig()).State()

	tests := []struct {
		name  string
		setup func(f *feeder)
	}{
		{"fresh", func(f *feeder) {}},
		{"mid segment", func(f *feeder) {
			f.push(speechLevel, 7)
			f.push(silenceLevel, 3)
		}},
		{"in flight", func(f *feeder) {
			f.push(speechLevel, 5)
			f.push(silenceLevel, 9)
			f.push(speechLevel, 2)
		}},
		{"after overflow", func(f *feeder) {
			f.engine.cfg.SilenceDurationRequired = time.Hour
			f.push(silenceLevel, 120)
			f.engine.cfg.SilenceDurationRequired = testConfig().SilenceDurationRequired
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFeeder(testConfig())
			tt.setup(f)

			f.engine.Reset()
			if got := f.engine.State(); !reflect.DeepEqual(got, fresh) {
				t.Errorf("state after Reset = %+v, want %+v", got, fresh)
			}
			f.engine.Reset()
			if got := f.engine.State(); !reflect.DeepEqual(got, fresh) {
				t.Errorf("state after second Reset = %+v, want %+v", got, fresh)
			}

			f.now = 0
			f.push(speechLevel, 5)
			segs := f.push(silenceLevel, 9)
			if len(segs) != 1 || segs[0].Number != 0 {
				t.Errorf("first segment after Reset = %+v, want number 0", segs)
			}
		})
	}
}

func TestConcurrentIngest(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSegmentDuration = time.Second
	cfg.MinRecognizerSamples = 0
	engine := New(cfg)

	const (
		producers = 8
		blocks    = 100
		blockSize = 10
	)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		extracted int
		numbers   = make(map[int]bool)
	)

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < blocks; i++ {
				samples := make([]float32, blockSize)
				for j := range samples {
					samples[j] = speechLevel
				}
				seg, ok := engine.Ingest(audio.NewSampleBlock(samples, 0))
				if !ok {
					continue
				}
				mu.Lock()
				extracted += len(seg.Samples)
				if numbers[seg.Number] {
					t.Errorf("segment number %d issued twice", seg.Number)
				}
				numbers[seg.Number] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	total := producers * blocks * blockSize
	buffered := engine.State().BufferedSamples
	if extracted+buffered != total {
		t.Errorf("extracted %d + buffered %d = %d, want %d", extracted, buffered, extracted+buffered, total)
	}
	if len(numbers) != total/1000 {
		t.Errorf("extracted %d segments, want %d", len(numbers), total/1000)
	}
	for n := 0; n < len(numbers); n++ {
		if !numbers[n] {
			t.Errorf("segment number %d missing", n)
		}
	}
}
