package testutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leonardotrapani/livesub/internal/audio"
	"github.com/leonardotrapani/livesub/internal/config"
	"github.com/leonardotrapani/livesub/internal/recording"
	"github.com/leonardotrapani/livesub/internal/transcriber"
)

// TestConfig returns a valid configuration for testing
func TestConfig() *config.Config {
	c := config.DefaultConfig()
	c.Transcription.Provider = "openai"
	c.Transcription.Model = "whisper-1"
	c.Providers["openai"] = config.ProviderConfig{APIKey: "sk-test-api-key"}
	c.Notifications = config.NotificationsConfig{Enabled: true, Type: "log"}
	return c
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return configPath
}

// TestContext returns a context with timeout for testing
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// CaptureOutput captures stdout for testing
func CaptureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	out, _ := io.ReadAll(r)
	return string(out)
}

// Blocks builds consecutive constant-level blocks of size samples at
// audio.SampleRate, starting at from.
func Blocks(level float32, count, size int, from time.Duration) []audio.SampleBlock {
	blocks := make([]audio.SampleBlock, 0, count)
	step := audio.SamplesToDuration(size, audio.SampleRate)
	for i := 0; i < count; i++ {
		samples := make([]float32, size)
		for j := range samples {
			samples[j] = level
		}
		blocks = append(blocks, audio.NewSampleBlock(samples, from+time.Duration(i)*step))
	}
	return blocks
}

// Utterance returns speech followed by silence, each as 100ms blocks.
func Utterance(speech, silence time.Duration, from time.Duration) []audio.SampleBlock {
	const size = audio.SampleRate / 10
	n := int(speech / (100 * time.Millisecond))
	m := int(silence / (100 * time.Millisecond))
	blocks := Blocks(0.5, n, size, from)
	return append(blocks, Blocks(0.001, m, size, from+time.Duration(n)*100*time.Millisecond)...)
}

// MockSource implements recording.Source for testing. It emits Blocks and
// then either closes the channel (CloseWhenDone) or waits for Stop.
type MockSource struct {
	Blocks        []audio.SampleBlock
	StartError    error
	StreamError   error
	CloseWhenDone bool

	mu        sync.Mutex
	recording atomic.Bool
	stopCh    chan struct{}
	starts    atomic.Int32
	stops     atomic.Int32
}

func NewMockSource(blocks ...audio.SampleBlock) *MockSource {
	return &MockSource{Blocks: blocks}
}

func (m *MockSource) Start(ctx context.Context) (<-chan audio.SampleBlock, <-chan error, error) {
	m.starts.Add(1)
	if m.StartError != nil {
		return nil, nil, m.StartError
	}

	m.mu.Lock()
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	m.recording.Store(true)

	blockCh := make(chan audio.SampleBlock, len(m.Blocks)+1)
	errCh := make(chan error, 1)

	go func() {
		defer close(blockCh)
		defer close(errCh)

		for _, block := range m.Blocks {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case blockCh <- block:
			}
		}

		if m.StreamError != nil {
			errCh <- m.StreamError
		}
		if m.CloseWhenDone {
			m.recording.Store(false)
			return
		}

		// keep channel open until stopped
		select {
		case <-ctx.Done():
		case <-stopCh:
		}
	}()

	return blockCh, errCh, nil
}

func (m *MockSource) Stop() {
	m.stops.Add(1)
	if !m.recording.Load() {
		return
	}
	m.recording.Store(false)

	m.mu.Lock()
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
	}
	m.mu.Unlock()
}

func (m *MockSource) IsRecording() bool {
	return m.recording.Load()
}

func (m *MockSource) Starts() int { return int(m.starts.Load()) }
func (m *MockSource) Stops() int  { return int(m.stops.Load()) }

// RecognizeCall records one Recognize invocation.
type RecognizeCall struct {
	Segment int
	Samples int
}

// MockRecognizer implements transcriber.Recognizer for testing. Without
// RecognizeFunc it returns Texts[segment] (or Text).
type MockRecognizer struct {
	Text          string
	Texts         map[int]string
	RecognizeFunc func(ctx context.Context, samples []float32, segmentNumber int) (string, error)

	mu     sync.Mutex
	calls  []RecognizeCall
	closed bool
}

func NewMockRecognizer(text string) *MockRecognizer {
	return &MockRecognizer{Text: text}
}

func (m *MockRecognizer) Recognize(ctx context.Context, samples []float32, segmentNumber int) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, RecognizeCall{Segment: segmentNumber, Samples: len(samples)})
	fn := m.RecognizeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, samples, segmentNumber)
	}
	if text, ok := m.Texts[segmentNumber]; ok {
		return text, nil
	}
	return m.Text, nil
}

func (m *MockRecognizer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockRecognizer) Calls() []RecognizeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecognizeCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockRecognizer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockSourceFactory returns a factory that always hands out mock.
func MockSourceFactory(mock *MockSource) func(cfg recording.Config) (recording.Source, error) {
	return func(cfg recording.Config) (recording.Source, error) {
		return mock, nil
	}
}

// MockRecognizerFactory returns a factory that always hands out mock.
func MockRecognizerFactory(mock *MockRecognizer) func(cfg transcriber.Config) (transcriber.Recognizer, error) {
	return func(cfg transcriber.Config) (transcriber.Recognizer, error) {
		return mock, nil
	}
}

// MockNotifier records notifier calls.
type MockNotifier struct {
	mu      sync.Mutex
	started int
	stopped int
	errors  []string
}

func (n *MockNotifier) SessionStarted() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started++
}

func (n *MockNotifier) SessionStopped() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped++
}

func (n *MockNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *MockNotifier) Notify(title, message string) {}

func (n *MockNotifier) Counts() (started, stopped int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started, n.stopped
}

func (n *MockNotifier) Errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.errors...)
}
