package recording

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/livesub/internal/audio"
)

const (
	BackendPipeWire = "pipewire"
	BackendMalgo    = "malgo"
	BackendFile     = "file"
)

// Source delivers mono float32 blocks at audio.SampleRate. Both channels
// are closed when capture ends.
type Source interface {
	Start(ctx context.Context) (<-chan audio.SampleBlock, <-chan error, error)
	Stop()
	IsRecording() bool
}

type Config struct {
	Backend    string
	SampleRate int
	Channels   int
	// BlockSize is the number of samples per delivered block at audio.SampleRate.
	BlockSize         int
	Device            string
	ChannelBufferSize int

	// InputFile and Realtime only apply to the file backend.
	InputFile string
	Realtime  bool
}

func DefaultConfig() Config {
	return Config{
		Backend:           BackendPipeWire,
		SampleRate:        audio.SampleRate,
		Channels:          1,
		BlockSize:         audio.SampleRate / 10,
		Device:            "",
		ChannelBufferSize: 30,
		Realtime:          true,
	}
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendPipeWire, BackendMalgo:
	case BackendFile:
		if c.InputFile == "" {
			return fmt.Errorf("invalid InputFile: empty for file backend")
		}
	default:
		return fmt.Errorf("invalid Backend: %q", c.Backend)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid SampleRate: %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("invalid Channels: %d", c.Channels)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("invalid BlockSize: %d", c.BlockSize)
	}
	if c.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid ChannelBufferSize: %d", c.ChannelBufferSize)
	}
	return nil
}

// New builds the source selected by cfg.Backend.
func New(cfg Config) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendMalgo:
		return NewMalgoSource(cfg), nil
	case BackendFile:
		return NewFileSource(cfg), nil
	default:
		return NewPipeWireSource(cfg), nil
	}
}

// blockAssembler turns arbitrarily sized interleaved chunks into fixed
// blocks of mono audio at audio.SampleRate, timestamped by sample count.
type blockAssembler struct {
	inRate    int
	channels  int
	blockSize int

	pending   []float32
	delivered int
}

func newBlockAssembler(cfg Config) *blockAssembler {
	return &blockAssembler{
		inRate:    cfg.SampleRate,
		channels:  cfg.Channels,
		blockSize: cfg.BlockSize,
	}
}

func (a *blockAssembler) push(interleaved []float32) []audio.SampleBlock {
	mono := audio.Downmix(interleaved, a.channels)
	mono = audio.ResampleLinear(mono, a.inRate, audio.SampleRate)
	a.pending = append(a.pending, mono...)

	var blocks []audio.SampleBlock
	for len(a.pending) >= a.blockSize {
		blocks = append(blocks, a.take(a.blockSize))
	}
	return blocks
}

// flush emits whatever is left as a short final block.
func (a *blockAssembler) flush() (audio.SampleBlock, bool) {
	if len(a.pending) == 0 {
		return audio.SampleBlock{}, false
	}
	return a.take(len(a.pending)), true
}

func (a *blockAssembler) take(n int) audio.SampleBlock {
	samples := make([]float32, n)
	copy(samples, a.pending[:n])
	a.pending = a.pending[n:]
	if len(a.pending) == 0 {
		a.pending = nil
	}

	ts := audio.SamplesToDuration(a.delivered, audio.SampleRate)
	a.delivered += n
	return audio.NewSampleBlock(samples, ts)
}

// dropCounter rate-limits backpressure warnings from live sources.
type dropCounter struct {
	source  string
	dropped int
	lastLog time.Time
}

func (d *dropCounter) drop() {
	d.dropped++
	if time.Since(d.lastLog) > time.Second {
		log.Warn().Str("source", d.source).Int("dropped", d.dropped).Msg("Recording: dropped blocks due to backpressure")
		d.lastLog = time.Now()
		d.dropped = 0
	}
}

func emitErr(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
	log.Error().Err(err).Msg("Recording error")
}
