package recording

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/livesub/internal/audio"
)

// FileSource replays a WAV file as if it were live input. With Realtime
// set, blocks are paced to wall time; otherwise they are sent as fast as
// the consumer reads them and never dropped.
type FileSource struct {
	config    Config
	recording atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFileSource(config Config) *FileSource {
	return &FileSource{config: config}
}

func (f *FileSource) IsRecording() bool {
	return f.recording.Load()
}

func (f *FileSource) Start(ctx context.Context) (<-chan audio.SampleBlock, <-chan error, error) {
	if f.recording.Load() {
		return nil, nil, fmt.Errorf("already recording")
	}
	if err := f.config.Validate(); err != nil {
		return nil, nil, err
	}

	samples, rate, err := loadWAV(f.config.InputFile)
	if err != nil {
		return nil, nil, err
	}
	log.Info().
		Str("file", f.config.InputFile).
		Int("sample_rate", rate).
		Dur("duration", audio.SamplesToDuration(len(samples), rate)).
		Msg("Recording: replaying file")

	runCtx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()

	blockCh := make(chan audio.SampleBlock, f.config.ChannelBufferSize)
	errCh := make(chan error, 1)

	// the decoder already downmixed, so assemble as mono at the file's rate
	cfg := f.config
	cfg.SampleRate = rate
	cfg.Channels = 1

	f.recording.Store(true)
	f.wg.Add(1)
	go f.replay(runCtx, newBlockAssembler(cfg), samples, blockCh, errCh)

	return blockCh, errCh, nil
}

func (f *FileSource) Stop() {
	f.mu.Lock()
	cancel := f.cancel
	f.cancel = nil
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until replay has finished or been cancelled.
func (f *FileSource) Wait() {
	f.wg.Wait()
}

func (f *FileSource) replay(ctx context.Context, assembler *blockAssembler, samples []float32, blockCh chan<- audio.SampleBlock, errCh chan<- error) {
	defer func() {
		close(blockCh)
		close(errCh)
		f.recording.Store(false)
		f.wg.Done()
	}()

	start := time.Now()
	send := func(block audio.SampleBlock) bool {
		if f.config.Realtime {
			if wait := block.Timestamp - time.Since(start); wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return false
				}
			}
		}
		select {
		case blockCh <- block:
			return true
		case <-ctx.Done():
			return false
		}
	}

	blocks := assembler.push(samples)
	if tail, ok := assembler.flush(); ok {
		blocks = append(blocks, tail)
	}
	for _, block := range blocks {
		if !send(block) {
			return
		}
	}
}

func loadWAV(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	samples, rate, err := audio.DecodeWAV(file)
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return samples, rate, nil
}
