package recording

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/livesub/internal/audio"
)

// pwReadSize is how many bytes are read from pw-record per syscall.
const pwReadSize = 4096

// PipeWireSource captures s16 PCM from pw-record's stdout.
type PipeWireSource struct {
	config    Config
	recording atomic.Bool

	mu     sync.Mutex // guards cmd and cancel
	cmd    *exec.Cmd
	cancel context.CancelFunc

	wg sync.WaitGroup
}

func NewPipeWireSource(config Config) *PipeWireSource {
	return &PipeWireSource{config: config}
}

func (r *PipeWireSource) IsRecording() bool {
	return r.recording.Load()
}

func (r *PipeWireSource) Start(ctx context.Context) (<-chan audio.SampleBlock, <-chan error, error) {
	if r.recording.Load() {
		return nil, nil, fmt.Errorf("already recording")
	}

	if err := r.config.Validate(); err != nil {
		return nil, nil, err
	}

	if err := CheckPipeWireAvailable(ctx); err != nil {
		return nil, nil, fmt.Errorf("PipeWire not available: %w", err)
	}

	recordingCtx, cancel := context.WithCancel(ctx)

	blockCh := make(chan audio.SampleBlock, r.config.ChannelBufferSize)
	errCh := make(chan error, 1)

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	r.recording.Store(true)
	r.wg.Add(1)
	go r.captureLoop(recordingCtx, blockCh, errCh)

	return blockCh, errCh, nil
}

func (r *PipeWireSource) Stop() {
	if !r.recording.Load() {
		return
	}
	r.requestCancel()
}

// Wait blocks until the capture goroutine has exited.
func (r *PipeWireSource) Wait() {
	r.wg.Wait()
}

func (r *PipeWireSource) captureLoop(ctx context.Context, blockCh chan<- audio.SampleBlock, errCh chan<- error) {
	defer func() {
		close(blockCh)
		close(errCh)
		r.recording.Store(false)

		r.mu.Lock()
		if r.cmd != nil {
			_ = r.cmd.Wait()
			r.cmd = nil
		}
		r.cancel = nil
		r.mu.Unlock()

		r.wg.Done()
	}()

	cmd := exec.CommandContext(ctx, "pw-record", r.buildPwRecordArgs()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		emitErr(errCh, fmt.Errorf("create stdout pipe: %w", err))
		r.requestCancel()
		return
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		emitErr(errCh, fmt.Errorf("create stderr pipe: %w", err))
		r.requestCancel()
		return
	}

	r.mu.Lock()
	r.cmd = cmd
	r.mu.Unlock()

	if err := cmd.Start(); err != nil {
		emitErr(errCh, fmt.Errorf("start pw-record: %w", err))
		r.requestCancel()
		return
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Debug().Str("line", scanner.Text()).Msg("Recording: pw-record stderr")
		}
	}()

	if err := r.pump(ctx, stdout, blockCh); err != nil {
		emitErr(errCh, err)
		r.requestCancel()
	}
}

// pump decodes PCM from rd into blocks until EOF or cancellation. Bytes
// that don't complete a frame are carried to the next read.
func (r *PipeWireSource) pump(ctx context.Context, rd io.Reader, blockCh chan<- audio.SampleBlock) error {
	frameBytes := 2 * r.config.Channels
	assembler := newBlockAssembler(r.config)
	drops := &dropCounter{source: BackendPipeWire}

	buffer := make([]byte, pwReadSize)
	var carry []byte

	for {
		n, readErr := rd.Read(buffer)
		if n > 0 {
			data := append(carry, buffer[:n]...)
			usable := len(data) - len(data)%frameBytes
			carry = append([]byte(nil), data[usable:]...)

			for _, block := range assembler.push(audio.DecodeS16LE(data[:usable])) {
				select {
				case blockCh <- block:
				case <-ctx.Done():
					return nil
				default:
					drops.drop()
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read audio: %w", readErr)
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (r *PipeWireSource) requestCancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *PipeWireSource) buildPwRecordArgs() []string {
	args := []string{
		"--format", "s16",
		"--rate", strconv.Itoa(r.config.SampleRate),
		"--channels", strconv.Itoa(r.config.Channels),
		"-",
	}
	if r.config.Device != "" {
		args = append(args, "--target", r.config.Device)
	}
	return args
}

func CheckPipeWireAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("pw-record"); err != nil {
		return fmt.Errorf("pw-record not found: %w (install pipewire-tools)", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(checkCtx, "pw-cli", "info")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("PipeWire not running or accessible: %w", err)
	}
	return nil
}
