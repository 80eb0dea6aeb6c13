package recording

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog/log"

	"github.com/leonardotrapani/livesub/internal/audio"
)

// MalgoSource captures through miniaudio, which picks the native backend
// (PipeWire, PulseAudio, ALSA, CoreAudio, WASAPI).
type MalgoSource struct {
	config Config

	mu        sync.Mutex
	running   bool
	mctx      *malgo.AllocatedContext
	device    *malgo.Device
	deviceID  malgo.DeviceID
	assembler *blockAssembler
	drops     *dropCounter
	blockCh   chan audio.SampleBlock
	errCh     chan error
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewMalgoSource(config Config) *MalgoSource {
	return &MalgoSource{config: config}
}

func (m *MalgoSource) IsRecording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *MalgoSource) Start(ctx context.Context) (<-chan audio.SampleBlock, <-chan error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil, nil, fmt.Errorf("already recording")
	}
	if err := m.config.Validate(); err != nil {
		return nil, nil, err
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("init malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(m.config.Channels)
	deviceConfig.SampleRate = uint32(m.config.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(m.config.BlockSize)

	if m.config.Device != "" {
		id, err := findCaptureDevice(mctx, m.config.Device)
		if err != nil {
			_ = mctx.Uninit()
			mctx.Free()
			return nil, nil, err
		}
		m.deviceID = id
		deviceConfig.Capture.DeviceID = m.deviceID.Pointer()
	}

	m.assembler = newBlockAssembler(m.config)
	m.drops = &dropCounter{source: BackendMalgo}
	m.blockCh = make(chan audio.SampleBlock, m.config.ChannelBufferSize)
	m.errCh = make(chan error, 1)
	m.stopCh = make(chan struct{})

	frameBytes := 2 * m.config.Channels
	blockCh := m.blockCh
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			usable := len(input) - len(input)%frameBytes
			for _, block := range m.assembler.push(audio.DecodeS16LE(input[:usable])) {
				select {
				case blockCh <- block:
				default:
					m.drops.drop()
				}
			}
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, nil, fmt.Errorf("init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return nil, nil, fmt.Errorf("start capture device: %w", err)
	}

	m.mctx = mctx
	m.device = device
	m.running = true

	log.Info().
		Int("sample_rate", m.config.SampleRate).
		Int("channels", m.config.Channels).
		Str("device", m.config.Device).
		Msg("Recording: malgo capture started")

	stopCh := m.stopCh
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-ctx.Done():
			m.shutdown()
		case <-stopCh:
		}
	}()

	return m.blockCh, m.errCh, nil
}

func (m *MalgoSource) Stop() {
	m.shutdown()
	m.wg.Wait()
}

func (m *MalgoSource) shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)

	// device.Stop waits for the data callback to return, so no send can
	// race the channel close below.
	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			emitErr(m.errCh, fmt.Errorf("stop capture device: %w", err))
		}
		m.device.Uninit()
		m.device = nil
	}
	if m.mctx != nil {
		_ = m.mctx.Uninit()
		m.mctx.Free()
		m.mctx = nil
	}

	close(m.blockCh)
	close(m.errCh)
}

func findCaptureDevice(mctx *malgo.AllocatedContext, name string) (malgo.DeviceID, error) {
	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceID{}, fmt.Errorf("enumerate capture devices: %w", err)
	}
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(name)) {
			return info.ID, nil
		}
	}
	return malgo.DeviceID{}, fmt.Errorf("capture device %q not found", name)
}

// DeviceInfo describes a capture device for `livesub devices`.
type DeviceInfo struct {
	Name      string
	IsDefault bool
}

// ListCaptureDevices enumerates capture devices through miniaudio.
func ListCaptureDevices() ([]DeviceInfo, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init malgo context: %w", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate capture devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, DeviceInfo{Name: info.Name(), IsDefault: info.IsDefault != 0})
	}
	return devices, nil
}
