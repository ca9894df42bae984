package audiocapture

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"
)

// micCapturer captures the default microphone through miniaudio.
type micCapturer struct {
	cfg Config

	mu      sync.Mutex
	running bool
	mctx    *malgo.AllocatedContext
	device  *malgo.Device
}

// New creates a Capturer for the default input device.
func New(cfg Config) (Capturer, error) {
	return &micCapturer{cfg: cfg.withDefaults()}, nil
}

func (m *micCapturer) SampleRate() int { return m.cfg.SampleRate }
func (m *micCapturer) Channels() int   { return m.cfg.Channels }

func (m *micCapturer) Start(handler AudioHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrRunning
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(m.cfg.Channels)
	deviceConfig.SampleRate = uint32(m.cfg.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			handler(Float32FromLE(input))
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("init capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("start capture device: %w", err)
	}

	m.mctx = mctx
	m.device = device
	m.running = true
	slog.Info("microphone started", "sample_rate", m.cfg.SampleRate, "channels", m.cfg.Channels)
	return nil
}

func (m *micCapturer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false

	var stopErr error
	if err := m.device.Stop(); err != nil {
		stopErr = fmt.Errorf("stop capture device: %w", err)
	}
	m.device.Uninit()
	_ = m.mctx.Uninit()
	m.mctx.Free()
	m.device, m.mctx = nil, nil

	slog.Info("microphone stopped")
	return stopErr
}
