package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"sotto/log"
)

// levelGain scales raw RMS so normal speech lands in the upper half of the
// [0,1] meter range.
const levelGain = 4.0

// chunkQueueDepth bounds the callback-to-consumer handoff. The consumer only
// appends bytes and computes an RMS, so the queue never fills in practice;
// if it ever does, the callback blocks briefly rather than dropping audio.
const chunkQueueDepth = 64

// LevelFunc receives the per-chunk audio level in [0,1]. It is called from
// the Engine's consumer goroutine and must not block; dropping levels
// downstream is fine, the Engine never waits on it.
type LevelFunc func(level float64)

// Engine owns the capture device and the in-progress recording buffer.
// StartCapture opens the device for the current selection and streams chunks
// into the buffer; StopCapture flushes, closes the device and hands the
// buffer to the caller. One recording at a time.
type Engine struct {
	ctx     Context
	cfg     CaptureConfig
	levelFn LevelFunc

	mu        sync.Mutex
	selection string // "" = system default
	capture   CaptureDevice
	buf       *Buffer
	chunks    chan []byte
	drained   chan struct{}

	feedMu  sync.Mutex
	feeding bool
}

// NewEngine builds an Engine on the given backend context. levelFn may be
// nil when no live meter is wanted.
func NewEngine(ctx Context, levelFn LevelFunc) *Engine {
	return &Engine{
		ctx: ctx,
		cfg: CaptureConfig{
			SampleRate: SampleRate,
			Channels:   Channels,
		},
		levelFn: levelFn,
	}
}

// Devices lists the available capture devices.
func (e *Engine) Devices() ([]DeviceInfo, error) {
	return e.ctx.Devices()
}

// CurrentDevice returns the selected device name, or "" for system default.
func (e *Engine) CurrentDevice() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection
}

// SelectDevice commits an explicit device selection. The device must exist
// right now: selecting an absent device fails with ErrDeviceUnavailable
// instead of silently substituting another. Empty name selects the system
// default and always succeeds.
func (e *Engine) SelectDevice(name string) error {
	if name != "" {
		devices, err := e.ctx.Devices()
		if err != nil {
			return fmt.Errorf("enumerating devices: %w", err)
		}
		found := false
		for _, d := range devices {
			if d.Name == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("device %q: %w", name, ErrDeviceUnavailable)
		}
	}
	e.mu.Lock()
	e.selection = name
	e.mu.Unlock()
	return nil
}

// SetPreferredDevice restores a selection from saved preferences without
// validating presence. If the device is gone by the next capture start, the
// Engine falls back to the system default (it was valid when the user chose
// it; it has since disappeared).
func (e *Engine) SetPreferredDevice(name string) {
	e.mu.Lock()
	e.selection = name
	e.mu.Unlock()
}

// resolveDevice maps the current selection to a concrete device, falling
// back to the system default when a previously-valid device has vanished.
// Caller holds e.mu.
func (e *Engine) resolveDevice() *DeviceInfo {
	if e.selection == "" {
		return nil
	}
	devices, err := e.ctx.Devices()
	if err != nil {
		log.Warnf("device enumeration failed, using default: %v", err)
		return nil
	}
	for i := range devices {
		if devices[i].Name == e.selection {
			return &devices[i]
		}
	}
	log.Info("device_disconnected: " + e.selection)
	return nil
}

// StartCapture opens the capture device and begins streaming into a fresh
// buffer. Fails with ErrDeviceUnavailable when the device cannot be opened.
func (e *Engine) StartCapture() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.capture != nil {
		return fmt.Errorf("capture already running")
	}

	dev := e.resolveDevice()
	capture, err := e.ctx.NewCapture(dev, e.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	buf := NewBuffer(e.cfg.SampleRate)
	chunks := make(chan []byte, chunkQueueDepth)
	drained := make(chan struct{})

	// State mutation never happens inside the OS callback: chunks are
	// copied out and consumed on this goroutine.
	go func() {
		defer close(drained)
		for data := range chunks {
			buf.append(data)
			if e.levelFn != nil {
				e.levelFn(chunkLevel(data))
			}
		}
	}()

	e.feedMu.Lock()
	e.feeding = true
	e.feedMu.Unlock()

	capture.SetCallback(func(data []byte, frameCount uint32) {
		if len(data) == 0 {
			return
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		e.feedMu.Lock()
		if e.feeding {
			chunks <- cp
		}
		e.feedMu.Unlock()
	})

	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		e.feedMu.Lock()
		e.feeding = false
		e.feedMu.Unlock()
		close(chunks)
		<-drained
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	e.capture = capture
	e.buf = buf
	e.chunks = chunks
	e.drained = drained
	log.Info("recording_device: " + capture.DeviceName())
	return nil
}

// StopCapture stops the device, flushes remaining queued chunks and returns
// ownership of the finished buffer. Idempotent: when no capture is running it
// returns an empty buffer.
func (e *Engine) StopCapture() *Buffer {
	e.mu.Lock()
	capture := e.capture
	buf := e.buf
	chunks := e.chunks
	drained := e.drained
	e.capture = nil
	e.buf = nil
	e.chunks = nil
	e.drained = nil
	e.mu.Unlock()

	if capture == nil {
		return NewBuffer(e.cfg.SampleRate)
	}

	capture.Stop()
	capture.ClearCallback()

	e.feedMu.Lock()
	e.feeding = false
	e.feedMu.Unlock()

	close(chunks)
	<-drained
	capture.Close()

	return buf
}

// Capturing reports whether a recording is in progress.
func (e *Engine) Capturing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.capture != nil
}

// chunkLevel computes the RMS amplitude of one S16LE chunk, scaled by
// levelGain and clamped to [0,1].
func chunkLevel(data []byte) float64 {
	n := len(data) / BytesPerFrame
	if n == 0 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(data); i += BytesPerFrame {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	level := math.Sqrt(sumSquares/float64(n)) * levelGain
	if level > 1 {
		level = 1
	}
	return level
}
