// Package audio owns the capture side: device enumeration, the platform
// capture backends and the Engine that buffers a recording and reports a
// live level signal.
package audio

import (
	"errors"
	"strings"
)

const (
	// SampleRate is the capture rate. Whisper consumes 16 kHz mono, so we
	// record at that rate directly instead of resampling afterwards.
	SampleRate = 16000
	Channels   = 1

	// BytesPerFrame for S16LE mono.
	BytesPerFrame = 2
)

// ErrDeviceUnavailable is returned when the requested capture device cannot
// be opened: missing, busy or permission denied.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses whether a device name refers to a Bluetooth microphone.
// BT mics switch to a low-quality codec while capturing, which hurts
// recognition, so the picker and TUI warn about them.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DataCallback receives raw S16LE sample chunks from the capture backend.
// It runs on the backend's delivery context and must not block.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}
