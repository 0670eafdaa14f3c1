//go:build !linux

package cue

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device

	startPCM []byte
	stopPCM  []byte
	errorPCM []byte
	toneOnce sync.Once

	// Playback position, read by the realtime callback.
	playBuf atomic.Pointer[[]byte]
	playPos atomic.Uint32
	playMu  sync.Mutex
)

func pcmBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

func synth() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}

	startPCM = pcmBytes(tone(startFreq, 0.04, startVolume, startDecay))
	stopPCM = pcmBytes(tone(stopFreq, 0.06, stopVolume, stopDecay))
	errorPCM = pcmBytes(doubleTone(errorFreq, 0.08, 0.05, errorVolume, errorDecay))

	if err := initDevice(); err != nil {
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{
		Data: dataCallback,
	})
	return err
}

func dataCallback(out, _ []byte, frameCount uint32) {
	pcm := playBuf.Load()
	if pcm == nil || len(*pcm) == 0 {
		zero(out)
		return
	}

	pos := playPos.Load()
	total := uint32(len(*pcm))
	want := frameCount * 2
	remaining := total - pos

	if remaining == 0 {
		playBuf.Store(nil)
		zero(out)
		return
	}
	if want > remaining {
		want = remaining
	}

	copy(out[:want], (*pcm)[pos:pos+want])
	playPos.Store(pos + want)
	zero(out[want:])
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func startCue() []byte {
	toneOnce.Do(synth)
	return startPCM
}

func stopCue() []byte {
	toneOnce.Do(synth)
	return stopPCM
}

func errorCue() []byte {
	toneOnce.Do(synth)
	return errorPCM
}

func play(pcm []byte) {
	if malgoCtx == nil || len(pcm) == 0 {
		return
	}

	playMu.Lock()
	defer playMu.Unlock()

	if device == nil {
		return
	}

	device.Stop()
	playPos.Store(0)
	playBuf.Store(&pcm)

	if err := device.Start(); err != nil {
		// Recreate the device; macOS kills it across sleep/wake.
		device.Uninit()
		if err := initDevice(); err != nil {
			playBuf.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			playBuf.Store(nil)
		}
	}
}
