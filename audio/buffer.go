package audio

import (
	"encoding/binary"
	"time"
)

// Buffer holds one recording's worth of S16LE mono samples. It is owned by
// exactly one session: the Engine appends to it while capturing, and after
// StopCapture the caller holds the only reference. It is not safe for
// concurrent use and is treated as immutable once handed off.
type Buffer struct {
	pcm  []byte
	rate uint32
}

// NewBuffer returns an empty buffer at the given sample rate.
func NewBuffer(rate uint32) *Buffer {
	return &Buffer{rate: rate}
}

func (b *Buffer) append(data []byte) {
	b.pcm = append(b.pcm, data...)
}

// Frames returns the number of captured sample frames.
func (b *Buffer) Frames() int {
	return len(b.pcm) / BytesPerFrame
}

// Empty reports whether nothing was captured.
func (b *Buffer) Empty() bool {
	return len(b.pcm) == 0
}

// Duration returns the recorded length.
func (b *Buffer) Duration() time.Duration {
	if b.rate == 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.rate) * float64(time.Second))
}

// Samples converts the PCM data to normalized float32 samples in [-1, 1],
// the format the transcription engine consumes.
func (b *Buffer) Samples() []float32 {
	out := make([]float32, b.Frames())
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(b.pcm[i*BytesPerFrame:]))
		out[i] = float32(s) / 32768.0
	}
	return out
}

// FromSamples builds a buffer from float32 samples, clamping to int16 range.
// Used by the WAV file mode and tests.
func FromSamples(samples []float32, rate uint32) *Buffer {
	pcm := make([]byte, len(samples)*BytesPerFrame)
	for i, s := range samples {
		v := int32(s * 32768.0)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(pcm[i*BytesPerFrame:], uint16(int16(v)))
	}
	return &Buffer{pcm: pcm, rate: rate}
}
