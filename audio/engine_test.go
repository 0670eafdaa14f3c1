package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"
)

func pcmChunk(sample int16, frames int) []byte {
	data := make([]byte, frames*BytesPerFrame)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(data[i*BytesPerFrame:], uint16(sample))
	}
	return data
}

func TestEngineCaptureBuffersAllChunksInOrder(t *testing.T) {
	ctx := NewFakeContext()
	eng := NewEngine(ctx, nil)

	if err := eng.StartCapture(); err != nil {
		t.Fatal(err)
	}
	capture := ctx.LastCapture()

	var want []byte
	for i := int16(1); i <= 5; i++ {
		chunk := pcmChunk(i*1000, 160)
		want = append(want, chunk...)
		capture.Feed(chunk)
	}

	buf := eng.StopCapture()
	if buf.Frames() != 5*160 {
		t.Fatalf("Frames() = %d, want %d", buf.Frames(), 5*160)
	}
	if !bytes.Equal(buf.pcm, want) {
		t.Error("buffer does not match fed chunks in order")
	}
	if !capture.Stopped() || !capture.Closed() {
		t.Error("capture device not stopped and closed")
	}
}

func TestEngineEmitsLevelPerChunk(t *testing.T) {
	var mu sync.Mutex
	var levels []float64
	ctx := NewFakeContext()
	eng := NewEngine(ctx, func(l float64) {
		mu.Lock()
		levels = append(levels, l)
		mu.Unlock()
	})

	if err := eng.StartCapture(); err != nil {
		t.Fatal(err)
	}
	capture := ctx.LastCapture()

	capture.Feed(pcmChunk(0, 160))     // silence
	capture.Feed(pcmChunk(16000, 160)) // loud
	eng.StopCapture()

	mu.Lock()
	defer mu.Unlock()
	if len(levels) != 2 {
		t.Fatalf("got %d level events, want 2", len(levels))
	}
	if levels[0] != 0 {
		t.Errorf("silence level = %v, want 0", levels[0])
	}
	if levels[1] <= 0 || levels[1] > 1 {
		t.Errorf("loud level = %v, want in (0, 1]", levels[1])
	}
}

func TestEngineStopIdempotent(t *testing.T) {
	eng := NewEngine(NewFakeContext(), nil)

	buf := eng.StopCapture()
	if !buf.Empty() {
		t.Error("StopCapture without recording should return empty buffer")
	}

	if err := eng.StartCapture(); err != nil {
		t.Fatal(err)
	}
	eng.StopCapture()
	buf = eng.StopCapture()
	if !buf.Empty() {
		t.Error("second StopCapture should return empty buffer")
	}
}

func TestEngineRejectsDoubleStart(t *testing.T) {
	eng := NewEngine(NewFakeContext(), nil)
	if err := eng.StartCapture(); err != nil {
		t.Fatal(err)
	}
	defer eng.StopCapture()
	if err := eng.StartCapture(); err == nil {
		t.Error("expected error starting capture twice")
	}
}

func TestSelectDeviceAbsentFails(t *testing.T) {
	ctx := NewFakeContext(DeviceInfo{ID: "1", Name: "Built-in"})
	eng := NewEngine(ctx, nil)

	if err := eng.SelectDevice("USB Mic"); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("SelectDevice(absent) = %v, want ErrDeviceUnavailable", err)
	}
	if err := eng.SelectDevice("Built-in"); err != nil {
		t.Errorf("SelectDevice(present) = %v, want nil", err)
	}
	if got := eng.CurrentDevice(); got != "Built-in" {
		t.Errorf("CurrentDevice() = %q, want Built-in", got)
	}
	if err := eng.SelectDevice(""); err != nil {
		t.Errorf("SelectDevice(default) = %v, want nil", err)
	}
}

func TestEngineFallsBackWhenPreferredDeviceGone(t *testing.T) {
	ctx := NewFakeContext(DeviceInfo{ID: "1", Name: "USB Mic"})
	eng := NewEngine(ctx, nil)
	eng.SetPreferredDevice("USB Mic")

	// Device disappears before the next capture start.
	ctx.SetDevices()

	if err := eng.StartCapture(); err != nil {
		t.Fatalf("StartCapture should fall back to default: %v", err)
	}
	defer eng.StopCapture()

	if name := ctx.LastCapture().DeviceName(); name != "system default" {
		t.Errorf("capture opened on %q, want system default", name)
	}
}

func TestEngineStartFailuresSurfaceDeviceUnavailable(t *testing.T) {
	ctx := NewFakeContext()
	ctx.FailOpen(errors.New("busy"))
	eng := NewEngine(ctx, nil)
	if err := eng.StartCapture(); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("open failure = %v, want ErrDeviceUnavailable", err)
	}

	ctx = NewFakeContext()
	ctx.FailStart(errors.New("stream refused"))
	eng = NewEngine(ctx, nil)
	if err := eng.StartCapture(); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("start failure = %v, want ErrDeviceUnavailable", err)
	}
	// A failed start must leave the engine reusable.
	if eng.Capturing() {
		t.Error("engine still capturing after failed start")
	}
}

func TestBufferDurationAndSamples(t *testing.T) {
	buf := NewBuffer(SampleRate)
	buf.append(pcmChunk(16384, SampleRate/2)) // 500ms at half amplitude

	if got := buf.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration() = %v, want 500ms", got)
	}

	samples := buf.Samples()
	if len(samples) != SampleRate/2 {
		t.Fatalf("len(Samples()) = %d, want %d", len(samples), SampleRate/2)
	}
	if samples[0] != 0.5 {
		t.Errorf("sample = %v, want 0.5", samples[0])
	}
}

func TestFromSamplesRoundTrip(t *testing.T) {
	in := []float32{0, 0.25, -0.25, 0.999, -1}
	buf := FromSamples(in, SampleRate)
	out := buf.Samples()
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		diff := float64(out[i] - in[i])
		if diff > 1.0/32768 || diff < -1.0/32768 {
			t.Errorf("sample %d: got %v, want ~%v", i, out[i], in[i])
		}
	}
}

func TestChunkLevelBounds(t *testing.T) {
	if got := chunkLevel(nil); got != 0 {
		t.Errorf("chunkLevel(nil) = %v, want 0", got)
	}
	// Full-scale input must clamp to 1 despite the gain.
	if got := chunkLevel(pcmChunk(32767, 160)); got != 1 {
		t.Errorf("chunkLevel(full scale) = %v, want 1", got)
	}
}

func TestIsBluetooth(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Jabra Elite 75t", true},
		{"Built-in Microphone", false},
		{"USB Condenser", false},
	}
	for _, tt := range tests {
		if got := IsBluetooth(tt.name); got != tt.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
