//go:build linux

package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeS16LEPreservesAmplitude(t *testing.T) {
	in := []int16{0, 1, -1, 12000, -12000, 32767, -32768}
	data := encodeS16LE(in)

	if len(data) != len(in)*2 {
		t.Fatalf("got %d bytes, want %d", len(data), len(in)*2)
	}
	for i, want := range in {
		got := int16(binary.LittleEndian.Uint16(data[i*2:]))
		if got != want {
			t.Errorf("sample %d: got %d, want %d", i, got, want)
		}
	}
}

func TestEncodeS16LEEmpty(t *testing.T) {
	if data := encodeS16LE(nil); len(data) != 0 {
		t.Errorf("got %d bytes for empty input", len(data))
	}
}
