package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"sotto/audio"
)

func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

func TestLoadWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one-second.wav")
	data := make([]int, audio.SampleRate)
	for i := range data {
		data[i] = 1000
	}
	writeWAV(t, path, audio.SampleRate, audio.Channels, data)

	buf, err := loadWAV(path)
	if err != nil {
		t.Fatalf("loadWAV: %v", err)
	}
	if got := buf.Duration().Seconds(); math.Abs(got-1.0) > 0.01 {
		t.Fatalf("duration = %.3fs, want 1s", got)
	}
	samples := buf.Samples()
	if len(samples) != audio.SampleRate {
		t.Fatalf("samples = %d, want %d", len(samples), audio.SampleRate)
	}
	if want := float32(1000) / 32768.0; math.Abs(float64(samples[0]-want)) > 1e-4 {
		t.Fatalf("sample = %v, want %v", samples[0], want)
	}
}

func TestLoadWAVRejectsWrongFormat(t *testing.T) {
	dir := t.TempDir()

	stereo := filepath.Join(dir, "stereo.wav")
	writeWAV(t, stereo, audio.SampleRate, 2, make([]int, 64))
	if _, err := loadWAV(stereo); err == nil {
		t.Fatal("expected error for stereo file")
	}

	wrongRate := filepath.Join(dir, "cd-rate.wav")
	writeWAV(t, wrongRate, 44100, 1, make([]int, 64))
	if _, err := loadWAV(wrongRate); err == nil {
		t.Fatal("expected error for 44.1 kHz file")
	}
}

func TestLoadWAVMissingFile(t *testing.T) {
	if _, err := loadWAV(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWrapText(t *testing.T) {
	if got := wrapText("", 10); got != "" {
		t.Fatalf("wrapText(empty) = %q", got)
	}
	got := wrapText("the quick brown fox jumps over the lazy dog", 15)
	for _, line := range splitLines(got) {
		if len(line) > 15 {
			t.Fatalf("line %q exceeds width", line)
		}
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}
