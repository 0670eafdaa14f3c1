package cue

import "testing"

func TestToneLengthAndDecay(t *testing.T) {
	samples := tone(880, 0.1, 0.5, 40)
	if want := int(sampleRate * 0.1); len(samples) != want {
		t.Fatalf("len = %d, want %d", len(samples), want)
	}
	if samples[0] != 0 {
		t.Fatalf("sine must start at zero, got %d", samples[0])
	}

	// The envelope decays: the last quarter must be quieter than the first.
	peak := func(s []int16) int16 {
		var max int16
		for _, v := range s {
			if v > max {
				max = v
			}
			if -v > max {
				max = -v
			}
		}
		return max
	}
	q := len(samples) / 4
	if peak(samples[3*q:]) >= peak(samples[:q]) {
		t.Fatal("expected decaying envelope")
	}
}

func TestDoubleToneHasGap(t *testing.T) {
	burst := tone(330, 0.08, 0.5, 25)
	double := doubleTone(330, 0.08, 0.05, 0.5, 25)
	gap := int(sampleRate * 0.05)
	if want := len(burst)*2 + gap; len(double) != want {
		t.Fatalf("len = %d, want %d", len(double), want)
	}
	for i := len(burst); i < len(burst)+gap; i++ {
		if double[i] != 0 {
			t.Fatalf("gap sample %d = %d, want silence", i, double[i])
		}
	}
}
