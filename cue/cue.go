// Package cue plays short confirmation tones: one on recording start, one
// on stop, a low double-tone on error. Playback is fire-and-forget; a cue
// that fails to play is dropped silently, it must never delay a recording.
package cue

import "math"

var disabled bool

// Disable turns all cues off.
func Disable() { disabled = true }

const (
	sampleRate = 44100

	startFreq   = 1320.0
	startVolume = 0.4
	startDecay  = 55.0

	stopFreq   = 880.0
	stopVolume = 0.4
	stopDecay  = 35.0

	errorFreq   = 330.0
	errorVolume = 0.5
	errorDecay  = 25.0
)

// tone synthesizes a decaying mono sine burst.
func tone(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

// doubleTone is two bursts with a short gap, used for the error cue.
func doubleTone(freq, burstDur, gapDur, volume, decay float64) []int16 {
	burst := tone(freq, burstDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(burst)*2+len(gap))
	out = append(out, burst...)
	out = append(out, gap...)
	out = append(out, burst...)
	return out
}

func Start() {
	if disabled {
		return
	}
	play(startCue())
}

func Stop() {
	if disabled {
		return
	}
	play(stopCue())
}

func Error() {
	if disabled {
		return
	}
	play(errorCue())
}
