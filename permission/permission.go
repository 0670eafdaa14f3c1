// Package permission answers "can we capture audio / synthesize keys right
// now" and deep-links into the OS privacy settings when the answer is no.
package permission

import (
	"sotto/audio"
)

// CheckMicrophone probes the default capture device. On macOS the first
// probe doubles as the trigger for the system microphone consent prompt.
func CheckMicrophone(ctx audio.Context) bool {
	capture, err := ctx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		return false
	}
	defer capture.Close()
	if err := capture.Start(); err != nil {
		return false
	}
	capture.Stop()
	return true
}
