package main

import (
	"context"
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"sotto/audio"
	"sotto/models"
	"sotto/transcriber"
)

// transcribeFile runs one batch transcription of a WAV file and prints the
// text. The file must match the capture format: 16 kHz mono 16-bit PCM.
func transcribeFile(trans transcriber.Transcriber, manager *models.Manager, path string) error {
	d, ok := manager.Active()
	if !ok || !manager.IsDownloaded(d.ID) {
		return fmt.Errorf("no model downloaded (run: sotto -download small)")
	}
	modelPath, err := manager.Path(d.ID)
	if err != nil {
		return err
	}

	buf, err := loadWAV(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Transcribing %.1fs of audio with model %q...\n",
		buf.Duration().Seconds(), d.ID)

	text, err := trans.Transcribe(context.Background(), buf.Samples(), transcriber.Model{ID: d.ID, Path: modelPath})
	if err != nil {
		return err
	}
	if transcriber.NoSpeech(text) {
		return fmt.Errorf("no speech detected")
	}
	fmt.Println(text)
	return nil
}

func loadWAV(path string) (*audio.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	if err := checkFormat(pcm.Format, int(dec.BitDepth)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	samples := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = float32(v) / 32768.0
	}
	return audio.FromSamples(samples, audio.SampleRate), nil
}

func checkFormat(format *gaudio.Format, bitDepth int) error {
	if format == nil {
		return fmt.Errorf("missing format header")
	}
	if format.NumChannels != audio.Channels || format.SampleRate != audio.SampleRate || bitDepth != 16 {
		return fmt.Errorf("need %d Hz mono 16-bit PCM, got %d Hz %d-channel %d-bit",
			audio.SampleRate, format.SampleRate, format.NumChannels, bitDepth)
	}
	return nil
}
