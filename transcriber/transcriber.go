// Package transcriber adapts the local whisper.cpp engine: it keeps at most
// one model resident in memory, swaps it lazily when the active selection
// changes, and turns a finished recording into text.
package transcriber

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrModelNotLoaded means the active model could not be made resident.
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrEmptyInput means a zero-length buffer reached the adapter.
	ErrEmptyInput = errors.New("empty audio input")
	// ErrEngineFailure wraps any lower-level inference error. It is surfaced
	// verbatim and never retried automatically.
	ErrEngineFailure = errors.New("transcription engine failure")
)

// Model identifies the artifact to transcribe with.
type Model struct {
	ID   string
	Path string
}

// Transcriber converts 16 kHz mono float32 samples into text. Calls are
// serialized internally: the resident model is a singly-owned resource.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, model Model) (string, error)
	Close() error
}

// NoSpeech reports whether a transcript carries no usable speech. Whisper
// emits [BLANK_AUDIO] for silent input.
func NoSpeech(text string) bool {
	return text == "" || strings.Contains(text, "[BLANK_AUDIO]")
}
