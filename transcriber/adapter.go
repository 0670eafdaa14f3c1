package transcriber

import (
	"context"
	"fmt"
	"sync"

	"sotto/log"
)

// engine is one resident model instance.
type engine interface {
	process(samples []float32) (string, error)
	close() error
}

// engineFactory loads a model artifact into memory. Swapped for a fake in
// tests; the default loads whisper.cpp.
type engineFactory func(path string) (engine, error)

// Adapter implements Transcriber on top of an engineFactory. Memory is
// bounded to one resident model: selecting a different model unloads the
// previous one before the next transcription.
type Adapter struct {
	mu         sync.Mutex
	newEngine  engineFactory
	residentID string
	eng        engine
}

// New returns an Adapter backed by whisper.cpp.
func New() *Adapter {
	return &Adapter{newEngine: newWhisperEngine}
}

// Transcribe runs batch inference over the samples with the given model,
// lazily loading it on first use per model id. The caller runs this on a
// worker, never on the capture or hotkey path.
func (a *Adapter) Transcribe(ctx context.Context, samples []float32, model Model) (string, error) {
	if len(samples) == 0 {
		return "", ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.residentID != model.ID || a.eng == nil {
		if a.eng != nil {
			if err := a.eng.close(); err != nil {
				log.Warnf("unloading model %s: %v", a.residentID, err)
			}
			a.eng = nil
			a.residentID = ""
		}
		eng, err := a.newEngine(model.Path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrModelNotLoaded, err)
		}
		a.eng = eng
		a.residentID = model.ID
		log.Info("model_loaded: " + model.ID)
	}

	text, err := a.eng.process(samples)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}
	return text, nil
}

// Close unloads the resident model, if any.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.eng == nil {
		return nil
	}
	err := a.eng.close()
	a.eng = nil
	a.residentID = ""
	return err
}
