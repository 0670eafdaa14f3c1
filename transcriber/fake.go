package transcriber

import (
	"context"
	"sync"
)

// Fake is a Transcriber test double returning canned text or a canned error.
type Fake struct {
	Text string
	Err  error

	mu        sync.Mutex
	calls     int
	lastModel Model
}

func NewFake(text string, err error) *Fake {
	return &Fake{Text: text, Err: err}
}

func (f *Fake) Transcribe(_ context.Context, samples []float32, model Model) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastModel = model
	f.mu.Unlock()
	if len(samples) == 0 {
		return "", ErrEmptyInput
	}
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

func (f *Fake) Close() error { return nil }

// Calls returns how many times Transcribe ran.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastModel returns the model passed to the most recent call.
func (f *Fake) LastModel() Model {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastModel
}
