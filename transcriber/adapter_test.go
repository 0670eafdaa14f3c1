package transcriber

import (
	"context"
	"errors"
	"testing"
)

// fakeEngine records load/close/process activity for swap-logic tests.
type fakeEngine struct {
	path       string
	text       string
	processErr error
	closed     bool
	processed  int
}

func (e *fakeEngine) process(samples []float32) (string, error) {
	e.processed++
	if e.processErr != nil {
		return "", e.processErr
	}
	return e.text, nil
}

func (e *fakeEngine) close() error {
	e.closed = true
	return nil
}

type fakeLoader struct {
	loads   []*fakeEngine
	loadErr error
	text    string
}

func (l *fakeLoader) factory(path string) (engine, error) {
	if l.loadErr != nil {
		return nil, l.loadErr
	}
	e := &fakeEngine{path: path, text: l.text}
	l.loads = append(l.loads, e)
	return e, nil
}

func newTestAdapter(l *fakeLoader) *Adapter {
	return &Adapter{newEngine: l.factory}
}

var someSamples = []float32{0.1, -0.1, 0.2}

func TestTranscribeEmptyInput(t *testing.T) {
	l := &fakeLoader{text: "hi"}
	a := newTestAdapter(l)

	_, err := a.Transcribe(context.Background(), nil, Model{ID: "small"})
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
	if len(l.loads) != 0 {
		t.Error("empty input must not trigger a model load")
	}
}

func TestTranscribeLoadsLazilyOnce(t *testing.T) {
	l := &fakeLoader{text: "hello"}
	a := newTestAdapter(l)
	m := Model{ID: "small", Path: "/models/ggml-small.bin"}

	for i := 0; i < 3; i++ {
		got, err := a.Transcribe(context.Background(), someSamples, m)
		if err != nil {
			t.Fatal(err)
		}
		if got != "hello" {
			t.Errorf("text = %q, want hello", got)
		}
	}

	if len(l.loads) != 1 {
		t.Errorf("model loaded %d times, want 1", len(l.loads))
	}
	if l.loads[0].path != m.Path {
		t.Errorf("loaded path = %q, want %q", l.loads[0].path, m.Path)
	}
	if l.loads[0].processed != 3 {
		t.Errorf("processed %d times, want 3", l.loads[0].processed)
	}
}

func TestTranscribeSwapUnloadsPrevious(t *testing.T) {
	l := &fakeLoader{text: "ok"}
	a := newTestAdapter(l)

	if _, err := a.Transcribe(context.Background(), someSamples, Model{ID: "small", Path: "/m/small"}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Transcribe(context.Background(), someSamples, Model{ID: "medium", Path: "/m/medium"}); err != nil {
		t.Fatal(err)
	}

	if len(l.loads) != 2 {
		t.Fatalf("loaded %d engines, want 2", len(l.loads))
	}
	if !l.loads[0].closed {
		t.Error("previous model must be unloaded on swap")
	}
	if l.loads[1].closed {
		t.Error("current model must stay resident")
	}
}

func TestTranscribeLoadFailure(t *testing.T) {
	l := &fakeLoader{loadErr: errors.New("corrupt artifact")}
	a := newTestAdapter(l)

	_, err := a.Transcribe(context.Background(), someSamples, Model{ID: "small"})
	if !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("err = %v, want ErrModelNotLoaded", err)
	}
}

func TestTranscribeEngineFailure(t *testing.T) {
	l := &fakeLoader{text: "x"}
	a := newTestAdapter(l)
	m := Model{ID: "small"}

	if _, err := a.Transcribe(context.Background(), someSamples, m); err != nil {
		t.Fatal(err)
	}
	l.loads[0].processErr = errors.New("inference blew up")

	_, err := a.Transcribe(context.Background(), someSamples, m)
	if !errors.Is(err, ErrEngineFailure) {
		t.Errorf("err = %v, want ErrEngineFailure", err)
	}
}

func TestCloseUnloads(t *testing.T) {
	l := &fakeLoader{text: "x"}
	a := newTestAdapter(l)

	if _, err := a.Transcribe(context.Background(), someSamples, Model{ID: "small"}); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if !l.loads[0].closed {
		t.Error("Close must unload the resident model")
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestNoSpeech(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", true},
		{"[BLANK_AUDIO]", true},
		{"well [BLANK_AUDIO] then", true},
		{"hello world", false},
	}
	for _, tt := range tests {
		if got := NoSpeech(tt.text); got != tt.want {
			t.Errorf("NoSpeech(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
