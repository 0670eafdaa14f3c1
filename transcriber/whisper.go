package transcriber

import (
	"fmt"
	"io"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// whisperEngine wraps a loaded whisper.cpp model.
type whisperEngine struct {
	model whisper.Model
}

func newWhisperEngine(path string) (engine, error) {
	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("loading whisper model %q: %w", path, err)
	}
	return &whisperEngine{model: model}, nil
}

func (e *whisperEngine) process(samples []float32) (string, error) {
	ctx, err := e.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper context: %w", err)
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}

	return strings.TrimSpace(strings.Join(segments, " ")), nil
}

func (e *whisperEngine) close() error {
	if e.model != nil {
		return e.model.Close()
	}
	return nil
}
