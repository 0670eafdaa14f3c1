// Package models tracks the whisper ggml model artifacts: which size
// variants exist, which are on disk, which one is active, and the download
// jobs that fetch missing ones.
package models

import (
	"errors"
	"path/filepath"
)

var (
	ErrUnknownModel   = errors.New("unknown model id")
	ErrNotDownloaded  = errors.New("model not downloaded")
	ErrDownloadFailed = errors.New("model download failed")
)

// Descriptor describes one model size variant. All fields are fixed at
// compile time; whether the artifact is present on disk is derived by the
// Manager, never stored here.
type Descriptor struct {
	ID        string
	Label     string
	Filename  string
	URL       string
	SizeBytes int64
}

const hfBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// catalog lists every variant the engine can load. The settings surface only
// offers small/medium/large; tiny and base stay available for low-end
// machines via config.
var catalog = []Descriptor{
	{
		ID:        "tiny",
		Label:     "Tiny (~75MB) - Fastest",
		Filename:  "ggml-tiny.bin",
		URL:       hfBase + "ggml-tiny.bin",
		SizeBytes: 75 * 1024 * 1024,
	},
	{
		ID:        "base",
		Label:     "Base (~142MB) - Fast",
		Filename:  "ggml-base.bin",
		URL:       hfBase + "ggml-base.bin",
		SizeBytes: 142 * 1024 * 1024,
	},
	{
		ID:        "small",
		Label:     "Small (~500MB) - Fast",
		Filename:  "ggml-small.bin",
		URL:       hfBase + "ggml-small.bin",
		SizeBytes: 466 * 1024 * 1024,
	},
	{
		ID:        "medium",
		Label:     "Medium (~1.5GB) - Balanced",
		Filename:  "ggml-medium.bin",
		URL:       hfBase + "ggml-medium.bin",
		SizeBytes: 1533 * 1024 * 1024,
	},
	{
		ID:        "large",
		Label:     "Large (~3GB) - Accurate",
		Filename:  "ggml-large-v3.bin",
		URL:       hfBase + "ggml-large-v3.bin",
		SizeBytes: 2950 * 1024 * 1024,
	},
}

// listedSizes are the variants offered by get_available_models.
var listedSizes = []string{"small", "medium", "large"}

// Lookup returns the descriptor for a model id.
func Lookup(id string) (Descriptor, bool) {
	for _, d := range catalog {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// DefaultID is the model selected when nothing is configured yet.
func DefaultID() string { return "small" }

// artifactPath is where a variant's file lives under the models directory.
func artifactPath(dir string, d Descriptor) string {
	return filepath.Join(dir, d.Filename)
}
