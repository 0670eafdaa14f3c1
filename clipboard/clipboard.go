// Package clipboard writes transcripts to the system clipboard and, when
// the user opted in, pastes them into the focused application.
package clipboard

import cb "github.com/atotto/clipboard"

func Copy(text string) error {
	return cb.WriteAll(text)
}

func Read() (string, error) {
	return cb.ReadAll()
}
