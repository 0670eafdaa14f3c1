// Package hotkey delivers global Ctrl+Shift+Space press and release edges.
// The listener runs in its own goroutine and must never block on whatever
// consumes the edges; a second edge arriving before the first is consumed
// replaces nothing, it is dropped (the state machine ignores repeats anyway).
package hotkey

// Listener is a registered global hotkey. Pressed fires on the down edge,
// Released on the up edge. Both channels carry at most one pending signal.
type Listener interface {
	Register() error
	Unregister()
	Pressed() <-chan struct{}
	Released() <-chan struct{}
}
