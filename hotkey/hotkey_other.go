//go:build !linux

package hotkey

import (
	"golang.design/x/hotkey"
)

type systemListener struct {
	hk       *hotkey.Hotkey
	pressed  chan struct{}
	released chan struct{}
}

func New() Listener {
	return &systemListener{
		hk:       hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeySpace),
		pressed:  make(chan struct{}, 1),
		released: make(chan struct{}, 1),
	}
}

func (l *systemListener) Register() error {
	if err := l.hk.Register(); err != nil {
		return err
	}
	go forward(l.hk.Keydown(), l.pressed)
	go forward(l.hk.Keyup(), l.released)
	return nil
}

func forward(in <-chan hotkey.Event, out chan struct{}) {
	for range in {
		select {
		case out <- struct{}{}:
		default:
		}
	}
}

func (l *systemListener) Unregister() {
	l.hk.Unregister()
}

func (l *systemListener) Pressed() <-chan struct{}  { return l.pressed }
func (l *systemListener) Released() <-chan struct{} { return l.released }

// Diagnose reports whether hotkey support is usable on this platform.
func Diagnose() (string, error) {
	return "global hotkey available (Ctrl+Shift+Space)", nil
}
