//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Linux input event constants; see linux/input-event-codes.h.
const (
	evKey      = 1
	valPress   = 1
	valRelease = 0

	codeLCtrl  = 29
	codeRCtrl  = 97
	codeLShift = 42
	codeRShift = 54
	codeSpace  = 57
)

// struct input_event on 64-bit: timeval + type + code + value.
const inputEventSize = 24

// evdevListener reads raw key events from every readable keyboard under
// /dev/input. X11 grab APIs are unreliable under Wayland; evdev works on
// both, at the cost of needing 'input' group membership.
type evdevListener struct {
	pressed  chan struct{}
	released chan struct{}
	files    []*os.File
	stop     chan struct{}
	once     sync.Once
}

func New() Listener {
	return &evdevListener{
		pressed:  make(chan struct{}, 1),
		released: make(chan struct{}, 1),
	}
}

func (l *evdevListener) Register() error {
	keyboards, err := keyboardDevices()
	if err != nil {
		return fmt.Errorf("scanning input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	l.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		l.files = append(l.files, f)
		go l.readEvents(f)
	}

	if len(l.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}
	return nil
}

// chord tracks the modifier and space key state for one keyboard. Modifier
// state is per-device: a Ctrl held on one keyboard does not combine with a
// Space on another, which matches how people actually type the chord.
type chord struct {
	ctrl  bool
	shift bool
	space bool
}

func (c *chord) apply(code uint16, value int32) (press, release bool) {
	down := value == valPress
	up := value == valRelease

	switch code {
	case codeLCtrl, codeRCtrl:
		c.ctrl = down || (!up && c.ctrl)
	case codeLShift, codeRShift:
		c.shift = down || (!up && c.shift)
	case codeSpace:
		if down && !c.space && c.ctrl && c.shift {
			c.space = true
			return true, false
		}
		if up && c.space {
			c.space = false
			return false, true
		}
	}
	return false, false
}

func (l *evdevListener) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	var state chord

	for {
		select {
		case <-l.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}

			press, release := state.apply(evCode, evValue)
			if press {
				signal(l.pressed)
			}
			if release {
				signal(l.released)
			}
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (l *evdevListener) Unregister() {
	l.once.Do(func() {
		if l.stop != nil {
			close(l.stop)
		}
		for _, f := range l.files {
			f.Close()
		}
	})
}

func (l *evdevListener) Pressed() <-chan struct{}  { return l.pressed }
func (l *evdevListener) Released() <-chan struct{} { return l.released }

func keyboardDevices() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

// isKeyboard checks the device's key capability bitmap; anything with a
// substantial set of keys is treated as a keyboard.
func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

// Diagnose reports whether the hotkey backend can see and open a keyboard.
func Diagnose() (string, error) {
	keyboards, err := keyboardDevices()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}
	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}
