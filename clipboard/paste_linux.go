package clipboard

import (
	"encoding/binary"
	"errors"
	"os"
	"sync"
	"syscall"
	"time"
)

// uinput ioctls from linux/uinput.h. keybd_event's linux backend also needs
// /dev/uinput but creates the device per keystroke; registering one virtual
// keyboard up front and reusing it keeps paste latency low.
const (
	uiSetEvbit  = 0x40045564
	uiSetKeybit = 0x40045565
	uiDevCreate = 0x5501
)

const (
	evSyn = 0x00
	evKey = 0x01

	codeCtrl = 29
	codeV    = 47
)

const busUSB = 0x03

type inputEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name         [80]byte
	ID           inputID
	FfEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

var (
	dev     *os.File
	devOnce sync.Once
	devErr  error
)

func openDevice() {
	path := "/dev/uinput"
	if _, err := os.Stat(path); err != nil {
		path = "/dev/input/uinput"
		if _, err := os.Stat(path); err != nil {
			devErr = errors.New("uinput device not found, try: sudo modprobe uinput")
			return
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|syscall.O_NONBLOCK, os.ModeDevice)
	if err != nil {
		devErr = err
		return
	}

	fail := func(err error) {
		devErr = err
		f.Close()
	}

	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), uiSetEvbit, evKey); errno != 0 {
		fail(errno)
		return
	}
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), uiSetEvbit, evSyn); errno != 0 {
		fail(errno)
		return
	}
	// Register the full key range so udev classifies the device as a
	// keyboard rather than a one-key gadget.
	for i := uintptr(0); i < 256; i++ {
		if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), uiSetKeybit, i); errno != 0 {
			fail(errno)
			return
		}
	}

	var ud uinputUserDev
	copy(ud.Name[:], "sotto-paste")
	ud.ID.Bustype = busUSB
	ud.ID.Vendor = 0x1234
	ud.ID.Product = 0x5678
	ud.ID.Version = 1
	if err := binary.Write(f, binary.LittleEndian, &ud); err != nil {
		fail(err)
		return
	}
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), uiDevCreate, 0); errno != 0 {
		fail(errno)
		return
	}

	dev = f
	// The compositor needs a moment to pick up the new input device.
	time.Sleep(200 * time.Millisecond)
}

func writeEvent(typ, code uint16, value int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	return binary.Write(dev, binary.LittleEndian, &ev)
}

func sendKey(code uint16, value int32) error {
	if err := writeEvent(evKey, code, value); err != nil {
		return err
	}
	if err := writeEvent(evSyn, 0, 0); err != nil {
		return err
	}
	// Give the compositor time to register modifier state between events.
	time.Sleep(5 * time.Millisecond)
	return nil
}

// Paste injects Ctrl+V through a virtual uinput keyboard.
func Paste() error {
	devOnce.Do(openDevice)
	if devErr != nil {
		return devErr
	}
	for _, step := range []struct {
		code  uint16
		value int32
	}{
		{codeCtrl, 1},
		{codeV, 1},
		{codeV, 0},
		{codeCtrl, 0},
	} {
		if err := sendKey(step.code, step.value); err != nil {
			return err
		}
	}
	return nil
}
