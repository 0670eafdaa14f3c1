//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// The hotkey event tap must own the main thread on macOS and Windows.
	mainthread.Init(run)
}
