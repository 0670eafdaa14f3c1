// Package doctor runs interactive end-to-end diagnostics: hotkey, capture,
// local transcription and clipboard, each verified by the user at a real
// terminal. Useful when "nothing happens when I press the key" and the log
// shows nothing either.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"sotto/audio"
	"sotto/clipboard"
	"sotto/hotkey"
	"sotto/models"
	"sotto/transcriber"
)

// Run executes the checks in order and returns an exit code (0 all pass).
func Run(manager *models.Manager) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("sotto doctor - interactive system diagnostics")
	fmt.Println("=============================================")

	allPass := checkHotkey()
	if allPass {
		allPass = checkMicAndTranscription(manager)
	}
	if allPass {
		allPass = checkClipboard()
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkHotkey() bool {
	fmt.Println()
	fmt.Println("[1/3] Hotkey detection")

	if msg, err := hotkey.Diagnose(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	} else {
		fmt.Printf("  %s\n", msg)
	}

	fmt.Println("Press Ctrl+Shift+Space...")

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Pressed():
		fmt.Println("  PASS: hotkey detected")
		// Wait out the release so it doesn't bleed into the next check.
		select {
		case <-hk.Released():
		case <-time.After(5 * time.Second):
		}
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func checkMicAndTranscription(manager *models.Manager) bool {
	fmt.Println()
	fmt.Println("[2/3] Microphone and local transcription")

	model, ok := downloadedModel(manager)
	if !ok {
		fmt.Println("  FAIL: no model downloaded (run: sotto -download small)")
		return false
	}
	fmt.Printf("Using model: %s\n", model.ID)

	actx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer actx.Close()

	device, ok := chooseDevice(actx)
	if !ok {
		return false
	}

	engine := audio.NewEngine(actx, nil)
	if device != nil {
		if err := engine.SelectDevice(device.Name); err != nil {
			fmt.Printf("  FAIL: cannot select device: %v\n", err)
			return false
		}
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Println()
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	if err := engine.StartCapture(); err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}
	fmt.Print("  Recording")
	for i := 0; i < 6; i++ {
		time.Sleep(500 * time.Millisecond)
		fmt.Print(".")
	}
	buf := engine.StopCapture()
	fmt.Println(" done")

	if buf.Empty() {
		fmt.Println("  FAIL: no audio captured")
		return false
	}
	fmt.Printf("  Recorded %.1fs, transcribing (first run loads the model, be patient)...\n",
		buf.Duration().Seconds())

	trans := transcriber.New()
	defer trans.Close()

	text, err := trans.Transcribe(context.Background(), buf.Samples(), model)
	if err != nil {
		fmt.Printf("  FAIL: transcription error: %v\n", err)
		return false
	}
	if transcriber.NoSpeech(text) {
		text = "(no speech detected)"
	}

	fmt.Printf("\n  Transcribed text: %s\n\n", strings.TrimSpace(text))

	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Is this correct? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	if c := strings.TrimSpace(strings.ToLower(confirm)); c == "y" || c == "yes" {
		fmt.Println("  PASS: transcription verified by user")
		return true
	}
	fmt.Println("  FAIL: transcription not confirmed")
	return false
}

func downloadedModel(manager *models.Manager) (transcriber.Model, bool) {
	if d, ok := manager.Active(); ok && manager.IsDownloaded(d.ID) {
		path, _ := manager.Path(d.ID)
		return transcriber.Model{ID: d.ID, Path: path}, true
	}
	for _, info := range manager.List() {
		if info.Downloaded {
			path, _ := manager.Path(info.ID)
			return transcriber.Model{ID: info.ID, Path: path}, true
		}
	}
	return transcriber.Model{}, false
}

func chooseDevice(actx audio.Context) (*audio.DeviceInfo, bool) {
	devices, err := actx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return nil, false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return nil, false
	}
	if len(devices) == 1 {
		fmt.Printf("Using device: %s\n", devices[0].Name)
		return &devices[0], true
	}

	fmt.Println()
	fmt.Println("Select input device:")
	for i, d := range devices {
		fmt.Printf("  %d. %s\n", i+1, d.Name)
	}
	fmt.Printf("Choice [1-%d]: ", len(devices))

	reader := bufio.NewReader(os.Stdin)
	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(choice)

	idx := 1
	if choice != "" {
		fmt.Sscanf(choice, "%d", &idx)
	}
	if idx < 1 || idx > len(devices) {
		fmt.Println("  FAIL: invalid choice")
		return nil, false
	}
	fmt.Printf("Selected: %s\n", devices[idx-1].Name)
	return &devices[idx-1], true
}

func checkClipboard() bool {
	fmt.Println()
	fmt.Println("[3/3] Clipboard and paste")

	testStr := fmt.Sprintf("sotto-doctor-%d", time.Now().UnixNano())
	if err := clipboard.Copy(testStr); err != nil {
		fmt.Printf("  FAIL: clipboard copy failed: %v\n", err)
		return false
	}
	got, err := clipboard.Read()
	if err != nil {
		fmt.Printf("  FAIL: clipboard read failed: %v\n", err)
		return false
	}
	if got != testStr {
		fmt.Printf("  FAIL: clipboard mismatch: wrote %q, got %q\n", testStr, got)
		return false
	}
	fmt.Println("  PASS: clipboard write/read verified")

	fmt.Println()
	fmt.Println("Focus on a text editor window...")
	for i := 3; i > 0; i-- {
		fmt.Printf("  %d...\n", i)
		time.Sleep(time.Second)
	}
	if err := clipboard.Paste(); err != nil {
		fmt.Printf("  FAIL: paste failed: %v\n", err)
		return false
	}

	resetTerminal()
	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Println()
	fmt.Printf("Did the text %q appear? [y/n]: ", testStr)
	confirm, _ := confirmReader.ReadString('\n')
	if c := strings.TrimSpace(strings.ToLower(confirm)); c != "y" && c != "yes" {
		fmt.Println("  FAIL: paste not confirmed")
		return false
	}
	fmt.Println("  PASS: clipboard and paste verified by user")
	return true
}
