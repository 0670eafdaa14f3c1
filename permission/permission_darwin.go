package permission

import (
	"os/exec"
	"strings"
)

// CheckAccessibility reports whether the process may synthesize keystrokes.
// System Events refuses the query unless accessibility access was granted.
func CheckAccessibility() bool {
	out, err := exec.Command("osascript", "-e",
		`tell application "System Events" to get UI elements enabled`).Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) == "true"
}

func OpenMicrophoneSettings() error {
	return exec.Command("open",
		"x-apple.systempreferences:com.apple.preference.security?Privacy_Microphone").Start()
}

func OpenAccessibilitySettings() error {
	return exec.Command("open",
		"x-apple.systempreferences:com.apple.preference.security?Privacy_Accessibility").Start()
}
