package permission

import "os/exec"

// CheckAccessibility always succeeds on Windows: SendInput needs no grant.
func CheckAccessibility() bool { return true }

func OpenMicrophoneSettings() error {
	return exec.Command("cmd", "/c", "start", "ms-settings:privacy-microphone").Start()
}

func OpenAccessibilitySettings() error {
	return exec.Command("cmd", "/c", "start", "ms-settings:easeofaccess").Start()
}
