//go:build !darwin && !windows

package permission

import "os/exec"

// CheckAccessibility always succeeds here: X11/uinput access is governed by
// group membership, not a per-app consent database.
func CheckAccessibility() bool { return true }

func OpenMicrophoneSettings() error {
	if _, err := exec.LookPath("pavucontrol"); err != nil {
		return nil
	}
	return exec.Command("pavucontrol", "-t", "4").Start()
}

func OpenAccessibilitySettings() error { return nil }
