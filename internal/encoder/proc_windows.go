//go:build windows

package encoder

import (
	"os/exec"
	"syscall"
)

// hideConsoleWindow keeps ffmpeg from flashing a console window.
func hideConsoleWindow(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.HideWindow = true
}
