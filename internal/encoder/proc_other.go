//go:build !windows

package encoder

import "os/exec"

func hideConsoleWindow(*exec.Cmd) {}
