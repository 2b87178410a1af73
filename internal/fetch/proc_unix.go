//go:build !windows

package fetch

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr puts the Extractor in its own process group so Cancel can
// terminate it and any child it spawned (e.g. a merge helper) together.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup forcefully terminates the process group rooted at pid.
func killProcessGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
