//go:build windows

package fetch

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr hides the console window the Extractor would otherwise open.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
}

// killProcessGroup terminates the process; Windows has no POSIX process
// group to target, so Process.Kill on the root handle is the best effort.
func killProcessGroup(pid int) error {
	proc, err := syscall.OpenProcess(syscall.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer syscall.CloseHandle(proc)
	return syscall.TerminateProcess(proc, 1)
}
