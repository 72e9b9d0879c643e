//go:build !windows

package bridge

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// isolate puts adb in its own process group so a terminal interrupt reaches
// only the monitor, which then finishes the current call cooperatively.
// On timeout the whole group is killed.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		if err == unix.ESRCH {
			return nil
		}
		return err
	}
}
