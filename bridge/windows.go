//go:build windows

package bridge

import (
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// isolate starts adb in a new process group so Ctrl-C in the console reaches
// only the monitor. On timeout the process tree is killed.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// 方法1: taskkill 结束整个进程树
		kill := exec.Command("taskkill", "/F", "/T", "/PID", fmt.Sprintf("%d", cmd.Process.Pid))
		if err := kill.Run(); err == nil {
			return nil
		}
		// 方法2: 直接结束 adb 进程
		return cmd.Process.Kill()
	}
}
