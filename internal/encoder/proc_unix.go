//go:build unix

package encoder

import (
	"os/exec"
	"syscall"
)

// configureProcess starts ffmpeg in its own process group so a cancel kills
// every process it spawned.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
