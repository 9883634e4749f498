//go:build unix

package build

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// killProcessGroup makes cancellation SIGKILL every process in the
// command's group instead of only the direct child
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
