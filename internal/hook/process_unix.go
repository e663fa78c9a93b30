//go:build unix

package hook

import (
	"errors"
	"os/exec"
	"syscall"
)

// setProcGroup runs the hook in its own process group so a timeout can reach
// anything it spawned.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateProcGroup asks the whole group to exit.
func terminateProcGroup(cmd *exec.Cmd) error {
	return signalProcGroup(cmd, syscall.SIGTERM)
}

// killProcGroup forcefully kills the whole group.
func killProcGroup(cmd *exec.Cmd) error {
	return signalProcGroup(cmd, syscall.SIGKILL)
}

func signalProcGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	err := syscall.Kill(-cmd.Process.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
