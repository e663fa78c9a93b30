//go:build !unix

package hook

import (
	"errors"
	"os"
	"os/exec"
)

// Without process groups only the direct child can be stopped.
func setProcGroup(*exec.Cmd) {}

func terminateProcGroup(cmd *exec.Cmd) error {
	return killProcGroup(cmd)
}

func killProcGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
