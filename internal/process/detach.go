package process

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// StartDetached launches a process in its own session with output discarded
// and releases it immediately. The child outlives the caller and is never
// reaped by this package. Returns the pid.
func StartDetached(args []string, extraEnv []string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("empty command")
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdout = nil
	cmd.Stderr = nil
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", args[0], err)
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("release %s: %w", args[0], err)
	}
	return pid, nil
}
