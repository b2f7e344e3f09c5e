//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// setupDetachedAttributes puts the service in its own session so it does not
// receive the terminal's signals and survives the orchestrator exiting
func setupDetachedAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}

// setupForegroundAttributes creates a new process group that we can signal as a whole,
// so an interrupt reaches the service and every child it spawned
func setupForegroundAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
