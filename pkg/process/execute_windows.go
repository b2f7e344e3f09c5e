//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// Not exported by the syscall package
const detachedProcess = 0x00000008

// setupDetachedAttributes starts the service without a console and outside
// the orchestrator's process group
func setupDetachedAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
	}
}

// setupForegroundAttributes keeps the console but isolates the service's process
// group so interruptProcessGroup can deliver Ctrl+Break to it
func setupForegroundAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
