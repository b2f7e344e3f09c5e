//go:build !windows

package process

import (
	"syscall"
)

// interruptProcessGroup sends SIGTERM to the process group on Unix systems
func interruptProcessGroup(pid int) error {
	// Negative PID targets the whole group created by setupForegroundAttributes
	return syscall.Kill(-pid, syscall.SIGTERM)
}
