package process

import (
	"context"
	"strings"
	"time"

	"github.com/core-tools/hsu-deploy/pkg/errors"
	"github.com/core-tools/hsu-deploy/pkg/logging"

	gopsprocess "github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo is one live entry of the OS process table
type ProcessInfo struct {
	PID  int32
	Name string
}

// ProcessTable is the OS process table as seen by the direct-process backend
type ProcessTable interface {
	// List returns the live processes the caller can see
	List(ctx context.Context) ([]ProcessInfo, error)

	// Kill terminates pid and blocks until the process is gone
	Kill(ctx context.Context, pid int32) error
}

// Poll interval while waiting for a killed process to leave the table
const exitPollInterval = 50 * time.Millisecond

type systemProcessTable struct {
	logger logging.Logger
}

// NewSystemProcessTable returns a ProcessTable backed by gopsutil
func NewSystemProcessTable(logger logging.Logger) ProcessTable {
	return &systemProcessTable{logger: logger}
}

func (t *systemProcessTable) List(ctx context.Context) ([]ProcessInfo, error) {
	processes, err := gopsprocess.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.NewProcessError("failed to enumerate processes", err)
	}

	infos := make([]ProcessInfo, 0, len(processes))
	for _, p := range processes {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// Exited between enumeration and inspection, or not ours to inspect
			t.logger.Debugf("Skipping process, PID: %d, error: %v", p.Pid, err)
			continue
		}
		infos = append(infos, ProcessInfo{PID: p.Pid, Name: name})
	}
	return infos, nil
}

func (t *systemProcessTable) Kill(ctx context.Context, pid int32) error {
	p, err := gopsprocess.NewProcessWithContext(ctx, pid)
	if err != nil {
		if errors.Is(err, gopsprocess.ErrorProcessNotRunning) {
			return nil
		}
		return errors.NewProcessError("failed to open process", err).WithContext("pid", pid)
	}

	if err := p.KillWithContext(ctx); err != nil {
		if !isRunning(ctx, p) {
			return nil
		}
		return errors.NewPermissionError("failed to kill process", err).WithContext("pid", pid)
	}

	ticker := time.NewTicker(exitPollInterval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			return errors.NewCancelledError("interrupted waiting for process exit", ctx.Err()).WithContext("pid", pid)
		}
		if !isRunning(ctx, p) {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.NewCancelledError("interrupted waiting for process exit", ctx.Err()).WithContext("pid", pid)
		case <-ticker.C:
		}
	}
}

// isRunning treats zombies as exited; their parent reaps them, not us
func isRunning(ctx context.Context, p *gopsprocess.Process) bool {
	running, err := p.IsRunningWithContext(ctx)
	if err != nil || !running {
		return false
	}
	status, err := p.StatusWithContext(ctx)
	if err != nil {
		return false
	}
	for _, s := range status {
		if s == gopsprocess.Zombie {
			return false
		}
	}
	return true
}

// MatchesServiceName reports whether a process image name belongs to service:
// the bare name or the name plus ".exe", compared case-insensitively
func MatchesServiceName(processName, service string) bool {
	processName = strings.ToLower(processName)
	service = strings.ToLower(service)
	return processName == service || processName == service+".exe"
}
