package process

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/core-tools/hsu-deploy/pkg/errors"
	"github.com/core-tools/hsu-deploy/pkg/logging"
)

// Command is a blocking child invocation whose exit code is inspected by the caller
type Command struct {
	Name string
	Args []string
	Dir  string

	// Nil streams are inherited from the orchestrator so the operator sees tool output
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for logs and errors
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// CommandRunner runs external tools to completion. A non-zero exit is
// reported through the exit code, not the error; the error is reserved for
// commands that could not be run at all.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (int, error)
}

// ExecutionConfig describes a service executable launch
type ExecutionConfig struct {
	ExecutablePath   string
	Args             []string
	Environment      []string
	WorkingDirectory string

	// Wait after the interrupt before the kill, foreground runs only
	WaitDelay time.Duration
}

// Launcher starts service executables
type Launcher interface {
	// StartDetached launches the executable and returns without waiting
	StartDetached(execution ExecutionConfig) (int, error)

	// RunForeground launches the executable and blocks until it exits
	RunForeground(ctx context.Context, execution ExecutionConfig) (int, error)
}

type execRunner struct {
	logger logging.Logger
}

// NewExecRunner returns a CommandRunner backed by os/exec
func NewExecRunner(logger logging.Logger) CommandRunner {
	return &execRunner{logger: logger}
}

func (r *execRunner) Run(ctx context.Context, command Command) (int, error) {
	if ctx == nil {
		return -1, errors.NewValidationError("context cannot be nil", nil)
	}

	r.logger.Debugf("Running command: '%s', working directory: '%s'", command, command.Dir)

	cmd := exec.CommandContext(ctx, command.Name, command.Args...)
	cmd.Dir = command.Dir
	cmd.Stdin = nil
	cmd.Stdout = command.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = command.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	return exitStatus(ctx, cmd.Run(), command.String())
}

type execLauncher struct {
	logger logging.Logger
}

// NewExecLauncher returns a Launcher backed by os/exec
func NewExecLauncher(logger logging.Logger) Launcher {
	return &execLauncher{logger: logger}
}

func (l *execLauncher) StartDetached(execution ExecutionConfig) (int, error) {
	workDir, err := l.prepare(execution)
	if err != nil {
		return 0, err
	}

	cmd := exec.Command(execution.ExecutablePath, execution.Args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), execution.Environment...)

	// No stdio: the service must outlive the orchestrator and its terminal
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	setupDetachedAttributes(cmd)

	if err := cmd.Start(); err != nil {
		return 0, errors.NewProcessError("failed to start the process", err).WithContext("executable_path", execution.ExecutablePath)
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		l.logger.Warnf("Failed to release process handle, PID: %d, error: %v", pid, err)
	}

	l.logger.Infof("Successfully started detached process, executable: %s, PID: %d", execution.ExecutablePath, pid)
	return pid, nil
}

func (l *execLauncher) RunForeground(ctx context.Context, execution ExecutionConfig) (int, error) {
	if ctx == nil {
		return -1, errors.NewValidationError("context cannot be nil", nil)
	}

	workDir, err := l.prepare(execution)
	if err != nil {
		return -1, err
	}

	cmd := exec.CommandContext(ctx, execution.ExecutablePath, execution.Args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), execution.Environment...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	setupForegroundAttributes(cmd)

	// Cancellation interrupts the service's process group first, WaitDelay later kills it
	cmd.Cancel = func() error {
		return interruptProcessGroup(cmd.Process.Pid)
	}
	cmd.WaitDelay = execution.WaitDelay

	l.logger.Infof("Running process in foreground, executable: %s", execution.ExecutablePath)
	return exitStatus(ctx, cmd.Run(), execution.ExecutablePath)
}

// prepare validates the launch and returns the working directory to use
func (l *execLauncher) prepare(execution ExecutionConfig) (string, error) {
	if err := ValidateExecutionConfig(execution); err != nil {
		l.logger.Errorf("Execution configuration validation failed, error: %v", err)
		return "", errors.NewValidationError("invalid execution configuration", err)
	}

	if err := ensureExecutable(execution.ExecutablePath); err != nil {
		return "", errors.NewPermissionError("failed to ensure process is executable", err).WithContext("executable_path", execution.ExecutablePath)
	}

	workDir := execution.WorkingDirectory
	if workDir == "" {
		absPath, err := filepath.Abs(execution.ExecutablePath)
		if err != nil {
			return "", errors.NewIOError("failed to get absolute path", err).WithContext("executable_path", execution.ExecutablePath)
		}
		workDir = filepath.Dir(absPath)
	}

	l.logger.Debugf("Preparing process: executable path: '%s', args: %v, working directory: '%s'",
		execution.ExecutablePath, execution.Args, workDir)

	return workDir, nil
}

// exitStatus turns the result of cmd.Run into an exit code
func exitStatus(ctx context.Context, err error, command string) (int, error) {
	if err == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		return -1, errors.NewCancelledError("command interrupted", ctx.Err()).WithContext("command", command)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, errors.NewProcessError("failed to run command", err).WithContext("command", command)
}

// ensureExecutable checks if a file is executable and makes it executable if it's not
func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewIOError("file does not exist", err).WithContext("path", path)
	}

	// On Windows, files with .exe, .bat, .cmd extensions are inherently executable
	if runtime.GOOS == "windows" {
		return nil
	}

	mode := info.Mode()
	if mode&0111 != 0 {
		return nil
	}

	if err := os.Chmod(path, mode|0111); err != nil {
		return errors.NewPermissionError("failed to make file executable", err).WithContext("path", path)
	}

	return nil
}
