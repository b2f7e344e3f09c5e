package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/core-tools/hsu-deploy/pkg/layout"
	"github.com/core-tools/hsu-deploy/pkg/logging"
	"github.com/core-tools/hsu-deploy/pkg/process"
	"github.com/core-tools/hsu-deploy/pkg/registry"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeRunner records every command and answers with a configured exit code
type fakeRunner struct {
	commands []process.Command
	codes    map[string]int
	errs     map[string]error
	onRun    func(cmd process.Command)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{codes: map[string]int{}, errs: map[string]error{}}
}

func (r *fakeRunner) Run(ctx context.Context, cmd process.Command) (int, error) {
	r.commands = append(r.commands, cmd)
	if err, ok := r.errs[cmd.String()]; ok {
		return -1, err
	}
	if r.onRun != nil {
		r.onRun(cmd)
	}
	return r.codes[cmd.String()], nil
}

func (r *fakeRunner) lines() []string {
	lines := make([]string, 0, len(r.commands))
	for _, cmd := range r.commands {
		lines = append(lines, cmd.String())
	}
	return lines
}

// publishingRunner makes the fake build tool produce an executable in the requested output directory
func publishingRunner(t *testing.T) *fakeRunner {
	runner := newFakeRunner()
	runner.onRun = func(cmd process.Command) {
		if len(cmd.Args) == 3 && cmd.Args[0] == "publish" && cmd.Args[1] == "--output" {
			require.NoError(t, os.MkdirAll(cmd.Args[2], 0755))
			exe := filepath.Join(cmd.Args[2], filepath.Base(cmd.Args[2]))
			require.NoError(t, os.WriteFile(exe, []byte("binary"), 0755))
		}
	}
	return runner
}

type fakeTable struct {
	processes []process.ProcessInfo
	killed    []int32
	killErrs  map[int32]error
	listErr   error
}

func (t *fakeTable) List(ctx context.Context) ([]process.ProcessInfo, error) {
	return t.processes, t.listErr
}

func (t *fakeTable) Kill(ctx context.Context, pid int32) error {
	if err, ok := t.killErrs[pid]; ok {
		return err
	}
	t.killed = append(t.killed, pid)
	return nil
}

type fakeLauncher struct {
	started []process.ExecutionConfig
	err     error
}

func (l *fakeLauncher) StartDetached(execution process.ExecutionConfig) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	l.started = append(l.started, execution)
	return 4242, nil
}

func (l *fakeLauncher) RunForeground(ctx context.Context, execution process.ExecutionConfig) (int, error) {
	return 0, nil
}

// MockIdentityManager is a mock implementation of IdentityManager for testing
type MockIdentityManager struct {
	mock.Mock
}

func (m *MockIdentityManager) EnsureIdentity(ctx context.Context, identity Identity, root string) error {
	args := m.Called(ctx, identity, root)
	return args.Error(0)
}

type testEnv struct {
	root    string
	scripts string
	layout  *layout.Layout
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	root := t.TempDir()
	scripts := filepath.Join(root, "scripts")
	require.NoError(t, os.MkdirAll(scripts, 0755))

	return testEnv{
		root:    root,
		scripts: scripts,
		layout: layout.NewLayout(layout.LayoutConfig{
			RootDirectory:    root,
			ScriptsDirectory: scripts,
		}, logging.NewNopLogger()),
	}
}

func (e testEnv) builder(runner process.CommandRunner) *Builder {
	return NewBuilder(BuilderConfig{BuildTool: "dotnet", TestTool: "dotnet"}, e.layout, runner, logging.NewNopLogger())
}

const testService = registry.ServiceName("Construct.User")
