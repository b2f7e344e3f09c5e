package process

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/core-tools/hsu-deploy/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemProcessTable_ListIncludesSelf(t *testing.T) {
	table := NewSystemProcessTable(logging.NewNopLogger())

	processes, err := table.List(context.Background())

	require.NoError(t, err)
	self := int32(os.Getpid())
	found := false
	for _, p := range processes {
		if p.PID == self {
			found = true
			break
		}
	}
	assert.True(t, found, "current process must be listed")
}

func TestSystemProcessTable_KillWaitsForExit(t *testing.T) {
	skipOnWindows(t)
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	pid := int32(cmd.Process.Pid)
	t.Cleanup(func() { _ = cmd.Process.Kill() })

	table := NewSystemProcessTable(logging.NewNopLogger())
	require.NoError(t, table.Kill(context.Background(), pid))

	// Killed child is a zombie until reaped
	err := cmd.Wait()
	assert.Error(t, err)
}

func TestSystemProcessTable_KillMissingProcess(t *testing.T) {
	skipOnWindows(t)
	cmd := exec.Command("sh", "-c", "exit 0")
	require.NoError(t, cmd.Run())

	table := NewSystemProcessTable(logging.NewNopLogger())

	assert.NoError(t, table.Kill(context.Background(), int32(cmd.Process.Pid)))
}
