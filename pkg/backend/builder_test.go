package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/core-tools/hsu-deploy/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_BuildPublishesIntoCleanOutput(t *testing.T) {
	env := newTestEnv(t)
	runner := publishingRunner(t)
	outputDir := env.layout.OutputDirectory(testService)

	stale := filepath.Join(outputDir, "stale.dll")
	require.NoError(t, os.MkdirAll(outputDir, 0755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	err := env.builder(runner).Build(context.Background(), testService)

	require.NoError(t, err)
	require.Len(t, runner.commands, 1)
	assert.Equal(t, "dotnet", runner.commands[0].Name)
	assert.Equal(t, []string{"publish", "--output", outputDir}, runner.commands[0].Args)
	assert.Equal(t, env.layout.SourceDirectory(testService), runner.commands[0].Dir)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "prior output tree must be deleted")
	assert.True(t, env.layout.OutputExists(testService))
}

func TestBuilder_BuildCopiesConfigurationVerbatim(t *testing.T) {
	env := newTestEnv(t)
	content := []byte("{\r\n  \"ConnectionStrings\": {\"Default\": \"Host=db\"}\r\n}")
	require.NoError(t, os.WriteFile(filepath.Join(env.root, "configuration.json"), content, 0644))

	err := env.builder(publishingRunner(t)).Build(context.Background(), testService)

	require.NoError(t, err)
	copied, err := os.ReadFile(env.layout.DeployedConfigurationPath(testService))
	require.NoError(t, err)
	assert.Equal(t, content, copied)
}

func TestBuilder_BuildWithoutConfiguration(t *testing.T) {
	env := newTestEnv(t)

	err := env.builder(publishingRunner(t)).Build(context.Background(), testService)

	require.NoError(t, err)
	_, err = os.Stat(env.layout.DeployedConfigurationPath(testService))
	assert.True(t, os.IsNotExist(err))
}

func TestBuilder_BuildNonZeroExit(t *testing.T) {
	env := newTestEnv(t)
	runner := newFakeRunner()
	runner.codes["dotnet publish --output "+env.layout.OutputDirectory(testService)] = 1

	err := env.builder(runner).Build(context.Background(), testService)

	require.Error(t, err)
	assert.True(t, errors.IsBuildError(err))
	assert.True(t, errors.IsFatal(err))
	code, ok := errors.ExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 1, code)
}

func TestBuilder_BuildToolMissing(t *testing.T) {
	env := newTestEnv(t)
	runner := newFakeRunner()
	runner.errs["dotnet publish --output "+env.layout.OutputDirectory(testService)] = errors.NewProcessError("executable file not found", nil)

	err := env.builder(runner).Build(context.Background(), testService)

	require.Error(t, err)
	assert.True(t, errors.IsBuildError(err))
}

func TestBuilder_Verify(t *testing.T) {
	env := newTestEnv(t)
	runner := newFakeRunner()

	err := env.builder(runner).Verify(context.Background(), "Construct.Core.Test")

	require.NoError(t, err)
	require.Len(t, runner.commands, 1)
	assert.Equal(t, []string{"test"}, runner.commands[0].Args)
	assert.Equal(t, filepath.Join(env.root, "Construct.Core.Test"), runner.commands[0].Dir)
}

func TestBuilder_VerifyFailure(t *testing.T) {
	env := newTestEnv(t)
	runner := newFakeRunner()
	runner.codes["dotnet test"] = 2

	err := env.builder(runner).Verify(context.Background(), "Construct.User.Test")

	require.Error(t, err)
	assert.True(t, errors.IsVerificationError(err))
	assert.Contains(t, err.Error(), "Construct.User.Test")
	code, ok := errors.ExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 2, code)
}

func TestBuilder_CancelledPassesThrough(t *testing.T) {
	env := newTestEnv(t)
	runner := newFakeRunner()
	runner.errs["dotnet test"] = errors.NewCancelledError("command interrupted", context.Canceled)

	err := env.builder(runner).Verify(context.Background(), "Construct.User.Test")

	require.Error(t, err)
	assert.True(t, errors.IsCancelledError(err))
	assert.False(t, errors.IsVerificationError(err))
}
