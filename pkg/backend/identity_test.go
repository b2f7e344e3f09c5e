package backend

import (
	"context"
	"os/user"
	"testing"

	"github.com/core-tools/hsu-deploy/pkg/errors"
	"github.com/core-tools/hsu-deploy/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingUser(name string) error {
	return user.UnknownUserError(name)
}

func missingGroup(name string) error {
	return user.UnknownGroupError(name)
}

func present(string) error {
	return nil
}

func TestEnsureIdentity_CreatesMissingAccounts(t *testing.T) {
	runner := newFakeRunner()
	m := newIdentityManager(runner, missingUser, missingGroup, logging.NewNopLogger())

	err := m.EnsureIdentity(context.Background(), Identity{User: "construct", Group: "services"}, "/opt/construct")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"groupadd --system services",
		"useradd --system --no-create-home --gid services --shell /usr/sbin/nologin construct",
		"chown -R construct:services /opt/construct",
	}, runner.lines())
}

func TestEnsureIdentity_ExistingAccountsOnlyChown(t *testing.T) {
	runner := newFakeRunner()
	m := newIdentityManager(runner, present, present, logging.NewNopLogger())

	err := m.EnsureIdentity(context.Background(), Identity{User: "construct"}, "/opt/construct")

	require.NoError(t, err)
	assert.Equal(t, []string{"chown -R construct:construct /opt/construct"}, runner.lines())
}

func TestEnsureIdentity_EmptyUserIsNoOp(t *testing.T) {
	runner := newFakeRunner()
	m := newIdentityManager(runner, missingUser, missingGroup, logging.NewNopLogger())

	err := m.EnsureIdentity(context.Background(), Identity{}, "/opt/construct")

	require.NoError(t, err)
	assert.Empty(t, runner.commands)
}

func TestEnsureIdentity_LookupFailure(t *testing.T) {
	runner := newFakeRunner()
	broken := func(string) error { return errors.New("nss unavailable") }
	m := newIdentityManager(runner, present, broken, logging.NewNopLogger())

	err := m.EnsureIdentity(context.Background(), Identity{User: "construct"}, "/opt/construct")

	require.Error(t, err)
	assert.Empty(t, runner.commands)
}

func TestEnsureIdentity_CommandFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.codes["groupadd --system construct"] = 9
	m := newIdentityManager(runner, missingUser, missingGroup, logging.NewNopLogger())

	err := m.EnsureIdentity(context.Background(), Identity{User: "construct"}, "/opt/construct")

	require.Error(t, err)
	assert.True(t, errors.IsPermissionError(err))
	code, ok := errors.ExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 9, code)
	assert.Len(t, runner.commands, 1)
}
