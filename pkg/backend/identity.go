package backend

import (
	"context"
	"os/user"

	"github.com/core-tools/hsu-deploy/pkg/errors"
	"github.com/core-tools/hsu-deploy/pkg/logging"
	"github.com/core-tools/hsu-deploy/pkg/process"
)

// Identity is the unprivileged account a unit runs under
type Identity struct {
	User  string
	Group string
}

// IdentityManager provisions run-as accounts
type IdentityManager interface {
	// EnsureIdentity creates the group and user when missing and hands
	// ownership of root to them. An empty user is a no-op.
	EnsureIdentity(ctx context.Context, identity Identity, root string) error
}

type systemIdentityManager struct {
	runner      process.CommandRunner
	lookupUser  func(name string) error
	lookupGroup func(name string) error
	logger      logging.Logger
}

func NewIdentityManager(runner process.CommandRunner, logger logging.Logger) IdentityManager {
	return newIdentityManager(runner, lookupUser, lookupGroup, logger)
}

func newIdentityManager(runner process.CommandRunner, lookupUser, lookupGroup func(string) error, logger logging.Logger) *systemIdentityManager {
	return &systemIdentityManager{
		runner:      runner,
		lookupUser:  lookupUser,
		lookupGroup: lookupGroup,
		logger:      logger,
	}
}

func (m *systemIdentityManager) EnsureIdentity(ctx context.Context, identity Identity, root string) error {
	if identity.User == "" {
		return nil
	}
	group := identity.Group
	if group == "" {
		group = identity.User
	}

	exists, err := m.exists(m.lookupGroup, group)
	if err != nil {
		return errors.NewInternalError("failed to look up group", err).WithContext("group", group)
	}
	if !exists {
		m.logger.Warnf("Creating system group, group: %s", group)
		if err := m.run(ctx, "groupadd", "--system", group); err != nil {
			return err
		}
	}

	exists, err = m.exists(m.lookupUser, identity.User)
	if err != nil {
		return errors.NewInternalError("failed to look up user", err).WithContext("user", identity.User)
	}
	if !exists {
		m.logger.Warnf("Creating system user, user: %s, group: %s", identity.User, group)
		if err := m.run(ctx, "useradd", "--system", "--no-create-home", "--gid", group, "--shell", "/usr/sbin/nologin", identity.User); err != nil {
			return err
		}
	}

	m.logger.Warnf("Changing ownership, path: %s, owner: %s:%s", root, identity.User, group)
	return m.run(ctx, "chown", "-R", identity.User+":"+group, root)
}

func (m *systemIdentityManager) exists(lookup func(string) error, name string) (bool, error) {
	err := lookup(name)
	if err == nil {
		return true, nil
	}
	var unknownUser user.UnknownUserError
	var unknownGroup user.UnknownGroupError
	if errors.As(err, &unknownUser) || errors.As(err, &unknownGroup) {
		return false, nil
	}
	return false, err
}

func (m *systemIdentityManager) run(ctx context.Context, name string, args ...string) error {
	cmd := process.Command{Name: name, Args: args}
	code, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if code != 0 {
		return errors.NewPermissionError("identity command failed", nil).
			WithContext(errors.ContextCommand, cmd.String()).
			WithContext(errors.ContextExitCode, code)
	}
	return nil
}

func lookupUser(name string) error {
	_, err := user.Lookup(name)
	return err
}

func lookupGroup(name string) error {
	_, err := user.LookupGroup(name)
	return err
}
