package backend

import (
	"context"
	"os"
	"path/filepath"

	"github.com/core-tools/hsu-deploy/pkg/errors"
	"github.com/core-tools/hsu-deploy/pkg/logging"
	"github.com/core-tools/hsu-deploy/pkg/process"
	"github.com/core-tools/hsu-deploy/pkg/registry"
)

// SystemdBackendConfig holds unit generation and control plane settings
type SystemdBackendConfig struct {
	UnitDirectory string
	ControlPlane  string

	// Units invoke Executable with "run <service>" from WorkingDirectory
	Executable       string
	WorkingDirectory string

	// Absolute configuration file and root override the unit passes to "run"; empty ones are omitted
	ConfigFile   string
	RootOverride string

	// Ownership of RootDirectory is handed to RunAs before the first launch
	RootDirectory string
	RunAs         Identity

	RestartPolicy string
	WantedBy      string
}

// SystemdBackend runs services as systemd units, generating each unit file on first start
type SystemdBackend struct {
	*Builder
	config   SystemdBackendConfig
	runner   process.CommandRunner
	identity IdentityManager
	logger   logging.Logger
}

func NewSystemdBackend(config SystemdBackendConfig, builder *Builder, runner process.CommandRunner, identity IdentityManager, logger logging.Logger) *SystemdBackend {
	return &SystemdBackend{
		Builder:  builder,
		config:   config,
		runner:   runner,
		identity: identity,
		logger:   logger,
	}
}

func (b *SystemdBackend) Name() string {
	return NameSystemd
}

// DescriptorPath is the unit file location for a service
func (b *SystemdBackend) DescriptorPath(service registry.ServiceName) string {
	return filepath.Join(b.config.UnitDirectory, UnitName(service))
}

// Stop stops and disables the unit; a service without a unit file is left alone
func (b *SystemdBackend) Stop(ctx context.Context, service registry.ServiceName) error {
	exists, err := b.descriptorExists(service)
	if err != nil {
		return err
	}
	if !exists {
		b.logger.Debugf("No unit file, service: %s, path: %s", service, b.DescriptorPath(service))
		return nil
	}

	b.logger.Infof("Stopping service, service: %s", service)
	if err := b.systemctl(ctx, "stop", UnitName(service)); err != nil {
		return err
	}
	if err := b.systemctl(ctx, "disable", UnitName(service)); err != nil {
		return err
	}
	b.logger.Infof("Stopped service, service: %s", service)
	return nil
}

// Start writes the unit file when absent, then starts and enables the unit
func (b *SystemdBackend) Start(ctx context.Context, service registry.ServiceName) error {
	exists, err := b.descriptorExists(service)
	if err != nil {
		return err
	}
	if !exists {
		if err := b.createDescriptor(ctx, service); err != nil {
			return err
		}
		if err := b.systemctl(ctx, "daemon-reload"); err != nil {
			return err
		}
	}

	b.logger.Infof("Starting service, service: %s", service)
	if err := b.systemctl(ctx, "start", UnitName(service)); err != nil {
		return err
	}
	if err := b.systemctl(ctx, "enable", UnitName(service)); err != nil {
		return err
	}
	b.logger.Infof("Started service, service: %s", service)
	return nil
}

func (b *SystemdBackend) createDescriptor(ctx context.Context, service registry.ServiceName) error {
	if err := b.identity.EnsureIdentity(ctx, b.config.RunAs, b.config.RootDirectory); err != nil {
		return errors.NewPermissionError("failed to prepare run-as identity", err).WithContext(errors.ContextService, string(service))
	}

	content, err := RenderDescriptor(Descriptor{
		Service:          service,
		WorkingDirectory: b.config.WorkingDirectory,
		Executable:       b.config.Executable,
		ConfigFile:       b.config.ConfigFile,
		RootDirectory:    b.config.RootOverride,
		User:             b.config.RunAs.User,
		Group:            b.config.RunAs.Group,
		RestartPolicy:    b.config.RestartPolicy,
		WantedBy:         b.config.WantedBy,
	})
	if err != nil {
		return err
	}

	path := b.DescriptorPath(service)
	b.logger.Infof("Creating unit file, service: %s, path: %s", service, path)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.NewIOError("failed to write unit file", err).WithContext("path", path)
	}
	return nil
}

func (b *SystemdBackend) descriptorExists(service registry.ServiceName) (bool, error) {
	path := b.DescriptorPath(service)
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.NewIOError("failed to inspect unit file", err).WithContext("path", path)
}

// systemctl runs one control plane command; any failure ends the run
func (b *SystemdBackend) systemctl(ctx context.Context, args ...string) error {
	cmd := process.Command{Name: b.config.ControlPlane, Args: args}
	code, err := b.runner.Run(ctx, cmd)
	if err != nil {
		if errors.IsCancelledError(err) {
			return err
		}
		return errors.NewDomainError(errors.ErrorTypeControlPlane, "failed to run control plane", err).
			WithContext(errors.ContextCommand, cmd.String())
	}
	if code != 0 {
		return errors.NewControlPlaneError(cmd.String(), code)
	}
	return nil
}
