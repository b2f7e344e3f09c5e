package backend

import (
	"context"

	"github.com/core-tools/hsu-deploy/pkg/errors"
	"github.com/core-tools/hsu-deploy/pkg/layout"
	"github.com/core-tools/hsu-deploy/pkg/logging"
	"github.com/core-tools/hsu-deploy/pkg/process"
	"github.com/core-tools/hsu-deploy/pkg/registry"
)

// ProcessBackend runs services as plain detached OS processes
type ProcessBackend struct {
	*Builder
	layout   *layout.Layout
	table    process.ProcessTable
	launcher process.Launcher
	logger   logging.Logger
}

func NewProcessBackend(builder *Builder, layout *layout.Layout, table process.ProcessTable, launcher process.Launcher, logger logging.Logger) *ProcessBackend {
	return &ProcessBackend{
		Builder:  builder,
		layout:   layout,
		table:    table,
		launcher: launcher,
		logger:   logger,
	}
}

func (b *ProcessBackend) Name() string {
	return NameProcess
}

// Stop kills every process named after the service and waits for each to exit
func (b *ProcessBackend) Stop(ctx context.Context, service registry.ServiceName) error {
	processes, err := b.table.List(ctx)
	if err != nil {
		return err
	}

	errorCollection := errors.NewErrorCollection()
	stopped := 0
	for _, p := range processes {
		if !process.MatchesServiceName(p.Name, string(service)) {
			continue
		}

		b.logger.Infof("Stopping process, service: %s, PID: %d", service, p.PID)
		if err := b.table.Kill(ctx, p.PID); err != nil {
			if errors.IsCancelledError(err) {
				return err
			}
			errorCollection.Add(errors.NewProcessError("failed to stop process", err).
				WithContext(errors.ContextService, string(service)).
				WithContext("pid", p.PID))
			continue
		}
		stopped++
	}

	if stopped == 0 && !errorCollection.HasErrors() {
		b.logger.Debugf("No running process, service: %s", service)
	} else if stopped > 0 {
		b.logger.Infof("Stopped service, service: %s, processes: %d", service, stopped)
	}
	return errorCollection.ToError()
}

// Start launches the service's executable detached, from its output directory
func (b *ProcessBackend) Start(ctx context.Context, service registry.ServiceName) error {
	if !b.layout.OutputExists(service) {
		return errors.NewNotFoundError("service has not been built", nil).
			WithContext(errors.ContextService, string(service)).
			WithContext("output_directory", b.layout.OutputDirectory(service))
	}

	pid, err := b.launcher.StartDetached(process.ExecutionConfig{
		ExecutablePath:   b.layout.ExecutablePath(service),
		WorkingDirectory: b.layout.OutputDirectory(service),
	})
	if err != nil {
		return errors.NewProcessError("failed to start service", err).WithContext(errors.ContextService, string(service))
	}

	b.logger.Infof("Started service, service: %s, PID: %d", service, pid)
	return nil
}
