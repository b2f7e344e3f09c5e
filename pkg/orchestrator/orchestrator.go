// Package orchestrator resolves operator tokens into services and drives each
// one through the selected lifecycle backend in a fixed order.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/core-tools/hsu-deploy/pkg/backend"
	"github.com/core-tools/hsu-deploy/pkg/errors"
	"github.com/core-tools/hsu-deploy/pkg/layout"
	"github.com/core-tools/hsu-deploy/pkg/logging"
	"github.com/core-tools/hsu-deploy/pkg/process"
	"github.com/core-tools/hsu-deploy/pkg/registry"
)

// Time a foreground service gets between the interrupt and the kill
const runWaitDelay = 10 * time.Second

type Orchestrator struct {
	registry *registry.Registry
	backend  backend.LifecycleBackend
	layout   *layout.Layout
	launcher process.Launcher
	logger   logging.Logger
}

func NewOrchestrator(registry *registry.Registry, backend backend.LifecycleBackend, layout *layout.Layout, launcher process.Launcher, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		backend:  backend,
		layout:   layout,
		launcher: launcher,
		logger:   logger,
	}
}

// Resolve expands tokens into the deduplicated, ordered deployment target
func (o *Orchestrator) Resolve(tokens []string) ([]registry.ServiceName, error) {
	if len(tokens) == 0 {
		return nil, errors.NewValidationError("no services specified", nil)
	}

	services, err := o.registry.ExpandGroups(tokens)
	if err != nil {
		if invalid := errors.InvalidTokens(err); len(invalid) > 0 {
			o.logger.Errorf("Invalid services specified: %s", strings.Join(invalid, " "))
			o.logger.Infof("Valid services: %s", strings.Join(o.registry.ValidTokens(), " "))
		}
		return nil, err
	}

	o.logger.Debugf("Resolved services, tokens: %v, services: %v", tokens, services)
	return services, nil
}

// Deploy verifies every required test project once, then stops, rebuilds
// and starts each service. A failed verification aborts before any build.
func (o *Orchestrator) Deploy(ctx context.Context, tokens []string) error {
	services, err := o.Resolve(tokens)
	if err != nil {
		return err
	}

	projects, untested := o.registry.TestPlan(services)
	for _, service := range untested {
		o.logger.Infof("No tests registered, service: %s", service)
	}
	for _, project := range projects {
		if err := o.backend.Verify(ctx, project); err != nil {
			o.logger.Errorf("Verification failed, project: %s, error: %v", project, err)
			return err
		}
	}

	return o.forEach(ctx, "deploy", services, func(ctx context.Context, service registry.ServiceName) error {
		if err := o.backend.Stop(ctx, service); err != nil {
			return err
		}
		if err := o.backend.Build(ctx, service); err != nil {
			return err
		}
		return o.backend.Start(ctx, service)
	})
}

// Start restarts each service, building only those never built before
func (o *Orchestrator) Start(ctx context.Context, tokens []string) error {
	services, err := o.Resolve(tokens)
	if err != nil {
		return err
	}

	return o.forEach(ctx, "start", services, func(ctx context.Context, service registry.ServiceName) error {
		if err := o.backend.Stop(ctx, service); err != nil {
			return err
		}
		if err := o.buildIfMissing(ctx, service); err != nil {
			return err
		}
		return o.backend.Start(ctx, service)
	})
}

// Stop stops each service
func (o *Orchestrator) Stop(ctx context.Context, tokens []string) error {
	services, err := o.Resolve(tokens)
	if err != nil {
		return err
	}

	return o.forEach(ctx, "stop", services, o.backend.Stop)
}

// Run builds the service when needed and runs it in the foreground, returning
// its exit code. Only the first resolved service is run.
func (o *Orchestrator) Run(ctx context.Context, tokens []string) (int, error) {
	services, err := o.Resolve(tokens)
	if err != nil {
		return -1, err
	}
	if len(services) == 0 {
		return -1, errors.NewValidationError("no services resolved", nil)
	}

	service := services[0]
	if len(services) > 1 {
		o.logger.Warnf("Only one service can be run in the foreground, running: %s, ignored: %v", service, services[1:])
	}

	if err := o.buildIfMissing(ctx, service); err != nil {
		return -1, err
	}

	o.logger.Infof("Running service, service: %s", service)
	code, err := o.launcher.RunForeground(ctx, process.ExecutionConfig{
		ExecutablePath:   o.layout.ExecutablePath(service),
		WorkingDirectory: o.layout.OutputDirectory(service),
		WaitDelay:        runWaitDelay,
	})
	if err != nil {
		return -1, err
	}

	o.logger.Infof("Service exited, service: %s, exit code: %d", service, code)
	return code, nil
}

func (o *Orchestrator) buildIfMissing(ctx context.Context, service registry.ServiceName) error {
	if o.layout.OutputExists(service) {
		return nil
	}
	o.logger.Infof("No build output, building first, service: %s", service)
	return o.backend.Build(ctx, service)
}

// forEach applies step to every service in order. Fatal errors end the run at
// once; other failures are collected and the remaining services still run.
func (o *Orchestrator) forEach(ctx context.Context, operation string, services []registry.ServiceName, step func(context.Context, registry.ServiceName) error) error {
	errorCollection := errors.NewErrorCollection()

	for _, service := range services {
		if ctx.Err() != nil {
			return errors.NewCancelledError("operation interrupted", ctx.Err()).WithContext("operation", operation)
		}

		if err := step(ctx, service); err != nil {
			o.logger.Errorf("Failed to %s service, service: %s, error: %v", operation, service, err)
			if errors.IsFatal(err) {
				return err
			}
			errorCollection.Add(err)
		}
	}

	if errorCollection.HasErrors() {
		o.logger.Errorf("Operation finished with errors, operation: %s, failed: %d of %d", operation, len(errorCollection.Errors), len(services))
	} else {
		o.logger.Infof("Operation completed, operation: %s, services: %d", operation, len(services))
	}
	return errorCollection.ToError()
}
