package backend

import (
	"context"

	"github.com/core-tools/hsu-deploy/pkg/errors"
	"github.com/core-tools/hsu-deploy/pkg/layout"
	"github.com/core-tools/hsu-deploy/pkg/logging"
	"github.com/core-tools/hsu-deploy/pkg/process"
	"github.com/core-tools/hsu-deploy/pkg/registry"
)

// BuilderConfig names the build and test tools
type BuilderConfig struct {
	BuildTool string
	TestTool  string
}

// Builder implements Build and Verify for every backend; both steps are the
// same regardless of how services are run.
type Builder struct {
	config BuilderConfig
	layout *layout.Layout
	runner process.CommandRunner
	logger logging.Logger
}

func NewBuilder(config BuilderConfig, layout *layout.Layout, runner process.CommandRunner, logger logging.Logger) *Builder {
	return &Builder{
		config: config,
		layout: layout,
		runner: runner,
		logger: logger,
	}
}

// Build publishes the service into a clean output directory and installs
// the discovered configuration artifact next to it.
func (b *Builder) Build(ctx context.Context, service registry.ServiceName) error {
	outputDir := b.layout.OutputDirectory(service)

	b.logger.Infof("Building service, service: %s, output: %s", service, outputDir)

	if err := b.layout.RemoveOutput(service); err != nil {
		return err
	}

	cmd := process.Command{
		Name: b.config.BuildTool,
		Args: []string{"publish", "--output", outputDir},
		Dir:  b.layout.SourceDirectory(service),
	}
	code, err := b.runner.Run(ctx, cmd)
	if err != nil {
		if errors.IsCancelledError(err) {
			return err
		}
		return errors.NewDomainError(errors.ErrorTypeBuild, "failed to run build tool", err).
			WithContext(errors.ContextService, string(service)).
			WithContext(errors.ContextCommand, cmd.String())
	}
	if code != 0 {
		return errors.NewBuildError(string(service), code)
	}

	source := b.layout.FindConfiguration()
	if source == "" {
		b.logger.Infof("Configuration file not found, service: %s, searched from: %s", service, b.layout.ScriptsDirectory())
	}
	if err := b.layout.InstallConfiguration(service, source); err != nil {
		return err
	}

	b.logger.Infof("Built service, service: %s", service)
	return nil
}

// Verify runs the test project and reports a VerificationError on failure
func (b *Builder) Verify(ctx context.Context, project string) error {
	b.logger.Infof("Running tests, project: %s", project)

	cmd := process.Command{
		Name: b.config.TestTool,
		Args: []string{"test"},
		Dir:  b.layout.TestProjectDirectory(project),
	}
	code, err := b.runner.Run(ctx, cmd)
	if err != nil {
		if errors.IsCancelledError(err) {
			return err
		}
		return errors.NewDomainError(errors.ErrorTypeVerification, "failed to run test tool", err).
			WithContext(errors.ContextProject, project).
			WithContext(errors.ContextCommand, cmd.String())
	}
	if code != 0 {
		return errors.NewVerificationError(project, code)
	}

	b.logger.Infof("Tests passed, project: %s", project)
	return nil
}
