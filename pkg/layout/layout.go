// Package layout derives every on-disk location of a service from its name
// and handles the configuration artifact that is copied into build outputs.
package layout

import (
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/core-tools/hsu-deploy/pkg/errors"
	"github.com/core-tools/hsu-deploy/pkg/logging"
	"github.com/core-tools/hsu-deploy/pkg/registry"
)

// ExecutableSuffix is the platform suffix probed after the bare service name
const ExecutableSuffix = ".exe"

// LayoutConfig holds the directories a Layout is rooted in
type LayoutConfig struct {
	// Application repository root; service and test project directories live here
	RootDirectory string

	// Directory of the orchestrator itself; the configuration search starts here
	ScriptsDirectory string

	// Build outputs go to <root>/<output>/<service>
	OutputDirectory string

	// Name of the configuration artifact, searched upward from ScriptsDirectory
	ConfigurationFileName string

	// Maximum number of directories inspected by the upward search
	SearchDepth int
}

// Layout resolves service paths
type Layout struct {
	config LayoutConfig
	logger logging.Logger
}

// NewLayout creates a layout with the given configuration
func NewLayout(config LayoutConfig, logger logging.Logger) *Layout {
	if config.OutputDirectory == "" {
		config.OutputDirectory = "bin"
	}
	if config.ConfigurationFileName == "" {
		config.ConfigurationFileName = "configuration.json"
	}
	if config.SearchDepth <= 0 {
		config.SearchDepth = 10
	}

	return &Layout{
		config: config,
		logger: logger,
	}
}

func (l *Layout) RootDirectory() string {
	return l.config.RootDirectory
}

func (l *Layout) ScriptsDirectory() string {
	return l.config.ScriptsDirectory
}

// SourceDirectory is where the service's project lives
func (l *Layout) SourceDirectory(service registry.ServiceName) string {
	return filepath.Join(l.config.RootDirectory, string(service))
}

// OutputDirectory is where the service is published to
func (l *Layout) OutputDirectory(service registry.ServiceName) string {
	return filepath.Join(l.config.RootDirectory, l.config.OutputDirectory, string(service))
}

// TestProjectDirectory is where a test project lives
func (l *Layout) TestProjectDirectory(project string) string {
	return filepath.Join(l.config.RootDirectory, project)
}

// OutputExists reports whether the service has been built before
func (l *Layout) OutputExists(service registry.ServiceName) bool {
	info, err := os.Stat(l.OutputDirectory(service))
	return err == nil && info.IsDir()
}

// ExecutablePath returns the service's executable inside its output directory,
// preferring <service>.exe when it exists.
func (l *Layout) ExecutablePath(service registry.ServiceName) string {
	executable := filepath.Join(l.OutputDirectory(service), string(service))
	if _, err := os.Stat(executable + ExecutableSuffix); err == nil {
		return executable + ExecutableSuffix
	}
	return executable
}

// DeployedConfigurationPath is where the configuration artifact is copied to
func (l *Layout) DeployedConfigurationPath(service registry.ServiceName) string {
	return filepath.Join(l.OutputDirectory(service), l.config.ConfigurationFileName)
}

// FindConfiguration walks upward from the scripts directory looking for the
// configuration artifact. It returns "" when none is found within SearchDepth
// directories or before reaching the filesystem root.
func (l *Layout) FindConfiguration() string {
	dir := filepath.Clean(l.config.ScriptsDirectory)
	for i := 0; i < l.config.SearchDepth; i++ {
		candidate := filepath.Join(dir, l.config.ConfigurationFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			l.logger.Debugf("Configuration found, path: %s", candidate)
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// InstallConfiguration removes any stale configuration from the service's
// output directory and copies source there verbatim. An empty source only
// removes the stale copy.
func (l *Layout) InstallConfiguration(service registry.ServiceName, source string) error {
	destination := l.DeployedConfigurationPath(service)

	if err := os.Remove(destination); err != nil && !os.IsNotExist(err) {
		return errors.NewIOError("failed to remove previous configuration", err).WithContext("path", destination)
	}

	if source == "" {
		return nil
	}

	l.logger.Infof("Copying configuration file, service: %s, from: %s, to: %s", service, source, destination)
	return copyFile(source, destination)
}

// RemoveOutput deletes the service's output tree
func (l *Layout) RemoveOutput(service registry.ServiceName) error {
	outputDir := l.OutputDirectory(service)
	if err := os.RemoveAll(outputDir); err != nil {
		return errors.NewIOError("failed to remove output directory", err).WithContext("output_directory", outputDir)
	}
	return nil
}

func copyFile(source, destination string) error {
	in, err := os.Open(source)
	if err != nil {
		return errors.NewIOError("failed to open configuration", err).WithContext("path", source)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return errors.NewIOError("failed to create output directory", err).WithContext("path", filepath.Dir(destination))
	}

	out, err := os.Create(destination)
	if err != nil {
		return errors.NewIOError("failed to create configuration copy", err).WithContext("path", destination)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.NewIOError("failed to copy configuration", err).WithContext("path", destination)
	}
	if err := out.Close(); err != nil {
		return errors.NewIOError("failed to write configuration copy", err).WithContext("path", destination)
	}

	// Copy keeps the source file mode
	if info, err := os.Stat(source); err == nil && runtime.GOOS != "windows" {
		_ = os.Chmod(destination, info.Mode().Perm())
	}
	return nil
}
