package config

import (
	"os"
	"path/filepath"

	"github.com/core-tools/hsu-deploy/pkg/errors"
	"github.com/core-tools/hsu-deploy/pkg/registry"

	"gopkg.in/yaml.v3"
)

// BackendType selects how services are driven on the host
type BackendType string

const (
	BackendAuto    BackendType = "auto"
	BackendProcess BackendType = "process"
	BackendSystemd BackendType = "systemd"
)

// DeployConfig represents the top-level configuration file structure
type DeployConfig struct {
	Deploy        DeployOptions         `yaml:"deploy"`
	Tools         ToolsConfig           `yaml:"tools"`
	Configuration ConfigurationArtifact `yaml:"configuration"`
	Systemd       SystemdConfig         `yaml:"systemd"`
	Registry      *registry.Definition  `yaml:"registry,omitempty"` // Optional, replaces the built-in registry
}

// DeployOptions represents orchestrator-level configuration
type DeployOptions struct {
	RootDirectory    string      `yaml:"root_directory,omitempty"`
	ScriptsDirectory string      `yaml:"scripts_directory,omitempty"`
	OutputDirectory  string      `yaml:"output_directory,omitempty"`
	Backend          BackendType `yaml:"backend,omitempty"`
	LogLevel         string      `yaml:"log_level,omitempty"`
}

// ToolsConfig names the external commands the backends invoke
type ToolsConfig struct {
	Build        string `yaml:"build,omitempty"`
	Test         string `yaml:"test,omitempty"`
	ControlPlane string `yaml:"control_plane,omitempty"`
}

// ConfigurationArtifact describes the JSON file copied into every build output
type ConfigurationArtifact struct {
	FileName    string `yaml:"file_name,omitempty"`
	SearchDepth int    `yaml:"search_depth,omitempty"`
}

// SystemdConfig controls host detection and unit generation
type SystemdConfig struct {
	MarkerPaths   []string      `yaml:"marker_paths,omitempty"`
	UnitDirectory string        `yaml:"unit_directory,omitempty"`
	RestartPolicy string        `yaml:"restart_policy,omitempty"`
	WantedBy      string        `yaml:"wanted_by,omitempty"`
	RunAs         RunAsIdentity `yaml:"run_as,omitempty"`
}

// RunAsIdentity is the unprivileged account units run under. An empty user disables it.
type RunAsIdentity struct {
	User  string `yaml:"user,omitempty"`
	Group string `yaml:"group,omitempty"`
}

const (
	DefaultOutputDirectory   = "bin"
	DefaultBuildTool         = "dotnet"
	DefaultTestTool          = "dotnet"
	DefaultControlPlane      = "systemctl"
	DefaultConfigurationFile = "configuration.json"
	DefaultSearchDepth       = 10
	DefaultRestartPolicy     = "on-failure"
	DefaultWantedBy          = "multi-user.target"
	DefaultLogLevel          = "info"
)

// DefaultMarkerPaths are checked in order; distributions differ on which one exists.
var DefaultMarkerPaths = []string{"/etc/systemd/system", "/lib/systemd/system"}

// LoadConfigFromFile loads deploy configuration from a YAML file
func LoadConfigFromFile(filename string) (*DeployConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var config DeployConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	// Relative directories in a file are taken relative to the file itself
	baseDir := filepath.Dir(filename)
	config.Deploy.RootDirectory = resolveRelative(baseDir, config.Deploy.RootDirectory)
	config.Deploy.ScriptsDirectory = resolveRelative(baseDir, config.Deploy.ScriptsDirectory)

	return &config, nil
}

// Load reads filename when given, otherwise starts from an empty configuration,
// then applies defaults relative to executable and validates the result.
func Load(filename string, executable string) (*DeployConfig, error) {
	config := &DeployConfig{}
	if filename != "" {
		loaded, err := LoadConfigFromFile(filename)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if err := SetConfigDefaults(config, executable); err != nil {
		return nil, errors.NewValidationError("failed to apply configuration defaults", err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, errors.NewValidationError("configuration validation failed", err).WithContext("filename", filename)
	}

	return config, nil
}

// SetConfigDefaults applies default values to configuration. Paths default
// to the layout the binary is installed in: <root>/<scripts>/hsu-deploy.
func SetConfigDefaults(config *DeployConfig, executable string) error {
	if config.Deploy.ScriptsDirectory == "" {
		if executable == "" {
			return errors.NewValidationError("scripts directory is required when the executable path is unknown", nil)
		}
		abs, err := filepath.Abs(executable)
		if err != nil {
			return errors.NewIOError("failed to get absolute path", err).WithContext("executable", executable)
		}
		config.Deploy.ScriptsDirectory = filepath.Dir(abs)
	}
	if config.Deploy.RootDirectory == "" {
		config.Deploy.RootDirectory = filepath.Dir(config.Deploy.ScriptsDirectory)
	}
	if config.Deploy.OutputDirectory == "" {
		config.Deploy.OutputDirectory = DefaultOutputDirectory
	}
	if config.Deploy.Backend == "" {
		config.Deploy.Backend = BackendAuto
	}
	if config.Deploy.LogLevel == "" {
		config.Deploy.LogLevel = DefaultLogLevel
	}

	if config.Tools.Build == "" {
		config.Tools.Build = DefaultBuildTool
	}
	if config.Tools.Test == "" {
		config.Tools.Test = DefaultTestTool
	}
	if config.Tools.ControlPlane == "" {
		config.Tools.ControlPlane = DefaultControlPlane
	}

	if config.Configuration.FileName == "" {
		config.Configuration.FileName = DefaultConfigurationFile
	}
	if config.Configuration.SearchDepth == 0 {
		config.Configuration.SearchDepth = DefaultSearchDepth
	}

	if len(config.Systemd.MarkerPaths) == 0 {
		config.Systemd.MarkerPaths = append([]string(nil), DefaultMarkerPaths...)
	}
	if config.Systemd.RestartPolicy == "" {
		config.Systemd.RestartPolicy = DefaultRestartPolicy
	}
	if config.Systemd.WantedBy == "" {
		config.Systemd.WantedBy = DefaultWantedBy
	}
	if config.Systemd.RunAs.User != "" && config.Systemd.RunAs.Group == "" {
		config.Systemd.RunAs.Group = config.Systemd.RunAs.User
	}

	if config.Registry == nil {
		def := registry.DefaultDefinition()
		config.Registry = &def
	}

	return nil
}

// NewRegistry builds the service registry described by the configuration.
func (c *DeployConfig) NewRegistry() *registry.Registry {
	if c.Registry == nil {
		return registry.New(registry.DefaultDefinition())
	}
	return registry.New(*c.Registry)
}

func resolveRelative(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
