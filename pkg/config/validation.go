package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/core-tools/hsu-deploy/pkg/errors"
	"github.com/core-tools/hsu-deploy/pkg/logging"
)

// ValidateConfig validates the entire configuration structure
func ValidateConfig(config *DeployConfig) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	if err := validateDeployOptions(&config.Deploy); err != nil {
		return errors.NewValidationError("invalid deploy configuration", err)
	}

	if err := validateTools(&config.Tools); err != nil {
		return errors.NewValidationError("invalid tools configuration", err)
	}

	if config.Configuration.SearchDepth < 0 {
		return errors.NewValidationError(
			fmt.Sprintf("invalid configuration search depth: %d", config.Configuration.SearchDepth),
			nil,
		).WithContext("valid_range", "1 or more")
	}
	if err := ValidateName(config.Configuration.FileName); err != nil {
		return errors.NewValidationError("invalid configuration file name", err)
	}

	if err := validateSystemd(&config.Systemd); err != nil {
		return errors.NewValidationError("invalid systemd configuration", err)
	}

	if config.Registry != nil {
		if err := validateRegistry(config); err != nil {
			return errors.NewValidationError("invalid registry configuration", err)
		}
	}

	return nil
}

// ValidateName rejects names that would escape the directory they are joined
// onto or split into several arguments on a unit command line.
func ValidateName(name string) error {
	if name == "" {
		return errors.NewValidationError("name cannot be empty", nil)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errors.NewValidationError(fmt.Sprintf("name must not contain path separators: %s", name), nil)
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return errors.NewValidationError(fmt.Sprintf("name must not contain whitespace: %q", name), nil)
	}
	return nil
}

func validateDeployOptions(options *DeployOptions) error {
	if !filepath.IsAbs(options.RootDirectory) {
		return errors.NewValidationError("root directory must be absolute path", nil).WithContext("root_directory", options.RootDirectory)
	}
	if !filepath.IsAbs(options.ScriptsDirectory) {
		return errors.NewValidationError("scripts directory must be absolute path", nil).WithContext("scripts_directory", options.ScriptsDirectory)
	}
	if filepath.IsAbs(options.OutputDirectory) || strings.HasPrefix(filepath.Clean(options.OutputDirectory), "..") {
		return errors.NewValidationError("output directory must be relative to the root directory", nil).WithContext("output_directory", options.OutputDirectory)
	}

	switch options.Backend {
	case BackendAuto, BackendProcess, BackendSystemd:
	default:
		return errors.NewValidationError(
			fmt.Sprintf("unsupported backend: %s", options.Backend),
			nil,
		).WithContext("supported_backends", "auto, process, systemd")
	}

	if _, ok := logging.ParseLevel(options.LogLevel); !ok {
		return errors.NewValidationError(
			fmt.Sprintf("invalid log level: %s", options.LogLevel),
			nil,
		).WithContext("valid_levels", "debug, info, warn, error")
	}

	return nil
}

func validateTools(tools *ToolsConfig) error {
	if strings.TrimSpace(tools.Build) == "" {
		return errors.NewValidationError("build tool is required", nil)
	}
	if strings.TrimSpace(tools.Test) == "" {
		return errors.NewValidationError("test tool is required", nil)
	}
	if strings.TrimSpace(tools.ControlPlane) == "" {
		return errors.NewValidationError("control plane tool is required", nil)
	}
	return nil
}

func validateSystemd(config *SystemdConfig) error {
	for i, marker := range config.MarkerPaths {
		if !isHostAbs(marker) {
			return errors.NewValidationError(
				fmt.Sprintf("marker path at index %d must be absolute", i),
				nil,
			).WithContext("marker_path", marker)
		}
	}
	if config.UnitDirectory != "" && !isHostAbs(config.UnitDirectory) {
		return errors.NewValidationError("unit directory must be absolute path", nil).WithContext("unit_directory", config.UnitDirectory)
	}

	validPolicies := []string{"no", "on-success", "on-failure", "on-abnormal", "on-watchdog", "on-abort", "always"}
	valid := false
	for _, policy := range validPolicies {
		if config.RestartPolicy == policy {
			valid = true
			break
		}
	}
	if !valid {
		return errors.NewValidationError(
			fmt.Sprintf("invalid restart policy: %s", config.RestartPolicy),
			nil,
		).WithContext("valid_policies", strings.Join(validPolicies, ", "))
	}

	if config.RunAs.User == "" && config.RunAs.Group != "" {
		return errors.NewValidationError("run-as group requires a run-as user", nil)
	}
	return nil
}

func validateRegistry(config *DeployConfig) error {
	def := config.Registry
	if len(def.Groups) == 0 {
		return errors.NewValidationError("registry must define at least one group", nil)
	}

	folded := make(map[string]string, len(def.Groups))
	for name, services := range def.Groups {
		if strings.TrimSpace(name) == "" {
			return errors.NewValidationError("group name cannot be empty", nil)
		}
		key := strings.ToLower(name)
		if other, exists := folded[key]; exists {
			return errors.NewValidationError(fmt.Sprintf("group names '%s' and '%s' differ only by case", other, name), nil)
		}
		folded[key] = name
		if len(services) == 0 {
			return errors.NewValidationError(fmt.Sprintf("group '%s' references no services", name), nil)
		}
		for _, service := range services {
			if err := ValidateName(string(service)); err != nil {
				return errors.NewValidationError(fmt.Sprintf("invalid service in group '%s'", name), err).WithContext("service", string(service))
			}
		}
	}

	for service, projects := range def.RequiredTests {
		for _, project := range projects {
			if err := ValidateName(project); err != nil {
				return errors.NewValidationError(fmt.Sprintf("invalid test project for '%s'", service), err).WithContext("project", project)
			}
		}
	}

	return nil
}

// systemd paths are slash-rooted even when validated on a Windows host
func isHostAbs(path string) bool {
	return filepath.IsAbs(path) || strings.HasPrefix(path, "/")
}
