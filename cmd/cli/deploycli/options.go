package main

import (
	"path/filepath"

	"github.com/core-tools/hsu-deploy/pkg/config"
	"github.com/core-tools/hsu-deploy/pkg/errors"
)

type globalOptions struct {
	Config    string `long:"config" description:"path to the YAML configuration file"`
	Root      string `long:"root" description:"application repository root, defaults to the parent of this executable's directory"`
	Backend   string `long:"backend" choice:"auto" choice:"process" choice:"systemd" description:"lifecycle backend, detected from the host by default"`
	LogLevel  string `long:"log-level" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"log level"`
	LogFormat string `long:"log-format" choice:"console" choice:"json" default:"console" description:"log output format"`
}

// Subcommands take service tokens as trailing arguments
type tokensCommand struct{}

type flagOptions struct {
	globalOptions

	Deploy tokensCommand `command:"deploy" description:"Stops, verifies, rebuilds, and starts a list of services"`
	Start  tokensCommand `command:"start" description:"Stops and starts a list of services, building only those never built"`
	Stop   tokensCommand `command:"stop" description:"Stops a list of services"`
	Run    tokensCommand `command:"run" description:"Runs one service in the foreground and exits with its exit code"`
}

// applyOverrides layers command line options over the loaded configuration
func applyOverrides(cfg *config.DeployConfig, opts globalOptions) error {
	if opts.Root != "" {
		root, err := filepath.Abs(opts.Root)
		if err != nil {
			return errors.NewIOError("failed to get absolute path", err).WithContext("root", opts.Root)
		}
		cfg.Deploy.RootDirectory = root
	}
	if opts.Backend != "" {
		cfg.Deploy.Backend = config.BackendType(opts.Backend)
	}
	if opts.LogLevel != "" {
		cfg.Deploy.LogLevel = opts.LogLevel
	}
	return config.ValidateConfig(cfg)
}

// unitArguments returns the --config and --root values a generated unit must
// repeat so that "run" under systemd resolves the same configuration
func unitArguments(cfg *config.DeployConfig, opts globalOptions) (string, string, error) {
	configFile := ""
	if opts.Config != "" {
		abs, err := filepath.Abs(opts.Config)
		if err != nil {
			return "", "", errors.NewIOError("failed to get absolute path", err).WithContext("config", opts.Config)
		}
		configFile = abs
	}

	rootOverride := ""
	if opts.Root != "" {
		rootOverride = cfg.Deploy.RootDirectory
	}
	return configFile, rootOverride, nil
}

// exitCode maps a failed invocation onto the process exit code
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
