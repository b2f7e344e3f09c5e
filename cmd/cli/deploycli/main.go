package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/core-tools/hsu-deploy/pkg/backend"
	"github.com/core-tools/hsu-deploy/pkg/config"
	"github.com/core-tools/hsu-deploy/pkg/layout"
	"github.com/core-tools/hsu-deploy/pkg/logging"
	"github.com/core-tools/hsu-deploy/pkg/orchestrator"
	"github.com/core-tools/hsu-deploy/pkg/process"

	"github.com/google/uuid"
	flags "github.com/jessevdk/go-flags"
	"github.com/mattn/go-isatty"
)

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s-cli , ", module)
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	tokens, err := parser.ParseArgs(argv)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Println(flagsErr.Message)
			return 0
		}
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		return 1
	}
	command := parser.Active.Name

	executable, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to locate own executable: %v\n", err)
		return 1
	}
	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		executable = resolved
	}

	cfg, err := config.Load(opts.Config, executable)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		return 1
	}
	if err := applyOverrides(cfg, opts.globalOptions); err != nil {
		fmt.Printf("Invalid command line options: %v\n", err)
		return 1
	}

	zapBackend := logging.NewZapBackend(logging.ZapConfig{
		Level:  cfg.Deploy.LogLevel,
		Format: opts.LogFormat,
		Fields: map[string]string{
			"run_id":  uuid.NewString(),
			"command": command,
		},
	})
	defer zapBackend.Sync()

	logger := logging.NewLogger(logPrefix("hsu-deploy"), zapBackend.LogFuncs())

	logger.Debugf("opts: %+v", opts.globalOptions)

	registry := cfg.NewRegistry()

	if len(tokens) == 0 {
		interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		tokens, err = orchestrator.ReadTokens(os.Stdin, os.Stdout, interactive, registry.ValidTokens())
		if err != nil {
			logger.Errorf("Failed to read services: %v", err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serviceLayout := layout.NewLayout(layout.LayoutConfig{
		RootDirectory:         cfg.Deploy.RootDirectory,
		ScriptsDirectory:      cfg.Deploy.ScriptsDirectory,
		OutputDirectory:       cfg.Deploy.OutputDirectory,
		ConfigurationFileName: cfg.Configuration.FileName,
		SearchDepth:           cfg.Configuration.SearchDepth,
	}, logger)

	lifecycle, err := newLifecycleBackend(cfg, opts.globalOptions, executable, serviceLayout, logger)
	if err != nil {
		logger.Errorf("Failed to select backend: %v", err)
		return 1
	}
	logger.Infof("Using backend: %s, root: %s", lifecycle.Name(), cfg.Deploy.RootDirectory)

	o := orchestrator.NewOrchestrator(registry, lifecycle, serviceLayout, process.NewExecLauncher(logger), logger)

	switch command {
	case "deploy":
		err = o.Deploy(ctx, tokens)
	case "start":
		err = o.Start(ctx, tokens)
	case "stop":
		err = o.Stop(ctx, tokens)
	case "run":
		code, err := o.Run(ctx, tokens)
		if err != nil {
			logger.Errorf("Failed to run service: %v", err)
			return exitCode(err)
		}
		return code
	default:
		logger.Errorf("Unknown command: %s", command)
		return 1
	}

	if err != nil {
		logger.Errorf("Failed to %s: %v", command, err)
		return exitCode(err)
	}

	logger.Infof("Done")
	return 0
}

func newLifecycleBackend(cfg *config.DeployConfig, opts globalOptions, executable string, serviceLayout *layout.Layout, logger logging.Logger) (backend.LifecycleBackend, error) {
	selection, err := backend.SelectBackend(backend.SelectorConfig{
		Backend:       cfg.Deploy.Backend,
		MarkerPaths:   cfg.Systemd.MarkerPaths,
		UnitDirectory: cfg.Systemd.UnitDirectory,
	}, backend.DirExists)
	if err != nil {
		return nil, err
	}

	runner := process.NewExecRunner(logger)
	builder := backend.NewBuilder(backend.BuilderConfig{
		BuildTool: cfg.Tools.Build,
		TestTool:  cfg.Tools.Test,
	}, serviceLayout, runner, logger)

	if selection.Name == backend.NameSystemd {
		configFile, rootOverride, err := unitArguments(cfg, opts)
		if err != nil {
			return nil, err
		}
		return backend.NewSystemdBackend(backend.SystemdBackendConfig{
			UnitDirectory:    selection.UnitDirectory,
			ControlPlane:     cfg.Tools.ControlPlane,
			Executable:       executable,
			WorkingDirectory: cfg.Deploy.ScriptsDirectory,
			ConfigFile:       configFile,
			RootOverride:     rootOverride,
			RootDirectory:    cfg.Deploy.RootDirectory,
			RunAs: backend.Identity{
				User:  cfg.Systemd.RunAs.User,
				Group: cfg.Systemd.RunAs.Group,
			},
			RestartPolicy: cfg.Systemd.RestartPolicy,
			WantedBy:      cfg.Systemd.WantedBy,
		}, builder, runner, backend.NewIdentityManager(runner, logger), logger), nil
	}

	return backend.NewProcessBackend(builder, serviceLayout, process.NewSystemProcessTable(logger), process.NewExecLauncher(logger), logger), nil
}
