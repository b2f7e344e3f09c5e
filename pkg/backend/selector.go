package backend

import (
	"os"

	"github.com/core-tools/hsu-deploy/pkg/config"
	"github.com/core-tools/hsu-deploy/pkg/errors"
)

// SelectorConfig is the host detection input
type SelectorConfig struct {
	Backend       config.BackendType
	MarkerPaths   []string
	UnitDirectory string
}

// Selection is the backend chosen for this run
type Selection struct {
	Name string

	// Set for the systemd backend only
	UnitDirectory string
}

// SelectBackend picks the systemd backend when any marker path is an existing
// directory, otherwise the process backend. A forced backend skips detection
// for the process backend and only locates the unit directory for systemd.
func SelectBackend(cfg SelectorConfig, dirExists func(string) bool) (Selection, error) {
	marker := ""
	for _, path := range cfg.MarkerPaths {
		if dirExists(path) {
			marker = path
			break
		}
	}

	unitDirectory := func() string {
		if cfg.UnitDirectory != "" {
			return cfg.UnitDirectory
		}
		return marker
	}

	switch cfg.Backend {
	case config.BackendProcess:
		return Selection{Name: NameProcess}, nil
	case config.BackendSystemd:
		dir := unitDirectory()
		if dir == "" && len(cfg.MarkerPaths) > 0 {
			dir = cfg.MarkerPaths[0]
		}
		if dir == "" {
			return Selection{}, errors.NewValidationError("no unit directory for the systemd backend", nil)
		}
		return Selection{Name: NameSystemd, UnitDirectory: dir}, nil
	case config.BackendAuto, "":
		if marker == "" {
			return Selection{Name: NameProcess}, nil
		}
		return Selection{Name: NameSystemd, UnitDirectory: unitDirectory()}, nil
	default:
		return Selection{}, errors.NewValidationError("unknown backend: "+string(cfg.Backend), nil)
	}
}

// DirExists reports whether path is an existing directory
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
