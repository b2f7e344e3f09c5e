package backend

import (
	"testing"

	"github.com/core-tools/hsu-deploy/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func existing(paths ...string) func(string) bool {
	set := map[string]bool{}
	for _, p := range paths {
		set[p] = true
	}
	return func(path string) bool { return set[path] }
}

func TestSelectBackend(t *testing.T) {
	markers := []string{"/etc/systemd/system", "/lib/systemd/system"}

	tests := []struct {
		name     string
		config   SelectorConfig
		exists   func(string) bool
		expected Selection
	}{
		{
			name:     "no_marker_selects_process",
			config:   SelectorConfig{Backend: config.BackendAuto, MarkerPaths: markers},
			exists:   existing(),
			expected: Selection{Name: NameProcess},
		},
		{
			name:     "first_marker_selects_systemd",
			config:   SelectorConfig{Backend: config.BackendAuto, MarkerPaths: markers},
			exists:   existing("/etc/systemd/system", "/lib/systemd/system"),
			expected: Selection{Name: NameSystemd, UnitDirectory: "/etc/systemd/system"},
		},
		{
			name:     "second_marker_selects_systemd",
			config:   SelectorConfig{MarkerPaths: markers},
			exists:   existing("/lib/systemd/system"),
			expected: Selection{Name: NameSystemd, UnitDirectory: "/lib/systemd/system"},
		},
		{
			name:     "configured_unit_directory_wins",
			config:   SelectorConfig{Backend: config.BackendAuto, MarkerPaths: markers, UnitDirectory: "/run/systemd/system"},
			exists:   existing("/lib/systemd/system"),
			expected: Selection{Name: NameSystemd, UnitDirectory: "/run/systemd/system"},
		},
		{
			name:     "forced_process_ignores_markers",
			config:   SelectorConfig{Backend: config.BackendProcess, MarkerPaths: markers},
			exists:   existing("/etc/systemd/system"),
			expected: Selection{Name: NameProcess},
		},
		{
			name:     "forced_systemd_without_marker",
			config:   SelectorConfig{Backend: config.BackendSystemd, MarkerPaths: markers},
			exists:   existing(),
			expected: Selection{Name: NameSystemd, UnitDirectory: "/etc/systemd/system"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selection, err := SelectBackend(tt.config, tt.exists)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, selection)
		})
	}
}

func TestSelectBackend_Errors(t *testing.T) {
	_, err := SelectBackend(SelectorConfig{Backend: "docker"}, existing())
	assert.Error(t, err)

	_, err = SelectBackend(SelectorConfig{Backend: config.BackendSystemd}, existing())
	assert.Error(t, err)
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()

	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(dir+"/missing"))
}
