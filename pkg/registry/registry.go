// Package registry maps operator-facing group tokens onto concrete services
// and the test projects that gate their deployment.
package registry

import (
	"sort"
	"strings"

	"github.com/core-tools/hsu-deploy/pkg/errors"
)

// ServiceName names a service's source directory, output directory,
// executable and service manager unit at the same time.
type ServiceName string

// Definition is the static data a Registry is built from.
type Definition struct {
	Groups        map[string][]ServiceName `yaml:"groups"`
	RequiredTests map[ServiceName][]string `yaml:"required_tests"`
}

// Registry is immutable once built.
type Registry struct {
	groups        map[string][]ServiceName
	groupNames    []string
	requiredTests map[ServiceName][]string
}

// DefaultDefinition is the stock Construct service layout.
func DefaultDefinition() Definition {
	return Definition{
		Groups: map[string][]ServiceName{
			"all":           {"Construct.Swipe", "Construct.User", "Construct.Compatibility", "Construct.Admin", "Construct.Print"},
			"combined":      {"Construct.Combined"},
			"compatibility": {"Construct.Compatibility"},
			"swipe":         {"Construct.Swipe"},
			"user":          {"Construct.User"},
			"admin":         {"Construct.Admin"},
			"print":         {"Construct.Print"},
		},
		RequiredTests: map[ServiceName][]string{
			"Construct.Combined":      {"Construct.Core.Test", "Construct.Combined.Test", "Construct.User.Test", "Construct.Swipe.Test", "Construct.Admin.Test", "Construct.Compatibility.Test"},
			"Construct.User":          {"Construct.Core.Test", "Construct.User.Test"},
			"Construct.Swipe":         {"Construct.Core.Test", "Construct.Swipe.Test"},
			"Construct.Admin":         {"Construct.Core.Test", "Construct.Admin.Test"},
			"Construct.Print":         {"Construct.Core.Test", "Construct.Print.Test"},
			"Construct.Compatibility": {"Construct.Core.Test", "Construct.Compatibility.Test"},
		},
	}
}

// New builds a registry from a definition. Group names are folded to lower
// case and every concrete service is also registered as a group of itself,
// so a unit can ask for its own service by name.
func New(def Definition) *Registry {
	r := &Registry{
		groups:        make(map[string][]ServiceName),
		requiredTests: make(map[ServiceName][]string),
	}

	// Sorted so that, of names differing only by case, the first in byte order wins
	names := make([]string, 0, len(def.Groups))
	for name := range def.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		key := strings.ToLower(name)
		if _, exists := r.groups[key]; exists {
			continue
		}
		r.groups[key] = append([]ServiceName(nil), def.Groups[name]...)
	}
	for name := range r.groups {
		r.groupNames = append(r.groupNames, name)
	}
	sort.Strings(r.groupNames)

	for _, name := range r.groupNames {
		for _, service := range r.groups[name] {
			key := strings.ToLower(string(service))
			if _, exists := r.groups[key]; !exists {
				r.groups[key] = []ServiceName{service}
			}
		}
	}

	for service, tests := range def.RequiredTests {
		r.requiredTests[service] = append([]string(nil), tests...)
	}

	return r
}

// GroupNames returns the configured group names, sorted.
func (r *Registry) GroupNames() []string {
	return append([]string(nil), r.groupNames...)
}

// ValidTokens returns every accepted token: groups first, then service names.
func (r *Registry) ValidTokens() []string {
	tokens := r.GroupNames()
	seen := make(map[string]bool, len(tokens))
	for _, name := range tokens {
		seen[name] = true
	}
	var services []string
	for token := range r.groups {
		if !seen[token] {
			services = append(services, token)
		}
	}
	sort.Strings(services)
	return append(tokens, services...)
}

// ExpandGroups resolves tokens into a duplicate free service list in first
// seen order. Every unknown token is collected before failing.
func (r *Registry) ExpandGroups(tokens []string) ([]ServiceName, error) {
	var invalid []string
	for _, token := range tokens {
		if _, ok := r.groups[strings.ToLower(token)]; !ok {
			invalid = append(invalid, token)
		}
	}
	if len(invalid) > 0 {
		return nil, errors.NewUnknownServiceError(invalid).
			WithContext("valid_tokens", r.ValidTokens())
	}

	var services []ServiceName
	seen := make(map[ServiceName]bool)
	for _, token := range tokens {
		for _, service := range r.groups[strings.ToLower(token)] {
			if seen[service] {
				continue
			}
			seen[service] = true
			services = append(services, service)
		}
	}
	return services, nil
}

// RequiredTests returns the test projects gating service. The boolean is
// false when the service has no entry at all, which callers treat as an
// explicit "no tests registered" case.
func (r *Registry) RequiredTests(service ServiceName) ([]string, bool) {
	tests, ok := r.requiredTests[service]
	return append([]string(nil), tests...), ok
}

// TestPlan returns the deduplicated test projects for services, in the
// order services and their requirements are listed. Services without an
// entry are reported separately.
func (r *Registry) TestPlan(services []ServiceName) (projects []string, untested []ServiceName) {
	seen := make(map[string]bool)
	for _, service := range services {
		tests, ok := r.requiredTests[service]
		if !ok {
			untested = append(untested, service)
			continue
		}
		for _, project := range tests {
			if seen[project] {
				continue
			}
			seen[project] = true
			projects = append(projects, project)
		}
	}
	return projects, untested
}
