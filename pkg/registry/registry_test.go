package registry

import (
	"testing"

	"github.com/core-tools/hsu-deploy/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandGroups_SingleGroup(t *testing.T) {
	r := New(DefaultDefinition())

	services, err := r.ExpandGroups([]string{"combined"})

	require.NoError(t, err)
	assert.Equal(t, []ServiceName{"Construct.Combined"}, services)
}

func TestExpandGroups_CaseInsensitive(t *testing.T) {
	r := New(DefaultDefinition())

	services, err := r.ExpandGroups([]string{"USER", "Admin"})

	require.NoError(t, err)
	assert.Equal(t, []ServiceName{"Construct.User", "Construct.Admin"}, services)
}

func TestExpandGroups_DeduplicatesPreservingFirstOccurrence(t *testing.T) {
	r := New(DefaultDefinition())

	services, err := r.ExpandGroups([]string{"user", "all", "print", "user"})

	require.NoError(t, err)
	assert.Equal(t, []ServiceName{
		"Construct.User",
		"Construct.Swipe",
		"Construct.Compatibility",
		"Construct.Admin",
		"Construct.Print",
	}, services)
}

func TestExpandGroups_OverlappingGroups(t *testing.T) {
	r := New(Definition{
		Groups: map[string][]ServiceName{
			"combined": {"A", "User"},
			"user":     {"User"},
		},
	})

	services, err := r.ExpandGroups([]string{"combined", "user"})

	require.NoError(t, err)
	assert.Equal(t, []ServiceName{"A", "User"}, services)
}

func TestExpandGroups_ServiceNameAsToken(t *testing.T) {
	r := New(DefaultDefinition())

	services, err := r.ExpandGroups([]string{"Construct.User"})

	require.NoError(t, err)
	assert.Equal(t, []ServiceName{"Construct.User"}, services)
}

func TestExpandGroups_CollectsAllInvalidTokens(t *testing.T) {
	r := New(DefaultDefinition())

	services, err := r.ExpandGroups([]string{"bogus", "user", "Nope", "combined", "x"})

	require.Error(t, err)
	assert.Nil(t, services)
	assert.True(t, errors.IsUnknownServiceError(err))
	assert.Equal(t, []string{"bogus", "Nope", "x"}, errors.InvalidTokens(err))
}

func TestExpandGroups_Empty(t *testing.T) {
	r := New(DefaultDefinition())

	services, err := r.ExpandGroups(nil)

	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestGroupNames_Sorted(t *testing.T) {
	r := New(DefaultDefinition())

	assert.Equal(t, []string{"admin", "all", "combined", "compatibility", "print", "swipe", "user"}, r.GroupNames())
}

func TestValidTokens_GroupsThenServices(t *testing.T) {
	r := New(Definition{
		Groups: map[string][]ServiceName{"web": {"Svc.B", "Svc.A"}},
	})

	assert.Equal(t, []string{"web", "svc.a", "svc.b"}, r.ValidTokens())
}

func TestNew_GroupNameWinsOverServiceAlias(t *testing.T) {
	r := New(Definition{
		Groups: map[string][]ServiceName{
			"api":    {"Api", "Worker"},
			"worker": {"Worker"},
		},
	})

	services, err := r.ExpandGroups([]string{"API"})

	require.NoError(t, err)
	assert.Equal(t, []ServiceName{"Api", "Worker"}, services)
}

func TestRequiredTests(t *testing.T) {
	r := New(DefaultDefinition())

	tests, ok := r.RequiredTests("Construct.User")
	require.True(t, ok)
	assert.Equal(t, []string{"Construct.Core.Test", "Construct.User.Test"}, tests)

	tests, ok = r.RequiredTests("Construct.Unknown")
	assert.False(t, ok)
	assert.Empty(t, tests)
}

func TestTestPlan_DeduplicatesAcrossServices(t *testing.T) {
	r := New(DefaultDefinition())

	projects, untested := r.TestPlan([]ServiceName{"Construct.User", "Construct.Swipe", "Construct.Orphan"})

	assert.Equal(t, []string{"Construct.Core.Test", "Construct.User.Test", "Construct.Swipe.Test"}, projects)
	assert.Equal(t, []ServiceName{"Construct.Orphan"}, untested)
}

func TestRegistry_DefinitionIsCopied(t *testing.T) {
	def := Definition{
		Groups:        map[string][]ServiceName{"a": {"A"}},
		RequiredTests: map[ServiceName][]string{"A": {"A.Test"}},
	}
	r := New(def)

	def.Groups["a"][0] = "Mutated"
	def.RequiredTests["A"][0] = "Mutated.Test"

	services, err := r.ExpandGroups([]string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []ServiceName{"A"}, services)

	tests, _ := r.RequiredTests("A")
	assert.Equal(t, []string{"A.Test"}, tests)
}

func TestNew_CaseCollidingGroupsAreDeterministic(t *testing.T) {
	def := Definition{Groups: map[string][]ServiceName{
		"user": {"Lower.Svc"},
		"User": {"Upper.Svc"},
	}}

	for i := 0; i < 20; i++ {
		services, err := New(def).ExpandGroups([]string{"USER"})

		require.NoError(t, err)
		assert.Equal(t, []ServiceName{"Upper.Svc"}, services)
	}
}
