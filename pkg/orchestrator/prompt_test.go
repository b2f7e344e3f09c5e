package orchestrator

import (
	"bytes"
	"strings"
	"testing"

	"github.com/core-tools/hsu-deploy/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTokens_Interactive(t *testing.T) {
	var out bytes.Buffer

	tokens, err := ReadTokens(strings.NewReader("user  swipe\n"), &out, true, []string{"all", "user", "swipe"})

	require.NoError(t, err)
	assert.Equal(t, []string{"user", "swipe"}, tokens)
	assert.Contains(t, out.String(), "Valid services: all user swipe")
	assert.Contains(t, out.String(), "space separated")
}

func TestReadTokens_PipedInputHasNoPrompt(t *testing.T) {
	var out bytes.Buffer

	tokens, err := ReadTokens(strings.NewReader("admin"), &out, false, []string{"admin"})

	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, tokens)
	assert.NotContains(t, out.String(), "space separated")
}

func TestReadTokens_EmptyInput(t *testing.T) {
	var out bytes.Buffer

	_, err := ReadTokens(strings.NewReader(""), &out, false, []string{"admin"})

	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
