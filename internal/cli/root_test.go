package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with the given args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "cgml")
	assert.Contains(t, out, "validate")
	assert.Contains(t, out, "simulate")
	assert.Contains(t, out, "replay")
}

func TestRootRejectsInvalidFormat(t *testing.T) {
	_, err := execute(t, "validate", "testdata/documents/self_play.yaml", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "frobnicate")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown command"))
}
