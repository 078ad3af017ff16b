package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidDocument(t *testing.T) {
	out, err := execute(t, "validate", "testdata/documents/self_play.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "valid: SelfPlay")
	assert.Contains(t, out, "sha256:")
}

func TestValidateValidDocumentJSON(t *testing.T) {
	out, err := execute(t, "validate", "testdata/documents/self_play.yaml", "--format", "json")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, "SelfPlay", data["name"])
}

func TestValidateInvalidDocument(t *testing.T) {
	out, err := execute(t, "validate", "testdata/documents/invalid.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "invalid:")
}

func TestValidateMissingDocument(t *testing.T) {
	out, err := execute(t, "validate", "testdata/documents/nowhere.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "[load]")
}
