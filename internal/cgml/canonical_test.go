package cgml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	m := Map{"zone": String("deck"), "count": Int(52), "ace_high": Bool(true)}

	out, err := MarshalCanonical(m)
	require.NoError(t, err)
	assert.Equal(t, `{"ace_high":true,"count":52,"zone":"deck"}`, string(out))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	out, err := MarshalCanonical(String("a<b&c>d"))
	require.NoError(t, err)
	assert.Equal(t, `"a<b&c>d"`, string(out))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// e + combining acute (NFD) must normalize to the composed form (NFC).
	decomposed := String("é")
	composed := String("é")

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonical_Null(t *testing.T) {
	out, err := MarshalCanonical(Map{"top_card": Null{}})
	require.NoError(t, err)
	assert.Equal(t, `{"top_card":null}`, string(out))
}

func TestMarshalCanonical_NilValueRejected(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)
}

func TestDeltaHash_Deterministic(t *testing.T) {
	payload := Map{"kind": String("zone"), "zone": String("discard"), "count": Int(3)}

	h1, err := DeltaHash(payload)
	require.NoError(t, err)
	h2, err := DeltaHash(payload)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "hex sha256")
}

func TestDeltaHash_DomainSeparated(t *testing.T) {
	payload := Map{"a": Int(1)}

	dh, err := DeltaHash(payload)
	require.NoError(t, err)
	doc, err := DocumentHash(payload)
	require.NoError(t, err)
	assert.NotEqual(t, dh, doc, "same bytes under different domains must differ")
}
