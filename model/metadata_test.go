package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataCanonicalSortsKeys(t *testing.T) {
	m, err := ParseMetadata([]byte(`{"z": 1, "a": {"y": true, "b": [3, 2]}, "m": "<tag>&"}`))
	require.NoError(t, err)

	out, err := m.Canonical()
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":[3,2],"y":true},"m":"<tag>&","z":1}`, string(out))
}

func TestMetadataPreservesNumbers(t *testing.T) {
	m, err := ParseMetadata([]byte(`{"big": 123456789012345678901234567890, "f": 1.50}`))
	require.NoError(t, err)

	out, err := m.Canonical()
	require.NoError(t, err)
	assert.Equal(t, `{"big":123456789012345678901234567890,"f":1.50}`, string(out))
}

func TestMetadataRejectsNonObject(t *testing.T) {
	for _, in := range []string{`[1,2]`, `"x"`, `42`, `{"a":1} {"b":2}`, `{`} {
		_, err := ParseMetadata([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestMetadataSetAndEqual(t *testing.T) {
	a, err := ParseMetadata([]byte(`{"x":1}`))
	require.NoError(t, err)
	a.Set(MetadataFileKey, "Qmfile")

	b, err := ParseMetadata([]byte(`{"file_hash":"Qmfile","x":1}`))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	v, ok := a.GetString(MetadataFileKey)
	assert.True(t, ok)
	assert.Equal(t, "Qmfile", v)
	assert.Equal(t, 2, a.Len())

	c := NewMetadata()
	c.Set("x", json.Number("2"))
	assert.False(t, a.Equal(c))
}

func TestMetadataJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Metadata Metadata `json:"metadata"`
	}
	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"metadata":{"b":2,"a":1}}`), &w))

	out, err := json.Marshal(w)
	require.NoError(t, err)
	assert.Equal(t, `{"metadata":{"a":1,"b":2}}`, string(out))
}
