package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MetadataFileKey metadata field holding the file fingerprint
const MetadataFileKey = "file_hash"

var errNotObject = errors.New("metadata must be a JSON object")

// Metadata submitted JSON object. Values keep their decoded form with numbers
// held as json.Number so they survive a round trip unchanged.
type Metadata struct {
	fields map[string]interface{}
}

// NewMetadata returns an empty metadata object
func NewMetadata() Metadata {
	return Metadata{fields: map[string]interface{}{}}
}

// ParseMetadata decodes a JSON object
func ParseMetadata(data []byte) (Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Metadata{}, errors.New("decode metadata: trailing data")
	}
	fields, ok := v.(map[string]interface{})
	if !ok {
		return Metadata{}, errNotObject
	}
	return Metadata{fields: fields}, nil
}

// Set sets a top level field
func (m *Metadata) Set(key string, value interface{}) {
	if m.fields == nil {
		m.fields = map[string]interface{}{}
	}
	m.fields[key] = value
}

// Get returns a top level field
func (m Metadata) Get(key string) (interface{}, bool) {
	v, ok := m.fields[key]
	return v, ok
}

// GetString returns a top level string field
func (m Metadata) GetString(key string) (string, bool) {
	v, ok := m.fields[key].(string)
	return v, ok
}

// Clone copies the top level fields
func (m Metadata) Clone() Metadata {
	fields := make(map[string]interface{}, len(m.fields))
	for k, v := range m.fields {
		fields[k] = v
	}
	return Metadata{fields: fields}
}

// Len number of top level fields
func (m Metadata) Len() int {
	return len(m.fields)
}

// Canonical serializes with keys sorted at every level, compact separators
// and no HTML escaping. Identical content always yields identical bytes.
func (m Metadata) Canonical() ([]byte, error) {
	fields := m.fields
	if fields == nil {
		fields = map[string]interface{}{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Equal semantic comparison over canonical forms
func (m Metadata) Equal(other Metadata) bool {
	a, err := m.Canonical()
	if err != nil {
		return false
	}
	b, err := other.Canonical()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// MarshalJSON implements json.Marshaler
func (m Metadata) MarshalJSON() ([]byte, error) {
	return m.Canonical()
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Metadata) UnmarshalJSON(data []byte) error {
	parsed, err := ParseMetadata(data)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
