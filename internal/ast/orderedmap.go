package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OrderedMap decodes a JSON object while preserving the source key order.
// encoding/json's map[string]interface{} randomizes order, which breaks
// spec §9's "Implicit vs explicit sequencing" requirement that an implicit
// sequence (an object whose keys are all step expressions) execute in
// insertion order. This is the ordered-map shim the spec calls for at the
// JSON-decoding boundary.
type OrderedMap struct {
	Keys   []string
	Values map[string]json.RawMessage
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{Values: make(map[string]json.RawMessage)}
}

// Len reports the number of entries.
func (m *OrderedMap) Len() int { return len(m.Keys) }

// Get returns the raw value for a key and whether it was present.
func (m *OrderedMap) Get(key string) (json.RawMessage, bool) {
	v, ok := m.Values[key]
	return v, ok
}

// UnmarshalJSON implements json.Unmarshaler by walking the token stream so
// object key order survives decoding.
func (m *OrderedMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("ordered map: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("ordered map: expected JSON object, got %v", tok)
	}

	m.Keys = nil
	m.Values = make(map[string]json.RawMessage)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("ordered map: reading key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("ordered map: object key is not a string: %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("ordered map: reading value for %q: %w", key, err)
		}

		if _, exists := m.Values[key]; !exists {
			m.Keys = append(m.Keys, key)
		}
		m.Values[key] = raw
	}

	// Consume the closing '}'.
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("ordered map: closing object: %w", err)
	}
	return nil
}

// MarshalJSON re-serializes in the preserved key order, so round-tripping a
// step expression through decode→encode produces a semantically equivalent
// document (spec §8, "Round-trip" property).
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		buf.Write(m.Values[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
