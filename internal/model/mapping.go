package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// HeaderCandidate is one cell identified as naming a column of tabular data.
type HeaderCandidate struct {
	Sheet           string `json:"sheet"`
	Row             int    `json:"row"`
	Column          int    `json:"column"`
	RawLabel        string `json:"rawLabel"`
	NormalizedLabel string `json:"normalizedLabel"`
}

// FieldName identifies a source-side field, e.g. a database column.
type FieldName = string

// MappingEntry is one accepted header/field pairing.
type MappingEntry struct {
	Header     HeaderCandidate `json:"header"`
	Field      FieldName       `json:"field"`
	Confidence float64         `json:"confidence"`
}

// MappingResult is the outcome of mapping one sheet. Every detected header
// appears in exactly one of Mappings or Unmapped.
type MappingResult struct {
	Headers  []HeaderCandidate `json:"headers"`
	Mappings []MappingEntry    `json:"mappings"`
	Unmapped []HeaderCandidate `json:"unmapped"`
}

// TemplateAnalysis is the per-sheet outcome of analyzing one template file.
// Sheets where no header row was found are listed in Skipped.
type TemplateAnalysis struct {
	Headers map[string][]HeaderCandidate `json:"headers"`
	Skipped []string                     `json:"skipped"`
}

// TemplateMapping is the per-sheet outcome of a full analyze-and-map run.
type TemplateMapping struct {
	Results map[string]MappingResult `json:"results"`
	Skipped []string                 `json:"skipped"`
}

// StoredMapping is a flat ordered SHEET_HEADER -> field configuration,
// reusable across runs against templates of the same shape. Insertion order
// is preserved; setting an existing key overwrites its value in place.
type StoredMapping struct {
	keys    []string
	entries map[string]string
}

// NewStoredMapping creates an empty stored mapping.
func NewStoredMapping() *StoredMapping {
	return &StoredMapping{entries: make(map[string]string)}
}

// Set adds or overwrites one entry. Last write wins for duplicate keys.
func (m *StoredMapping) Set(key, field string) {
	if m.entries == nil {
		m.entries = make(map[string]string)
	}
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = field
}

// Get looks up one entry.
func (m *StoredMapping) Get(key string) (string, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *StoredMapping) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len reports the number of entries.
func (m *StoredMapping) Len() int {
	return len(m.keys)
}

// MarshalJSON renders the mapping as a flat JSON object in insertion order.
func (m *StoredMapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.entries[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object, keeping the key order of the
// document.
func (m *StoredMapping) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.entries = make(map[string]string)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("stored mapping: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("stored mapping: key %q: %w", key, err)
		}
		m.Set(key, value)
	}
	_, err = dec.Token() // closing brace
	return err
}
