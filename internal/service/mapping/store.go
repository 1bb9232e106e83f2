// Package mapping persists accepted header/field assignments as a flat,
// namespaced key -> value configuration so a template of the same shape can
// be re-filled without re-running detection and scoring.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/Pyl2411/Vickhardth-Automation-Reports-sub000/internal/model"
)

// Store reads and writes the stored mapping file. Save overwrites the whole
// value; Upsert is an explicit read-merge-write. Both run under a single
// writer lock since the file is the only artifact shared between runs.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store persisting to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// CompositeKey derives the canonical SHEET_HEADER key for one entry:
// upper-cased, with every run of non-alphanumeric characters collapsed to a
// single underscore.
func CompositeKey(sheet, rawLabel string) string {
	return canonicalPart(sheet) + "_" + canonicalPart(rawLabel)
}

func canonicalPart(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToUpper(r))
		} else {
			pendingSep = true
		}
	}
	return b.String()
}

// Build flattens the accepted entries of all sheets into a StoredMapping.
// Traversal is deterministic: sheets by name, entries by row then column.
// Two entries producing the same composite key collapse last-write-wins in
// that traversal order.
func Build(results map[string]model.MappingResult) *model.StoredMapping {
	sheets := make([]string, 0, len(results))
	for name := range results {
		sheets = append(sheets, name)
	}
	sort.Strings(sheets)

	stored := model.NewStoredMapping()
	for _, sheet := range sheets {
		entries := append([]model.MappingEntry(nil), results[sheet].Mappings...)
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Header.Row != entries[j].Header.Row {
				return entries[i].Header.Row < entries[j].Header.Row
			}
			return entries[i].Header.Column < entries[j].Header.Column
		})
		for _, e := range entries {
			stored.Set(CompositeKey(sheet, e.Header.RawLabel), e.Field)
		}
	}
	return stored
}

// Save flattens the results and overwrites the mapping file wholesale.
func (s *Store) Save(results map[string]model.MappingResult) (*model.StoredMapping, error) {
	stored := Build(results)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Upsert merges the results into the existing file instead of replacing it:
// read, overlay new keys, write. A missing file behaves as an empty mapping.
func (s *Store) Upsert(results map[string]model.MappingResult) (*model.StoredMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.read()
	if err != nil {
		return nil, err
	}
	fresh := Build(results)
	for _, key := range fresh.Keys() {
		v, _ := fresh.Get(key)
		stored.Set(key, v)
	}
	if err := s.write(stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Load reads the stored mapping. A missing file yields an empty mapping.
func (s *Store) Load() (*model.StoredMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() (*model.StoredMapping, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewStoredMapping(), nil
		}
		return nil, fmt.Errorf("read mapping file: %w", err)
	}
	stored := model.NewStoredMapping()
	if err := json.Unmarshal(data, stored); err != nil {
		return nil, fmt.Errorf("parse mapping file: %w", err)
	}
	return stored, nil
}

func (s *Store) write(stored *model.StoredMapping) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
