// Package hashstore persists per-entity content hashes and timestamps to
// data/hashes.json. The file is committed alongside the data files, so change
// detection works identically on every machine regardless of local database
// state.
package hashstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Entry records the content hash an entity had the last time it was synced,
// and the timestamp it carried then.
type Entry struct {
	Hash string `json:"hash"`
	TS   int64  `json:"ts"`
}

// UnmarshalJSON tolerates the legacy format where an entry was a bare hash
// string with no timestamp.
func (e *Entry) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		e.TS = 0
		return json.Unmarshal(data, &e.Hash)
	}
	type plain Entry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Entry(p)
	return nil
}

// Entries maps entity identity (name, code, or version) to its entry.
type Entries map[string]Entry

// Store holds the full hash file: one Entries map per table.
type Store struct {
	path string
	data map[string]Entries
}

// Load reads the hash file at path. A missing file yields an empty store; a
// malformed file is an error rather than a silent reset, since resetting
// would bump every timestamp on the next sync.
func Load(path string) (*Store, error) {
	s := &Store{path: path, data: make(map[string]Entries)}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if s.data == nil {
		s.data = make(map[string]Entries)
	}
	return s, nil
}

// Path returns the file the store was loaded from and will save to.
func (s *Store) Path() string {
	return s.path
}

// Get looks up the stored entry for one entity.
func (s *Store) Get(table, identity string) (Entry, bool) {
	entries, ok := s.data[table]
	if !ok {
		return Entry{}, false
	}
	e, ok := entries[identity]
	return e, ok
}

// Table returns the stored entries for one table. The returned map is the
// store's own; callers must not mutate it.
func (s *Store) Table(table string) Entries {
	return s.data[table]
}

// Merge replaces the stored entries for one table. Entities deleted from the
// data file drop out of the store because the whole table map is swapped.
func (s *Store) Merge(table string, entries Entries) {
	if entries == nil {
		entries = Entries{}
	}
	s.data[table] = entries
}

// Tables reports how many tables the store tracks.
func (s *Store) Tables() int {
	return len(s.data)
}

// Save writes the store atomically: marshal to a temp file in the same
// directory, then rename over the target. Keys come out sorted, so the file
// diffs cleanly in version control.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create hash store directory: %w", err)
	}
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode hash store: %w", err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write hash store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace hash store: %w", err)
	}
	return nil
}
