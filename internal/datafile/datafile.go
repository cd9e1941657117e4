// Package datafile maintains the JSON documents themselves: canonical
// rewriting, sorting files that have a canonical order, and bumping
// last_updated fields by comparing entries against the committed snapshot.
package datafile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davrico/lorevault/internal/catalog"
)

// TimestampedFiles lists the documents whose entries carry last_updated.
// The bump tool defaults to these; other files have no timestamps to bump.
var TimestampedFiles = []string{
	"bonds.json",
	"changelog.json",
	"characters.json",
	"companions.json",
	"gear.json",
	"gear_sets.json",
	"relics.json",
	"resources.json",
	"spells.json",
	"subclasses.json",
	"teams.json",
	"weapons.json",
}

// Write rewrites a document in the canonical file format: two-space indent,
// no HTML escaping, sorted object keys, trailing newline. The write is
// atomic (temp file plus rename).
func Write(path string, entities []catalog.Entity) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if entities == nil {
		entities = []catalog.Entity{}
	}
	if err := enc.Encode(entities); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// identityFor returns the field that identifies entries of a file, falling
// back to "name" for files the registry does not know.
func identityFor(file string) string {
	if doc, ok := catalog.DocumentByFile(file); ok {
		return doc.Identity
	}
	return "name"
}

// stripTimestamp returns the entry without its last_updated field, the shape
// used for change comparison.
func stripTimestamp(e catalog.Entity) catalog.Entity {
	out := e.Clone()
	delete(out, "last_updated")
	return out
}

// entriesEqual compares two entries ignoring last_updated, via canonical
// JSON so key order never matters.
func entriesEqual(a, b catalog.Entity) bool {
	ja, err := catalog.CanonicalJSON(stripTimestamp(a))
	if err != nil {
		return false
	}
	jb, err := catalog.CanonicalJSON(stripTimestamp(b))
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

// indexByIdentity maps committed entries by their identity field. Entries
// without an identity are unmatchable and dropped.
func indexByIdentity(entries []catalog.Entity, identity string) map[string]catalog.Entity {
	out := make(map[string]catalog.Entity, len(entries))
	for _, e := range entries {
		if id := e.Str(identity); id != "" {
			out[id] = e
		}
	}
	return out
}

// listDataFiles returns every *.json document in dir, sorted by name. The
// hash store artifact lives in the same directory but is a JSON object, not
// a document, and is never a normalize target.
func listDataFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		if name == "hashes.json" {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

// normalizeFileName accepts bare names with or without the .json suffix.
func normalizeFileName(name string) string {
	name = filepath.Base(name)
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return name
}
