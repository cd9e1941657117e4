package catalog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Volatile keys are the change-tracking metadata written back by the sync
// tools. They are excluded from hashing so that stamping an entity never
// perturbs its own hash.
var volatileKeys = map[string]struct{}{
	"last_updated": {},
	"data_hash":    {},
}

// ContentHash returns the sha256 hex digest of the entity's semantic fields.
// Volatile metadata keys and any extra excluded keys are stripped before the
// remainder is serialized as canonical JSON. The digest depends only on
// logical content, never on key order or how the entity was constructed.
func ContentHash(e Entity, exclude ...string) (string, error) {
	trimmed := make(map[string]any, len(e))
outer:
	for k, v := range e {
		if _, ok := volatileKeys[k]; ok {
			continue
		}
		for _, x := range exclude {
			if k == x {
				continue outer
			}
		}
		trimmed[k] = v
	}
	canon, err := CanonicalJSON(trimmed)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalJSON serializes v with sorted object keys, no indentation, and no
// HTML escaping. encoding/json already emits map keys in sorted order, and
// json.Number values round-trip their source literal, so the output is
// stable across decode/encode cycles.
func CanonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical json: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
