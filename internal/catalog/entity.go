// Package catalog describes the content categories the sync engine knows
// about: the entity representation shared by every tool, the category
// registry with its dependency graph, the canonical sort keys that make ID
// assignment reproducible, and the content hashing used for change tracking.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Entity is one record from a category's JSON array. Entities stay generic
// maps end to end: hand-edited files may carry fields the sync does not
// model, and those fields still participate in the content hash. Numbers are
// decoded as json.Number so literals survive a round trip unchanged.
type Entity map[string]any

// Str returns the field as a string. Numeric values yield their source
// literal; missing or non-scalar values yield "".
func (e Entity) Str(key string) string {
	switch v := e[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Int returns the field as an int64, tolerating numeric strings. Missing or
// unparseable values yield 0.
func (e Entity) Int(key string) int64 {
	switch v := e[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Float returns the field as a float64, or 0 when absent.
func (e Entity) Float(key string) float64 {
	switch v := e[key].(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}

// Bool reports whether the field holds a truthy value: true, a non-zero
// number, or a non-empty string.
func (e Entity) Bool(key string) bool {
	switch v := e[key].(type) {
	case bool:
		return v
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case string:
		return v != ""
	}
	return false
}

// Has reports whether the field is present at all.
func (e Entity) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// List returns the field as a raw slice, or nil.
func (e Entity) List(key string) []any {
	v, _ := e[key].([]any)
	return v
}

// Map returns an object-valued field as an Entity, or nil.
func (e Entity) Map(key string) Entity {
	if v, ok := e[key].(map[string]any); ok {
		return Entity(v)
	}
	if v, ok := e[key].(Entity); ok {
		return v
	}
	return nil
}

// Maps returns a list-of-objects field, skipping elements that are not
// objects.
func (e Entity) Maps(key string) []Entity {
	raw := e.List(key)
	if raw == nil {
		return nil
	}
	out := make([]Entity, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Entity(m))
		}
	}
	return out
}

// Strings returns a list field's scalar elements as strings, skipping
// anything that is neither a string nor a number.
func (e Entity) Strings(key string) []string {
	raw := e.List(key)
	if raw == nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case json.Number:
			out = append(out, v.String())
		}
	}
	return out
}

// Clone returns a shallow copy of the entity.
func (e Entity) Clone() Entity {
	out := make(Entity, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// DecodeEntities parses a JSON array of objects. Elements that are not
// objects are rejected, since every category document is an array of
// entities.
func DecodeEntities(data []byte) ([]Entity, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	entities := make([]Entity, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parse document: element %d is not an object", i)
		}
		entities = append(entities, Entity(m))
	}
	return entities, nil
}

// LoadFile reads one category document from disk.
func LoadFile(path string) ([]Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entities, err := DecodeEntities(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entities, nil
}
