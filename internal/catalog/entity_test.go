package catalog

import (
	"encoding/json"
	"testing"
)

func TestDecodeEntities_PreservesNumberLiterals(t *testing.T) {
	entities, err := DecodeEntities([]byte(`[{"name":"Gold","quantity":10.50}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	n, ok := entities[0]["quantity"].(json.Number)
	if !ok {
		t.Fatalf("quantity decoded as %T, want json.Number", entities[0]["quantity"])
	}
	if n.String() != "10.50" {
		t.Errorf("quantity literal = %s, want 10.50", n)
	}
}

func TestDecodeEntities_RejectsNonObjects(t *testing.T) {
	if _, err := DecodeEntities([]byte(`[{"name":"a"}, "b"]`)); err == nil {
		t.Error("expected error for scalar element")
	}
	if _, err := DecodeEntities([]byte(`{"name":"a"}`)); err == nil {
		t.Error("expected error for non-array document")
	}
}

func TestEntityAccessors(t *testing.T) {
	entities, err := DecodeEntities([]byte(`[{
		"name": "Stormcaller",
		"is_global": true,
		"height": "182cm",
		"rank": 3,
		"score": 4.5,
		"tags": ["wind", "storm"],
		"stats": {"attack": 120},
		"skills": [{"name": "Gale"}, "stray"]
	}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	e := entities[0]

	if e.Str("name") != "Stormcaller" {
		t.Errorf("Str(name) = %q", e.Str("name"))
	}
	if e.Str("is_global") != "true" {
		t.Errorf("Str(is_global) = %q, want true", e.Str("is_global"))
	}
	if e.Str("missing") != "" {
		t.Errorf("Str on missing key = %q, want empty", e.Str("missing"))
	}
	if e.Int("rank") != 3 {
		t.Errorf("Int(rank) = %d", e.Int("rank"))
	}
	if e.Float("score") != 4.5 {
		t.Errorf("Float(score) = %v", e.Float("score"))
	}
	if !e.Bool("is_global") {
		t.Error("Bool(is_global) should be true")
	}
	if e.Bool("missing") {
		t.Error("Bool on missing key should be false")
	}
	if !e.Has("height") || e.Has("weight") {
		t.Error("Has misreports presence")
	}
	if got := e.Strings("tags"); len(got) != 2 || got[0] != "wind" {
		t.Errorf("Strings(tags) = %v", got)
	}
	if e.Map("stats").Int("attack") != 120 {
		t.Errorf("Map(stats) attack = %d", e.Map("stats").Int("attack"))
	}
	if got := e.Maps("skills"); len(got) != 1 || got[0].Str("name") != "Gale" {
		t.Errorf("Maps(skills) = %v, want the one object element", got)
	}
}

func TestEntityClone(t *testing.T) {
	e := Entity{"name": "a", "rarity": "Epic"}
	c := e.Clone()
	c["rarity"] = "Common"
	if e.Str("rarity") != "Epic" {
		t.Error("Clone should not share top-level storage")
	}
}
