package sync

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davrico/lorevault/internal/catalog"
	"github.com/davrico/lorevault/internal/hashstore"
	"github.com/davrico/lorevault/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	db       *store.DB
	hashPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "wiki.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &testEnv{db: db, hashPath: filepath.Join(dir, "hashes.json")}
}

func (env *testEnv) newSyncer(t *testing.T, now int64, dryRun bool, out io.Writer) *Syncer {
	t.Helper()
	hashes, err := hashstore.Load(env.hashPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if out == nil {
		out = io.Discard
	}
	return New(env.db, hashes, Config{Now: now, DryRun: dryRun, Out: out, Logger: quietLogger()})
}

func TestSync_ResourcesCanonicalIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	s := env.newSyncer(t, 1000, false, nil)
	s.SetDocument("resources.json", []catalog.Entity{
		{"name": "Wood", "category": "Material", "rarity": "Common"},
		{"name": "Gold", "category": "Currency", "rarity": "Common"},
		{"name": "Gems", "category": "Currency", "rarity": "Rare"},
	})
	s.SetDocument("codes.json", nil)

	result, err := s.Sync(ctx, "resources")
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}
	if result.Statements == 0 {
		t.Error("no statements executed")
	}

	rows, err := env.db.QueryRows(ctx, "SELECT id, name, last_updated FROM resources ORDER BY id")
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []string{"Gems", "Gold", "Wood"}
	if len(rows) != len(wantOrder) {
		t.Fatalf("got %d rows, want %d", len(rows), len(wantOrder))
	}
	for i, row := range rows {
		if row["name"] != wantOrder[i] {
			t.Errorf("row %d name = %v, want %s", i, row["name"], wantOrder[i])
		}
		if row["id"] != int64(i+1) {
			t.Errorf("row %d id = %v, want %d", i, row["id"], i+1)
		}
		if row["last_updated"] != int64(1000) {
			t.Errorf("row %d last_updated = %v, want 1000", i, row["last_updated"])
		}
	}

	if _, err := os.Stat(env.hashPath); err != nil {
		t.Errorf("hash store not written: %v", err)
	}
}

func TestSync_TimestampsSurviveUnchangedContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := []catalog.Entity{{"name": "Gold", "category": "Currency"}}

	s := env.newSyncer(t, 1000, false, nil)
	s.SetDocument("resources.json", doc)
	s.SetDocument("codes.json", nil)
	if _, err := s.Sync(ctx, "resources"); err != nil {
		t.Fatal(err)
	}

	// Same content, later run: the hash store keeps the old timestamp.
	s2 := env.newSyncer(t, 2000, false, nil)
	s2.SetDocument("resources.json", doc)
	s2.SetDocument("codes.json", nil)
	if _, err := s2.Sync(ctx, "resources"); err != nil {
		t.Fatal(err)
	}
	ts, err := env.db.QueryInt(ctx, "SELECT last_updated FROM resources WHERE name = 'Gold'")
	if err != nil {
		t.Fatal(err)
	}
	if ts != 1000 {
		t.Errorf("unchanged entity last_updated = %d, want 1000", ts)
	}

	// Changed content bumps to the run's clock.
	s3 := env.newSyncer(t, 3000, false, nil)
	s3.SetDocument("resources.json", []catalog.Entity{
		{"name": "Gold", "category": "Currency", "description": "shiny"},
	})
	s3.SetDocument("codes.json", nil)
	if _, err := s3.Sync(ctx, "resources"); err != nil {
		t.Fatal(err)
	}
	ts, err = env.db.QueryInt(ctx, "SELECT last_updated FROM resources WHERE name = 'Gold'")
	if err != nil {
		t.Fatal(err)
	}
	if ts != 3000 {
		t.Errorf("changed entity last_updated = %d, want 3000", ts)
	}
}

func TestSync_DuplicateIdentityFails(t *testing.T) {
	env := newTestEnv(t)

	s := env.newSyncer(t, 1000, false, nil)
	s.SetDocument("resources.json", []catalog.Entity{
		{"name": "Gold"},
		{"name": "Gold"},
	})
	s.SetDocument("codes.json", nil)

	_, err := s.Sync(context.Background(), "resources")
	if err == nil {
		t.Fatal("expected duplicate identity error")
	}
	if !strings.Contains(err.Error(), "duplicate") || !strings.Contains(err.Error(), "Gold") {
		t.Errorf("error = %v, want duplicate Gold", err)
	}
	if _, statErr := os.Stat(env.hashPath); !os.IsNotExist(statErr) {
		t.Error("hash store written despite failed sync")
	}
}

func TestSync_CodeRewardsBothShapes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	s := env.newSyncer(t, 1000, false, nil)
	s.SetDocument("resources.json", []catalog.Entity{
		{"name": "Gold", "category": "Currency"},
		{"name": "Wood", "category": "Material"},
	})
	s.SetDocument("codes.json", []catalog.Entity{
		{"code": "ALPHA", "rewards": []any{
			map[string]any{"name": "Wood", "quantity": 5},
			map[string]any{"name": "Gold", "quantity": 100},
		}},
		{"code": "BETA", "rewards": map[string]any{"Gold": 50}},
	})

	if _, err := s.Sync(ctx, "all"); err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	rows, err := env.db.QueryRows(ctx, `
		SELECT c.code, r.name AS resource, cr.quantity
		FROM code_rewards cr
		JOIN codes c ON c.id = cr.code_id
		JOIN resources r ON r.id = cr.resource_id
		ORDER BY cr.id`)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d reward rows, want 3", len(rows))
	}
	// List form keeps its order; ALPHA comes before BETA by code.
	if rows[0]["resource"] != "Wood" || rows[0]["quantity"] != int64(5) {
		t.Errorf("first reward = %v", rows[0])
	}
	if rows[1]["resource"] != "Gold" || rows[1]["quantity"] != int64(100) {
		t.Errorf("second reward = %v", rows[1])
	}
	if rows[2]["code"] != "BETA" || rows[2]["resource"] != "Gold" || rows[2]["quantity"] != int64(50) {
		t.Errorf("third reward = %v", rows[2])
	}
}

func TestSync_UnknownRewardResourceFails(t *testing.T) {
	env := newTestEnv(t)

	s := env.newSyncer(t, 1000, false, nil)
	s.SetDocument("resources.json", []catalog.Entity{{"name": "Gold"}})
	s.SetDocument("codes.json", []catalog.Entity{
		{"code": "ALPHA", "rewards": map[string]any{"Unobtainium": 1}},
	})

	_, err := s.Sync(context.Background(), "all")
	if err == nil {
		t.Fatal("expected hard error for unknown reward resource")
	}
	if !strings.Contains(err.Error(), "Unobtainium") {
		t.Errorf("error = %v, want mention of Unobtainium", err)
	}
}

func TestSync_SoftReferencesWarn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	s := env.newSyncer(t, 1000, false, nil)
	s.SetDocument("factions.json", []catalog.Entity{{"name": "Dawnguard"}})
	s.SetDocument("characters.json", []catalog.Entity{
		{
			"name":     "Alia",
			"role":     "Mage",
			"rarity":   "Epic",
			"factions": []any{"Dawnguard", "Nightwatch"},
			"subclasses": []any{"Stormcaller"},
		},
	})

	result, err := s.Sync(ctx, "all")
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	var unknownFaction, unknownSubclass bool
	for _, w := range result.Warnings {
		if strings.Contains(w, "Nightwatch") {
			unknownFaction = true
		}
		if strings.Contains(w, "Stormcaller") {
			unknownSubclass = true
		}
	}
	if !unknownFaction {
		t.Errorf("no warning for unknown faction, warnings: %v", result.Warnings)
	}
	if !unknownSubclass {
		t.Errorf("no warning for unknown subclass, warnings: %v", result.Warnings)
	}

	// Known faction link kept, unknown skipped.
	count, err := env.db.QueryInt(ctx, "SELECT COUNT(*) FROM character_factions")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("character_factions rows = %d, want 1", count)
	}

	// Unknown subclass keeps its name row with a NULL subclass_id.
	rows, err := env.db.QueryRows(ctx, "SELECT subclass_id, subclass_name FROM character_subclasses")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["subclass_name"] != "Stormcaller" || rows[0]["subclass_id"] != nil {
		t.Errorf("character_subclasses rows = %v", rows)
	}
}

func TestSync_DryRunChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	var out bytes.Buffer

	s := env.newSyncer(t, 1000, true, &out)
	s.SetDocument("resources.json", []catalog.Entity{{"name": "Gold"}})
	s.SetDocument("codes.json", nil)

	result, err := s.Sync(context.Background(), "resources")
	if err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}
	if !result.DryRun {
		t.Error("result not marked dry run")
	}
	if !strings.Contains(out.String(), "INSERT INTO resources") {
		t.Error("dry run printed no insert previews")
	}
	if _, statErr := os.Stat(env.hashPath); !os.IsNotExist(statErr) {
		t.Error("hash store written on dry run")
	}

	tables, err := env.db.Tables(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tables["resources"] {
		t.Error("dry run created tables")
	}
}

func TestSync_FullReplaceDropsStaleRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	s := env.newSyncer(t, 1000, false, nil)
	s.SetDocument("resources.json", []catalog.Entity{{"name": "Gold"}, {"name": "Wood"}})
	s.SetDocument("codes.json", nil)
	if _, err := s.Sync(ctx, "resources"); err != nil {
		t.Fatal(err)
	}

	s2 := env.newSyncer(t, 2000, false, nil)
	s2.SetDocument("resources.json", []catalog.Entity{{"name": "Wood"}})
	s2.SetDocument("codes.json", nil)
	if _, err := s2.Sync(ctx, "resources"); err != nil {
		t.Fatal(err)
	}

	rows, err := env.db.QueryRows(ctx, "SELECT id, name FROM resources")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Wood" || rows[0]["id"] != int64(1) {
		t.Errorf("rows after replace = %v, want single Wood with id 1", rows)
	}
}

func TestSync_GearSetMerge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	s := env.newSyncer(t, 1000, false, nil)
	s.SetDocument("gear_sets.json", []catalog.Entity{
		{"name": "Wolf", "set_bonus": map[string]any{"quantity": 2, "description": "ATK +10%"}},
	})
	s.SetDocument("gear.json", []catalog.Entity{
		{"name": "Wolf Fang", "set": "Wolf", "type": "Weapon",
			// Legacy embedded bonus loses to the dedicated file.
			"set_bonus": map[string]any{"quantity": 4, "description": "stale"}},
		{"name": "Bear Claw", "set": "Bear", "type": "Weapon",
			"set_bonus": map[string]any{"quantity": 3, "description": "DEF +5%"}},
	})

	if _, err := s.Sync(ctx, "gear"); err != nil {
		t.Fatalf("Sync() failed: %v", err)
	}

	rows, err := env.db.QueryRows(ctx,
		"SELECT name, bonus_quantity, bonus_description FROM gear_sets ORDER BY id")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d gear sets, want 2", len(rows))
	}
	if rows[0]["name"] != "Bear" || rows[0]["bonus_quantity"] != int64(3) {
		t.Errorf("first set = %v, want Bear quantity 3", rows[0])
	}
	if rows[1]["name"] != "Wolf" || rows[1]["bonus_quantity"] != int64(2) || rows[1]["bonus_description"] != "ATK +10%" {
		t.Errorf("second set = %v, want Wolf from gear_sets.json", rows[1])
	}

	linked, err := env.db.QueryInt(ctx,
		"SELECT COUNT(*) FROM gear g JOIN gear_sets s ON s.id = g.set_id")
	if err != nil {
		t.Fatal(err)
	}
	if linked != 2 {
		t.Errorf("linked gear rows = %d, want 2", linked)
	}
}

func TestSync_GearHashIgnoresLegacySetBonus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	with := []catalog.Entity{
		{"name": "Wolf Fang", "set": "Wolf", "type": "Weapon",
			"set_bonus": map[string]any{"quantity": 2, "description": "ATK +10%"}},
	}
	without := []catalog.Entity{
		{"name": "Wolf Fang", "set": "Wolf", "type": "Weapon"},
	}
	sets := []catalog.Entity{
		{"name": "Wolf", "set_bonus": map[string]any{"quantity": 2, "description": "ATK +10%"}},
	}

	s := env.newSyncer(t, 1000, false, nil)
	s.SetDocument("gear.json", with)
	s.SetDocument("gear_sets.json", nil)
	if _, err := s.Sync(ctx, "gear"); err != nil {
		t.Fatal(err)
	}

	// The bonus moved into gear_sets.json; the item itself did not change.
	s2 := env.newSyncer(t, 2000, false, nil)
	s2.SetDocument("gear.json", without)
	s2.SetDocument("gear_sets.json", sets)
	if _, err := s2.Sync(ctx, "gear"); err != nil {
		t.Fatal(err)
	}

	ts, err := env.db.QueryInt(ctx, "SELECT last_updated FROM gear WHERE name = 'Wolf Fang'")
	if err != nil {
		t.Fatal(err)
	}
	if ts != 1000 {
		t.Errorf("gear last_updated = %d, want 1000 (legacy bonus excluded from hash)", ts)
	}
}

func TestSync_TargetFactionsRebuildsCharacterLinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	factions := []catalog.Entity{{"name": "Dawnguard"}, {"name": "Nightwatch"}}
	characters := []catalog.Entity{
		{"name": "Alia", "role": "Mage", "factions": []any{"Dawnguard"}},
	}

	s := env.newSyncer(t, 1000, false, nil)
	s.SetDocument("factions.json", factions)
	s.SetDocument("characters.json", characters)
	if _, err := s.Sync(ctx, "all"); err != nil {
		t.Fatal(err)
	}

	// A faction-only run clears character_factions and must rebuild it from
	// characters.json against the character rows already in the database.
	s2 := env.newSyncer(t, 2000, false, nil)
	s2.SetDocument("factions.json", factions)
	s2.SetDocument("characters.json", characters)
	s2.SetDocument("relics.json", nil)
	if _, err := s2.Sync(ctx, "factions"); err != nil {
		t.Fatal(err)
	}

	rows, err := env.db.QueryRows(ctx, `
		SELECT c.name AS character, f.name AS faction
		FROM character_factions cf
		JOIN characters c ON c.id = cf.character_id
		JOIN factions f ON f.id = cf.faction_id`)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["character"] != "Alia" || rows[0]["faction"] != "Dawnguard" {
		t.Errorf("rebuilt links = %v", rows)
	}
}

func TestSync_CharacterFactionsKeepAuthorOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Nightwatch syncs after Dawnguard (higher faction_id), but Alia lists
	// it first; sort_order must follow the JSON list, not the IDs.
	factions := []catalog.Entity{{"name": "Dawnguard"}, {"name": "Nightwatch"}}
	characters := []catalog.Entity{
		{"name": "Alia", "role": "Mage", "factions": []any{"Nightwatch", "Dawnguard"}},
	}

	s := env.newSyncer(t, 1000, false, nil)
	s.SetDocument("factions.json", factions)
	s.SetDocument("characters.json", characters)
	if _, err := s.Sync(ctx, "all"); err != nil {
		t.Fatal(err)
	}

	rows, err := env.db.QueryRows(ctx, `
		SELECT f.name AS faction
		FROM character_factions cf
		JOIN factions f ON f.id = cf.faction_id
		ORDER BY cf.sort_order`)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0]["faction"] != "Nightwatch" || rows[1]["faction"] != "Dawnguard" {
		t.Errorf("faction order = %v, want Nightwatch then Dawnguard", rows)
	}

	// The faction-only rebuild preserves the same ordering.
	s2 := env.newSyncer(t, 2000, false, nil)
	s2.SetDocument("factions.json", factions)
	s2.SetDocument("characters.json", characters)
	s2.SetDocument("relics.json", nil)
	if _, err := s2.Sync(ctx, "factions"); err != nil {
		t.Fatal(err)
	}
	rows, err = env.db.QueryRows(ctx, `
		SELECT f.name AS faction
		FROM character_factions cf
		JOIN factions f ON f.id = cf.faction_id
		ORDER BY cf.sort_order`)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0]["faction"] != "Nightwatch" {
		t.Errorf("rebuilt faction order = %v, want Nightwatch first", rows)
	}
}

func TestSync_SubclassRelinkMatchesRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	subclasses := []catalog.Entity{
		{"name": "Stormcaller", "role": "Mage", "tier": 1},
	}
	characters := []catalog.Entity{
		{"name": "Alia", "role": "Mage", "subclasses": []any{"Stormcaller"}},
	}

	s := env.newSyncer(t, 1000, false, nil)
	s.SetDocument("subclasses.json", subclasses)
	s.SetDocument("characters.json", characters)
	if _, err := s.Sync(ctx, "all"); err != nil {
		t.Fatal(err)
	}

	// A subclass-only run renumbers subclasses and must relink the existing
	// character_subclasses rows by name and role.
	s2 := env.newSyncer(t, 2000, false, nil)
	s2.SetDocument("subclasses.json", subclasses)
	if _, err := s2.Sync(ctx, "subclasses"); err != nil {
		t.Fatal(err)
	}

	rows, err := env.db.QueryRows(ctx, `
		SELECT s.name FROM character_subclasses cs
		JOIN subclasses s ON s.id = cs.subclass_id`)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Stormcaller" {
		t.Errorf("relinked rows = %v, want Stormcaller", rows)
	}
}

func TestSync_DeterministicStatements(t *testing.T) {
	docs := map[string][]catalog.Entity{
		"resources.json": {
			{"name": "Wood", "category": "Material"},
			{"name": "Gold", "category": "Currency"},
		},
		"codes.json": {
			{"code": "ALPHA", "rewards": map[string]any{"Gold": 1, "Wood": 2}},
		},
	}

	render := func(t *testing.T) string {
		env := newTestEnv(t)
		var out bytes.Buffer
		s := env.newSyncer(t, 1000, true, &out)
		for file, doc := range docs {
			s.SetDocument(file, doc)
		}
		if _, err := s.Sync(context.Background(), "all"); err != nil {
			t.Fatal(err)
		}
		return out.String()
	}

	first := render(t)
	for i := 0; i < 5; i++ {
		if got := render(t); got != first {
			t.Fatalf("run %d produced different statements", i+2)
		}
	}
}
