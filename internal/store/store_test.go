package store

import (
	"context"
	"path/filepath"
	"testing"
)

// testDBPath returns a temporary path for test databases
func testDBPath(t *testing.T) string {
	tmpDir := t.TempDir()
	return filepath.Join(tmpDir, "wiki.db")
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(testDBPath(t))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestOpen_Success tests database creation
func TestOpen_Success(t *testing.T) {
	path := testDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}

// TestClose tests database cleanup
func TestClose(t *testing.T) {
	db, err := Open(testDBPath(t))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}

	// Calling Close() again should be safe
	if err := db.Close(); err != nil {
		t.Errorf("Second Close() failed: %v", err)
	}
}

// TestQueryRows_StringColumns tests that text and blob values scan as strings
func TestQueryRows_StringColumns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Exec(ctx, "CREATE TABLE samples (id INTEGER PRIMARY KEY, name TEXT, score INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := db.Exec(ctx, "INSERT INTO samples (name, score) VALUES (?, ?)", "Gold", 42); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, err := db.QueryRows(ctx, "SELECT id, name, score FROM samples")
	if err != nil {
		t.Fatalf("QueryRows() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	if name, ok := rows[0]["name"].(string); !ok || name != "Gold" {
		t.Errorf("name = %v (%T), want string Gold", rows[0]["name"], rows[0]["name"])
	}
	if score, ok := rows[0]["score"].(int64); !ok || score != 42 {
		t.Errorf("score = %v (%T), want int64 42", rows[0]["score"], rows[0]["score"])
	}
}

// TestQueryInt tests single-value queries
func TestQueryInt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Exec(ctx, "CREATE TABLE things (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := db.Exec(ctx, "INSERT INTO things DEFAULT VALUES"); err != nil {
			t.Fatal(err)
		}
	}

	n, err := db.QueryInt(ctx, "SELECT COUNT(*) FROM things")
	if err != nil {
		t.Fatalf("QueryInt() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

// TestTables tests table introspection
func TestTables(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Exec(ctx, "CREATE TABLE factions (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT)"); err != nil {
		t.Fatal(err)
	}
	if err := db.Exec(ctx, "INSERT INTO factions (name) VALUES ('Emberfall')"); err != nil {
		t.Fatal(err)
	}

	tables, err := db.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables() failed: %v", err)
	}
	if !tables["factions"] {
		t.Error("factions table missing from introspection")
	}
	// AUTOINCREMENT tables materialize sqlite_sequence on first insert
	if !tables["sqlite_sequence"] {
		t.Error("sqlite_sequence missing after AUTOINCREMENT insert")
	}
}

// TestColumns tests column introspection
func TestColumns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Exec(ctx, "CREATE TABLE gear (id INTEGER PRIMARY KEY, name TEXT, last_updated INTEGER)"); err != nil {
		t.Fatal(err)
	}

	cols, err := db.Columns(ctx, "gear")
	if err != nil {
		t.Fatalf("Columns() failed: %v", err)
	}
	if cols["name"] != "TEXT" {
		t.Errorf("name type = %q, want TEXT", cols["name"])
	}
	if cols["last_updated"] != "INTEGER" {
		t.Errorf("last_updated type = %q, want INTEGER", cols["last_updated"])
	}

	missing, err := db.Columns(ctx, "no_such_table")
	if err != nil {
		t.Fatalf("Columns() on missing table failed: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("missing table should have no columns, got %v", missing)
	}
}

// TestHasForeignKey tests foreign key introspection
func TestHasForeignKey(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Exec(ctx, "CREATE TABLE codes (id INTEGER PRIMARY KEY, code TEXT)"); err != nil {
		t.Fatal(err)
	}
	if err := db.Exec(ctx, `CREATE TABLE code_rewards (
		id INTEGER PRIMARY KEY,
		code_id INTEGER REFERENCES codes(id),
		quantity INTEGER
	)`); err != nil {
		t.Fatal(err)
	}

	ok, err := db.HasForeignKey(ctx, "code_rewards", "code_id", "codes")
	if err != nil {
		t.Fatalf("HasForeignKey() failed: %v", err)
	}
	if !ok {
		t.Error("expected foreign key code_rewards.code_id -> codes")
	}

	ok, err = db.HasForeignKey(ctx, "code_rewards", "quantity", "codes")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("quantity should not be a foreign key")
	}
}

// TestLoadConfig_Defaults tests store.toml handling
func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Remote != "origin" || cfg.Branch != "main" {
		t.Errorf("defaults = %+v", cfg)
	}

	cfg.Branch = "wiki-data"
	cfg.Author.Name = "sync-bot"
	if err := WriteConfig(dir, cfg); err != nil {
		t.Fatalf("WriteConfig() failed: %v", err)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() after write failed: %v", err)
	}
	if loaded.Branch != "wiki-data" {
		t.Errorf("Branch = %q, want wiki-data", loaded.Branch)
	}
	if loaded.Author.Name != "sync-bot" {
		t.Errorf("Author.Name = %q, want sync-bot", loaded.Author.Name)
	}
	if loaded.Remote != "origin" {
		t.Errorf("Remote = %q, want origin", loaded.Remote)
	}
}
