// Package sync projects the JSON data files into the relational store. One
// run loads the documents the requested target needs, brings the schema up
// to date, replaces each targeted category's rows in canonical order inside
// a single transaction, and records the content hash and resolved timestamp
// every entity carried into the hash store.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/davrico/lorevault/internal/catalog"
	"github.com/davrico/lorevault/internal/hashstore"
	"github.com/davrico/lorevault/internal/schema"
	"github.com/davrico/lorevault/internal/store"
)

// SyncError is a hard failure that aborts the run before anything commits:
// a duplicate identity, a load-bearing reference that does not resolve, or
// a statement the store rejected.
type SyncError struct {
	Category string
	Msg      string
}

func (e *SyncError) Error() string {
	if e.Category == "" {
		return "sync: " + e.Msg
	}
	return "sync " + e.Category + ": " + e.Msg
}

func syncErrorf(category, format string, args ...any) *SyncError {
	return &SyncError{Category: category, Msg: fmt.Sprintf(format, args...)}
}

// Config controls one Syncer. Zero values fall back to stdout and the
// default slog logger.
type Config struct {
	Now    int64
	DryRun bool
	Out    io.Writer
	Logger *slog.Logger
}

// Result summarizes a completed sync.
type Result struct {
	Categories []string
	Statements int
	Tables     []string // tables the ensurer created
	Warnings   []string
	DryRun     bool
}

// Syncer runs one sync against one database. It is single-use: the batch,
// the pre-loaded documents, and the newly computed hashes all belong to a
// single run.
type Syncer struct {
	db     *store.DB
	batch  *store.Batch
	hashes *hashstore.Store
	docs   map[string][]catalog.Entity

	now    int64
	dryRun bool
	out    io.Writer
	logger *slog.Logger

	// hasSeq records whether sqlite_sequence exists after the ensurer ran.
	// A brand-new database has no sequence table until the first insert,
	// so the reset statement must not be emitted then.
	hasSeq bool

	newHashes map[string]hashstore.Entries
	warnings  []string
}

// New builds a Syncer over an open database and the loaded hash store.
func New(db *store.DB, hashes *hashstore.Store, cfg Config) *Syncer {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	batch := store.NewBatch(db)
	batch.DryRun = cfg.DryRun
	batch.Out = cfg.Out
	return &Syncer{
		db:        db,
		batch:     batch,
		hashes:    hashes,
		docs:      make(map[string][]catalog.Entity),
		now:       cfg.Now,
		dryRun:    cfg.DryRun,
		out:       cfg.Out,
		logger:    cfg.Logger,
		newHashes: make(map[string]hashstore.Entries),
	}
}

// LoadDocuments reads the given JSON files from dataDir. A missing file is
// a warning and loads as empty, so a data set that has not adopted every
// category still syncs.
func (s *Syncer) LoadDocuments(dataDir string, files []string) error {
	for _, f := range files {
		path := filepath.Join(dataDir, f)
		entities, err := catalog.LoadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				s.warnf("%s not found, skipping", f)
				s.docs[f] = nil
				continue
			}
			return err
		}
		s.docs[f] = entities
	}
	return nil
}

// SetDocument injects one document directly, bypassing the filesystem.
func (s *Syncer) SetDocument(file string, entities []catalog.Entity) {
	s.docs[file] = entities
}

// Sync runs the full pipeline for target ("all" or one category name):
// ensure schema, normalize each planned category into the batch, flush the
// batch transactionally, and merge the new hashes into the hash store. The
// hash store file is only rewritten on a real, successful run.
func (s *Syncer) Sync(ctx context.Context, target string) (*Result, error) {
	plan, err := catalog.Plan(target)
	if err != nil {
		return nil, err
	}

	ensured, err := schema.Ensure(ctx, s.db, s.dryRun, s.out)
	if err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	s.warnings = append(s.warnings, ensured.Warnings...)

	tables, err := s.db.Tables(ctx)
	if err != nil {
		return nil, err
	}
	// On a dry run against a fresh database the sequence table never
	// appears, which matches the previews doing no inserts either.
	s.hasSeq = tables["sqlite_sequence"]

	resourceIDs := buildResourceIDMap(s.doc("resources.json"))
	subclassIDs, subclassRoleMap := buildSubclassMaps(s.doc("subclasses.json"))

	result := &Result{Tables: ensured.Created, DryRun: s.dryRun}
	for _, cat := range plan {
		if err := s.syncCategory(ctx, cat, target, resourceIDs, subclassIDs, subclassRoleMap); err != nil {
			return nil, err
		}
		result.Categories = append(result.Categories, cat.Name)
	}

	n, err := s.batch.Flush(ctx)
	if err != nil {
		return nil, err
	}
	result.Statements = n

	if !s.dryRun {
		for table, entries := range s.newHashes {
			s.hashes.Merge(table, entries)
		}
		if err := s.hashes.Save(); err != nil {
			return nil, err
		}
	}

	result.Warnings = s.warnings
	return result, nil
}

func (s *Syncer) syncCategory(ctx context.Context, cat *catalog.Category, target string, resourceIDs map[string]int64, subclassIDs map[string]int64, subclassRoleMap map[string][]string) error {
	switch cat.Name {
	case "factions":
		return s.syncFactions(ctx, target == "factions")
	case "subclasses":
		return s.syncSubclasses(ctx)
	case "characters":
		return s.syncCharacters(ctx, subclassIDs, subclassRoleMap)
	case "spells":
		return s.syncSpells(ctx)
	case "weapons":
		return s.syncWeapons(ctx)
	case "resources":
		return s.syncResources(ctx, resourceIDs, target == "resources")
	case "codes":
		return s.syncCodes(ctx, resourceIDs)
	case "status-effects":
		return s.syncStatusEffects(ctx)
	case "tier-lists":
		return s.syncTierLists(ctx)
	case "teams":
		return s.syncTeams(ctx)
	case "useful-links":
		return s.syncUsefulLinks(ctx)
	case "relics":
		return s.syncRelics(ctx)
	case "companions":
		return s.syncCompanions(ctx)
	case "gear":
		return s.syncGear(ctx)
	case "bonds":
		return s.syncBonds(ctx)
	case "changelog":
		return s.syncChangelog(ctx)
	default:
		return syncErrorf("", "no normalizer registered for category %q", cat.Name)
	}
}

// doc returns a loaded document, nil when absent.
func (s *Syncer) doc(file string) []catalog.Entity {
	return s.docs[file]
}

// sortedDoc returns a document's entities copied and ordered by the key.
func (s *Syncer) sortedDoc(file string, key catalog.KeyFunc) []catalog.Entity {
	sorted := append([]catalog.Entity(nil), s.docs[file]...)
	catalog.SortEntities(sorted, key)
	return sorted
}

func (s *Syncer) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.warnings = append(s.warnings, msg)
	s.logger.Warn(msg)
}

// recordHash remembers an entity's freshly computed hash and resolved
// timestamp for the hash store merge at the end of the run.
func (s *Syncer) recordHash(table, identity, hash string, ts int64) {
	entries, ok := s.newHashes[table]
	if !ok {
		entries = hashstore.Entries{}
		s.newHashes[table] = entries
	}
	entries[identity] = hashstore.Entry{Hash: hash, TS: ts}
}

// clearTables queues delete-all statements in the given order (children
// before parents) and resets each table's ID sequence.
func (s *Syncer) clearTables(tables ...string) {
	for _, t := range tables {
		s.batch.Add("DELETE FROM " + t)
	}
	if !s.hasSeq {
		return
	}
	for _, t := range tables {
		s.batch.Add("DELETE FROM sqlite_sequence WHERE name = ?", t)
	}
}

// checkDuplicates enforces identity uniqueness within one category. Two
// entities sharing an identity would otherwise be silently renumbered into
// distinct rows, so this is a hard error rather than last-write-wins.
func checkDuplicates(category, field string, entities []catalog.Entity) error {
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		v := strings.TrimSpace(e.Str(field))
		if v == "" {
			continue
		}
		if seen[v] {
			return syncErrorf(category, "duplicate %s %q", field, v)
		}
		seen[v] = true
	}
	return nil
}

// strArg maps an entity field to a statement argument, preserving the
// NULL/empty distinction: absent or null fields bind as NULL.
func strArg(e catalog.Entity, key string) any {
	if v, ok := e[key]; !ok || v == nil {
		return nil
	}
	return e.Str(key)
}

// boolField reads a bool with a default for absent fields.
func boolField(e catalog.Entity, key string, def bool) bool {
	if !e.Has(key) {
		return def
	}
	return e.Bool(key)
}

// intArg binds an integer field, NULL when absent.
func intArg(e catalog.Entity, key string) any {
	if v, ok := e[key]; !ok || v == nil {
		return nil
	}
	return e.Int(key)
}
