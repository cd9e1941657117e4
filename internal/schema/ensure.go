package schema

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davrico/lorevault/internal/store"
)

// Result reports what Ensure changed. On a dry run the counts reflect
// what a real run would have done.
type Result struct {
	Created  []string // tables created from the canonical DDL
	Actions  int      // DDL and backfill statements executed or previewed
	Warnings []string
}

// Ensure brings a live database up to date with the canonical layout.
// Missing tables are created first, then older databases get the
// column migrations they need. With dryRun set, every statement is
// printed to out instead of executed; the gate queries that decide
// whether a legacy column can be dropped only read the database, so a
// dry run reaches the same decisions a real run would.
func Ensure(ctx context.Context, db *store.DB, dryRun bool, out io.Writer) (*Result, error) {
	if out == nil {
		out = os.Stdout
	}
	e := &ensurer{
		ctx:     ctx,
		db:      db,
		dryRun:  dryRun,
		out:     out,
		virtual: make(map[string]bool),
		res:     &Result{},
	}
	if err := e.run(); err != nil {
		return nil, err
	}
	return e.res, nil
}

type ensurer struct {
	ctx    context.Context
	db     *store.DB
	dryRun bool
	out    io.Writer

	// virtual marks tables created this run. They already have the
	// canonical shape, so their column migrations are skipped. On a
	// dry run they also do not exist yet, so gate queries must not
	// touch them.
	virtual map[string]bool

	res *Result
}

func (e *ensurer) run() error {
	if err := e.createMissingTables(); err != nil {
		return err
	}
	for _, table := range TimestampTables {
		if err := e.ensureTrackingColumns(table); err != nil {
			return err
		}
	}
	if err := e.ensureResourceColumns(); err != nil {
		return err
	}
	if err := e.ensureSpellColumns(); err != nil {
		return err
	}
	if err := e.ensureGearColumns(); err != nil {
		return err
	}
	if err := e.dropLegacyCompanionColumns(); err != nil {
		return err
	}
	if err := e.ensureCharacterSubclassShape(); err != nil {
		return err
	}
	if err := e.ensureCharacterFactionOrder(); err != nil {
		return err
	}
	return e.ensureCodeRewardShape()
}

// exec runs (or previews) one schema statement.
func (e *ensurer) exec(sql string) error {
	e.res.Actions++
	if e.dryRun {
		fmt.Fprintf(e.out, "  SQL: %s\n", oneline(sql))
		return nil
	}
	return e.db.Exec(e.ctx, sql)
}

func (e *ensurer) logf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}

func (e *ensurer) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.res.Warnings = append(e.res.Warnings, msg)
	fmt.Fprintf(e.out, "  Warning: %s\n", msg)
}

func (e *ensurer) createMissingTables() error {
	existing, err := e.db.Tables(e.ctx)
	if err != nil {
		return err
	}
	for _, t := range Tables {
		if existing[t.Name] {
			continue
		}
		e.logf("  Creating missing %s table\n", t.Name)
		if err := e.exec(t.DDL); err != nil {
			return err
		}
		e.virtual[t.Name] = true
		e.res.Created = append(e.res.Created, t.Name)
	}
	return nil
}

// ensureTrackingColumns adds last_updated and data_hash where they are
// missing. A last_updated column with a text type is a leftover from
// when timestamps were stored as datetime strings and gets converted
// to unix time.
func (e *ensurer) ensureTrackingColumns(table string) error {
	if e.virtual[table] {
		return nil
	}
	cols, err := e.db.Columns(e.ctx, table)
	if err != nil {
		return err
	}
	typ, ok := cols["last_updated"]
	switch {
	case !ok:
		e.logf("  Adding %s.last_updated column\n", table)
		if err := e.exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN last_updated INTEGER", table)); err != nil {
			return err
		}
	case !strings.Contains(typ, "INT"):
		if err := e.migrateLegacyTimestamps(table); err != nil {
			return err
		}
	}
	if _, ok := cols["data_hash"]; !ok {
		e.logf("  Adding %s.data_hash column\n", table)
		if err := e.exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN data_hash TEXT", table)); err != nil {
			return err
		}
	}
	return nil
}

func (e *ensurer) migrateLegacyTimestamps(table string) error {
	e.logf("  Migrating %s.last_updated to unix time\n", table)

	// Decide up front whether every text timestamp converts, reading
	// the column as it is today so dry runs reach the same answer.
	unresolved, err := e.db.QueryInt(e.ctx, fmt.Sprintf(
		`SELECT COUNT(*) FROM %s
		 WHERE last_updated IS NOT NULL AND last_updated != ''
		   AND strftime('%%s', last_updated) IS NULL`, table))
	if err != nil {
		return err
	}

	steps := []string{
		fmt.Sprintf("ALTER TABLE %s RENAME COLUMN last_updated TO last_updated_legacy", table),
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN last_updated INTEGER", table),
		fmt.Sprintf(
			`UPDATE %s SET last_updated = CAST(strftime('%%s', last_updated_legacy) AS INTEGER)
			 WHERE last_updated_legacy IS NOT NULL AND last_updated_legacy != ''`, table),
	}
	for _, s := range steps {
		if err := e.exec(s); err != nil {
			return err
		}
	}

	if unresolved > 0 {
		e.warnf("keeping %s.last_updated_legacy (%d row(s) did not convert)", table, unresolved)
		return nil
	}
	e.logf("  Dropping legacy %s.last_updated_legacy column\n", table)
	return e.exec(fmt.Sprintf("ALTER TABLE %s DROP COLUMN last_updated_legacy", table))
}

func (e *ensurer) ensureResourceColumns() error {
	if e.virtual["resources"] {
		return nil
	}
	cols, err := e.db.Columns(e.ctx, "resources")
	if err != nil {
		return err
	}
	if _, ok := cols["rarity"]; !ok {
		e.logf("  Adding resources.rarity column\n")
		if err := e.exec("ALTER TABLE resources ADD COLUMN rarity TEXT NOT NULL DEFAULT ''"); err != nil {
			return err
		}
	}
	if _, ok := cols["category"]; !ok {
		e.logf("  Adding resources.category column\n")
		if err := e.exec("ALTER TABLE resources ADD COLUMN category TEXT NOT NULL DEFAULT ''"); err != nil {
			return err
		}
	}
	if _, ok := cols["description"]; !ok {
		e.logf("  Adding resources.description column\n")
		if err := e.exec("ALTER TABLE resources ADD COLUMN description TEXT"); err != nil {
			return err
		}
	}
	return e.backfillNullText("resources", "rarity")
}

func (e *ensurer) ensureSpellColumns() error {
	if e.virtual["spells"] {
		return nil
	}
	cols, err := e.db.Columns(e.ctx, "spells")
	if err != nil {
		return err
	}
	if _, ok := cols["rarity"]; !ok {
		e.logf("  Adding spells.rarity column\n")
		if err := e.exec("ALTER TABLE spells ADD COLUMN rarity TEXT"); err != nil {
			return err
		}
	}
	if _, ok := cols["exclusive_faction"]; !ok {
		e.logf("  Adding spells.exclusive_faction column\n")
		if err := e.exec("ALTER TABLE spells ADD COLUMN exclusive_faction TEXT"); err != nil {
			return err
		}
	}
	if _, ok := cols["is_global"]; !ok {
		e.logf("  Adding spells.is_global column\n")
		if err := e.exec("ALTER TABLE spells ADD COLUMN is_global INTEGER NOT NULL DEFAULT 0"); err != nil {
			return err
		}
	}
	return nil
}

func (e *ensurer) ensureGearColumns() error {
	if e.virtual["gear"] {
		return nil
	}
	cols, err := e.db.Columns(e.ctx, "gear")
	if err != nil {
		return err
	}
	if _, ok := cols["set_id"]; !ok {
		e.logf("  Adding gear.set_id column\n")
		if err := e.exec("ALTER TABLE gear ADD COLUMN set_id INTEGER REFERENCES gear_sets(id)"); err != nil {
			return err
		}
	}
	if _, ok := cols["rarity"]; !ok {
		e.logf("  Adding gear.rarity column\n")
		if err := e.exec("ALTER TABLE gear ADD COLUMN rarity TEXT NOT NULL DEFAULT ''"); err != nil {
			return err
		}
	}
	return e.backfillNullText("gear", "rarity")
}

// backfillNullText rewrites NULLs to empty strings in columns that
// older databases created without NOT NULL.
func (e *ensurer) backfillNullText(table, column string) error {
	n, err := e.db.QueryInt(e.ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE %s IS NULL", table, column))
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	e.logf("  Backfilling %d NULL %s.%s value(s)\n", n, table, column)
	return e.exec(fmt.Sprintf("UPDATE %s SET %s = '' WHERE %s IS NULL", table, column, column))
}

// dropLegacyCompanionColumns removes the flat passive effect text
// columns that predate the companion_passive_effects table. A column
// survives while any companion still has unmigrated text in it.
func (e *ensurer) dropLegacyCompanionColumns() error {
	if e.virtual["companions"] {
		return nil
	}
	cols, err := e.db.Columns(e.ctx, "companions")
	if err != nil {
		return err
	}
	for _, legacy := range []string{"passive_effect", "passive_effects"} {
		if _, ok := cols[legacy]; !ok {
			continue
		}
		var unmigrated int64
		if e.virtual["companion_passive_effects"] {
			// The effects table does not exist yet, so nothing has
			// been migrated out of the legacy column.
			unmigrated, err = e.db.QueryInt(e.ctx, fmt.Sprintf(
				"SELECT COUNT(*) FROM companions WHERE %s IS NOT NULL AND %s != ''",
				legacy, legacy))
		} else {
			unmigrated, err = e.db.QueryInt(e.ctx, fmt.Sprintf(
				`SELECT COUNT(*) FROM companions c
				 WHERE c.%s IS NOT NULL AND c.%s != ''
				   AND NOT EXISTS (
				       SELECT 1 FROM companion_passive_effects p
				       WHERE p.companion_id = c.id
				   )`, legacy, legacy))
		}
		if err != nil {
			return err
		}
		if unmigrated > 0 {
			e.warnf("keeping companions.%s (%d companion(s) have no migrated effects)", legacy, unmigrated)
			continue
		}
		e.logf("  Dropping legacy companions.%s column\n", legacy)
		if err := e.exec(fmt.Sprintf("ALTER TABLE companions DROP COLUMN %s", legacy)); err != nil {
			return err
		}
	}
	return nil
}

func (e *ensurer) ensureCharacterSubclassShape() error {
	if e.virtual["character_subclasses"] {
		return nil
	}
	cols, err := e.db.Columns(e.ctx, "character_subclasses")
	if err != nil {
		return err
	}
	if _, ok := cols["subclass_name"]; !ok {
		e.logf("  Adding character_subclasses.subclass_name column\n")
		if err := e.exec("ALTER TABLE character_subclasses ADD COLUMN subclass_name TEXT NOT NULL DEFAULT ''"); err != nil {
			return err
		}
	}
	if _, ok := cols["subclass_id"]; !ok {
		e.logf("  Adding character_subclasses.subclass_id column\n")
		// Added with its REFERENCES clause, so no rebuild is needed.
		return e.exec("ALTER TABLE character_subclasses ADD COLUMN subclass_id INTEGER REFERENCES subclasses(id)")
	}

	hasFK, err := e.db.HasForeignKey(e.ctx, "character_subclasses", "subclass_id", "subclasses")
	if err != nil {
		return err
	}
	if hasFK {
		return nil
	}
	e.logf("  Rebuilding character_subclasses to add the subclass foreign key\n")
	copySQL := `
	INSERT INTO character_subclasses (id, character_id, subclass_id, subclass_name)
	SELECT o.id, o.character_id,
	       (SELECT s.id FROM subclasses s WHERE s.id = o.subclass_id),
	       o.subclass_name
	FROM character_subclasses_old o`
	return e.rebuild("character_subclasses", copySQL)
}

// ensureCharacterFactionOrder adds the sort_order column older databases
// lack. No backfill: the next sync rewrites the table with the positions
// from the data files.
func (e *ensurer) ensureCharacterFactionOrder() error {
	if e.virtual["character_factions"] {
		return nil
	}
	cols, err := e.db.Columns(e.ctx, "character_factions")
	if err != nil {
		return err
	}
	if _, ok := cols["sort_order"]; ok {
		return nil
	}
	e.logf("  Adding character_factions.sort_order column\n")
	return e.exec("ALTER TABLE character_factions ADD COLUMN sort_order INTEGER NOT NULL DEFAULT 0")
}

func (e *ensurer) ensureCodeRewardShape() error {
	if e.virtual["code_rewards"] {
		return nil
	}
	cols, err := e.db.Columns(e.ctx, "code_rewards")
	if err != nil {
		return err
	}
	_, hadResourceID := cols["resource_id"]
	if !hadResourceID {
		e.logf("  Adding code_rewards.resource_id column\n")
		if err := e.exec("ALTER TABLE code_rewards ADD COLUMN resource_id INTEGER REFERENCES resources(id)"); err != nil {
			return err
		}
	}

	if _, ok := cols["resource_name"]; ok {
		kept, err := e.migrateRewardResourceNames(hadResourceID)
		if err != nil {
			return err
		}
		if kept {
			// Rebuilding to the canonical shape would lose the
			// unmapped names, so leave the table alone for now.
			return nil
		}
	}

	if !hadResourceID {
		return nil
	}
	hasFK, err := e.db.HasForeignKey(e.ctx, "code_rewards", "resource_id", "resources")
	if err != nil {
		return err
	}
	if hasFK {
		return nil
	}
	e.logf("  Rebuilding code_rewards to add the resource foreign key\n")
	copySQL := `
	INSERT INTO code_rewards (id, code_id, resource_id, quantity)
	SELECT o.id, o.code_id,
	       (SELECT r.id FROM resources r WHERE r.id = o.resource_id),
	       o.quantity
	FROM code_rewards_old o`
	return e.rebuild("code_rewards", copySQL)
}

// migrateRewardResourceNames backfills resource_id from the legacy
// resource_name column and drops the column once every non-empty name
// maps to a resource. Returns true when the column was kept.
func (e *ensurer) migrateRewardResourceNames(hadResourceID bool) (bool, error) {
	e.logf("  Backfilling code_rewards.resource_id from resource_name\n")

	var unresolved int64
	var err error
	switch {
	case e.virtual["resources"]:
		// A freshly created resources table is empty, so no name
		// can map yet.
		unresolved, err = e.db.QueryInt(e.ctx,
			`SELECT COUNT(*) FROM code_rewards
			 WHERE resource_name IS NOT NULL AND resource_name != ''`)
	case hadResourceID:
		unresolved, err = e.db.QueryInt(e.ctx,
			`SELECT COUNT(*) FROM code_rewards
			 WHERE resource_id IS NULL
			   AND resource_name IS NOT NULL AND resource_name != ''
			   AND resource_name NOT IN (SELECT name FROM resources)`)
	default:
		unresolved, err = e.db.QueryInt(e.ctx,
			`SELECT COUNT(*) FROM code_rewards
			 WHERE resource_name IS NOT NULL AND resource_name != ''
			   AND resource_name NOT IN (SELECT name FROM resources)`)
	}
	if err != nil {
		return false, err
	}

	backfill := `
	UPDATE code_rewards
	SET resource_id = (SELECT r.id FROM resources r WHERE r.name = code_rewards.resource_name)
	WHERE resource_id IS NULL AND resource_name IS NOT NULL`
	if err := e.exec(backfill); err != nil {
		return false, err
	}

	if unresolved > 0 {
		e.warnf("keeping code_rewards.resource_name (could not map %d row(s) to resources.id)", unresolved)
		return true, nil
	}
	e.logf("  Dropping legacy code_rewards.resource_name column\n")
	if err := e.exec("ALTER TABLE code_rewards DROP COLUMN resource_name"); err != nil {
		return false, err
	}
	return false, nil
}

// rebuild recreates a table from its canonical DDL, copying rows over
// with copySQL. The old table keeps its indexes through the rename, so
// the DDL runs a second time after the drop to recreate them under
// their original names.
func (e *ensurer) rebuild(table, copySQL string) error {
	ddl, ok := DDLFor(table)
	if !ok {
		return fmt.Errorf("no canonical DDL for table %s", table)
	}
	steps := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s_old", table),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s_old", table, table),
		ddl,
		copySQL,
		fmt.Sprintf("DROP TABLE %s_old", table),
		ddl,
	}
	for _, s := range steps {
		if err := e.exec(s); err != nil {
			return err
		}
	}
	return nil
}

// oneline collapses a statement to a single trimmed line for preview
// output.
func oneline(sql string) string {
	fields := strings.Fields(sql)
	s := strings.Join(fields, " ")
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
