package sync

import (
	"context"
	"strings"

	"github.com/davrico/lorevault/internal/catalog"
	"github.com/davrico/lorevault/internal/hashstore"
	"github.com/davrico/lorevault/internal/store"
)

// dbState is one parent row's change-tracking columns as they were before
// this run, keyed by the entity's identity value.
type dbState struct {
	TS   int64
	Hash string
}

// resolveTimestamp decides which last_updated value a row gets. Two
// historical sources are consulted in order, and neither is trusted when its
// recorded hash disagrees with the freshly computed one:
//
//  1. the hash store entry for this entity (committed to git alongside the
//     data, so every machine sees the same answer);
//  2. the row the local database held before this run;
//  3. otherwise the content changed or is new, so the timestamp bumps to now.
func resolveTimestamp(identity, newHash string, old map[string]dbState, now int64, entries hashstore.Entries) int64 {
	if e, ok := entries[identity]; ok && e.Hash == newHash && e.TS != 0 {
		return e.TS
	}
	if row, ok := old[identity]; ok && row.Hash == newHash && row.TS != 0 {
		return row.TS
	}
	return now
}

// oldTimestamps reads a parent table's pre-run tracking columns. Any query
// failure (table or columns missing on a database the ensurer has not
// touched yet) is treated as no history, matching the fall-through to "now".
func oldTimestamps(ctx context.Context, db *store.DB, table, identityCol string) map[string]dbState {
	rows, err := db.QueryRows(ctx,
		"SELECT "+identityCol+", last_updated, data_hash FROM "+table)
	if err != nil {
		return map[string]dbState{}
	}
	out := make(map[string]dbState, len(rows))
	for _, row := range rows {
		key, _ := row[identityCol].(string)
		if key == "" {
			continue
		}
		state := dbState{}
		if ts, ok := row["last_updated"].(int64); ok {
			state.TS = ts
		}
		if h, ok := row["data_hash"].(string); ok {
			state.Hash = h
		}
		out[key] = state
	}
	return out
}

// buildResourceIDMap assigns the IDs syncResources will assign, from the
// JSON alone. Cross-referencing categories use this map so a partial run
// that does not touch the resources table still resolves the same IDs.
func buildResourceIDMap(resources []catalog.Entity) map[string]int64 {
	sorted := append([]catalog.Entity(nil), resources...)
	catalog.SortEntities(sorted, catalog.ResourceKey)
	ids := make(map[string]int64, len(sorted))
	var id int64
	for _, r := range sorted {
		name := r.Str("name")
		if name == "" {
			continue
		}
		if _, dup := ids[name]; dup {
			continue
		}
		id++
		ids[name] = id
	}
	return ids
}

// buildSubclassMaps mirrors syncSubclasses's ID assignment and records each
// subclass's roles for the role-mismatch warning on characters.
func buildSubclassMaps(subclasses []catalog.Entity) (ids map[string]int64, roles map[string][]string) {
	sorted := append([]catalog.Entity(nil), subclasses...)
	catalog.SortEntities(sorted, catalog.SubclassKey)
	ids = make(map[string]int64, len(sorted))
	roles = make(map[string][]string, len(sorted))
	var id int64
	for _, sc := range sorted {
		name := strings.TrimSpace(sc.Str("name"))
		if name == "" {
			continue
		}
		if _, dup := ids[name]; dup {
			continue
		}
		id++
		ids[name] = id
		roles[name] = subclassRoles(sc)
	}
	return ids, roles
}

// subclassRoles returns the roles a subclass belongs to. The field accepts
// both a single string and a list.
func subclassRoles(sc catalog.Entity) []string {
	if list := sc.Strings("role"); len(list) > 0 {
		out := make([]string, 0, len(list))
		for _, r := range list {
			if r = strings.TrimSpace(r); r != "" {
				out = append(out, r)
			}
		}
		return out
	}
	if r := strings.TrimSpace(sc.Str("role")); r != "" {
		return []string{r}
	}
	return nil
}
