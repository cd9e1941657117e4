package sync

import (
	"context"
	"strings"

	"github.com/davrico/lorevault/internal/catalog"
)

// syncFactions replaces the factions table and its recommended-relic links.
// Relic references are soft: an unknown name row is kept, with a warning.
// character_factions rows reference factions.id, so they are cleared here
// too; rebuildLinks repopulates them from characters.json for faction-only
// runs, which would otherwise leave every character factionless.
func (s *Syncer) syncFactions(ctx context.Context, rebuildLinks bool) error {
	data := s.sortedDoc("factions.json", catalog.FactionKey)
	if err := checkDuplicates("factions", "name", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "factions", "name")
	storeEntries := s.hashes.Table("factions")

	knownRelics := make(map[string]bool)
	for _, r := range s.doc("relics.json") {
		if name := strings.TrimSpace(r.Str("name")); name != "" {
			knownRelics[name] = true
		}
	}

	s.clearTables("faction_recommended_relics", "character_factions", "factions")

	factionIDs := make(map[string]int64)
	var id, relicRowID int64
	for _, f := range data {
		name := f.Str("name")
		if name == "" {
			continue
		}
		id++
		factionIDs[name] = id

		h, err := catalog.ContentHash(f)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldTS, s.now, storeEntries)
		s.recordHash("factions", name, h, ts)

		s.batch.Add(
			"INSERT INTO factions (id, name, patron, description, last_updated, data_hash) VALUES (?, ?, ?, ?, ?, ?)",
			id, name, strArg(f, "patron"), strArg(f, "description"), ts, h)

		for _, relicName := range f.Strings("recommended_relics") {
			relicName = strings.TrimSpace(relicName)
			if relicName == "" {
				continue
			}
			if len(knownRelics) > 0 && !knownRelics[relicName] {
				s.warnf("faction %q references unknown relic %q", name, relicName)
			}
			relicRowID++
			s.batch.Add(
				"INSERT INTO faction_recommended_relics (id, faction_id, relic_name) VALUES (?, ?, ?)",
				relicRowID, id, relicName)
		}
	}

	relinked := 0
	if rebuildLinks {
		n, err := s.relinkCharacterFactions(ctx, factionIDs)
		if err != nil {
			return err
		}
		relinked = n
	}

	s.logger.Info("synced factions", "count", id, "relic_links", relicRowID, "relinked", relinked)
	return nil
}

// relinkCharacterFactions rebuilds character_factions from characters.json
// against the character IDs already in the database. Only faction-only runs
// need this; a full run repopulates the table when characters sync.
func (s *Syncer) relinkCharacterFactions(ctx context.Context, factionIDs map[string]int64) (int, error) {
	rows, err := s.db.QueryRows(ctx, "SELECT id, name FROM characters")
	if err != nil {
		// Fresh database (or dry run that created nothing): no characters
		// to link yet.
		s.warnf("skipping character_factions rebuild: %v", err)
		return 0, nil
	}
	characterIDs := make(map[string]int64, len(rows))
	for _, row := range rows {
		name, _ := row["name"].(string)
		cid, _ := row["id"].(int64)
		if name != "" && cid != 0 {
			characterIDs[name] = cid
		}
	}

	relinked := 0
	for _, c := range s.sortedDoc("characters.json", catalog.CharacterKey) {
		name := c.Str("name")
		if name == "" {
			continue
		}
		cid, ok := characterIDs[name]
		if !ok {
			continue
		}
		seen := make(map[int64]bool)
		pos := 0
		for _, factionName := range c.Strings("factions") {
			fid, ok := factionIDs[factionName]
			if !ok {
				s.warnf("character %q references unknown faction %q", name, factionName)
				continue
			}
			if seen[fid] {
				continue
			}
			seen[fid] = true
			relinked++
			pos++
			s.batch.Add(
				"INSERT INTO character_factions (character_id, faction_id, sort_order) VALUES (?, ?, ?)",
				cid, fid, pos)
		}
	}
	return relinked, nil
}

// syncSubclasses replaces the subclasses tables. character_subclasses rows
// keep their name column through the replacement; their subclass_id is
// nulled first and relinked at the end, matched on both name and role so a
// subclass reassigned to another role does not silently keep its old links.
func (s *Syncer) syncSubclasses(ctx context.Context) error {
	data := s.sortedDoc("subclasses.json", catalog.SubclassKey)
	if err := checkDuplicates("subclasses", "name", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "subclasses", "name")
	storeEntries := s.hashes.Table("subclasses")

	s.batch.Add("UPDATE character_subclasses SET subclass_id = NULL")
	s.clearTables("subclass_roles", "subclass_bonuses", "subclasses")

	var id, roleID, bonusID int64
	for _, sc := range data {
		name := strings.TrimSpace(sc.Str("name"))
		if name == "" {
			continue
		}
		id++

		h, err := catalog.ContentHash(sc)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldTS, s.now, storeEntries)
		s.recordHash("subclasses", name, h, ts)

		s.batch.Add(
			"INSERT INTO subclasses (id, name, tier, effect, last_updated, data_hash) VALUES (?, ?, ?, ?, ?, ?)",
			id, name, sc.Int("tier"), strArg(sc, "effect"), ts, h)

		seen := make(map[string]bool)
		for _, role := range subclassRoles(sc) {
			if seen[role] {
				continue
			}
			seen[role] = true
			roleID++
			s.batch.Add(
				"INSERT INTO subclass_roles (id, subclass_id, role) VALUES (?, ?, ?)",
				roleID, id, role)
		}

		for _, bonus := range sc.Strings("bonuses") {
			if bonus == "" {
				continue
			}
			bonusID++
			s.batch.Add(
				"INSERT INTO subclass_bonuses (id, subclass_id, bonus_text) VALUES (?, ?, ?)",
				bonusID, id, bonus)
		}
	}

	s.batch.Add(`
		UPDATE character_subclasses SET subclass_id = (
			SELECT s.id FROM subclasses s
			JOIN subclass_roles sr ON sr.subclass_id = s.id
			JOIN characters c ON c.id = character_subclasses.character_id
			WHERE s.name = character_subclasses.subclass_name AND sr.role = c.role
		)`)

	s.logger.Info("synced subclasses", "count", id)
	return nil
}

// syncCharacters replaces the characters table and every child table that
// hangs off it. Faction and subclass references resolve against the ID maps
// derived from the corresponding JSON documents in canonical order, which
// match the IDs those categories' own syncs assign.
func (s *Syncer) syncCharacters(ctx context.Context, subclassIDs map[string]int64, subclassRoleMap map[string][]string) error {
	data := s.sortedDoc("characters.json", catalog.CharacterKey)
	if err := checkDuplicates("characters", "name", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "characters", "name")
	storeEntries := s.hashes.Table("characters")

	s.clearTables("skills", "talent_levels", "character_subclasses", "character_factions", "characters")

	factionIDs := make(map[string]int64)
	var fid int64
	for _, f := range s.sortedDoc("factions.json", catalog.FactionKey) {
		name := f.Str("name")
		if name == "" {
			continue
		}
		if _, dup := factionIDs[name]; dup {
			continue
		}
		fid++
		factionIDs[name] = fid
	}

	var charID, linkID, talentID, skillID int64
	for _, c := range data {
		name := c.Str("name")
		if name == "" {
			continue
		}
		charID++

		h, err := catalog.ContentHash(c)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldTS, s.now, storeEntries)
		s.recordHash("characters", name, h, ts)

		talent := c.Map("talent")
		talentName := ""
		if talent != nil {
			talentName = talent.Str("name")
		}

		s.batch.Add(
			`INSERT INTO characters (id, name, title, rarity, role, is_global, height, weight,
			 origin, lore, quote, talent_name, weapon, last_updated, data_hash)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			charID, name, strArg(c, "title"), strArg(c, "rarity"), strArg(c, "role"),
			boolField(c, "is_global", true), strArg(c, "height"), strArg(c, "weight"),
			strArg(c, "origin"), strArg(c, "lore"), strArg(c, "quote"),
			talentName, strArg(c, "weapon"), ts, h)

		for _, scName := range c.Strings("subclasses") {
			if scName == "" {
				continue
			}
			if roles := subclassRoleMap[scName]; len(roles) > 0 && !containsString(roles, c.Str("role")) {
				s.warnf("character %q role %q has subclass %q assigned to role(s) %s",
					name, c.Str("role"), scName, strings.Join(roles, ", "))
			}
			var linkedID any
			if sid, ok := subclassIDs[scName]; ok {
				linkedID = sid
			} else {
				s.warnf("character %q references unknown subclass %q", name, scName)
			}
			linkID++
			s.batch.Add(
				"INSERT INTO character_subclasses (id, character_id, subclass_id, subclass_name) VALUES (?, ?, ?, ?)",
				linkID, charID, linkedID, scName)
		}

		seen := make(map[int64]bool)
		pos := 0
		for _, factionName := range c.Strings("factions") {
			factionID, ok := factionIDs[factionName]
			if !ok {
				s.warnf("character %q references unknown faction %q", name, factionName)
				continue
			}
			if seen[factionID] {
				continue
			}
			seen[factionID] = true
			pos++
			s.batch.Add(
				"INSERT INTO character_factions (character_id, faction_id, sort_order) VALUES (?, ?, ?)",
				charID, factionID, pos)
		}

		if talent != nil {
			for _, tl := range talent.Maps("talent_levels") {
				talentID++
				s.batch.Add(
					"INSERT INTO talent_levels (id, character_id, level, effect) VALUES (?, ?, ?, ?)",
					talentID, charID, tl.Int("level"), strArg(tl, "effect"))
			}
		}

		for _, sk := range c.Maps("skills") {
			if sk.Str("name") == "" {
				continue
			}
			skillID++
			s.batch.Add(
				"INSERT INTO skills (id, character_id, name, type, description, cooldown) VALUES (?, ?, ?, ?, ?, ?)",
				skillID, charID, sk.Str("name"), strArg(sk, "type"), strArg(sk, "description"), sk.Float("cooldown"))
		}
	}

	s.logger.Info("synced characters", "count", charID)
	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
