package sync

import (
	"context"
	"strings"

	"github.com/davrico/lorevault/internal/catalog"
)

func (s *Syncer) syncSpells(ctx context.Context) error {
	data := s.sortedDoc("spells.json", catalog.SpellKey)
	if err := checkDuplicates("spells", "name", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "spells", "name")
	storeEntries := s.hashes.Table("spells")

	s.clearTables("spells")

	var id int64
	for _, sp := range data {
		name := sp.Str("name")
		if name == "" {
			continue
		}
		id++

		h, err := catalog.ContentHash(sp)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldTS, s.now, storeEntries)
		s.recordHash("spells", name, h, ts)

		s.batch.Add(
			"INSERT INTO spells (id, name, effect, type, rarity, exclusive_faction, is_global, last_updated, data_hash) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			id, name, strArg(sp, "effect"), strArg(sp, "type"), strArg(sp, "rarity"),
			strArg(sp, "exclusive_faction"), boolField(sp, "is_global", false), ts, h)
	}

	s.logger.Info("synced spells", "count", id)
	return nil
}

// syncWeapons replaces the weapons table with its effect and skill children.
// Skill entries without a level are malformed and skipped.
func (s *Syncer) syncWeapons(ctx context.Context) error {
	data := s.sortedDoc("weapons.json", catalog.WeaponKey)
	if err := checkDuplicates("weapons", "name", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "weapons", "name")
	storeEntries := s.hashes.Table("weapons")

	s.clearTables("weapon_effects", "weapon_skills", "weapons")

	var id, effectID, skillID int64
	for _, w := range data {
		name := w.Str("name")
		if name == "" {
			continue
		}
		id++

		h, err := catalog.ContentHash(w)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldTS, s.now, storeEntries)
		s.recordHash("weapons", name, h, ts)

		s.batch.Add(
			"INSERT INTO weapons (id, name, character_name, is_global, lore, last_updated, data_hash) VALUES (?, ?, ?, ?, ?, ?, ?)",
			id, name, strArg(w, "character"), boolField(w, "is_global", false), strArg(w, "lore"), ts, h)

		for _, eff := range w.Maps("effects") {
			effectID++
			s.batch.Add(
				"INSERT INTO weapon_effects (id, weapon_id, tier, tier_level, description) VALUES (?, ?, ?, ?, ?)",
				effectID, id, strArg(eff, "tier"), intArg(eff, "tier_level"), strArg(eff, "description"))
		}

		for _, sk := range w.Maps("skills") {
			if lv, ok := sk["level"]; !ok || lv == nil {
				continue
			} else if str, isStr := lv.(string); isStr && str == "" {
				continue
			}
			skillID++
			s.batch.Add(
				"INSERT INTO weapon_skills (id, weapon_id, level, tier, tier_level, description) VALUES (?, ?, ?, ?, ?, ?)",
				skillID, id, sk.Int("level"), strArg(sk, "tier"), intArg(sk, "tier_level"), strArg(sk, "description"))
		}
	}

	s.logger.Info("synced weapons", "count", id)
	return nil
}

func (s *Syncer) syncRelics(ctx context.Context) error {
	data := s.sortedDoc("relics.json", catalog.RelicKey)
	if err := checkDuplicates("relics", "name", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "relics", "name")
	storeEntries := s.hashes.Table("relics")

	s.clearTables("relic_treasure_effects", "relic_effects", "relic_treasures", "relics")

	var id, effectID, treasureID, treasureEffectID int64
	for _, r := range data {
		name := r.Str("name")
		if name == "" {
			continue
		}
		id++

		h, err := catalog.ContentHash(r)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldTS, s.now, storeEntries)
		s.recordHash("relics", name, h, ts)

		s.batch.Add(
			"INSERT INTO relics (id, name, is_global, lore, rarity, grid_columns, grid_rows, last_updated, data_hash) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			id, name, boolField(r, "is_global", false), strArg(r, "lore"), r.Str("rarity"),
			r.Int("columns"), r.Int("rows"), ts, h)

		for _, eff := range r.Maps("effects") {
			effectID++
			s.batch.Add(
				"INSERT INTO relic_effects (id, relic_id, level, description) VALUES (?, ?, ?, ?)",
				effectID, id, eff.Int("level"), strArg(eff, "description"))
		}

		for _, t := range r.Maps("treasures") {
			if t.Str("name") == "" {
				continue
			}
			treasureID++
			s.batch.Add(
				"INSERT INTO relic_treasures (id, relic_id, name, lore, role) VALUES (?, ?, ?, ?, ?)",
				treasureID, id, t.Str("name"), strArg(t, "lore"), strArg(t, "role"))

			for _, teff := range t.Maps("effects") {
				treasureEffectID++
				s.batch.Add(
					"INSERT INTO relic_treasure_effects (id, treasure_id, level, description) VALUES (?, ?, ?, ?)",
					treasureEffectID, treasureID, teff.Int("level"), strArg(teff, "description"))
			}
		}
	}

	s.logger.Info("synced relics", "count", id, "treasures", treasureID)
	return nil
}

// syncGear replaces gear and gear_sets together. Set definitions come from
// gear_sets.json, with legacy set_bonus blocks embedded in gear.json filling
// in sets the dedicated file does not know; the file always wins. Gear item
// hashes exclude the legacy embedded block so moving a bonus out of gear.json
// into gear_sets.json does not bump every item in the set.
func (s *Syncer) syncGear(ctx context.Context) error {
	data := s.sortedDoc("gear.json", catalog.GearKey)
	if err := checkDuplicates("gear", "name", data); err != nil {
		return err
	}
	setsData := s.doc("gear_sets.json")
	if err := checkDuplicates("gear_sets", "name", setsData); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "gear", "name")
	oldSetTS := oldTimestamps(ctx, s.db, "gear_sets", "name")
	storeEntries := s.hashes.Table("gear")
	setEntries := s.hashes.Table("gear_sets")

	s.clearTables("gear", "gear_sets")

	merged := make(map[string]catalog.Entity)
	for _, gs := range setsData {
		name := strings.TrimSpace(gs.Str("name"))
		if name == "" {
			continue
		}
		merged[name] = normalizeGearSet(name, gs.Map("set_bonus"))
	}
	for _, item := range data {
		name := strings.TrimSpace(item.Str("set"))
		if name == "" {
			continue
		}
		if _, ok := merged[name]; ok {
			continue
		}
		merged[name] = normalizeGearSet(name, item.Map("set_bonus"))
	}

	sets := make([]catalog.Entity, 0, len(merged))
	for _, gs := range merged {
		sets = append(sets, gs)
	}
	catalog.SortEntities(sets, catalog.GearSetKey)

	setIDs := make(map[string]int64, len(sets))
	var setID int64
	for _, gs := range sets {
		name := gs.Str("name")
		setID++
		setIDs[name] = setID

		h, err := catalog.ContentHash(gs)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldSetTS, s.now, setEntries)
		s.recordHash("gear_sets", name, h, ts)

		bonus := gs.Map("set_bonus")
		s.batch.Add(
			"INSERT INTO gear_sets (id, name, bonus_quantity, bonus_description, last_updated, data_hash) VALUES (?, ?, ?, ?, ?, ?)",
			setID, name, bonus.Int("quantity"), bonus.Str("description"), ts, h)
	}

	var gearID int64
	for _, item := range data {
		name := item.Str("name")
		if name == "" {
			continue
		}
		gearID++

		h, err := catalog.ContentHash(item, "set_bonus")
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldTS, s.now, storeEntries)
		s.recordHash("gear", name, h, ts)

		stats := item.Map("stats")
		if stats == nil {
			stats = catalog.Entity{}
		}
		statsJSON, err := catalog.CanonicalJSON(stats)
		if err != nil {
			return err
		}

		var itemSetID any
		if sid, ok := setIDs[strings.TrimSpace(item.Str("set"))]; ok {
			itemSetID = sid
		}
		s.batch.Add(
			"INSERT INTO gear (id, name, set_id, type, rarity, lore, stats_json, last_updated, data_hash) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			gearID, name, itemSetID, item.Str("type"), item.Str("rarity"),
			strArg(item, "lore"), string(statsJSON), ts, h)
	}

	s.logger.Info("synced gear", "sets", setID, "items", gearID)
	return nil
}

// normalizeGearSet produces the canonical set entity both forms reduce to,
// so the set hash is stable regardless of which file defined it.
func normalizeGearSet(name string, bonus catalog.Entity) catalog.Entity {
	return catalog.Entity{
		"name": name,
		"set_bonus": map[string]any{
			"quantity":    bonus.Int("quantity"),
			"description": bonus.Str("description"),
		},
	}
}
