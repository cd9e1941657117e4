package sync

import (
	"context"
	"sort"
	"strings"

	"github.com/davrico/lorevault/internal/catalog"
)

func (s *Syncer) syncCompanions(ctx context.Context) error {
	data := s.sortedDoc("companions.json", catalog.CompanionKey)
	if err := checkDuplicates("companions", "name", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "companions", "name")
	storeEntries := s.hashes.Table("companions")

	s.clearTables("companion_passive_effects", "companion_stats", "companions")

	var id, statID, effectID int64
	for _, c := range data {
		name := c.Str("name")
		if name == "" {
			continue
		}
		id++

		h, err := catalog.ContentHash(c)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldTS, s.now, storeEntries)
		s.recordHash("companions", name, h, ts)

		s.batch.Add(
			"INSERT INTO companions (id, name, rarity, last_updated, data_hash) VALUES (?, ?, ?, ?, ?)",
			id, name, c.Str("rarity"), ts, h)

		for _, effect := range passiveEffects(c) {
			effectID++
			s.batch.Add(
				"INSERT INTO companion_passive_effects (id, companion_id, effect) VALUES (?, ?, ?)",
				effectID, id, effect)
		}

		stats := c.Map("stats")
		statNames := make([]string, 0, len(stats))
		for statName := range stats {
			if statName != "" {
				statNames = append(statNames, statName)
			}
		}
		sort.Slice(statNames, func(i, j int) bool {
			return strings.ToLower(statNames[i]) < strings.ToLower(statNames[j])
		})
		for _, statName := range statNames {
			statID++
			s.batch.Add(
				"INSERT INTO companion_stats (id, companion_id, stat_name, stat_value) VALUES (?, ?, ?, ?)",
				statID, id, statName, stats.Float(statName))
		}
	}

	s.logger.Info("synced companions", "count", id)
	return nil
}

// passiveEffects reads the passive_effects list, accepting the legacy
// single-string passive_effect form.
func passiveEffects(c catalog.Entity) []string {
	raw, ok := c["passive_effects"]
	if !ok || raw == nil {
		raw = c["passive_effect"]
	}
	var out []string
	switch v := raw.(type) {
	case string:
		if v != "" {
			out = append(out, v)
		}
	case []any:
		for _, item := range v {
			if str, ok := item.(string); ok && str != "" {
				out = append(out, str)
			}
		}
	}
	return out
}

// syncBonds replaces the bonds tables. Bond member rows are ordered by the
// member companion's rarity rank then lowercased name, looked up in
// companions.json; unknown members rank last.
func (s *Syncer) syncBonds(ctx context.Context) error {
	data := s.sortedDoc("bonds.json", catalog.BondKey)
	if err := checkDuplicates("bonds", "name", data); err != nil {
		return err
	}

	rarityByCompanion := make(map[string]string)
	for _, c := range s.doc("companions.json") {
		if name := c.Str("name"); name != "" {
			rarityByCompanion[name] = c.Str("rarity")
		}
	}

	oldTS := oldTimestamps(ctx, s.db, "bonds", "name")
	storeEntries := s.hashes.Table("bonds")

	s.clearTables("bond_effects", "bond_companions", "bonds")

	var id, memberID, effectID int64
	for _, b := range data {
		name := b.Str("name")
		if name == "" {
			continue
		}
		id++

		h, err := catalog.ContentHash(b)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldTS, s.now, storeEntries)
		s.recordHash("bonds", name, h, ts)

		s.batch.Add(
			"INSERT INTO bonds (id, name, last_updated, data_hash) VALUES (?, ?, ?, ?)",
			id, name, ts, h)

		members := make([]string, 0)
		for _, m := range b.Strings("companions") {
			if m != "" {
				members = append(members, m)
			}
		}
		sort.SliceStable(members, func(i, j int) bool {
			ri := catalog.RarityRank(rarityByCompanion[members[i]])
			rj := catalog.RarityRank(rarityByCompanion[members[j]])
			if ri != rj {
				return ri < rj
			}
			return strings.ToLower(members[i]) < strings.ToLower(members[j])
		})
		for _, m := range members {
			memberID++
			s.batch.Add(
				"INSERT INTO bond_companions (id, bond_id, companion_name) VALUES (?, ?, ?)",
				memberID, id, m)
		}

		for _, effect := range b.Maps("effects") {
			level := effect.Int("level")
			for _, stat := range effect.Strings("stats") {
				if stat == "" {
					continue
				}
				effectID++
				s.batch.Add(
					"INSERT INTO bond_effects (id, bond_id, level, stat) VALUES (?, ?, ?, ?)",
					effectID, id, level, stat)
			}
		}
	}

	s.logger.Info("synced bonds", "count", id)
	return nil
}
