package sync

import (
	"context"

	"github.com/davrico/lorevault/internal/catalog"
)

func (s *Syncer) syncStatusEffects(ctx context.Context) error {
	data := s.sortedDoc("status-effects.json", catalog.StatusEffectKey)
	if err := checkDuplicates("status-effects", "name", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "status_effects", "name")
	storeEntries := s.hashes.Table("status_effects")

	s.clearTables("status_effects")

	var id int64
	for _, se := range data {
		name := se.Str("name")
		if name == "" {
			continue
		}
		id++

		h, err := catalog.ContentHash(se)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldTS, s.now, storeEntries)
		s.recordHash("status_effects", name, h, ts)

		s.batch.Add(
			"INSERT INTO status_effects (id, name, type, effect, remark, last_updated, data_hash) VALUES (?, ?, ?, ?, ?, ?, ?)",
			id, name, strArg(se, "type"), strArg(se, "effect"), strArg(se, "remark"), ts, h)
	}

	s.logger.Info("synced status effects", "count", id)
	return nil
}

func (s *Syncer) syncTierLists(ctx context.Context) error {
	data := s.sortedDoc("tier-lists.json", catalog.TierListKey)
	if err := checkDuplicates("tier-lists", "name", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "tier_lists", "name")
	storeEntries := s.hashes.Table("tier_lists")

	s.clearTables("tier_list_entries", "tier_lists")

	var id, entryID int64
	for _, tl := range data {
		name := tl.Str("name")
		if name == "" {
			continue
		}
		id++

		h, err := catalog.ContentHash(tl)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldTS, s.now, storeEntries)
		s.recordHash("tier_lists", name, h, ts)

		s.batch.Add(
			"INSERT INTO tier_lists (id, name, author, content_type, description, last_updated, data_hash) VALUES (?, ?, ?, ?, ?, ?, ?)",
			id, name, strArg(tl, "author"), strArg(tl, "content_type"), strArg(tl, "description"), ts, h)

		for _, entry := range tl.Maps("entries") {
			entryID++
			s.batch.Add(
				"INSERT INTO tier_list_entries (id, tier_list_id, character_name, tier, note) VALUES (?, ?, ?, ?, ?)",
				entryID, id, entry.Str("character_name"), strArg(entry, "tier"), entry.Str("note"))
		}
	}

	s.logger.Info("synced tier lists", "count", id)
	return nil
}

func (s *Syncer) syncTeams(ctx context.Context) error {
	data := s.sortedDoc("teams.json", catalog.TeamKey)
	if err := checkDuplicates("teams", "name", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "teams", "name")
	storeEntries := s.hashes.Table("teams")

	s.clearTables("team_member_substitutes", "team_members", "teams")

	var id, memberID, subID int64
	for _, t := range data {
		name := t.Str("name")
		if name == "" {
			continue
		}
		id++

		h, err := catalog.ContentHash(t)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldTS, s.now, storeEntries)
		s.recordHash("teams", name, h, ts)

		spells := t.Map("spells")
		s.batch.Add(
			`INSERT INTO teams (id, name, author, content_type, description, faction,
			 assault_spell, ward_spell, rally_spell, surge_spell, last_updated, data_hash)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, name, strArg(t, "author"), strArg(t, "content_type"), strArg(t, "description"),
			strArg(t, "faction"), strArg(spells, "assault"), strArg(spells, "ward"),
			strArg(spells, "rally"), strArg(spells, "surge"), ts, h)

		for _, m := range t.Maps("members") {
			memberID++
			s.batch.Add(
				"INSERT INTO team_members (id, team_id, character_name, turn_order, note) VALUES (?, ?, ?, ?, ?)",
				memberID, id, m.Str("character_name"), m.Int("turn_order"), m.Str("note"))

			for _, sub := range m.Strings("substitutes") {
				if sub == "" {
					continue
				}
				subID++
				s.batch.Add(
					"INSERT INTO team_member_substitutes (id, team_member_id, character_name) VALUES (?, ?, ?)",
					subID, memberID, sub)
			}
		}
	}

	s.logger.Info("synced teams", "count", id)
	return nil
}

func (s *Syncer) syncUsefulLinks(ctx context.Context) error {
	data := s.sortedDoc("useful-links.json", catalog.UsefulLinkKey)
	if err := checkDuplicates("useful-links", "name", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "useful_links", "name")
	storeEntries := s.hashes.Table("useful_links")

	s.clearTables("useful_links")

	var id int64
	for _, link := range data {
		name := link.Str("name")
		if name == "" {
			continue
		}
		id++

		h, err := catalog.ContentHash(link)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(name, h, oldTS, s.now, storeEntries)
		s.recordHash("useful_links", name, h, ts)

		s.batch.Add(
			"INSERT INTO useful_links (id, icon, application, name, description, link, last_updated, data_hash) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			id, strArg(link, "icon"), strArg(link, "application"), name,
			strArg(link, "description"), strArg(link, "link"), ts, h)
	}

	s.logger.Info("synced useful links", "count", id)
	return nil
}

func (s *Syncer) syncChangelog(ctx context.Context) error {
	data := s.sortedDoc("changelog.json", catalog.ChangelogKey)
	if err := checkDuplicates("changelog", "version", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "changelog", "version")
	storeEntries := s.hashes.Table("changelog")

	s.clearTables("changelog_changes", "changelog")

	var id, changeID int64
	for _, entry := range data {
		version := entry.Str("version")
		if version == "" {
			continue
		}
		id++

		h, err := catalog.ContentHash(entry)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(version, h, oldTS, s.now, storeEntries)
		s.recordHash("changelog", version, h, ts)

		s.batch.Add(
			"INSERT INTO changelog (id, date, version, last_updated, data_hash) VALUES (?, ?, ?, ?, ?)",
			id, entry.Str("date"), version, ts, h)

		for _, change := range entry.Maps("changes") {
			changeID++
			s.batch.Add(
				"INSERT INTO changelog_changes (id, changelog_id, type, category, description) VALUES (?, ?, ?, ?, ?)",
				changeID, id, strArg(change, "type"), strArg(change, "category"), strArg(change, "description"))
		}
	}

	s.logger.Info("synced changelog entries", "count", id)
	return nil
}
