// Package export mirrors the relational store back into JSON documents,
// reassembling child tables into the nested shapes the data files use. It
// is the inverse of the sync direction for the categories the wiki frontend
// consumes; change-tracking columns stay behind in the database.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/davrico/lorevault/internal/catalog"
	"github.com/davrico/lorevault/internal/datafile"
	"github.com/davrico/lorevault/internal/store"
)

// Categories are the exportable targets, in export order.
var Categories = []string{
	"factions",
	"characters",
	"spells",
	"resources",
	"codes",
	"status-effects",
	"tier-lists",
	"teams",
	"useful-links",
	"changelog",
}

// Exporter reads one database and writes JSON documents to OutDir.
type Exporter struct {
	db     *store.DB
	outDir string
	logger *slog.Logger
}

// New builds an Exporter writing into outDir.
func New(db *store.DB, outDir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{db: db, outDir: outDir, logger: logger}
}

// Run exports the target category, or every category for "all".
func (e *Exporter) Run(ctx context.Context, target string) error {
	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return err
	}
	targets := Categories
	if target != "" && target != "all" {
		if !isExportable(target) {
			return fmt.Errorf("unknown export target %q (valid: all, %v)", target, Categories)
		}
		targets = []string{target}
	}
	for _, t := range targets {
		if err := e.exportCategory(ctx, t); err != nil {
			return fmt.Errorf("export %s: %w", t, err)
		}
	}
	return nil
}

func isExportable(target string) bool {
	for _, t := range Categories {
		if t == target {
			return true
		}
	}
	return false
}

func (e *Exporter) exportCategory(ctx context.Context, target string) error {
	switch target {
	case "factions":
		return e.exportFactions(ctx)
	case "characters":
		return e.exportCharacters(ctx)
	case "spells":
		return e.exportSpells(ctx)
	case "resources":
		return e.exportResources(ctx)
	case "codes":
		return e.exportCodes(ctx)
	case "status-effects":
		return e.exportStatusEffects(ctx)
	case "tier-lists":
		return e.exportTierLists(ctx)
	case "teams":
		return e.exportTeams(ctx)
	case "useful-links":
		return e.exportUsefulLinks(ctx)
	case "changelog":
		return e.exportChangelog(ctx)
	}
	return fmt.Errorf("unknown export target %q", target)
}

func (e *Exporter) write(file string, entities []catalog.Entity) error {
	if err := datafile.Write(filepath.Join(e.outDir, file), entities); err != nil {
		return err
	}
	e.logger.Info("exported", "file", file, "entries", len(entities))
	return nil
}

// groupBy buckets child rows by a parent-id column, preserving row order.
func groupBy(rows []map[string]any, key string) map[int64][]map[string]any {
	groups := make(map[int64][]map[string]any)
	for _, row := range rows {
		id, _ := row[key].(int64)
		groups[id] = append(groups[id], row)
	}
	return groups
}

func text(row map[string]any, col string) string {
	s, _ := row[col].(string)
	return s
}

func num(row map[string]any, col string) int64 {
	n, _ := row[col].(int64)
	return n
}

func boolCol(row map[string]any, col string) bool {
	return num(row, col) != 0
}

func (e *Exporter) exportFactions(ctx context.Context) error {
	rows, err := e.db.QueryRows(ctx, "SELECT * FROM factions ORDER BY id")
	if err != nil {
		return err
	}
	out := make([]catalog.Entity, 0, len(rows))
	for _, r := range rows {
		out = append(out, catalog.Entity{
			"name":        text(r, "name"),
			"patron":      text(r, "patron"),
			"description": text(r, "description"),
		})
	}
	return e.write("factions.json", out)
}

func (e *Exporter) exportCharacters(ctx context.Context) error {
	chars, err := e.db.QueryRows(ctx, "SELECT * FROM characters ORDER BY id")
	if err != nil {
		return err
	}
	factionRows, err := e.db.QueryRows(ctx, `
		SELECT cf.character_id, f.name AS faction_name
		FROM character_factions cf JOIN factions f ON f.id = cf.faction_id
		ORDER BY cf.character_id, cf.sort_order, cf.faction_id`)
	if err != nil {
		return err
	}
	subclassRows, err := e.db.QueryRows(ctx,
		"SELECT character_id, subclass_name FROM character_subclasses ORDER BY id")
	if err != nil {
		return err
	}
	talentRows, err := e.db.QueryRows(ctx,
		"SELECT character_id, level, effect FROM talent_levels ORDER BY character_id, level")
	if err != nil {
		return err
	}
	skillRows, err := e.db.QueryRows(ctx,
		"SELECT character_id, name, type, description, cooldown FROM skills ORDER BY id")
	if err != nil {
		return err
	}

	factionsBy := groupBy(factionRows, "character_id")
	subclassesBy := groupBy(subclassRows, "character_id")
	talentsBy := groupBy(talentRows, "character_id")
	skillsBy := groupBy(skillRows, "character_id")

	out := make([]catalog.Entity, 0, len(chars))
	for _, c := range chars {
		id := num(c, "id")

		factions := []string{}
		for _, f := range factionsBy[id] {
			factions = append(factions, text(f, "faction_name"))
		}
		subclasses := []string{}
		for _, s := range subclassesBy[id] {
			subclasses = append(subclasses, text(s, "subclass_name"))
		}

		talentLevels := []any{}
		for _, tl := range talentsBy[id] {
			talentLevels = append(talentLevels, map[string]any{
				"level":  num(tl, "level"),
				"effect": text(tl, "effect"),
			})
		}
		var talent any
		if name := text(c, "talent_name"); name != "" || len(talentLevels) > 0 {
			talent = map[string]any{"name": name, "talent_levels": talentLevels}
		}

		skills := []any{}
		for _, sk := range skillsBy[id] {
			cooldown, _ := sk["cooldown"].(float64)
			skills = append(skills, map[string]any{
				"name":        text(sk, "name"),
				"type":        text(sk, "type"),
				"description": text(sk, "description"),
				"cooldown":    cooldown,
			})
		}

		out = append(out, catalog.Entity{
			"name":       text(c, "name"),
			"title":      text(c, "title"),
			"rarity":     text(c, "rarity"),
			"role":       text(c, "role"),
			"is_global":  boolCol(c, "is_global"),
			"factions":   factions,
			"subclasses": subclasses,
			"height":     text(c, "height"),
			"weight":     text(c, "weight"),
			"origin":     text(c, "origin"),
			"lore":       text(c, "lore"),
			"quote":      text(c, "quote"),
			"talent":     talent,
			"skills":     skills,
			"weapon":     text(c, "weapon"),
		})
	}
	catalog.SortEntities(out, catalog.CharacterKey)
	return e.write("characters.json", out)
}

func (e *Exporter) exportSpells(ctx context.Context) error {
	rows, err := e.db.QueryRows(ctx, "SELECT * FROM spells ORDER BY id")
	if err != nil {
		return err
	}
	out := make([]catalog.Entity, 0, len(rows))
	for _, r := range rows {
		var exclusive any
		if f := text(r, "exclusive_faction"); f != "" {
			exclusive = f
		}
		out = append(out, catalog.Entity{
			"name":              text(r, "name"),
			"effect":            text(r, "effect"),
			"type":              text(r, "type"),
			"rarity":            text(r, "rarity"),
			"exclusive_faction": exclusive,
			"is_global":         boolCol(r, "is_global"),
		})
	}
	catalog.SortEntities(out, catalog.SpellKey)
	return e.write("spells.json", out)
}

func (e *Exporter) exportResources(ctx context.Context) error {
	rows, err := e.db.QueryRows(ctx, "SELECT * FROM resources ORDER BY id")
	if err != nil {
		return err
	}
	out := make([]catalog.Entity, 0, len(rows))
	for _, r := range rows {
		out = append(out, catalog.Entity{
			"name":        text(r, "name"),
			"rarity":      text(r, "rarity"),
			"description": text(r, "description"),
			"category":    text(r, "category"),
		})
	}
	catalog.SortEntities(out, catalog.ResourceKey)
	return e.write("resources.json", out)
}

func (e *Exporter) exportCodes(ctx context.Context) error {
	codes, err := e.db.QueryRows(ctx, "SELECT * FROM codes ORDER BY id")
	if err != nil {
		return err
	}
	rewardRows, err := e.db.QueryRows(ctx, e.codeRewardsQuery(ctx))
	if err != nil {
		return err
	}
	rewardsBy := groupBy(rewardRows, "code_id")

	out := make([]catalog.Entity, 0, len(codes))
	for _, c := range codes {
		rewards := []any{}
		for _, r := range rewardsBy[num(c, "id")] {
			rewards = append(rewards, map[string]any{
				"name":     text(r, "resource"),
				"quantity": num(r, "quantity"),
			})
		}
		out = append(out, catalog.Entity{
			"code":    text(c, "code"),
			"rewards": rewards,
			"active":  boolCol(c, "active"),
		})
	}
	return e.write("codes.json", out)
}

// codeRewardsQuery resolves reward resource names through the resources
// table; databases predating the resource_id migration still carry a
// resource_name column, used as the fallback.
func (e *Exporter) codeRewardsQuery(ctx context.Context) string {
	cols, err := e.db.Columns(ctx, "code_rewards")
	if err == nil {
		if _, legacy := cols["resource_name"]; legacy {
			return `SELECT cr.code_id, cr.quantity,
				COALESCE(r.name, cr.resource_name) AS resource
				FROM code_rewards cr
				LEFT JOIN resources r ON r.id = cr.resource_id
				ORDER BY cr.code_id, cr.id`
		}
	}
	return `SELECT cr.code_id, cr.quantity, r.name AS resource
		FROM code_rewards cr
		LEFT JOIN resources r ON r.id = cr.resource_id
		ORDER BY cr.code_id, cr.id`
}

func (e *Exporter) exportStatusEffects(ctx context.Context) error {
	rows, err := e.db.QueryRows(ctx, "SELECT * FROM status_effects ORDER BY id")
	if err != nil {
		return err
	}
	out := make([]catalog.Entity, 0, len(rows))
	for _, r := range rows {
		out = append(out, catalog.Entity{
			"name":   text(r, "name"),
			"type":   text(r, "type"),
			"effect": text(r, "effect"),
			"remark": text(r, "remark"),
		})
	}
	catalog.SortEntities(out, catalog.StatusEffectKey)
	return e.write("status-effects.json", out)
}

func (e *Exporter) exportTierLists(ctx context.Context) error {
	lists, err := e.db.QueryRows(ctx, "SELECT * FROM tier_lists ORDER BY id")
	if err != nil {
		return err
	}
	entryRows, err := e.db.QueryRows(ctx,
		"SELECT * FROM tier_list_entries ORDER BY tier_list_id, id")
	if err != nil {
		return err
	}
	entriesBy := groupBy(entryRows, "tier_list_id")

	out := make([]catalog.Entity, 0, len(lists))
	for _, tl := range lists {
		entries := []any{}
		for _, en := range entriesBy[num(tl, "id")] {
			entries = append(entries, map[string]any{
				"character_name": text(en, "character_name"),
				"tier":           text(en, "tier"),
				"note":           text(en, "note"),
			})
		}
		out = append(out, catalog.Entity{
			"name":         text(tl, "name"),
			"author":       text(tl, "author"),
			"content_type": text(tl, "content_type"),
			"description":  text(tl, "description"),
			"entries":      entries,
		})
	}
	return e.write("tier-lists.json", out)
}

func (e *Exporter) exportTeams(ctx context.Context) error {
	teams, err := e.db.QueryRows(ctx, "SELECT * FROM teams ORDER BY id")
	if err != nil {
		return err
	}
	memberRows, err := e.db.QueryRows(ctx,
		"SELECT * FROM team_members ORDER BY team_id, id")
	if err != nil {
		return err
	}
	subRows, err := e.db.QueryRows(ctx,
		"SELECT * FROM team_member_substitutes ORDER BY team_member_id, id")
	if err != nil {
		return err
	}
	membersBy := groupBy(memberRows, "team_id")
	subsBy := groupBy(subRows, "team_member_id")

	out := make([]catalog.Entity, 0, len(teams))
	for _, t := range teams {
		members := []any{}
		for _, m := range membersBy[num(t, "id")] {
			subs := []string{}
			for _, s := range subsBy[num(m, "id")] {
				subs = append(subs, text(s, "character_name"))
			}
			members = append(members, map[string]any{
				"character_name": text(m, "character_name"),
				"turn_order":     num(m, "turn_order"),
				"substitutes":    subs,
				"note":           text(m, "note"),
			})
		}
		out = append(out, catalog.Entity{
			"name":         text(t, "name"),
			"author":       text(t, "author"),
			"content_type": text(t, "content_type"),
			"description":  text(t, "description"),
			"faction":      text(t, "faction"),
			"members":      members,
			"spells": map[string]any{
				"assault": text(t, "assault_spell"),
				"ward":    text(t, "ward_spell"),
				"rally":   text(t, "rally_spell"),
				"surge":   text(t, "surge_spell"),
			},
		})
	}
	return e.write("teams.json", out)
}

func (e *Exporter) exportUsefulLinks(ctx context.Context) error {
	rows, err := e.db.QueryRows(ctx, "SELECT * FROM useful_links ORDER BY id")
	if err != nil {
		return err
	}
	out := make([]catalog.Entity, 0, len(rows))
	for _, r := range rows {
		out = append(out, catalog.Entity{
			"icon":        text(r, "icon"),
			"application": text(r, "application"),
			"name":        text(r, "name"),
			"description": text(r, "description"),
			"link":        text(r, "link"),
		})
	}
	catalog.SortEntities(out, catalog.UsefulLinkKey)
	return e.write("useful-links.json", out)
}

func (e *Exporter) exportChangelog(ctx context.Context) error {
	entries, err := e.db.QueryRows(ctx, "SELECT * FROM changelog ORDER BY id")
	if err != nil {
		return err
	}
	changeRows, err := e.db.QueryRows(ctx,
		"SELECT * FROM changelog_changes ORDER BY changelog_id, id")
	if err != nil {
		return err
	}
	changesBy := groupBy(changeRows, "changelog_id")

	out := make([]catalog.Entity, 0, len(entries))
	for _, cl := range entries {
		changes := []any{}
		for _, ch := range changesBy[num(cl, "id")] {
			changes = append(changes, map[string]any{
				"type":        text(ch, "type"),
				"category":    text(ch, "category"),
				"description": text(ch, "description"),
			})
		}
		out = append(out, catalog.Entity{
			"date":    text(cl, "date"),
			"version": text(cl, "version"),
			"changes": changes,
		})
	}
	return e.write("changelog.json", out)
}
