// Package schema defines the canonical relational layout of the wiki
// database and brings live databases up to date with it.
//
// Tables lists every table with its DDL in foreign-key-safe creation
// order. Ensure diffs a live database against that list, creates
// whatever is missing, and applies the column migrations older
// databases need. Destructive steps (dropping a legacy column) only
// run once every affected row has been migrated, otherwise the column
// is kept and a warning is reported.
package schema

// Table pairs a table name with the DDL that creates it. The DDL may
// contain more than one statement (the table plus its indexes).
type Table struct {
	Name string
	DDL  string
}

// TimestampTables are the entity tables that carry change-tracking
// columns. Every table listed here has a last_updated INTEGER unix
// timestamp and a data_hash TEXT column holding the content hash of
// the JSON entry the row was synced from.
var TimestampTables = []string{
	"factions",
	"subclasses",
	"characters",
	"spells",
	"resources",
	"codes",
	"status_effects",
	"tier_lists",
	"teams",
	"useful_links",
	"relics",
	"companions",
	"gear_sets",
	"gear",
	"bonds",
	"weapons",
	"changelog",
}

// Tables holds the canonical DDL in creation order. Parents come
// before the tables that reference them so the whole list can be
// executed top to bottom against an empty database.
var Tables = []Table{
	{Name: "factions", DDL: `
	CREATE TABLE IF NOT EXISTS factions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		patron TEXT,
		description TEXT,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "faction_recommended_relics", DDL: `
	CREATE TABLE IF NOT EXISTS faction_recommended_relics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		faction_id INTEGER NOT NULL,
		relic_name TEXT NOT NULL,
		FOREIGN KEY (faction_id) REFERENCES factions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_faction_recommended_relics_faction
	    ON faction_recommended_relics(faction_id);
	`},

	{Name: "subclasses", DDL: `
	CREATE TABLE IF NOT EXISTS subclasses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		tier INTEGER NOT NULL DEFAULT 0,
		effect TEXT,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "subclass_roles", DDL: `
	CREATE TABLE IF NOT EXISTS subclass_roles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subclass_id INTEGER NOT NULL,
		role TEXT NOT NULL,
		UNIQUE (subclass_id, role),
		FOREIGN KEY (subclass_id) REFERENCES subclasses(id)
	);
	`},

	{Name: "subclass_bonuses", DDL: `
	CREATE TABLE IF NOT EXISTS subclass_bonuses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subclass_id INTEGER NOT NULL,
		bonus_text TEXT NOT NULL,
		FOREIGN KEY (subclass_id) REFERENCES subclasses(id)
	);

	CREATE INDEX IF NOT EXISTS idx_subclass_bonuses_subclass
	    ON subclass_bonuses(subclass_id);
	`},

	{Name: "characters", DDL: `
	CREATE TABLE IF NOT EXISTS characters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		title TEXT,
		rarity TEXT,
		role TEXT,
		is_global INTEGER NOT NULL DEFAULT 1,
		height TEXT,
		weight TEXT,
		origin TEXT,
		lore TEXT,
		quote TEXT,
		talent_name TEXT,
		weapon TEXT,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "character_factions", DDL: `
	CREATE TABLE IF NOT EXISTS character_factions (
		character_id INTEGER NOT NULL,
		faction_id INTEGER NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (character_id, faction_id),
		FOREIGN KEY (character_id) REFERENCES characters(id),
		FOREIGN KEY (faction_id) REFERENCES factions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_character_factions_faction
	    ON character_factions(faction_id);
	`},

	{Name: "character_subclasses", DDL: `
	CREATE TABLE IF NOT EXISTS character_subclasses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		character_id INTEGER NOT NULL,
		subclass_id INTEGER,
		subclass_name TEXT NOT NULL,
		FOREIGN KEY (character_id) REFERENCES characters(id),
		FOREIGN KEY (subclass_id) REFERENCES subclasses(id)
	);

	CREATE INDEX IF NOT EXISTS idx_character_subclasses_character
	    ON character_subclasses(character_id);
	CREATE INDEX IF NOT EXISTS idx_character_subclasses_subclass
	    ON character_subclasses(subclass_id);
	`},

	{Name: "talent_levels", DDL: `
	CREATE TABLE IF NOT EXISTS talent_levels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		character_id INTEGER NOT NULL,
		level INTEGER NOT NULL,
		effect TEXT,
		FOREIGN KEY (character_id) REFERENCES characters(id)
	);

	CREATE INDEX IF NOT EXISTS idx_talent_levels_character
	    ON talent_levels(character_id);
	`},

	{Name: "skills", DDL: `
	CREATE TABLE IF NOT EXISTS skills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		character_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		type TEXT,
		description TEXT,
		cooldown REAL NOT NULL DEFAULT 0,
		FOREIGN KEY (character_id) REFERENCES characters(id)
	);

	CREATE INDEX IF NOT EXISTS idx_skills_character
	    ON skills(character_id);
	`},

	{Name: "spells", DDL: `
	CREATE TABLE IF NOT EXISTS spells (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		effect TEXT,
		type TEXT,
		rarity TEXT,
		exclusive_faction TEXT,
		is_global INTEGER NOT NULL DEFAULT 0,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "resources", DDL: `
	CREATE TABLE IF NOT EXISTS resources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		rarity TEXT NOT NULL DEFAULT '',
		description TEXT,
		category TEXT NOT NULL DEFAULT '',
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "codes", DDL: `
	CREATE TABLE IF NOT EXISTS codes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		active INTEGER NOT NULL DEFAULT 1,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "code_rewards", DDL: `
	CREATE TABLE IF NOT EXISTS code_rewards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code_id INTEGER NOT NULL,
		resource_id INTEGER,
		quantity INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (code_id) REFERENCES codes(id),
		FOREIGN KEY (resource_id) REFERENCES resources(id)
	);

	CREATE INDEX IF NOT EXISTS idx_code_rewards_code
	    ON code_rewards(code_id);
	CREATE INDEX IF NOT EXISTS idx_code_rewards_resource
	    ON code_rewards(resource_id);
	`},

	{Name: "status_effects", DDL: `
	CREATE TABLE IF NOT EXISTS status_effects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		type TEXT,
		effect TEXT,
		remark TEXT,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "tier_lists", DDL: `
	CREATE TABLE IF NOT EXISTS tier_lists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		author TEXT,
		content_type TEXT,
		description TEXT,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "tier_list_entries", DDL: `
	CREATE TABLE IF NOT EXISTS tier_list_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tier_list_id INTEGER NOT NULL,
		character_name TEXT NOT NULL,
		tier TEXT,
		note TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (tier_list_id) REFERENCES tier_lists(id)
	);

	CREATE INDEX IF NOT EXISTS idx_tier_list_entries_list
	    ON tier_list_entries(tier_list_id);
	`},

	{Name: "teams", DDL: `
	CREATE TABLE IF NOT EXISTS teams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		author TEXT,
		content_type TEXT,
		description TEXT,
		faction TEXT,
		assault_spell TEXT,
		ward_spell TEXT,
		rally_spell TEXT,
		surge_spell TEXT,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "team_members", DDL: `
	CREATE TABLE IF NOT EXISTS team_members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id INTEGER NOT NULL,
		character_name TEXT NOT NULL,
		turn_order INTEGER NOT NULL DEFAULT 0,
		note TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (team_id) REFERENCES teams(id)
	);

	CREATE INDEX IF NOT EXISTS idx_team_members_team
	    ON team_members(team_id);
	`},

	{Name: "team_member_substitutes", DDL: `
	CREATE TABLE IF NOT EXISTS team_member_substitutes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		team_member_id INTEGER NOT NULL,
		character_name TEXT NOT NULL,
		FOREIGN KEY (team_member_id) REFERENCES team_members(id)
	);

	CREATE INDEX IF NOT EXISTS idx_team_member_substitutes_member
	    ON team_member_substitutes(team_member_id);
	`},

	{Name: "useful_links", DDL: `
	CREATE TABLE IF NOT EXISTS useful_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		icon TEXT,
		application TEXT,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		link TEXT,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "relics", DDL: `
	CREATE TABLE IF NOT EXISTS relics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		is_global INTEGER NOT NULL DEFAULT 0,
		lore TEXT,
		rarity TEXT NOT NULL DEFAULT '',
		grid_columns INTEGER NOT NULL DEFAULT 0,
		grid_rows INTEGER NOT NULL DEFAULT 0,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "relic_effects", DDL: `
	CREATE TABLE IF NOT EXISTS relic_effects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		relic_id INTEGER NOT NULL,
		level INTEGER NOT NULL,
		description TEXT,
		FOREIGN KEY (relic_id) REFERENCES relics(id)
	);

	CREATE INDEX IF NOT EXISTS idx_relic_effects_relic
	    ON relic_effects(relic_id);
	`},

	{Name: "relic_treasures", DDL: `
	CREATE TABLE IF NOT EXISTS relic_treasures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		relic_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		lore TEXT,
		role TEXT,
		FOREIGN KEY (relic_id) REFERENCES relics(id)
	);

	CREATE INDEX IF NOT EXISTS idx_relic_treasures_relic
	    ON relic_treasures(relic_id);
	`},

	{Name: "relic_treasure_effects", DDL: `
	CREATE TABLE IF NOT EXISTS relic_treasure_effects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		treasure_id INTEGER NOT NULL,
		level INTEGER NOT NULL,
		description TEXT,
		FOREIGN KEY (treasure_id) REFERENCES relic_treasures(id)
	);

	CREATE INDEX IF NOT EXISTS idx_relic_treasure_effects_treasure
	    ON relic_treasure_effects(treasure_id);
	`},

	{Name: "companions", DDL: `
	CREATE TABLE IF NOT EXISTS companions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		rarity TEXT NOT NULL DEFAULT '',
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "companion_passive_effects", DDL: `
	CREATE TABLE IF NOT EXISTS companion_passive_effects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		companion_id INTEGER NOT NULL,
		effect TEXT NOT NULL,
		FOREIGN KEY (companion_id) REFERENCES companions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_companion_passive_effects_companion
	    ON companion_passive_effects(companion_id);
	`},

	{Name: "companion_stats", DDL: `
	CREATE TABLE IF NOT EXISTS companion_stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		companion_id INTEGER NOT NULL,
		stat_name TEXT NOT NULL,
		stat_value REAL NOT NULL,
		FOREIGN KEY (companion_id) REFERENCES companions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_companion_stats_companion
	    ON companion_stats(companion_id);
	`},

	{Name: "gear_sets", DDL: `
	CREATE TABLE IF NOT EXISTS gear_sets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		bonus_quantity INTEGER NOT NULL DEFAULT 0,
		bonus_description TEXT,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "gear", DDL: `
	CREATE TABLE IF NOT EXISTS gear (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		set_id INTEGER,
		type TEXT NOT NULL,
		rarity TEXT NOT NULL DEFAULT '',
		lore TEXT,
		stats_json TEXT,
		last_updated INTEGER,
		data_hash TEXT,
		FOREIGN KEY (set_id) REFERENCES gear_sets(id)
	);

	CREATE INDEX IF NOT EXISTS idx_gear_set
	    ON gear(set_id);
	`},

	{Name: "bonds", DDL: `
	CREATE TABLE IF NOT EXISTS bonds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "bond_companions", DDL: `
	CREATE TABLE IF NOT EXISTS bond_companions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bond_id INTEGER NOT NULL,
		companion_name TEXT NOT NULL,
		FOREIGN KEY (bond_id) REFERENCES bonds(id)
	);

	CREATE INDEX IF NOT EXISTS idx_bond_companions_bond
	    ON bond_companions(bond_id);
	`},

	{Name: "bond_effects", DDL: `
	CREATE TABLE IF NOT EXISTS bond_effects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bond_id INTEGER NOT NULL,
		level INTEGER NOT NULL DEFAULT 0,
		stat TEXT NOT NULL,
		FOREIGN KEY (bond_id) REFERENCES bonds(id)
	);

	CREATE INDEX IF NOT EXISTS idx_bond_effects_bond
	    ON bond_effects(bond_id);
	`},

	{Name: "weapons", DDL: `
	CREATE TABLE IF NOT EXISTS weapons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		character_name TEXT,
		is_global INTEGER NOT NULL DEFAULT 0,
		lore TEXT,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "weapon_effects", DDL: `
	CREATE TABLE IF NOT EXISTS weapon_effects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		weapon_id INTEGER NOT NULL,
		tier TEXT,
		tier_level INTEGER,
		description TEXT,
		FOREIGN KEY (weapon_id) REFERENCES weapons(id)
	);

	CREATE INDEX IF NOT EXISTS idx_weapon_effects_weapon
	    ON weapon_effects(weapon_id);
	`},

	{Name: "weapon_skills", DDL: `
	CREATE TABLE IF NOT EXISTS weapon_skills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		weapon_id INTEGER NOT NULL,
		level INTEGER NOT NULL,
		tier TEXT,
		tier_level INTEGER,
		description TEXT,
		FOREIGN KEY (weapon_id) REFERENCES weapons(id)
	);

	CREATE INDEX IF NOT EXISTS idx_weapon_skills_weapon
	    ON weapon_skills(weapon_id);
	`},

	{Name: "changelog", DDL: `
	CREATE TABLE IF NOT EXISTS changelog (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		version TEXT NOT NULL UNIQUE,
		last_updated INTEGER,
		data_hash TEXT
	);
	`},

	{Name: "changelog_changes", DDL: `
	CREATE TABLE IF NOT EXISTS changelog_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		changelog_id INTEGER NOT NULL,
		type TEXT,
		category TEXT,
		description TEXT,
		FOREIGN KEY (changelog_id) REFERENCES changelog(id)
	);

	CREATE INDEX IF NOT EXISTS idx_changelog_changes_changelog
	    ON changelog_changes(changelog_id);
	`},
}

// DDLFor returns the canonical DDL for a table.
func DDLFor(name string) (string, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t.DDL, true
		}
	}
	return "", false
}
