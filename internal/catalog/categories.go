package catalog

import (
	"fmt"
	"strings"
)

// Category describes one synced content type: its JSON document, identity
// field, parent table, canonical sort order, and what it needs from other
// categories. DependsOn lists categories whose rows must be inserted first
// in the same batch (foreign-key targets); Reads lists extra documents the
// normalizer consults without a sync-order constraint.
type Category struct {
	Name      string
	File      string
	Identity  string
	Table     string
	Key       KeyFunc
	DependsOn []string
	Reads     []string
}

// Registry lists every category in canonical declaration order. The order
// already satisfies the dependency edges; Plan still derives the run order
// topologically so new edges cannot be silently violated.
var Registry = []Category{
	{
		Name:     "factions",
		File:     "factions.json",
		Identity: "name",
		Table:    "factions",
		Key:      FactionKey,
		Reads:    []string{"relics.json", "characters.json"},
	},
	{
		Name:     "subclasses",
		File:     "subclasses.json",
		Identity: "name",
		Table:    "subclasses",
		Key:      SubclassKey,
	},
	{
		Name:      "characters",
		File:      "characters.json",
		Identity:  "name",
		Table:     "characters",
		Key:       CharacterKey,
		DependsOn: []string{"factions", "subclasses"},
		Reads:     []string{"factions.json", "subclasses.json"},
	},
	{
		Name:     "spells",
		File:     "spells.json",
		Identity: "name",
		Table:    "spells",
		Key:      SpellKey,
	},
	{
		Name:     "weapons",
		File:     "weapons.json",
		Identity: "name",
		Table:    "weapons",
		Key:      WeaponKey,
	},
	{
		Name:     "resources",
		File:     "resources.json",
		Identity: "name",
		Table:    "resources",
		Key:      ResourceKey,
		Reads:    []string{"codes.json"},
	},
	{
		Name:      "codes",
		File:      "codes.json",
		Identity:  "code",
		Table:     "codes",
		Key:       CodeKey,
		DependsOn: []string{"resources"},
		Reads:     []string{"resources.json"},
	},
	{
		Name:     "status-effects",
		File:     "status-effects.json",
		Identity: "name",
		Table:    "status_effects",
		Key:      StatusEffectKey,
	},
	{
		Name:     "tier-lists",
		File:     "tier-lists.json",
		Identity: "name",
		Table:    "tier_lists",
		Key:      TierListKey,
	},
	{
		Name:     "teams",
		File:     "teams.json",
		Identity: "name",
		Table:    "teams",
		Key:      TeamKey,
	},
	{
		Name:     "useful-links",
		File:     "useful-links.json",
		Identity: "name",
		Table:    "useful_links",
		Key:      UsefulLinkKey,
	},
	{
		Name:     "relics",
		File:     "relics.json",
		Identity: "name",
		Table:    "relics",
		Key:      RelicKey,
	},
	{
		Name:     "companions",
		File:     "companions.json",
		Identity: "name",
		Table:    "companions",
		Key:      CompanionKey,
	},
	{
		Name:     "gear",
		File:     "gear.json",
		Identity: "name",
		Table:    "gear",
		Key:      GearKey,
		Reads:    []string{"gear_sets.json"},
	},
	{
		Name:     "bonds",
		File:     "bonds.json",
		Identity: "name",
		Table:    "bonds",
		Key:      BondKey,
		Reads:    []string{"companions.json"},
	},
	{
		Name:     "changelog",
		File:     "changelog.json",
		Identity: "version",
		Table:    "changelog",
		Key:      ChangelogKey,
	},
}

var byName = func() map[string]*Category {
	m := make(map[string]*Category, len(Registry))
	for i := range Registry {
		m[Registry[i].Name] = &Registry[i]
	}
	return m
}()

// ByName looks up a category by its registry name.
func ByName(name string) (*Category, bool) {
	c, ok := byName[name]
	return c, ok
}

// Names returns every category name in declaration order.
func Names() []string {
	names := make([]string, len(Registry))
	for i := range Registry {
		names[i] = Registry[i].Name
	}
	return names
}

// Plan returns the categories a run executes, in dependency order. target
// is one category name or "all". For "all" the order is a topological sort
// over DependsOn edges, breaking ties by declaration order, so foreign-key
// targets are always inserted before the rows that reference them.
func Plan(target string) ([]*Category, error) {
	if target == "" || target == "all" {
		return topoOrder()
	}
	cat, ok := byName[target]
	if !ok {
		return nil, fmt.Errorf("unknown target %q (valid: all, %s)", target, strings.Join(Names(), ", "))
	}
	return []*Category{cat}, nil
}

func topoOrder() ([]*Category, error) {
	indegree := make(map[string]int, len(Registry))
	for i := range Registry {
		indegree[Registry[i].Name] = len(Registry[i].DependsOn)
	}

	var order []*Category
	done := make(map[string]bool, len(Registry))
	for len(order) < len(Registry) {
		progressed := false
		for i := range Registry {
			c := &Registry[i]
			if done[c.Name] || indegree[c.Name] != 0 {
				continue
			}
			order = append(order, c)
			done[c.Name] = true
			progressed = true
			for j := range Registry {
				for _, dep := range Registry[j].DependsOn {
					if dep == c.Name {
						indegree[Registry[j].Name]--
					}
				}
			}
		}
		if !progressed {
			return nil, fmt.Errorf("category dependency cycle involving %s", pendingNames(done))
		}
	}
	return order, nil
}

func pendingNames(done map[string]bool) string {
	var pending []string
	for i := range Registry {
		if !done[Registry[i].Name] {
			pending = append(pending, Registry[i].Name)
		}
	}
	return strings.Join(pending, ", ")
}

// DocumentsFor returns the JSON files a set of categories needs loaded, in
// first-mention order without duplicates.
func DocumentsFor(cats []*Category) []string {
	var files []string
	seen := make(map[string]bool)
	add := func(f string) {
		if f != "" && !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}
	for _, c := range cats {
		add(c.File)
		for _, r := range c.Reads {
			add(r)
		}
	}
	return files
}

// Document describes one JSON file on disk for the file-maintenance tools:
// which field identifies entries and the canonical order normalize imposes.
// A nil Key means the file keeps its hand-curated order.
type Document struct {
	File     string
	Identity string
	Key      KeyFunc
}

// handOrdered files are curated by humans in a meaningful order; normalize
// leaves their element order alone even though sync assigns IDs canonically.
var handOrdered = map[string]bool{
	"codes.json":      true,
	"tier-lists.json": true,
	"teams.json":      true,
	"changelog.json":  true,
}

// Documents returns every data file the tools maintain, in registry order.
// gear_sets.json is listed separately because it shares the gear category
// but is its own document.
func Documents() []Document {
	docs := make([]Document, 0, len(Registry)+1)
	for i := range Registry {
		c := &Registry[i]
		d := Document{File: c.File, Identity: c.Identity, Key: c.Key}
		if handOrdered[c.File] {
			d.Key = nil
		}
		docs = append(docs, d)
		if c.Name == "gear" {
			docs = append(docs, Document{File: "gear_sets.json", Identity: "name", Key: GearSetKey})
		}
	}
	return docs
}

// DocumentByFile resolves a file name (base name, with or without .json) to
// its Document description.
func DocumentByFile(name string) (Document, bool) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	for _, d := range Documents() {
		if d.File == name {
			return d, true
		}
	}
	return Document{}, false
}
