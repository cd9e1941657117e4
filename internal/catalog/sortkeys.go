package catalog

import (
	"sort"
	"strings"
)

// fallbackRank sorts unranked enum values after every ranked one.
const fallbackRank = 999

// Display-priority orders for the enumerated fields. Position in the slice
// is the rank; values absent from a slice rank last.
var (
	RarityOrder = []string{"Mythic", "Legendary+", "Legendary", "Epic", "Elite", "Rare", "Common"}

	RoleOrder = []string{"Guardian", "Cleric", "Rogue", "Warrior", "Ranger", "Mage"}

	StatusTypeOrder = []string{"Buff", "Debuff", "Special", "Control", "Elemental", "Blessing", "Curse"}

	ResourceCategoryOrder = []string{"Currency", "Gift", "Item", "Material", "Token", "Shard"}

	TierOrder = []string{"S+", "S", "A", "B", "C", "D"}
)

var (
	rarityRanks   = rankTable(RarityOrder)
	roleRanks     = rankTable(RoleOrder)
	statusRanks   = rankTable(StatusTypeOrder)
	resourceRanks = rankTable(ResourceCategoryOrder)
	tierRanks     = rankTable(TierOrder)
)

func rankTable(order []string) map[string]int {
	t := make(map[string]int, len(order))
	for i, v := range order {
		t[v] = i
	}
	return t
}

func rankOf(table map[string]int, value string) int {
	if r, ok := table[value]; ok {
		return r
	}
	return fallbackRank
}

// RarityRank returns the display rank of a rarity value.
func RarityRank(rarity string) int { return rankOf(rarityRanks, rarity) }

// RoleRank returns the display rank of a character role.
func RoleRank(role string) int { return rankOf(roleRanks, role) }

// TierRank returns the display rank of a tier label.
func TierRank(tier string) int { return rankOf(tierRanks, tier) }

// Key is a composite total-order sort key: a sequence of ints and strings
// compared positionally, like tuple comparison.
type Key []any

// Compare returns -1, 0, or 1 ordering k against o.
func (k Key) Compare(o Key) int {
	for i := 0; i < len(k) && i < len(o); i++ {
		switch a := k[i].(type) {
		case int:
			b, _ := o[i].(int)
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			}
		case string:
			b, _ := o[i].(string)
			if c := strings.Compare(a, b); c != 0 {
				return c
			}
		}
	}
	switch {
	case len(k) < len(o):
		return -1
	case len(k) > len(o):
		return 1
	}
	return 0
}

// KeyFunc derives a category's sort key from one entity.
type KeyFunc func(Entity) Key

// SortEntities orders entities in place by the given key. The sort is
// stable, though keys are total orders in practice (every key ends with the
// unique identity field).
func SortEntities(entities []Entity, key KeyFunc) {
	sort.SliceStable(entities, func(i, j int) bool {
		return key(entities[i]).Compare(key(entities[j])) < 0
	})
}

func lowerName(e Entity) string { return strings.ToLower(e.Str("name")) }

// CharacterKey orders characters by role, rarity, then name.
func CharacterKey(e Entity) Key {
	return Key{RoleRank(e.Str("role")), RarityRank(e.Str("rarity")), lowerName(e)}
}

// SpellKey orders spells by type, rarity, then name.
func SpellKey(e Entity) Key {
	return Key{strings.ToLower(e.Str("type")), RarityRank(e.Str("rarity")), lowerName(e)}
}

// ResourceKey orders resources by category, rarity, then name.
func ResourceKey(e Entity) Key {
	return Key{rankOf(resourceRanks, e.Str("category")), RarityRank(e.Str("rarity")), lowerName(e)}
}

// StatusEffectKey orders status effects by type, then name.
func StatusEffectKey(e Entity) Key {
	return Key{rankOf(statusRanks, e.Str("type")), lowerName(e)}
}

// UsefulLinkKey orders links by application, then name.
func UsefulLinkKey(e Entity) Key {
	return Key{strings.ToLower(e.Str("application")), lowerName(e)}
}

// RelicKey orders relics by rarity, then name.
func RelicKey(e Entity) Key {
	return Key{RarityRank(e.Str("rarity")), lowerName(e)}
}

// WeaponKey orders signature weapons by owning character, then name.
func WeaponKey(e Entity) Key {
	return Key{strings.ToLower(e.Str("character")), lowerName(e)}
}

// FactionKey orders factions by name.
func FactionKey(e Entity) Key { return Key{lowerName(e)} }

// SubclassKey orders subclasses by their first role, tier, then name.
func SubclassKey(e Entity) Key {
	role := e.Str("role")
	if roles := e.Strings("role"); len(roles) > 0 {
		role = roles[0]
	}
	return Key{RoleRank(role), TierRank(e.Str("tier")), lowerName(e)}
}

// CompanionKey orders companions by rarity, then name.
func CompanionKey(e Entity) Key {
	return Key{RarityRank(e.Str("rarity")), lowerName(e)}
}

// BondKey orders companion bonds by name.
func BondKey(e Entity) Key { return Key{lowerName(e)} }

// GearKey orders gear by slot type, rarity, then name.
func GearKey(e Entity) Key {
	return Key{strings.ToLower(e.Str("type")), RarityRank(e.Str("rarity")), lowerName(e)}
}

// GearSetKey orders gear sets by name.
func GearSetKey(e Entity) Key { return Key{lowerName(e)} }

// CodeKey orders redemption codes by the code string.
func CodeKey(e Entity) Key { return Key{strings.ToLower(e.Str("code"))} }

// TierListKey orders tier lists by content type, then name.
func TierListKey(e Entity) Key {
	return Key{strings.ToLower(e.Str("content_type")), lowerName(e)}
}

// TeamKey orders teams by content type, then name.
func TeamKey(e Entity) Key {
	return Key{strings.ToLower(e.Str("content_type")), lowerName(e)}
}

// ChangelogKey orders changelog entries chronologically by date, then
// version, so IDs follow release order.
func ChangelogKey(e Entity) Key {
	return Key{e.Str("date"), e.Str("version")}
}
