package sync

import (
	"context"
	"sort"

	"github.com/davrico/lorevault/internal/catalog"
)

// reward is one resolved code reward in insertion order.
type reward struct {
	Resource string
	Quantity int64
}

// codeRewards reads a code's rewards, accepting both shapes: a list of
// {name, quantity} objects, which keeps its order, and a map of resource
// name to quantity, which is ordered by name for determinism. The legacy
// singular "reward" key is honoured when "rewards" is absent.
func codeRewards(c catalog.Entity) []reward {
	raw, ok := c["rewards"]
	if !ok || raw == nil {
		raw = c["reward"]
	}
	switch v := raw.(type) {
	case []any:
		var out []reward
		index := make(map[string]int)
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			e := catalog.Entity(m)
			name := e.Str("name")
			if name == "" {
				continue
			}
			if i, dup := index[name]; dup {
				out[i].Quantity = e.Int("quantity")
				continue
			}
			index[name] = len(out)
			out = append(out, reward{Resource: name, Quantity: e.Int("quantity")})
		}
		return out
	case map[string]any:
		e := catalog.Entity(v)
		names := make([]string, 0, len(e))
		for name := range e {
			if name != "" {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		out := make([]reward, 0, len(names))
		for _, name := range names {
			out = append(out, reward{Resource: name, Quantity: e.Int(name)})
		}
		return out
	}
	return nil
}

// syncResources replaces the resources table. code_rewards rows reference
// resources.id, so they are cleared alongside; rebuildRewards repopulates
// them from codes.json against the code IDs already in the database, which
// a resource-only run needs because it never touches the codes table.
func (s *Syncer) syncResources(ctx context.Context, resourceIDs map[string]int64, rebuildRewards bool) error {
	data := s.sortedDoc("resources.json", catalog.ResourceKey)
	if err := checkDuplicates("resources", "name", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "resources", "name")
	storeEntries := s.hashes.Table("resources")

	s.clearTables("code_rewards", "resources")

	var id int64
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
		s.recordHash("resources", name, h, ts)

		s.batch.Add(
			"INSERT INTO resources (id, name, rarity, description, category, last_updated, data_hash) VALUES (?, ?, ?, ?, ?, ?, ?)",
			id, name, r.Str("rarity"), r.Str("description"), r.Str("category"), ts, h)
	}

	rebuilt := 0
	if rebuildRewards {
		n, err := s.rebuildCodeRewards(ctx, resourceIDs)
		if err != nil {
			return err
		}
		rebuilt = n
	}

	s.logger.Info("synced resources", "count", id, "rebuilt_rewards", rebuilt)
	return nil
}

func (s *Syncer) rebuildCodeRewards(ctx context.Context, resourceIDs map[string]int64) (int, error) {
	rows, err := s.db.QueryRows(ctx, "SELECT id, code FROM codes")
	if err != nil {
		s.warnf("skipping code_rewards rebuild: %v", err)
		return 0, nil
	}
	codeIDs := make(map[string]int64, len(rows))
	for _, row := range rows {
		code, _ := row["code"].(string)
		cid, _ := row["id"].(int64)
		if code != "" && cid != 0 {
			codeIDs[code] = cid
		}
	}

	var rewardID int64
	for _, c := range s.sortedDoc("codes.json", catalog.CodeKey) {
		code := c.Str("code")
		if code == "" {
			continue
		}
		codeID, ok := codeIDs[code]
		if !ok {
			continue
		}
		for _, rw := range codeRewards(c) {
			resourceID, ok := resourceIDs[rw.Resource]
			if !ok {
				return 0, syncErrorf("resources",
					"code %q reward resource %q not found in resources.json", code, rw.Resource)
			}
			rewardID++
			s.batch.Add(
				"INSERT INTO code_rewards (id, code_id, resource_id, quantity) VALUES (?, ?, ?, ?)",
				rewardID, codeID, resourceID, rw.Quantity)
		}
	}
	return int(rewardID), nil
}

// syncCodes replaces codes and code_rewards. An unknown reward resource is
// the one hard reference failure: a reward silently pointing nowhere would
// surface to players as a broken redemption page.
func (s *Syncer) syncCodes(ctx context.Context, resourceIDs map[string]int64) error {
	data := s.sortedDoc("codes.json", catalog.CodeKey)
	if err := checkDuplicates("codes", "code", data); err != nil {
		return err
	}

	oldTS := oldTimestamps(ctx, s.db, "codes", "code")
	storeEntries := s.hashes.Table("codes")

	s.clearTables("code_rewards", "codes")

	var id, rewardID int64
	for _, c := range data {
		code := c.Str("code")
		if code == "" {
			continue
		}
		id++

		h, err := catalog.ContentHash(c)
		if err != nil {
			return err
		}
		ts := resolveTimestamp(code, h, oldTS, s.now, storeEntries)
		s.recordHash("codes", code, h, ts)

		s.batch.Add(
			"INSERT INTO codes (id, code, active, last_updated, data_hash) VALUES (?, ?, ?, ?, ?)",
			id, code, boolField(c, "active", true), ts, h)

		for _, rw := range codeRewards(c) {
			resourceID, ok := resourceIDs[rw.Resource]
			if !ok {
				return syncErrorf("codes",
					"code %q reward resource %q not found in resources.json", code, rw.Resource)
			}
			rewardID++
			s.batch.Add(
				"INSERT INTO code_rewards (id, code_id, resource_id, quantity) VALUES (?, ?, ?, ?)",
				rewardID, id, resourceID, rw.Quantity)
		}
	}

	s.logger.Info("synced codes", "count", id, "rewards", rewardID)
	return nil
}
