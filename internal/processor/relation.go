package processor

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/calenhart/lorecrawl/internal/types"
)

// relationRule maps one reference field of a source kind to its target kind
// and the relation type emitted on a match.
type relationRule struct {
	sourceKind types.EntityKind
	field      string
	targetKind types.EntityKind
	relType    string
}

// relationRules is scanned in order; the order is part of the deterministic
// output contract.
var relationRules = []relationRule{
	{types.KindCharacter, "skills", types.KindSkill, "character_skill"},
	{types.KindEnemy, "drops", types.KindItem, "enemy_drop"},
	{types.KindQuest, "rewards", types.KindItem, "quest_reward"},
	{types.KindQuest, "locations", types.KindLocation, "quest_location"},
	{types.KindQuest, "npcs", types.KindCharacter, "quest_npc"},
	{types.KindQuest, "prerequisites", types.KindQuest, "quest_prerequisite"},
	{types.KindLocation, "npcs", types.KindCharacter, "location_npc"},
	{types.KindLocation, "enemies", types.KindEnemy, "location_enemy"},
	{types.KindLocation, "quests", types.KindQuest, "location_quest"},
}

// targetIndex resolves reference tokens against one entity kind's records.
type targetIndex struct {
	byID    map[string]*types.EntityRecord
	entries []*types.EntityRecord // sorted by id
}

func newTargetIndex(records []*types.EntityRecord) *targetIndex {
	idx := &targetIndex{byID: make(map[string]*types.EntityRecord, len(records))}
	for _, rec := range records {
		idx.byID[rec.ID] = rec
	}
	idx.entries = append(idx.entries, records...)
	sort.Slice(idx.entries, func(i, j int) bool { return idx.entries[i].ID < idx.entries[j].ID })
	return idx
}

// resolve matches a token against the index. An exact id match (verbatim or
// slugified) is unambiguous. Otherwise case-insensitive name containment is
// tried; multiple candidates resolve to the lowest id with ambiguous set.
func (idx *targetIndex) resolve(token string) (target *types.EntityRecord, ambiguous bool) {
	if strings.TrimSpace(token) == "" {
		return nil, false
	}
	if rec, ok := idx.byID[token]; ok {
		return rec, false
	}
	if rec, ok := idx.byID[types.Slugify(token)]; ok {
		return rec, false
	}

	tokenLower := strings.ToLower(token)
	var candidates []*types.EntityRecord
	for _, rec := range idx.entries {
		nameLower := strings.ToLower(rec.Name)
		if nameLower == "" {
			continue
		}
		if strings.Contains(tokenLower, nameLower) || strings.Contains(nameLower, tokenLower) {
			candidates = append(candidates, rec)
		}
	}
	switch len(candidates) {
	case 0:
		return nil, false
	case 1:
		return candidates[0], false
	default:
		return candidates[0], true
	}
}

// BuildRelations scans every entity's reference fields against the other
// entity sets and emits one relation per distinct (source, target, type)
// tuple. The walk is fully ordered, so an unchanged entity set reproduces
// the same records byte for byte.
func BuildRelations(entities map[types.EntityKind][]*types.EntityRecord, logger *slog.Logger) []*types.RelationRecord {
	indexes := make(map[types.EntityKind]*targetIndex, len(entities))
	for kind, records := range entities {
		indexes[kind] = newTargetIndex(records)
	}

	var (
		relations []*types.RelationRecord
		seen      = make(map[string]bool)
		ambiguous int
	)

	for _, rule := range relationRules {
		sources := indexes[rule.sourceKind]
		targets := indexes[rule.targetKind]
		if sources == nil || targets == nil {
			continue
		}

		for _, source := range sources.entries {
			for _, token := range source.StringList(rule.field) {
				target, ambig := targets.resolve(token)
				if target == nil {
					continue
				}
				if target.Kind == source.Kind && target.ID == source.ID {
					continue
				}

				rel := types.NewRelation(rule.sourceKind, source.ID, rule.targetKind, target.ID, rule.relType)
				if seen[rel.ID] {
					continue
				}
				seen[rel.ID] = true

				rel.Data["source_name"] = source.Name
				rel.Data["target_name"] = target.Name
				rel.Data["field"] = rule.field
				if token != target.Name {
					rel.Data["matched_text"] = token
				}
				if ambig {
					rel.Data["ambiguous"] = true
					ambiguous++
				}
				relations = append(relations, rel)
			}
		}
	}

	logger.Info("relations built", "count", len(relations), "ambiguous", ambiguous)
	return relations
}
