package processor

import (
	"log/slog"

	"github.com/calenhart/lorecrawl/internal/types"
)

// EnemyProcessor extracts enemies and bosses.
type EnemyProcessor struct {
	logger *slog.Logger
}

func (ep *EnemyProcessor) Kind() types.EntityKind { return types.KindEnemy }

func (ep *EnemyProcessor) Process(pages []*Page) []*types.EntityRecord {
	return processPages(types.KindEnemy, ep.logger, pages, func(p *Page, rec *types.EntityRecord) {
		enemyType := classText(p, ".enemy-type, .type")
		if enemyType == "" {
			enemyType = inlineField(p, "type", "species")
		}
		setIf(rec, "enemy_type", enemyType)

		stats := kvTable(p, "stats", "attributes")
		if stats == nil {
			stats = tableKV(p, "stat", "attribute", "health")
		}
		if stats == nil {
			stats = inlineStats(p)
		}
		setIf(rec, "stats", stats)

		resist := kvTable(p, "resistances")
		if resist == nil {
			resist = tableKV(p, "resistance")
		}
		setIf(rec, "resistances", resist)

		weaknesses := classItems(p, "ul.weaknesses, ol.weaknesses")
		if weaknesses == nil {
			weaknesses = sectionItems(p, "weakness")
		}
		if extra := inlineItems(p, "weakness"); len(extra) > 0 {
			for _, w := range extra {
				weaknesses = appendUnique(weaknesses, w)
			}
		}
		setIf(rec, "weaknesses", weaknesses)

		abilities := classItems(p, "ul.abilities, ol.abilities")
		if abilities == nil {
			abilities = sectionItems(p, "abilit", "attack")
		}
		setIf(rec, "abilities", abilities)

		drops := classItems(p, "ul.drops, ol.drops, ul.loot, ol.loot")
		if drops == nil {
			drops = sectionItems(p, "drop", "loot")
		}
		if extra := inlineItems(p, "drop", "loot"); len(extra) > 0 {
			for _, d := range extra {
				drops = appendUnique(drops, d)
			}
		}
		setIf(rec, "drops", drops)
	})
}

// inlineStats collects the conventional combat numbers from "Key: Value"
// list lines when no stats table exists.
func inlineStats(p *Page) map[string]any {
	stats := make(map[string]any)
	for _, key := range []string{"health", "attack", "defense"} {
		if v := inlineField(p, key); v != "" {
			stats[key] = coerceNumber(v)
		}
	}
	if len(stats) == 0 {
		return nil
	}
	return stats
}
