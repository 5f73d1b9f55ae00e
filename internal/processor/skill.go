package processor

import (
	"log/slog"

	"github.com/calenhart/lorecrawl/internal/types"
)

// SkillProcessor extracts skills and abilities.
type SkillProcessor struct {
	logger *slog.Logger
}

func (sp *SkillProcessor) Kind() types.EntityKind { return types.KindSkill }

func (sp *SkillProcessor) Process(pages []*Page) []*types.EntityRecord {
	return processPages(types.KindSkill, sp.logger, pages, func(p *Page, rec *types.EntityRecord) {
		skillType := classText(p, ".skill-type, .type")
		if skillType == "" {
			skillType = inlineField(p, "type", "category")
		}
		setIf(rec, "skill_type", skillType)

		tree := classText(p, ".skill-tree, .tree")
		if tree == "" {
			tree = inlineField(p, "tree", "branch")
		}
		setIf(rec, "skill_tree", tree)

		effects := classItems(p, "ul.effects, ol.effects")
		if effects == nil {
			effects = sectionItems(p, "effect")
		}
		setIf(rec, "effects", effects)

		reqs := kvTable(p, "requirements")
		if reqs == nil {
			reqs = tableKV(p, "requirement")
		}
		setIf(rec, "requirements", reqs)

		if cd := inlineField(p, "cooldown"); cd != "" {
			rec.Set("cooldown", coerceNumber(cd))
		}
		if cost := inlineField(p, "energy", "cost", "mana"); cost != "" {
			rec.Set("energy_cost", coerceNumber(cost))
		}
	})
}
