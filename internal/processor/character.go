package processor

import (
	"log/slog"

	"github.com/calenhart/lorecrawl/internal/types"
)

// CharacterProcessor extracts playable and non-playable characters.
type CharacterProcessor struct {
	logger *slog.Logger
}

func (cp *CharacterProcessor) Kind() types.EntityKind { return types.KindCharacter }

func (cp *CharacterProcessor) Process(pages []*Page) []*types.EntityRecord {
	return processPages(types.KindCharacter, cp.logger, pages, func(p *Page, rec *types.EntityRecord) {
		attrs := kvTable(p, "attributes", "stats")
		if attrs == nil {
			attrs = tableKV(p, "attribute", "stat")
		}
		setIf(rec, "attributes", attrs)

		skills := classItems(p, "ul.skills, ol.skills, ul.abilities, ol.abilities")
		if skills == nil {
			skills = sectionItems(p, "skill", "abilit")
		}
		if extra := inlineItems(p, "skill", "abilit"); len(extra) > 0 {
			for _, s := range extra {
				skills = appendUnique(skills, s)
			}
		}
		setIf(rec, "skills", skills)

		traits := classItems(p, "ul.traits, ol.traits, ul.perks, ol.perks")
		if traits == nil {
			traits = sectionItems(p, "trait", "perk")
		}
		setIf(rec, "traits", traits)
	})
}
