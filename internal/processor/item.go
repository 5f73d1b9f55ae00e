package processor

import (
	"log/slog"

	"github.com/calenhart/lorecrawl/internal/types"
)

// ItemProcessor extracts weapons, armor, consumables and other items.
type ItemProcessor struct {
	logger *slog.Logger
}

func (ip *ItemProcessor) Kind() types.EntityKind { return types.KindItem }

func (ip *ItemProcessor) Process(pages []*Page) []*types.EntityRecord {
	return processPages(types.KindItem, ip.logger, pages, func(p *Page, rec *types.EntityRecord) {
		category := classText(p, ".category")
		if category == "" {
			category = inlineField(p, "category")
		}
		setIf(rec, "category", category)

		itemType := classText(p, ".item-type, .type")
		if itemType == "" {
			itemType = inlineField(p, "type")
		}
		setIf(rec, "item_type", itemType)

		attrs := kvTable(p, "attributes", "stats")
		if attrs == nil {
			attrs = tableKV(p, "attribute", "stat")
		}
		setIf(rec, "attributes", attrs)

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

		if value := inlineField(p, "value", "price", "cost"); value != "" {
			rec.Set("value", coerceNumber(value))
		}
		if weight := inlineField(p, "weight"); weight != "" {
			rec.Set("weight", coerceNumber(weight))
		}
	})
}
