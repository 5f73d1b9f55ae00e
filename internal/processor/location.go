package processor

import (
	"log/slog"
	"strings"

	"github.com/calenhart/lorecrawl/internal/types"
)

// LocationProcessor extracts zones, towns and other places.
type LocationProcessor struct {
	logger *slog.Logger
}

func (lp *LocationProcessor) Kind() types.EntityKind { return types.KindLocation }

func (lp *LocationProcessor) Process(pages []*Page) []*types.EntityRecord {
	return processPages(types.KindLocation, lp.logger, pages, func(p *Page, rec *types.EntityRecord) {
		locType := classText(p, ".location-type, .type")
		if locType == "" {
			locType = inlineField(p, "type")
		}
		setIf(rec, "location_type", locType)

		region := classText(p, ".region")
		if region == "" {
			region = inlineField(p, "region", "area", "zone")
		}
		setIf(rec, "region", region)

		setIf(rec, "coordinates", coordinates(p))

		npcs := classItems(p, "ul.npcs, ol.npcs")
		if npcs == nil {
			npcs = sectionItems(p, "npc", "character")
		}
		if extra := inlineItems(p, "npc"); len(extra) > 0 {
			for _, n := range extra {
				npcs = appendUnique(npcs, n)
			}
		}
		setIf(rec, "npcs", npcs)

		enemies := classItems(p, "ul.enemies, ol.enemies")
		if enemies == nil {
			enemies = sectionItems(p, "enem", "monster")
		}
		setIf(rec, "enemies", enemies)

		resources := classItems(p, "ul.resources, ol.resources")
		if resources == nil {
			resources = sectionItems(p, "resource", "material")
		}
		setIf(rec, "resources", resources)

		quests := classItems(p, "ul.quests, ol.quests")
		if quests == nil {
			quests = sectionItems(p, "quest", "mission")
		}
		setIf(rec, "quests", quests)

		connections := sectionItems(p, "connection", "exit", "adjacent")
		setIf(rec, "connections", connections)
	})
}

// coordinates parses an "X: n, Y: m" style line into a coordinate map.
func coordinates(p *Page) map[string]any {
	raw := inlineField(p, "coordinates", "position")
	if raw == "" {
		return nil
	}
	coords := make(map[string]any)
	for _, part := range strings.Split(raw, ",") {
		axis, value, ok := splitInline(part)
		if !ok {
			continue
		}
		axis = strings.ToLower(axis)
		if axis == "x" || axis == "y" || axis == "z" {
			coords[axis] = coerceNumber(value)
		}
	}
	if len(coords) == 0 {
		return nil
	}
	return coords
}
