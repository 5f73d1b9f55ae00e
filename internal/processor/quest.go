package processor

import (
	"log/slog"

	"github.com/calenhart/lorecrawl/internal/types"
)

// QuestProcessor extracts quests and missions.
type QuestProcessor struct {
	logger *slog.Logger
}

func (qp *QuestProcessor) Kind() types.EntityKind { return types.KindQuest }

func (qp *QuestProcessor) Process(pages []*Page) []*types.EntityRecord {
	return processPages(types.KindQuest, qp.logger, pages, func(p *Page, rec *types.EntityRecord) {
		questType := classText(p, ".quest-type, .type")
		if questType == "" {
			questType = inlineField(p, "type", "category")
		}
		setIf(rec, "quest_type", questType)

		objectives := classItems(p, "ul.objectives, ol.objectives, ul.goals, ol.goals")
		if objectives == nil {
			objectives = sectionItems(p, "objective", "goal", "task")
		}
		if extra := inlineItems(p, "objective", "goal"); len(extra) > 0 {
			for _, o := range extra {
				objectives = appendUnique(objectives, o)
			}
		}
		setIf(rec, "objectives", objectives)

		rewards := classItems(p, "ul.rewards, ol.rewards, ul.loot, ol.loot")
		if rewards == nil {
			rewards = sectionItems(p, "reward", "loot")
		}
		if extra := inlineItems(p, "reward", "loot"); len(extra) > 0 {
			for _, r := range extra {
				rewards = appendUnique(rewards, r)
			}
		}
		setIf(rec, "rewards", rewards)

		prereqs := classItems(p, "ul.prerequisites, ol.prerequisites, ul.requirements, ol.requirements")
		if prereqs == nil {
			prereqs = sectionItems(p, "prerequisite", "requirement")
		}
		setIf(rec, "prerequisites", prereqs)

		locations := classItems(p, "ul.locations, ol.locations, ul.places, ol.places")
		if locations == nil {
			locations = sectionItems(p, "location", "place", "area")
		}
		if extra := inlineItems(p, "location", "place"); len(extra) > 0 {
			for _, l := range extra {
				locations = appendUnique(locations, l)
			}
		}
		setIf(rec, "locations", locations)

		npcs := classItems(p, "ul.npcs, ol.npcs, ul.characters, ol.characters")
		if npcs == nil {
			npcs = sectionItems(p, "npc")
		}
		setIf(rec, "npcs", npcs)

		difficulty := classText(p, ".difficulty, .level")
		if difficulty == "" {
			difficulty = inlineField(p, "difficulty", "level")
		}
		setIf(rec, "difficulty", difficulty)
	})
}
