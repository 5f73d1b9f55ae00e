package processor

import (
	"testing"

	"github.com/calenhart/lorecrawl/internal/types"
)

func questWith(id, name string, field string, values []string) *types.EntityRecord {
	rec := &types.EntityRecord{ID: id, Name: name, Kind: types.KindQuest}
	rec.Set(field, values)
	return rec
}

func TestBuildRelationsQuestReward(t *testing.T) {
	entities := map[types.EntityKind][]*types.EntityRecord{
		types.KindQuest: {
			questWith("the_lost_blade", "The Lost Blade", "rewards", []string{"Iron Sword", "500 gold"}),
		},
		types.KindItem: {
			{ID: "iron_sword", Name: "Iron Sword", Kind: types.KindItem},
		},
	}

	rels := BuildRelations(entities, testLogger())
	if len(rels) != 1 {
		t.Fatalf("got %d relations, want 1 (unresolvable tokens dropped)", len(rels))
	}
	rel := rels[0]

	if rel.SourceType != types.KindQuest || rel.SourceID != "the_lost_blade" {
		t.Errorf("source = %s/%s", rel.SourceType, rel.SourceID)
	}
	if rel.TargetType != types.KindItem || rel.TargetID != "iron_sword" {
		t.Errorf("target = %s/%s", rel.TargetType, rel.TargetID)
	}
	if rel.RelationType != "quest_reward" {
		t.Errorf("relation_type = %q", rel.RelationType)
	}
	if rel.ID != "quest:the_lost_blade:item:iron_sword:quest_reward" {
		t.Errorf("id = %q", rel.ID)
	}
	if _, ok := rel.Data["ambiguous"]; ok {
		t.Error("exact name match must not be flagged ambiguous")
	}
	if rel.Data["source_name"] != "The Lost Blade" || rel.Data["target_name"] != "Iron Sword" {
		t.Errorf("data names = %v", rel.Data)
	}
	// The token matched the target name exactly, so no matched_text.
	if _, ok := rel.Data["matched_text"]; ok {
		t.Errorf("unexpected matched_text: %v", rel.Data["matched_text"])
	}
}

func TestBuildRelationsAmbiguousPicksLowestID(t *testing.T) {
	entities := map[types.EntityKind][]*types.EntityRecord{
		types.KindQuest: {
			questWith("the_lost_blade", "The Lost Blade", "rewards", []string{"Iron Sword or Steel Sword"}),
		},
		types.KindItem: {
			{ID: "steel_sword", Name: "Steel Sword", Kind: types.KindItem},
			{ID: "iron_sword", Name: "Iron Sword", Kind: types.KindItem},
		},
	}

	rels := BuildRelations(entities, testLogger())
	if len(rels) != 1 {
		t.Fatalf("got %d relations", len(rels))
	}
	rel := rels[0]
	if rel.TargetID != "iron_sword" {
		t.Errorf("target = %q, want the lowest candidate id", rel.TargetID)
	}
	if rel.Data["ambiguous"] != true {
		t.Error("multi-candidate match must be flagged ambiguous")
	}
	if rel.Data["matched_text"] != "Iron Sword or Steel Sword" {
		t.Errorf("matched_text = %v", rel.Data["matched_text"])
	}
}

func TestBuildRelationsSkipsSelfAndDuplicates(t *testing.T) {
	entities := map[types.EntityKind][]*types.EntityRecord{
		types.KindQuest: {
			questWith("the_lost_blade", "The Lost Blade", "prerequisites",
				[]string{"The Lost Blade", "First Steps", "first_steps"}),
			{ID: "first_steps", Name: "First Steps", Kind: types.KindQuest},
		},
	}

	rels := BuildRelations(entities, testLogger())
	if len(rels) != 1 {
		t.Fatalf("got %d relations, want self reference and duplicate dropped", len(rels))
	}
	if rels[0].TargetID != "first_steps" || rels[0].RelationType != "quest_prerequisite" {
		t.Errorf("relation = %+v", rels[0])
	}
}

func TestBuildRelationsIgnoresBlankTokens(t *testing.T) {
	entities := map[types.EntityKind][]*types.EntityRecord{
		types.KindQuest: {
			questWith("the_lost_blade", "The Lost Blade", "rewards", []string{"", "   ", "Iron Sword"}),
		},
		types.KindItem: {
			{ID: "iron_sword", Name: "Iron Sword", Kind: types.KindItem},
			{ID: "oak_shield", Name: "Oak Shield", Kind: types.KindItem},
		},
	}

	rels := BuildRelations(entities, testLogger())
	if len(rels) != 1 {
		t.Fatalf("got %d relations, want blank tokens to match nothing", len(rels))
	}
	if rels[0].TargetID != "iron_sword" {
		t.Errorf("target = %q", rels[0].TargetID)
	}
	if _, ok := rels[0].Data["ambiguous"]; ok {
		t.Error("clean match must not be flagged ambiguous")
	}
}

func TestBuildRelationsDeterministic(t *testing.T) {
	build := func() []*types.RelationRecord {
		entities := map[types.EntityKind][]*types.EntityRecord{
			types.KindLocation: {
				{ID: "darkwood", Name: "Darkwood", Kind: types.KindLocation},
			},
			types.KindQuest: {
				questWith("the_lost_blade", "The Lost Blade", "locations", []string{"Darkwood"}),
				questWith("first_steps", "First Steps", "locations", []string{"darkwood"}),
			},
			types.KindEnemy: {
				{ID: "forest_wraith", Name: "Forest Wraith", Kind: types.KindEnemy},
			},
		}
		entities[types.KindLocation][0].Set("enemies", []string{"Forest Wraith"})
		return BuildRelations(entities, testLogger())
	}

	first := build()
	second := build()
	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	if len(first) != 3 {
		t.Fatalf("got %d relations, want 3", len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("relation order differs at %d: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
	// Rule order puts quest_location relations before location_enemy.
	if first[0].RelationType != "quest_location" || first[2].RelationType != "location_enemy" {
		t.Errorf("unexpected rule ordering: %s ... %s", first[0].RelationType, first[2].RelationType)
	}
}
