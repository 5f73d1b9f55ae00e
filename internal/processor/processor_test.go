package processor

import (
	"testing"

	"github.com/calenhart/lorecrawl/internal/types"
)

func TestQuestProcessorFields(t *testing.T) {
	page := pageFromHTML(t, "the_lost_blade", `<html><body>
		<h1>The Lost Blade</h1>
		<p>Recover the stolen sword.</p>
		<ul>
			<li>Type: Main Quest</li>
			<li>Difficulty: Hard</li>
		</ul>
		<h2>Objectives</h2>
		<ul>
			<li>Find the thief</li>
			<li>Retrieve the blade</li>
		</ul>
		<h2>Rewards</h2>
		<ul>
			<li>Iron Sword</li>
			<li>500 gold</li>
		</ul>
		<h2>Locations</h2>
		<ul>
			<li>Darkwood</li>
		</ul>
	</body></html>`)

	qp := &QuestProcessor{logger: testLogger()}
	records := qp.Process([]*Page{page})
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	rec := records[0]

	if rec.ID != "the_lost_blade" {
		t.Errorf("id = %q", rec.ID)
	}
	if rec.Name != "The Lost Blade" {
		t.Errorf("name = %q", rec.Name)
	}
	if rec.Kind != types.KindQuest {
		t.Errorf("kind = %q", rec.Kind)
	}
	if v, _ := rec.Get("quest_type"); v != "Main Quest" {
		t.Errorf("quest_type = %v", v)
	}
	if v, _ := rec.Get("difficulty"); v != "Hard" {
		t.Errorf("difficulty = %v", v)
	}
	if v, _ := rec.Get("description"); v != "Recover the stolen sword." {
		t.Errorf("description = %v", v)
	}

	rewards := rec.StringList("rewards")
	if len(rewards) != 2 || rewards[0] != "Iron Sword" {
		t.Errorf("rewards = %v", rewards)
	}
	objectives := rec.StringList("objectives")
	if len(objectives) != 2 {
		t.Errorf("objectives = %v", objectives)
	}
	locations := rec.StringList("locations")
	if len(locations) != 1 || locations[0] != "Darkwood" {
		t.Errorf("locations = %v", locations)
	}
	if _, ok := rec.Get("npcs"); ok {
		t.Error("npcs should stay absent when the page has none")
	}
}

func TestProcessPagesSkipsNameless(t *testing.T) {
	nameless := pageFromHTML(t, "", `<html><body><p>No heading here.</p></body></html>`)
	nameless.URL = ""
	named := pageFromHTML(t, "bash", `<html><body><h1>Bash</h1></body></html>`)

	sp := &SkillProcessor{logger: testLogger()}
	records := sp.Process([]*Page{nameless, named})
	if len(records) != 1 {
		t.Fatalf("got %d records, want the nameless page skipped", len(records))
	}
	if records[0].ID != "bash" {
		t.Errorf("id = %q", records[0].ID)
	}
}

func TestProcessPagesOrderIndependent(t *testing.T) {
	a := pageFromHTML(t, "zeal", `<html><body><h1>Zeal</h1></body></html>`)
	b := pageFromHTML(t, "bash", `<html><body><h1>Bash</h1></body></html>`)
	c := pageFromHTML(t, "mend", `<html><body><h1>Mend</h1></body></html>`)

	sp := &SkillProcessor{logger: testLogger()}
	first := sp.Process([]*Page{a, b, c})
	second := sp.Process([]*Page{c, a, b})

	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("got %d and %d records", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("record order differs at %d: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
	if first[0].ID != "bash" || first[1].ID != "mend" || first[2].ID != "zeal" {
		t.Errorf("records not sorted by id: %s, %s, %s", first[0].ID, first[1].ID, first[2].ID)
	}
}

func TestEnemyProcessorStats(t *testing.T) {
	page := pageFromHTML(t, "forest_wraith", `<html><body>
		<h1>Forest Wraith</h1>
		<table class="stats">
			<tr><th>Health</th><td>120</td></tr>
			<tr><th>Attack</th><td>14.5</td></tr>
			<tr><th>Element</th><td>Shadow</td></tr>
		</table>
		<h2>Drops</h2>
		<ul><li>Wraith Essence</li></ul>
	</body></html>`)

	ep := &EnemyProcessor{logger: testLogger()}
	records := ep.Process([]*Page{page})
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}

	stats, ok := records[0].Get("stats")
	if !ok {
		t.Fatal("stats missing")
	}
	m, ok := stats.(map[string]any)
	if !ok {
		t.Fatalf("stats is %T", stats)
	}
	if m["Health"] != 120 {
		t.Errorf("Health = %v (%T), want int 120", m["Health"], m["Health"])
	}
	if m["Attack"] != 14.5 {
		t.Errorf("Attack = %v, want float 14.5", m["Attack"])
	}
	if m["Element"] != "Shadow" {
		t.Errorf("Element = %v, want the original string", m["Element"])
	}
	drops := records[0].StringList("drops")
	if len(drops) != 1 || drops[0] != "Wraith Essence" {
		t.Errorf("drops = %v", drops)
	}
}
