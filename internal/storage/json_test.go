package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calenhart/lorecrawl/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func entityRec(id, name string, kind types.EntityKind) *types.EntityRecord {
	return &types.EntityRecord{ID: id, Name: name, Kind: kind}
}

func TestJSONSaveUpserts(t *testing.T) {
	b, err := NewJSONBackend(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()
	ctx := context.Background()

	first := entityRec("iron_sword", "Iron Sword", types.KindItem)
	first.Set("value", 100)
	if err := b.Save(ctx, "item", first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := entityRec("iron_sword", "Iron Sword", types.KindItem)
	second.Set("value", 250)
	if err := b.Save(ctx, "item", second); err != nil {
		t.Fatalf("save again: %v", err)
	}

	docs, err := b.Query(ctx, "item", nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("want a single upserted doc, got %d", len(docs))
	}
	if v := docs[0]["value"]; v != 250 {
		t.Errorf("value = %v, want the last write", v)
	}
}

func TestJSONQueryFilterAndOrder(t *testing.T) {
	b, err := NewJSONBackend(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()
	ctx := context.Background()

	recs := []Record{
		entityRec("zeal", "Zeal", types.KindSkill),
		entityRec("bash", "Bash", types.KindSkill),
		entityRec("mend", "Mend", types.KindSkill),
	}
	if err := b.SaveBatch(ctx, "skill", recs); err != nil {
		t.Fatalf("save batch: %v", err)
	}

	docs, err := b.Query(ctx, "skill", nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d docs", len(docs))
	}
	for i, want := range []string{"bash", "mend", "zeal"} {
		if docs[i]["id"] != want {
			t.Errorf("docs[%d] = %v, want %q (id order)", i, docs[i]["id"], want)
		}
	}

	one, err := b.Query(ctx, "skill", map[string]any{"name": "Mend"})
	if err != nil {
		t.Fatalf("filtered query: %v", err)
	}
	if len(one) != 1 || one[0]["id"] != "mend" {
		t.Errorf("filtered query = %v", one)
	}

	none, err := b.Query(ctx, "skill", map[string]any{"name": "Missing"})
	if err != nil {
		t.Fatalf("empty query: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no matches, got %v", none)
	}
}

func TestJSONReopenLoadsExisting(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b, err := NewJSONBackend(dir, testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := b.Save(ctx, "quest", entityRec("the_lost_blade", "The Lost Blade", types.KindQuest)); err != nil {
		t.Fatalf("save: %v", err)
	}
	b.Close()

	reopened, err := NewJSONBackend(dir, testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	docs, err := reopened.Query(ctx, "quest", map[string]any{"id": "the_lost_blade"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 1 || docs[0]["name"] != "The Lost Blade" {
		t.Errorf("reopened query = %v", docs)
	}
}

func TestJSONQueryResultsAreCopies(t *testing.T) {
	b, err := NewJSONBackend(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()
	ctx := context.Background()

	if err := b.Save(ctx, "item", entityRec("iron_sword", "Iron Sword", types.KindItem)); err != nil {
		t.Fatalf("save: %v", err)
	}

	docs, err := b.Query(ctx, "item", nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	docs[0]["name"] = "Mutated"

	again, err := b.Query(ctx, "item", nil)
	if err != nil {
		t.Fatalf("query again: %v", err)
	}
	if again[0]["name"] != "Iron Sword" {
		t.Errorf("stored doc changed through a query result: %v", again[0])
	}
}

func TestJSONRejectsRecordWithoutID(t *testing.T) {
	b, err := NewJSONBackend(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	err = b.Save(context.Background(), "item", entityRec("", "Nameless", types.KindItem))
	if err == nil {
		t.Fatal("expected an error for a record without id")
	}
	if !strings.Contains(err.Error(), "without id") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestJSONFileIsSortedArray(t *testing.T) {
	dir := t.TempDir()
	b, err := NewJSONBackend(dir, testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	if err := b.SaveBatch(context.Background(), "enemy", []Record{
		entityRec("wraith", "Wraith", types.KindEnemy),
		entityRec("bandit", "Bandit", types.KindEnemy),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "enemy.json"))
	if err != nil {
		t.Fatalf("read collection file: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(strings.TrimSpace(text), "[") {
		t.Errorf("collection file is not a JSON array:\n%s", text)
	}
	if strings.Index(text, "bandit") > strings.Index(text, "wraith") {
		t.Error("docs not sorted by id in the file")
	}
}
