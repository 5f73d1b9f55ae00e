package storage

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/calenhart/lorecrawl/internal/types"
)

func TestReplaceModels(t *testing.T) {
	recs := []Record{
		entityRec("iron_sword", "Iron Sword", types.KindItem),
		entityRec("oak_shield", "Oak Shield", types.KindItem),
	}

	models, err := replaceModels(recs)
	if err != nil {
		t.Fatalf("replaceModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models", len(models))
	}

	for i, wantID := range []string{"iron_sword", "oak_shield"} {
		model, ok := models[i].(*mongo.ReplaceOneModel)
		if !ok {
			t.Fatalf("models[%d] is %T", i, models[i])
		}
		filter, ok := model.Filter.(bson.M)
		if !ok || filter["id"] != wantID {
			t.Errorf("models[%d] filter = %v, want id %q", i, model.Filter, wantID)
		}
		if model.Upsert == nil || !*model.Upsert {
			t.Errorf("models[%d] is not an upsert", i)
		}
		doc, ok := model.Replacement.(map[string]any)
		if !ok || doc["id"] != wantID || doc["type"] != "item" {
			t.Errorf("models[%d] replacement = %v", i, model.Replacement)
		}
	}
}

func TestReplaceModelsRejectsMissingID(t *testing.T) {
	if _, err := replaceModels([]Record{entityRec("", "Nameless", types.KindItem)}); err == nil {
		t.Error("expected an error for a record without id")
	}
}
