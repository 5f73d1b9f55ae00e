package processor

import (
	"log/slog"
	"sort"

	"github.com/calenhart/lorecrawl/internal/types"
)

// Processor turns the stored pages of one entity category into typed
// records. Implementations are data-disjoint and safe to run concurrently
// with each other.
type Processor interface {
	Kind() types.EntityKind
	Process(pages []*Page) []*types.EntityRecord
}

// Registry returns the processors in kind order. The set is closed; there
// is no runtime registration.
func Registry(logger *slog.Logger) []Processor {
	return []Processor{
		&CharacterProcessor{logger: componentLogger(logger, types.KindCharacter)},
		&SkillProcessor{logger: componentLogger(logger, types.KindSkill)},
		&ItemProcessor{logger: componentLogger(logger, types.KindItem)},
		&EnemyProcessor{logger: componentLogger(logger, types.KindEnemy)},
		&LocationProcessor{logger: componentLogger(logger, types.KindLocation)},
		&QuestProcessor{logger: componentLogger(logger, types.KindQuest)},
	}
}

func componentLogger(logger *slog.Logger, kind types.EntityKind) *slog.Logger {
	return logger.With("component", "processor", "kind", string(kind))
}

// extractFunc fills the category-specific fields of one record.
type extractFunc func(p *Page, rec *types.EntityRecord)

// processPages runs the shared per-page loop: derive the required triple,
// skip pages that cannot yield it, delegate the category fields, and return
// records sorted by id so assignment is independent of input order.
func processPages(kind types.EntityKind, logger *slog.Logger, pages []*Page, fn extractFunc) []*types.EntityRecord {
	records := make([]*types.EntityRecord, 0, len(pages))
	skipped := 0

	for _, p := range pages {
		name := pageName(p)
		if name == "" {
			skipped++
			logger.Warn("page skipped", "error",
				&types.SchemaError{Path: p.Slug, Kind: kind, Missing: []string{"name"}})
			continue
		}

		rec := &types.EntityRecord{
			ID:        types.EntityID(kind, name),
			Name:      name,
			Kind:      kind,
			SourceURL: p.URL,
		}
		if desc := description(p); desc == "" && p.URL != "" {
			rec.Set("description", p.URL)
		} else if desc != "" {
			rec.Set("description", desc)
		}
		fn(p, rec)
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	logger.Info("category processed", "pages", len(pages), "records", len(records), "skipped", skipped)
	return records
}

// setIf stores a field only when it has a value; absent fields stay absent.
func setIf(rec *types.EntityRecord, key string, value any) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return
		}
	case []string:
		if len(v) == 0 {
			return
		}
	case map[string]any:
		if len(v) == 0 {
			return
		}
	case nil:
		return
	}
	rec.Set(key, value)
}
