package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/calenhart/lorecrawl/internal/types"
)

// JSONBackend keeps one JSON array file per collection under a directory.
// Collections are held in memory and rewritten on every save so the on-disk
// form is always consistent and sorted by id.
type JSONBackend struct {
	dir    string
	mu     sync.Mutex
	colls  map[string]map[string]map[string]any // collection -> id -> doc
	logger *slog.Logger
}

// NewJSONBackend opens (or creates) a JSON collection directory, loading any
// collections a previous run left behind.
func NewJSONBackend(dir string, logger *slog.Logger) (*JSONBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	b := &JSONBackend{
		dir:    dir,
		colls:  make(map[string]map[string]map[string]any),
		logger: logger.With("component", "json_storage"),
	}
	if err := b.loadExisting(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *JSONBackend) Name() string { return "json" }

func (b *JSONBackend) Save(ctx context.Context, collection string, rec Record) error {
	return b.SaveBatch(ctx, collection, []Record{rec})
}

func (b *JSONBackend) SaveBatch(ctx context.Context, collection string, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	coll := b.colls[collection]
	if coll == nil {
		coll = make(map[string]map[string]any)
		b.colls[collection] = coll
	}
	for _, rec := range recs {
		doc := rec.Doc()
		id, ok := docID(doc)
		if !ok {
			return &types.StorageError{Backend: "json", Collection: collection,
				Err: fmt.Errorf("record without id")}
		}
		coll[id] = doc
	}

	err := withRetry(func() error { return b.flush(collection) })
	if err != nil {
		return &types.StorageError{Backend: "json", Collection: collection, Err: err}
	}
	b.logger.Debug("records saved", "collection", collection, "count", len(recs), "total", len(coll))
	return nil
}

func (b *JSONBackend) Query(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	coll := b.colls[collection]
	out := make([]map[string]any, 0, len(coll))
	for _, doc := range coll {
		if !matchesFilter(doc, filter) {
			continue
		}
		// Results never alias the stored docs.
		cp := make(map[string]any, len(doc))
		for k, v := range doc {
			cp[k] = v
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := docID(out[i])
		c, _ := docID(out[j])
		return a < c
	})
	return out, nil
}

func (b *JSONBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, coll := range b.colls {
		total += len(coll)
	}
	b.logger.Info("json storage closed", "collections", len(b.colls), "records", total)
	return nil
}

// flush rewrites one collection file, docs sorted by id. Caller holds mu.
func (b *JSONBackend) flush(collection string) error {
	coll := b.colls[collection]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, coll[id])
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(b.dir, collection+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (b *JSONBackend) loadExisting() error {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return fmt.Errorf("read storage dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.dir, name))
		if err != nil {
			return fmt.Errorf("read collection %s: %w", name, err)
		}
		var docs []map[string]any
		if err := json.Unmarshal(data, &docs); err != nil {
			b.logger.Warn("skipping unreadable collection file", "file", name, "error", err)
			continue
		}
		coll := make(map[string]map[string]any, len(docs))
		for _, doc := range docs {
			if id, ok := docID(doc); ok {
				coll[id] = doc
			}
		}
		b.colls[name[:len(name)-len(".json")]] = coll
	}
	return nil
}

// matchesFilter reports whether every filter pair appears in doc. Values are
// compared through their JSON text so numeric representations line up across
// backends.
func matchesFilter(doc, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok {
			return false
		}
		if got == want {
			continue
		}
		gj, _ := json.Marshal(got)
		wj, _ := json.Marshal(want)
		if string(gj) != string(wj) {
			return false
		}
	}
	return true
}
