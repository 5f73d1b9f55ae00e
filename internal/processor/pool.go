package processor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/calenhart/lorecrawl/internal/config"
	"github.com/calenhart/lorecrawl/internal/storage"
	"github.com/calenhart/lorecrawl/internal/types"
)

// Runner drives the processing pass: load stored pages, run the enabled
// category processors concurrently, then the relation pass once they have
// all joined.
type Runner struct {
	cfg     *config.Config
	backend storage.Backend
	logger  *slog.Logger
}

func NewRunner(cfg *config.Config, backend storage.Backend, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		backend: backend,
		logger:  logger.With("component", "runner"),
	}
}

// Run executes the processing pass. Per-page failures are logged by the
// processors; a storage failure or cancellation aborts the pass. No partial
// batch is persisted: a category's records are written in one SaveBatch
// after its processor finishes.
func (r *Runner) Run(ctx context.Context) error {
	pages, err := LoadPages(filepath.Join(r.cfg.Wiki.OutputDir, "pages"), r.logger)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return fmt.Errorf("no stored pages under %s; run fetch first", r.cfg.Wiki.OutputDir)
	}
	byKind := GroupByKind(pages)

	procs := r.enabledProcessors()
	results := make([][]*types.EntityRecord, len(procs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, proc := range procs {
		g.Go(func() error {
			records := proc.Process(byKind[proc.Kind()])
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := r.saveRecords(gctx, string(proc.Kind()), records); err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if !r.cfg.Processor.Relations {
		return nil
	}

	entities := make(map[types.EntityKind][]*types.EntityRecord, len(procs))
	for i, proc := range procs {
		entities[proc.Kind()] = results[i]
	}
	relations := BuildRelations(entities, r.logger)
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.saveRelations(ctx, relations)
}

// enabledProcessors filters the registry by the configured categories.
func (r *Runner) enabledProcessors() []Processor {
	all := Registry(r.logger)
	if len(r.cfg.Processor.Categories) == 0 {
		return all
	}
	enabled := make(map[types.EntityKind]bool, len(r.cfg.Processor.Categories))
	for _, name := range r.cfg.Processor.Categories {
		if kind, ok := types.ParseKind(name); ok {
			enabled[kind] = true
		} else {
			r.logger.Warn("unknown category ignored", "category", name)
		}
	}
	procs := make([]Processor, 0, len(all))
	for _, proc := range all {
		if enabled[proc.Kind()] {
			procs = append(procs, proc)
		}
	}
	return procs
}

func (r *Runner) workers() int {
	if w := r.cfg.Processor.Workers; w > 0 {
		return w
	}
	return max(1, runtime.GOMAXPROCS(0)/2)
}

func (r *Runner) saveRecords(ctx context.Context, collection string, records []*types.EntityRecord) error {
	batch := make([]storage.Record, len(records))
	for i, rec := range records {
		batch[i] = rec
	}
	return r.saveBatched(ctx, collection, batch)
}

func (r *Runner) saveRelations(ctx context.Context, relations []*types.RelationRecord) error {
	batch := make([]storage.Record, len(relations))
	for i, rel := range relations {
		batch[i] = rel
	}
	return r.saveBatched(ctx, "relation", batch)
}

// saveBatched writes records in configured batch sizes.
func (r *Runner) saveBatched(ctx context.Context, collection string, batch []storage.Record) error {
	size := r.cfg.Storage.BatchSize
	if size <= 0 {
		size = len(batch)
	}
	for start := 0; start < len(batch); start += size {
		end := min(start+size, len(batch))
		if err := r.backend.SaveBatch(ctx, collection, batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}
