package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/calenhart/lorecrawl/internal/config"
	"github.com/calenhart/lorecrawl/internal/extract"
	"github.com/calenhart/lorecrawl/internal/fetcher"
	"github.com/calenhart/lorecrawl/internal/sitestore"
	"github.com/calenhart/lorecrawl/internal/types"
)

// Crawler composes the frontier, downloader, extractor and site store into
// the end-to-end crawl pipeline.
type Crawler struct {
	cfg       *config.Config
	logger    *slog.Logger
	fetcher   *fetcher.Fetcher
	extractor *extract.Extractor
	store     *sitestore.Store
	frontier  *Frontier
	dedup     *Deduplicator
	index     *CrawlIndex
	reporter  *reporter

	seed *url.URL

	mu      sync.Mutex
	seedErr error

	idleMu      sync.Mutex
	idleWorkers map[int]bool

	wg sync.WaitGroup
}

// New wires up a Crawler from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Crawler, error) {
	seed, err := url.Parse(cfg.Wiki.URL)
	if err != nil {
		return nil, fmt.Errorf("parse seed URL: %w", err)
	}

	store, err := sitestore.New(cfg.Wiki.OutputDir, cfg.Wiki.SaveHTML, logger)
	if err != nil {
		return nil, err
	}

	index, err := OpenIndex(cfg.Wiki.OutputDir)
	if err != nil {
		return nil, err
	}

	return &Crawler{
		cfg:       cfg,
		seed:      seed,
		logger:    logger.With("component", "crawler"),
		fetcher:   fetcher.New(cfg, logger),
		extractor: extract.New(logger),
		store:     store,
		frontier:  NewFrontier(),
		dedup:     NewDeduplicator(100_000),
		index:     index,
		reporter:  newReporter(logger, cfg.Wiki.Threads*16),
	}, nil
}

// Run executes the crawl until the frontier drains or ctx is cancelled.
// Per-page failures are counted and isolated; an unreachable seed is fatal.
func (c *Crawler) Run(ctx context.Context) (*Summary, error) {
	resumed := c.index.Len()
	if resumed > 0 {
		c.logger.Info("resuming crawl", "already_fetched", resumed)
	}

	c.logger.Info("starting crawl",
		"seed", c.cfg.Wiki.URL,
		"max_depth", c.cfg.Wiki.MaxDepth,
		"threads", c.cfg.Wiki.Threads,
		"delay", c.cfg.Wiki.Delay,
	)

	go c.reporter.run()

	c.dedup.MarkSeen(c.cfg.Wiki.URL)
	c.frontier.Push(&types.CrawlTask{URL: c.seed, Depth: 0, CreatedAt: time.Now()})

	for i := 0; i < c.cfg.Wiki.Threads; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i)
	}
	go c.idleMonitor(ctx)

	c.wg.Wait()
	c.frontier.Close()
	summary := c.reporter.wait()

	if err := c.writeTOC(); err != nil {
		c.logger.Error("table of contents failed", "error", err)
	}
	if err := c.index.Close(); err != nil {
		c.logger.Error("index close failed", "error", err)
	}
	if err := c.fetcher.Close(); err != nil {
		c.logger.Error("fetcher close failed", "error", err)
	}

	c.logger.Info("crawl finished", "summary", summary.String())

	c.mu.Lock()
	seedErr := c.seedErr
	c.mu.Unlock()
	if seedErr != nil && summary.Succeeded == 0 {
		return summary, fmt.Errorf("seed unreachable: %w", seedErr)
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return summary, err
	}
	return summary, nil
}

var idlePollInterval = 50 * time.Millisecond

// worker dequeues tasks until the frontier closes or ctx is cancelled.
// The stop signal is observed at the top of every dispatch iteration;
// in-flight fetches finish naturally.
func (c *Crawler) worker(ctx context.Context, id int) {
	defer c.wg.Done()
	logger := c.logger.With("worker_id", id)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task := c.frontier.TryPop()
		if task == nil {
			if c.frontier.IsClosed() {
				return
			}
			c.idle(id, true)
			select {
			case <-ctx.Done():
				c.idle(id, false)
				return
			case <-time.After(idlePollInterval):
			}
			c.idle(id, false)
			continue
		}

		c.processTask(ctx, logger, task)
	}
}

// idle marks a worker as waiting for work, so the monitor can tell a
// drained crawl from a momentary lull.
func (c *Crawler) idle(id int, isIdle bool) {
	c.idleMu.Lock()
	if c.idleWorkers == nil {
		c.idleWorkers = make(map[int]bool)
	}
	if isIdle {
		c.idleWorkers[id] = true
	} else {
		delete(c.idleWorkers, id)
	}
	c.idleMu.Unlock()
}

func (c *Crawler) idleCount() int {
	c.idleMu.Lock()
	defer c.idleMu.Unlock()
	return len(c.idleWorkers)
}

// idleMonitor closes the frontier once every worker has been idle over an
// empty queue for several consecutive checks.
func (c *Crawler) idleMonitor(ctx context.Context) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	streak := 0

	for {
		select {
		case <-ctx.Done():
			c.frontier.Close()
			return
		case <-ticker.C:
			if c.frontier.IsClosed() {
				return
			}
			if c.idleCount() >= c.cfg.Wiki.Threads && c.frontier.Len() == 0 {
				streak++
				if streak >= 3 {
					c.logger.Debug("all workers idle, frontier empty")
					c.frontier.Close()
					return
				}
			} else {
				streak = 0
			}
		}
	}
}

// processTask fetches, extracts and persists one page, then feeds the
// frontier with its outbound links.
func (c *Crawler) processTask(ctx context.Context, logger *slog.Logger, task *types.CrawlTask) {
	rawURL := task.URLString()
	logger = logger.With("url", rawURL, "depth", task.Depth)

	// Resume path: pages fetched by a previous run are not re-downloaded,
	// but their stored links still feed the frontier.
	if c.index.Has(rawURL) {
		c.reporter.events <- Event{Kind: EventSkipped, URL: rawURL, Depth: task.Depth}
		c.enqueueStoredLinks(rawURL, task.Depth)
		return
	}

	body, err := c.fetcher.Fetch(ctx, rawURL)
	c.politeSleep(ctx)
	if err != nil {
		c.recordFetchError(logger, task, err)
		return
	}

	rec, err := c.extractor.Extract(body, rawURL)
	if err != nil {
		logger.Warn("extract failed", "error", err)
		c.reporter.events <- Event{Kind: EventErrored, URL: rawURL, Depth: task.Depth, ErrorKind: "parse"}
		return
	}

	rec.Category = task.OriginCategory
	if rec.Category == "" {
		rec.Category = extract.InferCategory(task.URL)
	}

	slug, err := c.savePageWithRetry(rec, body)
	if err != nil {
		logger.Error("page save failed", "error", err)
		c.reporter.events <- Event{Kind: EventErrored, URL: rawURL, Depth: task.Depth, ErrorKind: "storage"}
		return
	}

	if err := c.index.Add(IndexEntry{
		URL:       rawURL,
		Path:      filepath.Join("pages", slug+".md"),
		Title:     rec.Title,
		FetchedAt: rec.FetchedAt,
	}); err != nil {
		logger.Error("index append failed", "error", err)
	}

	c.reporter.events <- Event{Kind: EventFetched, URL: rawURL, Depth: task.Depth}
	logger.Debug("page stored", "slug", slug, "links", len(rec.Links), "tables", len(rec.Tables))

	for _, link := range rec.Links {
		c.enqueue(link.URL, task.Depth+1, link.Category, rawURL)
	}

	if c.cfg.Wiki.DownloadImages {
		c.downloadImages(ctx, logger, rec)
	}
}

// enqueue adds a discovered link if it is in depth range and unseen.
func (c *Crawler) enqueue(rawURL string, depth int, category, parent string) {
	if depth > c.cfg.Wiki.MaxDepth {
		return
	}
	if !c.dedup.MarkSeen(rawURL) {
		return
	}
	task, err := types.NewCrawlTask(rawURL, depth)
	if err != nil {
		return
	}
	task.OriginCategory = category
	task.ParentURL = parent
	c.frontier.Push(task)
}

// enqueueStoredLinks feeds the frontier from a previously stored page's
// metadata so a resumed crawl can keep walking outward.
func (c *Crawler) enqueueStoredLinks(rawURL string, depth int) {
	slug := sitestore.PageSlug(rawURL)
	metaPath := filepath.Join(c.store.PagesDir(), slug+".json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return
	}
	var meta struct {
		Links []types.Link `json:"links"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return
	}
	for _, link := range meta.Links {
		c.enqueue(link.URL, depth+1, link.Category, rawURL)
	}
}

// downloadImages fetches a page's images, skipping files already on disk.
func (c *Crawler) downloadImages(ctx context.Context, logger *slog.Logger, rec *types.PageRecord) {
	for _, imgURL := range rec.ImageRefs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if c.store.HasImage(imgURL) {
			continue
		}

		data, err := c.fetcher.Fetch(ctx, imgURL)
		c.politeSleep(ctx)
		if err != nil {
			logger.Warn("image download failed", "image", imgURL, "error", err)
			c.reporter.events <- Event{Kind: EventErrored, URL: imgURL, ErrorKind: "image_fetch"}
			continue
		}
		if _, err := c.store.SaveImage(imgURL, data); err != nil {
			logger.Warn("image save failed", "image", imgURL, "error", err)
			c.reporter.events <- Event{Kind: EventErrored, URL: imgURL, ErrorKind: "storage"}
			continue
		}
		c.reporter.events <- Event{Kind: EventImage, URL: imgURL}
	}
}

// savePageWithRetry retries a failed page write once before surfacing.
func (c *Crawler) savePageWithRetry(rec *types.PageRecord, body []byte) (string, error) {
	slug, err := c.store.SavePage(rec, body, c.cfg.Wiki.DownloadTables)
	if err == nil {
		return slug, nil
	}
	return c.store.SavePage(rec, body, c.cfg.Wiki.DownloadTables)
}

// recordFetchError buckets a terminal fetch failure and remembers a failed
// seed so Run can report the whole crawl as unreachable.
func (c *Crawler) recordFetchError(logger *slog.Logger, task *types.CrawlTask, err error) {
	kind := "fetch"
	var ferr *types.FetchError
	if errors.As(err, &ferr) {
		switch {
		case ferr.Permanent:
			kind = "fetch_permanent"
		case ferr.Exhausted:
			kind = "fetch_exhausted"
		}
	}
	logger.Warn("fetch failed", "error", err, "kind", kind)
	c.reporter.events <- Event{
		Kind:      EventErrored,
		URL:       task.URLString(),
		Depth:     task.Depth,
		ErrorKind: kind,
	}

	if task.Depth == 0 {
		c.mu.Lock()
		c.seedErr = err
		c.mu.Unlock()
	}
}

// politeSleep blocks the calling worker for the configured delay.
// Only that worker pauses; the pool keeps a rate of roughly threads/delay.
func (c *Crawler) politeSleep(ctx context.Context) {
	if c.cfg.Wiki.Delay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.cfg.Wiki.Delay):
	}
}

func (c *Crawler) writeTOC() error {
	entries := c.index.Entries()
	toc := make([]sitestore.TOCEntry, 0, len(entries))
	for _, e := range entries {
		toc = append(toc, sitestore.TOCEntry{
			Title: e.Title,
			Slug:  sitestore.PageSlug(e.URL),
			URL:   e.URL,
		})
	}
	return c.store.WriteTOC(toc)
}
