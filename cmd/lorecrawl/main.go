package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/calenhart/lorecrawl/internal/config"
	"github.com/calenhart/lorecrawl/internal/crawler"
	"github.com/calenhart/lorecrawl/internal/processor"
	"github.com/calenhart/lorecrawl/internal/storage"
)

var (
	cfgFile   string
	verbose   bool
	outputDir string
	maxDepth  int
	threads   int
	delay     string
	userAgent string
	noImages  bool
	noTables  bool
	saveHTML  bool

	backendName string
	categories  string
	noRelations bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lorecrawl",
		Short: "lorecrawl is a game wiki crawler and entity extractor",
		Long: `lorecrawl crawls a game wiki, stores pages locally as markdown with
metadata sidecars, then processes the stored pages into typed entity
records (characters, skills, items, enemies, locations, quests) and
cross-entity relations.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// fetchCmd creates the "fetch" subcommand.
func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [wiki-url]",
		Short: "Crawl a wiki and store its pages locally",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFetch,
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	cmd.Flags().IntVarP(&maxDepth, "depth", "d", -1, "maximum crawl depth (-1 = config default)")
	cmd.Flags().IntVarP(&threads, "threads", "n", 0, "number of crawl workers")
	cmd.Flags().StringVar(&delay, "delay", "", "politeness delay between requests per worker")
	cmd.Flags().StringVar(&userAgent, "user-agent", "", "custom User-Agent string")
	cmd.Flags().BoolVar(&noImages, "no-images", false, "skip image downloads")
	cmd.Flags().BoolVar(&noTables, "no-tables", false, "skip table sidecar files")
	cmd.Flags().BoolVar(&saveHTML, "save-html", false, "also store raw HTML per page")

	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFetchOverrides(cfg, args)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.ValidateURL(cfg.Wiki.URL); err != nil {
		return fmt.Errorf("invalid wiki URL %q: %w", cfg.Wiki.URL, err)
	}

	logger := setupLogger(cfg)

	c, err := crawler.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create crawler: %w", err)
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	start := time.Now()
	summary, err := c.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	fmt.Printf("Crawl complete in %s: %s\n", time.Since(start).Round(time.Millisecond), summary)
	fmt.Printf("Output: %s\n", cfg.Wiki.OutputDir)
	return nil
}

// processCmd creates the "process" subcommand.
func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Extract entity and relation records from stored pages",
		RunE:  runProcess,
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "crawl output directory to read pages from")
	cmd.Flags().StringVarP(&backendName, "backend", "b", "", "storage backend: json, mongodb, postgres")
	cmd.Flags().StringVar(&categories, "categories", "", "comma-separated entity categories (default: all)")
	cmd.Flags().BoolVar(&noRelations, "no-relations", false, "skip the relation inference pass")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyProcessOverrides(cfg)

	if err := config.ValidateProcessing(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg)

	ctx, cancel := signalContext(logger)
	defer cancel()

	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open storage backend: %w", err)
	}
	defer backend.Close()

	logger.Info("starting processing pass",
		"input", cfg.Wiki.OutputDir,
		"backend", backend.Name(),
		"categories", cfg.Processor.Categories,
		"relations", cfg.Processor.Relations,
	)

	start := time.Now()
	runner := processor.NewRunner(cfg, backend, logger)
	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("process: %w", err)
	}

	fmt.Printf("Processing complete in %s (backend: %s)\n",
		time.Since(start).Round(time.Millisecond), backend.Name())
	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lorecrawl %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Wiki:\n")
			fmt.Printf("  URL:              %s\n", cfg.Wiki.URL)
			fmt.Printf("  Output Dir:       %s\n", cfg.Wiki.OutputDir)
			fmt.Printf("  Max Depth:        %d\n", cfg.Wiki.MaxDepth)
			fmt.Printf("  Threads:          %d\n", cfg.Wiki.Threads)
			fmt.Printf("  Delay:            %s\n", cfg.Wiki.Delay)
			fmt.Printf("  Download Images:  %v\n", cfg.Wiki.DownloadImages)
			fmt.Printf("  Download Tables:  %v\n", cfg.Wiki.DownloadTables)
			fmt.Printf("  Save HTML:        %v\n", cfg.Wiki.SaveHTML)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Max Retries:      %d\n", cfg.Fetcher.MaxRetries)
			fmt.Printf("  Retry Delay:      %s\n", cfg.Fetcher.RetryDelay)
			fmt.Printf("  Request Timeout:  %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Max Body Size:    %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Backend:          %s\n", cfg.Storage.Backend)
			fmt.Printf("  Batch Size:       %d\n", cfg.Storage.BatchSize)
			fmt.Printf("\nProcessor:\n")
			fmt.Printf("  Categories:       %v\n", cfg.Processor.Categories)
			fmt.Printf("  Relations:        %v\n", cfg.Processor.Relations)
			fmt.Printf("\nLogging:\n")
			fmt.Printf("  Level:            %s\n", cfg.Logging.Level)
			fmt.Printf("  Format:           %s\n", cfg.Logging.Format)
			return nil
		},
	}
}

// setupLogger creates the structured logger from config, with the verbose
// flag forcing debug level.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Logging.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		cancel()
	}()
	return ctx, cancel
}

func applyFetchOverrides(cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Wiki.URL = args[0]
	}
	if outputDir != "" {
		cfg.Wiki.OutputDir = outputDir
	}
	if maxDepth >= 0 {
		cfg.Wiki.MaxDepth = maxDepth
	}
	if threads > 0 {
		cfg.Wiki.Threads = threads
	}
	if delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			cfg.Wiki.Delay = d
		}
	}
	if userAgent != "" {
		cfg.Wiki.UserAgent = userAgent
	}
	if noImages {
		cfg.Wiki.DownloadImages = false
	}
	if noTables {
		cfg.Wiki.DownloadTables = false
	}
	if saveHTML {
		cfg.Wiki.SaveHTML = true
	}
}

func applyProcessOverrides(cfg *config.Config) {
	if outputDir != "" {
		cfg.Wiki.OutputDir = outputDir
	}
	if backendName != "" {
		cfg.Storage.Backend = strings.ToLower(backendName)
	}
	if categories != "" {
		var cats []string
		for _, c := range strings.Split(categories, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cats = append(cats, c)
			}
		}
		cfg.Processor.Categories = cats
	}
	if noRelations {
		cfg.Processor.Relations = false
	}
}
