package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): CLI flag overrides (applied by the caller) >
// env vars > config file > defaults. A .env file in the working directory is
// folded into the environment first.
func Load(configPath string) (*Config, error) {
	// .env is optional; ignore a missing file.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix("LORECRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("lorecrawl")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".lorecrawl"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("wiki.wiki_url", cfg.Wiki.URL)
	v.SetDefault("wiki.output_dir", cfg.Wiki.OutputDir)
	v.SetDefault("wiki.max_depth", cfg.Wiki.MaxDepth)
	v.SetDefault("wiki.download_images", cfg.Wiki.DownloadImages)
	v.SetDefault("wiki.download_tables", cfg.Wiki.DownloadTables)
	v.SetDefault("wiki.user_agent", cfg.Wiki.UserAgent)
	v.SetDefault("wiki.delay", cfg.Wiki.Delay)
	v.SetDefault("wiki.threads", cfg.Wiki.Threads)
	v.SetDefault("wiki.save_html", cfg.Wiki.SaveHTML)

	v.SetDefault("fetcher.max_retries", cfg.Fetcher.MaxRetries)
	v.SetDefault("fetcher.retry_delay", cfg.Fetcher.RetryDelay)
	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)

	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_db", cfg.Storage.MongoDB)
	v.SetDefault("storage.postgres_dsn", cfg.Storage.PostgresDSN)
	v.SetDefault("storage.batch_size", cfg.Storage.BatchSize)

	v.SetDefault("processor.categories", cfg.Processor.Categories)
	v.SetDefault("processor.workers", cfg.Processor.Workers)
	v.SetDefault("processor.relations", cfg.Processor.Relations)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
