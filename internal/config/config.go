package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for lorecrawl.
type Config struct {
	Wiki      WikiConfig      `mapstructure:"wiki"      yaml:"wiki"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"   yaml:"fetcher"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Processor ProcessorConfig `mapstructure:"processor" yaml:"processor"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// WikiConfig controls the crawl stage.
type WikiConfig struct {
	URL            string        `mapstructure:"wiki_url"        yaml:"wiki_url"`
	OutputDir      string        `mapstructure:"output_dir"      yaml:"output_dir"`
	MaxDepth       int           `mapstructure:"max_depth"       yaml:"max_depth"`
	DownloadImages bool          `mapstructure:"download_images" yaml:"download_images"`
	DownloadTables bool          `mapstructure:"download_tables" yaml:"download_tables"`
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
	Delay          time.Duration `mapstructure:"delay"           yaml:"delay"`
	Threads        int           `mapstructure:"threads"         yaml:"threads"`
	SaveHTML       bool          `mapstructure:"save_html"       yaml:"save_html"`
}

// FetcherConfig controls the resource downloader.
type FetcherConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"      yaml:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"      yaml:"retry_delay"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  yaml:"request_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"    yaml:"max_body_size"`
	FollowRedirects bool          `mapstructure:"follow_redirects" yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"    yaml:"max_redirects"`
}

// StorageConfig selects and tunes the record backend for processed entities.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"      yaml:"backend"` // json, mongodb, postgres
	OutputPath  string `mapstructure:"output_path"  yaml:"output_path"`
	MongoURI    string `mapstructure:"mongo_uri"    yaml:"mongo_uri"`
	MongoDB     string `mapstructure:"mongo_db"     yaml:"mongo_db"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	BatchSize   int    `mapstructure:"batch_size"   yaml:"batch_size"`
}

// ProcessorConfig controls the entity processing stage.
type ProcessorConfig struct {
	// Categories limits processing to the named entity kinds; empty = all.
	Categories []string `mapstructure:"categories" yaml:"categories"`

	// Workers bounds concurrent category processors (0 = derived from CPUs).
	Workers int `mapstructure:"workers" yaml:"workers"`

	// Relations toggles the relation inference pass.
	Relations bool `mapstructure:"relations" yaml:"relations"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Wiki: WikiConfig{
			MaxDepth:       3,
			DownloadImages: true,
			DownloadTables: true,
			UserAgent:      "lorecrawl/" + Version,
			Delay:          1 * time.Second,
			Threads:        3,
			SaveHTML:       false,
		},
		Fetcher: FetcherConfig{
			MaxRetries:      3,
			RetryDelay:      2 * time.Second,
			RequestTimeout:  30 * time.Second,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			FollowRedirects: true,
			MaxRedirects:    10,
		},
		Storage: StorageConfig{
			Backend:   "json",
			MongoURI:  "mongodb://localhost:27017",
			MongoDB:   "lorecrawl",
			BatchSize: 100,
		},
		Processor: ProcessorConfig{
			Relations: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
