package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values. Threads below the
// minimum are clamped rather than rejected.
func Validate(cfg *Config) error {
	if cfg.Wiki.URL == "" {
		return fmt.Errorf("wiki.wiki_url is required")
	}
	if err := ValidateURL(cfg.Wiki.URL); err != nil {
		return fmt.Errorf("wiki.wiki_url: %w", err)
	}
	if cfg.Wiki.OutputDir == "" {
		return fmt.Errorf("wiki.output_dir is required")
	}
	if cfg.Wiki.MaxDepth < 0 {
		return fmt.Errorf("wiki.max_depth must be >= 0, got %d", cfg.Wiki.MaxDepth)
	}
	if cfg.Wiki.Threads < 1 {
		cfg.Wiki.Threads = 1
	}
	if cfg.Wiki.Delay < 0 {
		return fmt.Errorf("wiki.delay must be >= 0")
	}

	if cfg.Fetcher.MaxRetries < 0 {
		return fmt.Errorf("fetcher.max_retries must be >= 0, got %d", cfg.Fetcher.MaxRetries)
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	return validateShared(cfg)
}

// ValidateProcessing checks only the options the processing pass uses, so
// `process` runs do not require a seed URL.
func ValidateProcessing(cfg *Config) error {
	if cfg.Wiki.OutputDir == "" {
		return fmt.Errorf("wiki.output_dir is required")
	}
	return validateShared(cfg)
}

func validateShared(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "json", "mongodb", "postgres":
	default:
		return fmt.Errorf("storage.backend %q is not supported (valid: json, mongodb, postgres)", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == "postgres" && cfg.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is valid for crawling.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
