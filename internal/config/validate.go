package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // crawler.location must resolve on hosts without a zoneinfo database

	"github.com/IshaanNene/newsharvest/internal/types"
)

var errRequired = errors.New("is required and must be >= 1")

// Validate checks the configuration for invalid values.
// Any error it returns is fatal: no crawl cycle may run with it.
func Validate(cfg *Config) error {
	if cfg.Crawler.NumberOfCrawlingDays < 1 {
		return &types.ConfigError{
			Field: "crawler.number_of_crawling_days",
			Err:   fmt.Errorf("%w, got %d", errRequired, cfg.Crawler.NumberOfCrawlingDays),
		}
	}
	if cfg.Crawler.MaxDegreeOfParallelism < 1 {
		return &types.ConfigError{
			Field: "crawler.max_degree_of_parallelism",
			Err:   fmt.Errorf("%w, got %d", errRequired, cfg.Crawler.MaxDegreeOfParallelism),
		}
	}
	if cfg.Crawler.MaxDegreeOfParallelism > 256 {
		return fmt.Errorf("crawler.max_degree_of_parallelism must be <= 256, got %d", cfg.Crawler.MaxDegreeOfParallelism)
	}
	if cfg.Crawler.MaxPages < 1 {
		return fmt.Errorf("crawler.max_pages must be >= 1, got %d", cfg.Crawler.MaxPages)
	}
	if cfg.Crawler.MaxCommentExpansions < 0 {
		return fmt.Errorf("crawler.max_comment_expansions must be >= 0, got %d", cfg.Crawler.MaxCommentExpansions)
	}
	if _, err := time.LoadLocation(cfg.Crawler.Location); err != nil {
		return fmt.Errorf("crawler.location %q: %w", cfg.Crawler.Location, err)
	}
	if len(cfg.Crawler.Sites) == 0 {
		return fmt.Errorf("crawler.sites must list at least one site")
	}
	for _, s := range cfg.Crawler.Sites {
		if _, err := types.ParseSource(s); err != nil || s == "" {
			return fmt.Errorf("crawler.sites: unknown site %q", s)
		}
	}
	for name, d := range map[string]DelayRange{
		"listing_settle": cfg.Crawler.ListingSettle,
		"article_settle": cfg.Crawler.ArticleSettle,
		"expand_settle":  cfg.Crawler.ExpandSettle,
		"cycle_delay":    cfg.Crawler.CycleDelay,
	} {
		if d.Min < 0 || d.Max < d.Min {
			return fmt.Errorf("crawler.%s must satisfy 0 <= min <= max, got %s..%s", name, d.Min, d.Max)
		}
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
	if cfg.Browser.RenderTimeout <= 0 {
		return fmt.Errorf("browser.render_timeout must be > 0")
	}

	if cfg.Notify.Kafka.Enabled {
		if len(cfg.Notify.Kafka.Brokers) == 0 {
			return fmt.Errorf("notify.kafka.brokers must not be empty when kafka is enabled")
		}
		if cfg.Notify.Kafka.Topic == "" {
			return fmt.Errorf("notify.kafka.topic must not be empty when kafka is enabled")
		}
	}

	return ValidateServing(cfg)
}

// ValidateServing checks only what the query side needs: storage, API, logging
// and metrics. Commands that never crawl use it instead of Validate.
func ValidateServing(cfg *Config) error {
	switch cfg.Storage.Type {
	case "memory":
	case "mongo":
		if cfg.Storage.MongoURI == "" || cfg.Storage.Database == "" || cfg.Storage.Collection == "" {
			return fmt.Errorf("storage.mongo_uri, storage.database and storage.collection are required for mongo storage")
		}
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: mongo, memory)", cfg.Storage.Type)
	}

	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		return fmt.Errorf("api.port must be 1-65535, got %d", cfg.API.Port)
	}
	if cfg.API.DefaultTop < 1 || cfg.API.DefaultDays < 1 {
		return fmt.Errorf("api.default_top and api.default_days must be >= 1")
	}
	if cfg.API.MaxTop < cfg.API.DefaultTop {
		return fmt.Errorf("api.max_top must be >= api.default_top")
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

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}
