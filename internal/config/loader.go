package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("NEWSHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about.
	_ = v.BindEnv("crawler.number_of_crawling_days")
	_ = v.BindEnv("crawler.max_degree_of_parallelism")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("newsharvest")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".newsharvest"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
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
	v.SetDefault("crawler.max_pages", cfg.Crawler.MaxPages)
	v.SetDefault("crawler.max_comment_expansions", cfg.Crawler.MaxCommentExpansions)
	v.SetDefault("crawler.location", cfg.Crawler.Location)
	v.SetDefault("crawler.sites", cfg.Crawler.Sites)
	v.SetDefault("crawler.listing_settle.min", cfg.Crawler.ListingSettle.Min)
	v.SetDefault("crawler.listing_settle.max", cfg.Crawler.ListingSettle.Max)
	v.SetDefault("crawler.article_settle.min", cfg.Crawler.ArticleSettle.Min)
	v.SetDefault("crawler.article_settle.max", cfg.Crawler.ArticleSettle.Max)
	v.SetDefault("crawler.expand_settle.min", cfg.Crawler.ExpandSettle.Min)
	v.SetDefault("crawler.expand_settle.max", cfg.Crawler.ExpandSettle.Max)
	v.SetDefault("crawler.cycle_delay.min", cfg.Crawler.CycleDelay.Min)
	v.SetDefault("crawler.cycle_delay.max", cfg.Crawler.CycleDelay.Max)

	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.bin_path", cfg.Browser.BinPath)
	v.SetDefault("browser.render_timeout", cfg.Browser.RenderTimeout)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.database", cfg.Storage.Database)
	v.SetDefault("storage.collection", cfg.Storage.Collection)
	v.SetDefault("storage.jsonl_path", cfg.Storage.JSONLPath)

	v.SetDefault("notify.kafka.enabled", cfg.Notify.Kafka.Enabled)
	v.SetDefault("notify.kafka.brokers", cfg.Notify.Kafka.Brokers)
	v.SetDefault("notify.kafka.topic", cfg.Notify.Kafka.Topic)

	v.SetDefault("api.port", cfg.API.Port)
	v.SetDefault("api.default_top", cfg.API.DefaultTop)
	v.SetDefault("api.default_days", cfg.API.DefaultDays)
	v.SetDefault("api.max_top", cfg.API.MaxTop)
	v.SetDefault("api.redis_addr", cfg.API.RedisAddr)
	v.SetDefault("api.cache_ttl", cfg.API.CacheTTL)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", cfg.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", cfg.Logging.Compress)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
