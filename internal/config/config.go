package config

import (
	"math/rand"
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultUserAgent is the desktop Chrome identity presented to both news sites.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36"

// Config is the root configuration for NewsHarvest.
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler" yaml:"crawler"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Notify  NotifyConfig  `mapstructure:"notify"  yaml:"notify"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// CrawlerConfig controls the crawl-and-enrich engine.
// NumberOfCrawlingDays and MaxDegreeOfParallelism have no defaults and must be set.
type CrawlerConfig struct {
	NumberOfCrawlingDays   int        `mapstructure:"number_of_crawling_days"    yaml:"number_of_crawling_days"`
	MaxDegreeOfParallelism int        `mapstructure:"max_degree_of_parallelism"  yaml:"max_degree_of_parallelism"`
	MaxPages               int        `mapstructure:"max_pages"                  yaml:"max_pages"`
	MaxCommentExpansions   int        `mapstructure:"max_comment_expansions"     yaml:"max_comment_expansions"`
	Location               string     `mapstructure:"location"                   yaml:"location"`
	Sites                  []string   `mapstructure:"sites"                      yaml:"sites"`
	ListingSettle          DelayRange `mapstructure:"listing_settle"             yaml:"listing_settle"`
	ArticleSettle          DelayRange `mapstructure:"article_settle"             yaml:"article_settle"`
	ExpandSettle           DelayRange `mapstructure:"expand_settle"              yaml:"expand_settle"`
	CycleDelay             DelayRange `mapstructure:"cycle_delay"                yaml:"cycle_delay"`
}

// DelayRange is a closed interval a random wait is drawn from.
type DelayRange struct {
	Min time.Duration `mapstructure:"min" yaml:"min"`
	Max time.Duration `mapstructure:"max" yaml:"max"`
}

// Random returns a uniformly distributed duration in [Min, Max].
func (d DelayRange) Random() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int63n(int64(d.Max-d.Min)+1))
}

// FetcherConfig controls the static HTTP fetcher.
type FetcherConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
}

// BrowserConfig controls the headless renderer.
type BrowserConfig struct {
	Headless      bool          `mapstructure:"headless"       yaml:"headless"`
	Stealth       bool          `mapstructure:"stealth"        yaml:"stealth"`
	BinPath       string        `mapstructure:"bin_path"       yaml:"bin_path"`
	RenderTimeout time.Duration `mapstructure:"render_timeout" yaml:"render_timeout"`
	WindowSize    string        `mapstructure:"window_size"    yaml:"window_size"`
}

// StorageConfig selects and configures the article store.
type StorageConfig struct {
	Type       string `mapstructure:"type"       yaml:"type"` // mongo, memory
	MongoURI   string `mapstructure:"mongo_uri"  yaml:"mongo_uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
	JSONLPath  string `mapstructure:"jsonl_path" yaml:"jsonl_path"` // optional append-only journal of saves
}

// NotifyConfig controls publishing of saved articles.
type NotifyConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka" yaml:"kafka"`
}

// KafkaConfig configures the Kafka article publisher.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`
	Topic   string   `mapstructure:"topic"   yaml:"topic"`
}

// APIConfig controls the query endpoint.
type APIConfig struct {
	Port        int           `mapstructure:"port"         yaml:"port"`
	DefaultTop  int           `mapstructure:"default_top"  yaml:"default_top"`
	DefaultDays int           `mapstructure:"default_days" yaml:"default_days"`
	MaxTop      int           `mapstructure:"max_top"      yaml:"max_top"`
	RedisAddr   string        `mapstructure:"redis_addr"   yaml:"redis_addr"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"    yaml:"cache_ttl"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level      string `mapstructure:"level"        yaml:"level"`
	Format     string `mapstructure:"format"       yaml:"format"`
	Output     string `mapstructure:"output"       yaml:"output"` // stderr, stdout, or a file path
	MaxSizeMB  int    `mapstructure:"max_size_mb"  yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"  yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress"     yaml:"compress"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
// The two required crawler settings are left at zero.
func DefaultConfig() *Config {
	return &Config{
		Crawler: CrawlerConfig{
			MaxPages:             100,
			MaxCommentExpansions: 200,
			Location:             "Asia/Ho_Chi_Minh",
			Sites:                []string{"vnexpress", "tuoitre"},
			ListingSettle:        DelayRange{Min: 1 * time.Second, Max: 3 * time.Second},
			ArticleSettle:        DelayRange{Min: 3 * time.Second, Max: 7 * time.Second},
			ExpandSettle:         DelayRange{Min: 500 * time.Millisecond, Max: 1 * time.Second},
			CycleDelay:           DelayRange{Min: 5 * time.Second, Max: 10 * time.Second},
		},
		Fetcher: FetcherConfig{
			RequestTimeout:  60 * time.Second,
			UserAgent:       DefaultUserAgent,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			MaxRedirects:    10,
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
		},
		Browser: BrowserConfig{
			Headless:      true,
			RenderTimeout: 60 * time.Second,
			WindowSize:    "1366,768",
		},
		Storage: StorageConfig{
			Type:       "mongo",
			MongoURI:   "mongodb://localhost:27017",
			Database:   "newsharvest",
			Collection: "articles",
		},
		Notify: NotifyConfig{
			Kafka: KafkaConfig{
				Topic: "newsharvest.articles",
			},
		},
		API: APIConfig{
			Port:        8080,
			DefaultTop:  10,
			DefaultDays: 7,
			MaxTop:      100,
			CacheTTL:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
