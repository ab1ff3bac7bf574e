package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/newsharvest/internal/config"
	"github.com/IshaanNene/newsharvest/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newsharvest",
		Short: "NewsHarvest: comment and like harvester for Vietnamese news sites",
		Long: `NewsHarvest crawls VnExpress and Tuoi Tre on a loop, renders each new article,
counts its top-level comments and likes, and upserts the totals into MongoDB.

The two required settings have no defaults:
  crawler.number_of_crawling_days   (NEWSHARVEST_CRAWLER_NUMBER_OF_CRAWLING_DAYS)
  crawler.max_degree_of_parallelism (NEWSHARVEST_CRAWLER_MAX_DEGREE_OF_PARALLELISM)`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(topCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration, applies overrides, and runs validate.
// Any error is fatal to the command.
func loadConfig(overrides func(*config.Config), validate func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if overrides != nil {
		overrides(cfg)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates the structured logger described by cfg; --verbose forces debug.
func setupLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	lc := cfg.Logging
	if verbose {
		lc.Level = "debug"
	}
	return logging.New(lc)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("NewsHarvest %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Crawler:\n")
			fmt.Printf("  Crawling Days:     %d\n", cfg.Crawler.NumberOfCrawlingDays)
			fmt.Printf("  Parallelism:       %d\n", cfg.Crawler.MaxDegreeOfParallelism)
			fmt.Printf("  Max Pages:         %d\n", cfg.Crawler.MaxPages)
			fmt.Printf("  Sites:             %v\n", cfg.Crawler.Sites)
			fmt.Printf("  Location:          %s\n", cfg.Crawler.Location)
			fmt.Printf("  Cycle Delay:       %s..%s\n", cfg.Crawler.CycleDelay.Min, cfg.Crawler.CycleDelay.Max)
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Headless:          %v\n", cfg.Browser.Headless)
			fmt.Printf("  Stealth:           %v\n", cfg.Browser.Stealth)
			fmt.Printf("  Render Timeout:    %s\n", cfg.Browser.RenderTimeout)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Database:          %s.%s\n", cfg.Storage.Database, cfg.Storage.Collection)
			if cfg.Storage.JSONLPath != "" {
				fmt.Printf("  Journal:           %s\n", cfg.Storage.JSONLPath)
			}
			fmt.Printf("\nKafka:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Notify.Kafka.Enabled)
			fmt.Printf("  Topic:             %s\n", cfg.Notify.Kafka.Topic)
			fmt.Printf("\nAPI:\n")
			fmt.Printf("  Port:              %d\n", cfg.API.Port)
			fmt.Printf("  Redis Cache:       %v\n", cfg.API.RedisAddr != "")
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)

			if err := config.Validate(cfg); err != nil {
				fmt.Printf("\nConfiguration is NOT valid: %v\n", err)
			}
			return nil
		},
	}
	return cmd
}
