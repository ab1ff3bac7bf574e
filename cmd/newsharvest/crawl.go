package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/newsharvest/internal/api"
	"github.com/IshaanNene/newsharvest/internal/config"
	"github.com/IshaanNene/newsharvest/internal/engine"
	"github.com/IshaanNene/newsharvest/internal/fetcher"
	"github.com/IshaanNene/newsharvest/internal/notify"
	"github.com/IshaanNene/newsharvest/internal/observability"
	"github.com/IshaanNene/newsharvest/internal/site"
	"github.com/IshaanNene/newsharvest/internal/storage"
)

var (
	crawlSites       string
	crawlOnce        bool
	crawlCycles      int
	crawlDays        int
	crawlParallelism int
	crawlServe       bool
)

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run the crawl-and-enrich loop",
		Long: `Run one crawl loop per configured site. Each cycle discovers categories, pages through
their listings until articles fall outside the crawling window, renders every new article,
and upserts its comment and like totals. Cycles repeat until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runCrawl,
	}

	cmd.Flags().StringVarP(&crawlSites, "site", "s", "", "comma-separated sites to crawl (default: crawler.sites)")
	cmd.Flags().BoolVar(&crawlOnce, "once", false, "run a single cycle per site and exit")
	cmd.Flags().IntVar(&crawlCycles, "cycles", 0, "stop after this many cycles per site (0 = run forever)")
	cmd.Flags().IntVarP(&crawlDays, "days", "d", 0, "override crawler.number_of_crawling_days")
	cmd.Flags().IntVarP(&crawlParallelism, "parallelism", "n", 0, "override crawler.max_degree_of_parallelism")
	cmd.Flags().BoolVar(&crawlServe, "serve", false, "also serve the query API while crawling")

	return cmd
}

// applyCrawlOverrides applies command-line flag values to the config.
func applyCrawlOverrides(cfg *config.Config) {
	if crawlDays > 0 {
		cfg.Crawler.NumberOfCrawlingDays = crawlDays
	}
	if crawlParallelism > 0 {
		cfg.Crawler.MaxDegreeOfParallelism = crawlParallelism
	}
	if crawlSites != "" {
		var sites []string
		for _, s := range strings.Split(crawlSites, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sites = append(sites, s)
			}
		}
		cfg.Crawler.Sites = sites
	}
}

// runCrawl executes the crawl command.
func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(applyCrawlOverrides, config.Validate)
	if err != nil {
		return err
	}

	logger, logCloser, err := setupLogger(cfg)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting crawl",
		"sites", cfg.Crawler.Sites,
		"days", cfg.Crawler.NumberOfCrawlingDays,
		"parallelism", cfg.Crawler.MaxDegreeOfParallelism,
		"storage", cfg.Storage.Type,
	)

	// Setup storage
	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	// Setup fetchers
	httpFetcher, err := fetcher.NewHTTPFetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer httpFetcher.Close()

	renderer, err := fetcher.NewBrowserRenderer(cfg, logger)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	defer renderer.Close()

	var engineOpts []engine.Option
	if cfg.Notify.Kafka.Enabled {
		publisher, err := notify.NewKafkaPublisher(cfg.Notify.Kafka, logger)
		if err != nil {
			return fmt.Errorf("create kafka publisher: %w", err)
		}
		defer publisher.Close()
		engineOpts = append(engineOpts, engine.WithPublisher(publisher))
	}

	metrics := observability.NewMetrics(logger)
	var apiServer *api.Server
	if crawlServe {
		querier, closeCache := newTopQuerier(ctx, cfg.API, store, metrics, logger)
		defer closeCache()
		apiServer = api.NewServer(cfg.API, querier, metrics, logger)
	}

	var schedOpts []engine.SchedulerOption
	switch {
	case crawlOnce:
		schedOpts = append(schedOpts, engine.WithMaxCycles(1))
	case crawlCycles > 0:
		schedOpts = append(schedOpts, engine.WithMaxCycles(crawlCycles))
	}

	var engines []*engine.Engine
	var schedulers []*engine.Scheduler
	for _, name := range cfg.Crawler.Sites {
		s, err := site.ByName(name)
		if err != nil {
			return err
		}
		eng, err := engine.New(s, cfg.Crawler, httpFetcher, renderer, store, logger, engineOpts...)
		if err != nil {
			return fmt.Errorf("create %s engine: %w", name, err)
		}
		engines = append(engines, eng)
		metrics.Register(name, eng.Snapshot)
		if apiServer != nil {
			apiServer.AddStats(eng)
		}
		schedulers = append(schedulers, engine.NewScheduler(eng, cfg.Crawler.CycleDelay, logger.With("source", name), schedOpts...))
	}

	// Setup metrics (if enabled)
	if cfg.Metrics.Enabled {
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sched := range schedulers {
		g.Go(func() error {
			err := sched.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	apiCtx, stopAPI := context.WithCancel(ctx)
	defer stopAPI()
	apiDone := make(chan error, 1)
	if apiServer != nil {
		go func() { apiDone <- apiServer.Run(apiCtx) }()
	} else {
		apiDone <- nil
	}

	err = g.Wait()
	if crawlServe && ctx.Err() == nil {
		// Bounded crawl finished; keep answering queries until interrupted.
		logger.Info("crawl finished, API still serving")
		<-ctx.Done()
	}
	stopAPI()
	if apiErr := <-apiDone; apiErr != nil && err == nil {
		err = apiErr
	}

	if ctx.Err() != nil {
		logger.Info("received signal, shut down cleanly")
	}

	fmt.Println()
	for _, eng := range engines {
		stats := eng.Snapshot()
		fmt.Printf("%s: %v cycles\n", eng.Source(), stats["cycles"])
		fmt.Printf("   Categories: %v discovered, %v aborted\n", stats["categories_discovered"], stats["categories_aborted"])
		fmt.Printf("   Articles:   %v discovered, %v enriched, %v saved\n", stats["articles_discovered"], stats["articles_enriched"], stats["articles_saved"])
		fmt.Printf("   Failures:   %v enrich, %v save, %v publish\n", stats["enrich_failures"], stats["save_failures"], stats["publish_failures"])
	}
	return err
}
