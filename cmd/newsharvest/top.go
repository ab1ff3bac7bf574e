package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/newsharvest/internal/config"
	"github.com/IshaanNene/newsharvest/internal/storage"
	"github.com/IshaanNene/newsharvest/internal/types"
)

var (
	topSource string
	topN      int
	topDays   int
)

// topCmd creates the "top" subcommand.
func topCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the most-liked articles",
		Long:  "Query the article store for the most-liked articles published in the last N days.",
		Args:  cobra.NoArgs,
		RunE:  runTop,
	}

	cmd.Flags().StringVar(&topSource, "source", "", "vnexpress or tuoitre (default: all)")
	cmd.Flags().IntVarP(&topN, "top", "n", 0, "number of articles (default: api.default_top)")
	cmd.Flags().IntVarP(&topDays, "days", "d", 0, "window in days (default: api.default_days)")

	return cmd
}

func runTop(cmd *cobra.Command, args []string) error {
	source, err := types.ParseSource(topSource)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(nil, config.ValidateServing)
	if err != nil {
		return err
	}
	logger, logCloser, err := setupLogger(cfg)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer logCloser.Close()

	n, days := topN, topDays
	if n < 1 {
		n = cfg.API.DefaultTop
	}
	if days < 1 {
		days = cfg.API.DefaultDays
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	articles, err := store.QueryTop(ctx, n, days, source)
	if err != nil {
		return fmt.Errorf("query top: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tLIKES\tCOMMENTS\tSOURCE\tPUBLISHED\tTITLE")
	for i, a := range articles {
		published := "-"
		if a.HasPublishedTime() {
			published = a.PublishedTime.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%s\n", i+1, a.TotalLikes, a.TotalComments, a.Source, published, a.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Printf("\nNo articles published in the last %d days.\n", days)
	}
	return nil
}
