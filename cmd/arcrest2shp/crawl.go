package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tayerthiaggo/arcrest2shp/internal/config"
	"github.com/tayerthiaggo/arcrest2shp/internal/crawler"
	applog "github.com/tayerthiaggo/arcrest2shp/internal/log"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <root-url>",
		Short: "List the pages under a REST services directory without extracting",
		Long: `Crawl walks an ArcGIS REST services directory and prints every URL it
reached, split into container services and leaf pages. Nothing is
downloaded and no AOI is needed, which makes it a quick way to check
ignore and follow patterns before a full run.

Examples:
  arcrest2shp crawl https://services.slip.wa.gov.au/public/rest/services
  arcrest2shp crawl --json https://gis.example.com/arcgis/rest/services`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Print the listing as JSON")
	addCrawlFlags(cmd)

	return cmd
}

// crawlListing is the crawl command's JSON output.
type crawlListing struct {
	Root       string   `json:"root"`
	Containers []string `json:"containers"`
	Leaves     []string `json:"leaves"`
	Unresolved []string `json:"unresolved"`
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if err := cfg.ValidateCrawl(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runCrawl(ctx, cfg, jsonOutput, cmd.OutOrStdout(), logger)
}

// runCrawl crawls cfg.RootURL and prints the partitioned URLs.
func runCrawl(ctx context.Context, cfg *config.Config, jsonOutput bool, out io.Writer, logger *slog.Logger) error {
	svc := cfg.Service()

	stack, err := newHTTPStack(ctx, cfg, svc, logger)
	if err != nil {
		return err
	}
	filter, err := newFilter(cfg, svc)
	if err != nil {
		return err
	}

	tr, crawlErr := crawler.New(stack.fetcher,
		crawler.WithFilter(filter),
		crawler.WithLogger(logger),
	).Crawl(ctx, cfg.RootURL)
	if tr == nil {
		return fmt.Errorf("crawl failed: %w", crawlErr)
	}

	containers, leaves := crawler.Partition(tr.Visited(), svc.ContainerPatterns)
	listing := crawlListing{
		Root:       applog.RedactURL(tr.Root()),
		Containers: redactAll(containers),
		Leaves:     redactAll(leaves),
		Unresolved: redactAll(tr.Unresolved()),
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(listing); err != nil {
			return fmt.Errorf("failed to encode listing: %w", err)
		}
	} else {
		printListing(out, listing)
	}

	if crawlErr != nil {
		if errors.Is(crawlErr, context.Canceled) {
			return errors.New("crawl interrupted; listing is partial")
		}
		return fmt.Errorf("crawl failed: %w", crawlErr)
	}
	return nil
}

// printListing writes the listing as indented plain text.
func printListing(out io.Writer, l crawlListing) {
	writeTo(out, "Root: %s\n\n", l.Root)

	writeTo(out, "Containers (%d):\n", len(l.Containers))
	for _, u := range l.Containers {
		writeTo(out, "  %s\n", u)
	}

	writeTo(out, "\nLeaves (%d):\n", len(l.Leaves))
	for _, u := range l.Leaves {
		writeTo(out, "  %s\n", u)
	}

	if len(l.Unresolved) > 0 {
		writeTo(out, "\nUnresolved (%d):\n", len(l.Unresolved))
		for _, u := range l.Unresolved {
			writeTo(out, "  %s\n", u)
		}
	}
}

func redactAll(urls []string) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = applog.RedactURL(u)
	}
	return out
}
