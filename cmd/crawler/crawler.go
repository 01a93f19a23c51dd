package crawler

// crawl和history子命令：在命令行中执行一次抓取或历史补抓，不启动HTTP服务

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dszqbsm/xoso/app"
	"github.com/dszqbsm/xoso/config"
	"github.com/dszqbsm/xoso/parse/minhngoc"
	"github.com/dszqbsm/xoso/spider"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type crawlFlags struct {
	region string
	date   string
	dryRun bool
}

func NewCrawlCmd() *cobra.Command {
	var f crawlFlags
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "crawl lottery results once.",
		Long:  "crawl the results of one region, or all regions, and print them as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.region, "region", "all", "north, central, south or all")
	cmd.Flags().StringVar(&f.date, "date", "", "draw date as YYYY-MM-DD, today when empty")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "do not save results")
	return cmd
}

func NewHistoryCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "crawl historical results.",
		Long:  "crawl the results of the last N days, skipping dates that already have a special prize.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("days") {
				days = a.Config.History.Days
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			count, err := a.Crawler.CrawlHistory(ctx, days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "crawled %d results in %d days\n", count, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "number of days to crawl back from today")
	return cmd
}

func runCrawl(cmd *cobra.Command, f crawlFlags) error {
	var date time.Time
	if f.date != "" {
		d, err := time.ParseInLocation("2006-01-02", f.date, minhngoc.Vietnam)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", f.date, err)
		}
		date = d
	}
	var region spider.Region
	if f.region != "all" {
		r, err := spider.ParseRegion(f.region)
		if err != nil {
			return err
		}
		region = r
	}

	a, err := setup(cmd, f.dryRun)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	var results []*spider.Result
	switch {
	case region != "":
		results, err = a.Crawler.CrawlRegion(ctx, region, date)
	case !date.IsZero():
		for _, r := range spider.Regions {
			rs, rerr := a.Crawler.CrawlRegion(ctx, r, date)
			if rerr != nil {
				a.Logger.Error("crawl failed", zap.String("region", string(r)), zap.Error(rerr))
				err = rerr
			}
			results = append(results, rs...)
		}
	default:
		results, err = a.Crawler.CrawlDaily(ctx)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if results == nil {
		results = []*spider.Result{}
	}
	if encErr := enc.Encode(results); encErr != nil {
		return encErr
	}
	return err
}

func setup(cmd *cobra.Command, dryRun bool) (*app.App, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, dryRun)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
