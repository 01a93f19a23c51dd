package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dszqbsm/xoso/app"
	"github.com/dszqbsm/xoso/config"
	"github.com/dszqbsm/xoso/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serve子命令：启动HTTP接口、websocket推送和定时抓取，收到SIGINT或SIGTERM后优雅退出
func NewServeCmd() *cobra.Command {
	var crawlOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run api service.",
		Long:  "run the HTTP api, the websocket feed and the crawl schedule.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			a, err := app.New(cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()
			a.Logger.Info("starting xoso", zap.String("version", version.GetVersion()))

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if crawlOnStart {
				go func() {
					if _, err := a.Crawler.CrawlDaily(ctx); err != nil {
						a.Logger.Warn("initial crawl finished with errors", zap.Error(err))
					}
				}()
			}
			return a.Serve(ctx)
		},
	}
	cmd.Flags().BoolVar(&crawlOnStart, "crawl-on-start", false, "run a daily crawl right after startup")
	return cmd
}
