package cmd

import (
	"os"

	"github.com/dszqbsm/xoso/cmd/crawler"
	"github.com/dszqbsm/xoso/cmd/server"
	"github.com/dszqbsm/xoso/version"
	"github.com/spf13/cobra"
)

// cmd.go借助cobra库定义命令行界面：serve启动HTTP服务和定时抓取，crawl执行一次抓取，history补抓历史结果，version打印版本信息

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version.",
	Long:  "print version.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version.Fprint(cmd.OutOrStdout())
	},
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "xoso",
		Short:         "minhngoc lottery result crawler.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().String("config", "config.yaml", "path of the YAML config file")
	rootCmd.AddCommand(server.NewServeCmd(), crawler.NewCrawlCmd(), crawler.NewHistoryCmd(), versionCmd)
	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
