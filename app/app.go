package app

// 根据配置组装各个组件：日志、采集器、存储、爬虫引擎、定时调度、实时推送和HTTP服务

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dszqbsm/xoso/api"
	"github.com/dszqbsm/xoso/broadcast"
	"github.com/dszqbsm/xoso/config"
	"github.com/dszqbsm/xoso/engine"
	"github.com/dszqbsm/xoso/limiter"
	"github.com/dszqbsm/xoso/log"
	"github.com/dszqbsm/xoso/parse/minhngoc"
	"github.com/dszqbsm/xoso/proxy"
	"github.com/dszqbsm/xoso/spider"
	"github.com/dszqbsm/xoso/sqldb"
	"github.com/dszqbsm/xoso/storage/sqlstorage"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// 已组装好的应用
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Fetcher *spider.HTTPFetcher
	Store   *sqlstorage.SQLStore // dry-run时为nil
	Hub     *broadcast.Hub       // dry-run时为nil
	Crawler *engine.Crawler

	logCloser io.Closer
}

/*
输入配置和是否只抓取不保存，输出组装好的应用和一个错误

dryRun为true时不打开数据库，抓取结果不保存也不写抓取日志
*/
func New(cfg *config.Config, dryRun bool) (*App, error) {
	logger, closer, err := log.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	a := &App{Config: cfg, Logger: logger, logCloser: closer}

	if a.Fetcher, err = NewFetcher(cfg.Fetcher, logger); err != nil {
		a.Close()
		return nil, err
	}

	opts := []engine.Option{
		engine.WithLogger(logger.Named("engine")),
		engine.WithFetcher(a.Fetcher),
		engine.WithParser(minhngoc.NewParser(minhngoc.WithLogger(logger.Named("parser")))),
		engine.WithBaseURL(cfg.Source.BaseURL),
		engine.WithWorkCount(cfg.Engine.WorkCount),
		engine.WithHistoryPause(cfg.History.PauseDuration()),
	}
	if !dryRun {
		if a.Store, err = NewStore(cfg, logger); err != nil {
			a.Close()
			return nil, err
		}
		a.Hub = broadcast.NewHub(
			broadcast.WithLogger(logger.Named("ws")),
			broadcast.WithSource(a.Store),
		)
		opts = append(opts, engine.WithStore(a.Store), engine.WithBroadcaster(a.Hub))
	}

	if a.Crawler, err = engine.NewEngine(opts...); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// 按配置创建采集器，代理地址非法时返回错误
func NewFetcher(cfg config.FetcherConfig, logger *zap.Logger) (*spider.HTTPFetcher, error) {
	opts := []spider.Option{
		spider.WithLogger(logger.Named("fetcher")),
		spider.WithTimeout(cfg.TimeoutDuration()),
		spider.WithWaitTime(cfg.WaitDuration()),
		spider.WithRetries(cfg.Retries),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, spider.WithUserAgent(cfg.UserAgent))
	}
	if len(cfg.Proxy) > 0 {
		p, err := proxy.RoundRobinProxySwitcher(cfg.Proxy...)
		if err != nil {
			return nil, fmt.Errorf("proxy: %w", err)
		}
		opts = append(opts, spider.WithProxy(p))
	}
	if l := limiter.New(cfg.Limits...); l != nil {
		opts = append(opts, spider.WithLimit(l))
	}
	return spider.NewFetchService(opts...), nil
}

// 按配置打开结果存储
func NewStore(cfg *config.Config, logger *zap.Logger) (*sqlstorage.SQLStore, error) {
	driver, err := sqldb.ParseDriver(cfg.Storage.Driver)
	if err != nil {
		return nil, err
	}
	return sqlstorage.New(
		sqlstorage.WithDriver(driver),
		sqlstorage.WithSqlUrl(cfg.Storage.SQLURL),
		sqlstorage.WithBatchCount(cfg.Storage.BatchCount),
		sqlstorage.WithRetention(cfg.Retention.ResultsDays, cfg.Retention.LogsDays),
		sqlstorage.WithLogger(logger.Named("sqlDB")),
	)
}

/*
输入一个上下文，输出一个错误

启动实时推送、定时调度和HTTP服务，阻塞直到上下文被取消或HTTP服务出错，随后依次优雅关闭
*/
func (a *App) Serve(ctx context.Context) error {
	if a.Store == nil {
		return errors.New("serve requires a result store")
	}
	cfg := a.Config

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	scheduler, err := engine.NewScheduler(a.Crawler, a.Store, engine.ScheduleConfig{
		Crawl:    cfg.Schedule.Crawl,
		Cleanup:  cfg.Schedule.Cleanup,
		Location: loc,
		Timeout:  cfg.Schedule.TimeoutDuration(),
	}, a.Logger.Named("scheduler"))
	if err != nil {
		return err
	}

	handler := api.NewServer(a.Store, a.Crawler,
		api.WithLogger(a.Logger.Named("api")),
		api.WithLiveHandler(a.Hub),
		api.WithCrawlLogs(a.Store),
		api.WithAdminToken(cfg.Server.AdminToken),
	)
	srv := &http.Server{
		Addr:              cfg.Server.HTTPListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler.Start()
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		a.Logger.Info("shutting down")
		err = nil
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.Hub.Close()
	err = multierr.Append(err, srv.Shutdown(shutdownCtx))
	handler.Close()
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		a.Logger.Warn("scheduled job did not stop in time")
	}
	return err
}

// 关闭存储并刷新日志
func (a *App) Close() error {
	var err error
	if a.Store != nil {
		err = multierr.Append(err, a.Store.Close())
	}
	return multierr.Append(err, log.Close(a.Logger, a.logCloser))
}
