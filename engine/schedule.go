package engine

// 定时调度：crawl任务定时执行每日抓取，cleanup任务定时清理过期数据；同一任务上一轮未结束时跳过本轮

import (
	"context"
	"fmt"
	"time"

	"github.com/dszqbsm/xoso/spider"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// 每日抓取
type DailyCrawler interface {
	CrawlDaily(ctx context.Context) ([]*spider.Result, error)
}

// 过期数据清理
type Pruner interface {
	Prune(ctx context.Context) (int64, int64, error)
}

// 调度配置，Crawl和Cleanup为标准的五段cron表达式
type ScheduleConfig struct {
	Crawl    string
	Cleanup  string
	Location *time.Location
	Timeout  time.Duration // 单次任务的最长执行时间，0表示不限制
}

type Scheduler struct {
	cron    *cron.Cron
	crawler DailyCrawler
	pruner  Pruner
	cfg     ScheduleConfig
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

/*
输入每日抓取器、清理器、调度配置和日志，输出调度器和一个错误

pruner为nil时不注册清理任务；cron表达式非法时返回错误
*/
func NewScheduler(crawler DailyCrawler, pruner Pruner, cfg ScheduleConfig, logger *zap.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		crawler: crawler,
		pruner:  pruner,
		cfg:     cfg,
		logger:  logger,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(cfg.Crawl, s.RunCrawl); err != nil {
		return nil, fmt.Errorf("crawl schedule %q: %w", cfg.Crawl, err)
	}
	if pruner != nil {
		if _, err := s.cron.AddFunc(cfg.Cleanup, s.RunCleanup); err != nil {
			return nil, fmt.Errorf("cleanup schedule %q: %w", cfg.Cleanup, err)
		}
	}
	return s, nil
}

// 启动调度，立即返回
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started",
		zap.String("crawl", s.cfg.Crawl),
		zap.String("cleanup", s.cfg.Cleanup),
		zap.String("location", s.cfg.Location.String()),
	)
	s.cron.Start()
}

// 停止调度并取消正在执行的任务，返回的上下文在任务全部退出后结束
func (s *Scheduler) Stop() context.Context {
	s.cancel()
	return s.cron.Stop()
}

// 下一次执行时间，按注册顺序排列
func (s *Scheduler) Next() []time.Time {
	var next []time.Time
	for _, e := range s.cron.Entries() {
		next = append(next, e.Next)
	}
	return next
}

func (s *Scheduler) jobContext() (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(s.ctx, s.cfg.Timeout)
	}
	return context.WithCancel(s.ctx)
}

// 执行一次每日抓取
func (s *Scheduler) RunCrawl() {
	ctx, cancel := s.jobContext()
	defer cancel()

	s.logger.Info("running scheduled daily crawl")
	results, err := s.crawler.CrawlDaily(ctx)
	if err != nil {
		s.logger.Error("scheduled crawl failed", zap.Int("records", len(results)), zap.Error(err))
		return
	}
	s.logger.Info("scheduled crawl done", zap.Int("records", len(results)))
}

// 执行一次过期数据清理
func (s *Scheduler) RunCleanup() {
	ctx, cancel := s.jobContext()
	defer cancel()

	results, logs, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("cleanup failed", zap.Error(err))
		return
	}
	s.logger.Info("cleanup done", zap.Int64("results", results), zap.Int64("logs", logs))
}

// 将cron的日志接到zap上
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
