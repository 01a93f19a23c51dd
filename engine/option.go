package engine

import (
	"time"

	"github.com/dszqbsm/xoso/parse/minhngoc"
	"github.com/dszqbsm/xoso/spider"
	"go.uber.org/zap"
)

type Option func(opts *options)

// 爬虫配置选项
type options struct {
	WorkCount    int                // 工作协程数，用于控制同时抓取的地区数
	Fetcher      spider.Fetcher     // 采集器
	Store        Store              // 存储器，为nil时只抓取不保存
	Broadcaster  spider.Broadcaster // 每日抓取结果的推送通道
	Parser       Parser             // 页面解析器
	BaseURL      string             // 数据源站点
	HistoryPause time.Duration      // 历史补抓时两次请求之间的间隔
	Logger       *zap.Logger        // 日志
	clock        func() time.Time
}

var defaultOptions = options{
	WorkCount:    len(spider.Regions),
	Broadcaster:  spider.NopBroadcaster{},
	Parser:       minhngoc.NewParser(),
	BaseURL:      spider.DefaultBaseURL,
	HistoryPause: time.Second,
	Logger:       zap.NewNop(),
	clock:        time.Now,
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

func WithFetcher(fetcher spider.Fetcher) Option {
	return func(opts *options) {
		opts.Fetcher = fetcher
	}
}

func WithStore(store Store) Option {
	return func(opts *options) {
		opts.Store = store
	}
}

func WithBroadcaster(b spider.Broadcaster) Option {
	return func(opts *options) {
		opts.Broadcaster = b
	}
}

func WithParser(parser Parser) Option {
	return func(opts *options) {
		opts.Parser = parser
	}
}

func WithBaseURL(baseURL string) Option {
	return func(opts *options) {
		opts.BaseURL = baseURL
	}
}

func WithWorkCount(workCount int) Option {
	return func(opts *options) {
		opts.WorkCount = workCount
	}
}

func WithHistoryPause(pause time.Duration) Option {
	return func(opts *options) {
		opts.HistoryPause = pause
	}
}

func WithClock(clock func() time.Time) Option {
	return func(opts *options) {
		opts.clock = clock
	}
}
