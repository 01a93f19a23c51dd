package api

import (
	"net/http"

	"go.uber.org/zap"
)

type options struct {
	logger     *zap.Logger
	live       http.Handler   // /ws的处理器
	logs       CrawlLogReader // 为nil时不提供抓取日志接口
	adminToken string
	maxLimit   int // 历史分页每页条数上限
}

var defaultOptions = options{
	logger:   zap.NewNop(),
	maxLimit: 100,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// 挂载实时推送的websocket处理器
func WithLiveHandler(h http.Handler) Option {
	return func(opts *options) {
		opts.live = h
	}
}

// 提供最近的抓取日志
func WithCrawlLogs(logs CrawlLogReader) Option {
	return func(opts *options) {
		opts.logs = logs
	}
}

// 配置管理接口的访问令牌
func WithAdminToken(token string) Option {
	return func(opts *options) {
		opts.adminToken = token
	}
}

func WithMaxLimit(n int) Option {
	return func(opts *options) {
		opts.maxLimit = n
	}
}
