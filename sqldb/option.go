package sqldb

// 函数式选项模式

import (
	"go.uber.org/zap"
)

type options struct {
	logger       *zap.Logger
	driver       Driver
	sqlURL       string
	maxOpenConns int // 为0时按驱动取默认值
}

// 默认选项
var defaultOptions = options{
	logger: zap.NewNop(),
	driver: MySQL,
}

type Option func(opts *options)

// 配置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// 配置数据库驱动，mysql或sqlite
func WithDriver(driver Driver) Option {
	return func(opts *options) {
		opts.driver = driver
	}
}

// 配置数据库的连接串，sqlite下为文件路径或:memory:
func WithConnURL(sqlURL string) Option {
	return func(opts *options) {
		opts.sqlURL = sqlURL
	}
}

// 配置最大连接数，内存sqlite必须为1，否则每个连接各自是一个独立的库
func WithMaxOpenConns(n int) Option {
	return func(opts *options) {
		opts.maxOpenConns = n
	}
}
