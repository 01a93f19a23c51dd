package minhngoc

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	logger *zap.Logger
	clock  func() time.Time // 日期兜底时使用的当前时间
}

var defaultOptions = options{
	logger: zap.NewNop(),
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func WithClock(clock func() time.Time) Option {
	return func(opts *options) {
		opts.clock = clock
	}
}
