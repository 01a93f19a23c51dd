package broadcast

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	logger     *zap.Logger
	source     LiveSource
	sendBuffer int           // 每个连接的发送队列长度，队列满时丢弃消息
	pingPeriod time.Duration // 心跳间隔，读超时为其两倍
}

var defaultOptions = options{
	logger:     zap.NewNop(),
	sendBuffer: 64,
	pingPeriod: 30 * time.Second,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// 配置get_live_results的数据来源
func WithSource(source LiveSource) Option {
	return func(opts *options) {
		opts.source = source
	}
}

func WithSendBuffer(n int) Option {
	return func(opts *options) {
		opts.sendBuffer = n
	}
}

func WithPingPeriod(d time.Duration) Option {
	return func(opts *options) {
		opts.pingPeriod = d
	}
}
