package spider

import (
	"time"

	"github.com/dszqbsm/xoso/limiter"
	"github.com/dszqbsm/xoso/proxy"
	"go.uber.org/zap"
)

// 默认的浏览器UA，数据源会拒绝明显的爬虫UA
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// 采集器的配置选项
type options struct {
	Timeout   time.Duration       // http超时时间
	UserAgent string              // 请求头中的User-Agent
	Cookie    string              // 请求头中的Cookie
	WaitTime  time.Duration       // 请求前随机休眠的上限，0表示不休眠
	Retries   int                 // 失败后的最大重试次数，4xx不重试
	Proxy     proxy.ProxyFunc     // 代理切换函数
	Limit     limiter.RateLimiter // 限速器
	logger    *zap.Logger
}

var defaultOptions = options{
	Timeout:   10 * time.Second,
	UserAgent: DefaultUserAgent,
	Retries:   2,
	logger:    zap.NewNop(),
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.Timeout = timeout
	}
}

func WithUserAgent(ua string) Option {
	return func(opts *options) {
		opts.UserAgent = ua
	}
}

func WithCookie(cookie string) Option {
	return func(opts *options) {
		opts.Cookie = cookie
	}
}

func WithWaitTime(waitTime time.Duration) Option {
	return func(opts *options) {
		opts.WaitTime = waitTime
	}
}

func WithRetries(retries int) Option {
	return func(opts *options) {
		opts.Retries = retries
	}
}

func WithProxy(proxy proxy.ProxyFunc) Option {
	return func(opts *options) {
		opts.Proxy = proxy
	}
}

func WithLimit(limit limiter.RateLimiter) Option {
	return func(opts *options) {
		opts.Limit = limit
	}
}
