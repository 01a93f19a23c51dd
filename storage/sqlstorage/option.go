package sqlstorage

// 用于配置sql存储相关的选项，用于存储引擎的函数选择模式

import (
	"time"

	"github.com/dszqbsm/xoso/sqldb"
	"go.uber.org/zap"
)

type options struct {
	logger       *zap.Logger
	driver       sqldb.Driver
	sqlURL       string
	maxOpenConns int
	BatchCount   int           // 单条upsert语句最多携带的结果数
	ResultTTL    time.Duration // 结果的保留时长
	LogTTL       time.Duration // 抓取日志的保留时长
	clock        func() time.Time
}

// 默认选项
var defaultOptions = options{
	logger:     zap.NewNop(),
	driver:     sqldb.MySQL,
	BatchCount: 20,
	ResultTTL:  30 * 24 * time.Hour,
	LogTTL:     7 * 24 * time.Hour,
	clock:      time.Now,
}

type Option func(opts *options)

// 配置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// 配置数据库驱动
func WithDriver(driver sqldb.Driver) Option {
	return func(opts *options) {
		opts.driver = driver
	}
}

// 配置数据库的链接url
func WithSqlUrl(sqlUrl string) Option {
	return func(opts *options) {
		opts.sqlURL = sqlUrl
	}
}

func WithMaxOpenConns(n int) Option {
	return func(opts *options) {
		opts.maxOpenConns = n
	}
}

// 配置批量处理的数量
func WithBatchCount(batchCount int) Option {
	return func(opts *options) {
		opts.BatchCount = batchCount
	}
}

// 配置结果和抓取日志的保留天数，非正数表示沿用默认值
func WithRetention(resultDays, logDays int) Option {
	return func(opts *options) {
		if resultDays > 0 {
			opts.ResultTTL = time.Duration(resultDays) * 24 * time.Hour
		}
		if logDays > 0 {
			opts.LogTTL = time.Duration(logDays) * 24 * time.Hour
		}
	}
}

// 配置写入时间戳所用的时钟
func WithClock(clock func() time.Time) Option {
	return func(opts *options) {
		opts.clock = clock
	}
}
