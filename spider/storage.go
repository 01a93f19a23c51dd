package spider

import (
	"context"
	"time"
)

// 定义了结果存储引擎的统一规范，以(region, province, date)为键做幂等的upsert
type ResultStore interface {
	Upsert(ctx context.Context, results ...*Result) error
}

// 一次抓取的状态
type CrawlStatus string

const (
	CrawlSuccess CrawlStatus = "success"
	CrawlFailed  CrawlStatus = "failed"
	CrawlPartial CrawlStatus = "partial" // 开奖进行中，部分省份还没有特别奖
)

// 一次地区抓取的审计记录
type CrawlLog struct {
	Status   CrawlStatus   `json:"status"`
	Region   Region        `json:"region"`
	Message  string        `json:"message"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
	Time     time.Time     `json:"time"`
}

// 新结果的推送通道，发布后即返回，不关心订阅者
type Broadcaster interface {
	Publish(res *Result)
}

// 什么也不做的推送器，未配置推送时使用
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(*Result) {}
