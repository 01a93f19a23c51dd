package limiter

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// 限速器接口，统一了不同限速器的行为
type RateLimiter interface {
	Wait(context.Context) error // 阻塞直到取得令牌，或上下文被取消
	Limit() rate.Limit          // 返回限速器的速率限制
}

// 一条限速规则：EventDur秒内最多EventCount次请求，Bucket为令牌桶大小
type Config struct {
	EventCount int `yaml:"eventCount"`
	EventDur   int `yaml:"eventDur"` // 秒
	Bucket     int `yaml:"bucket"`
}

/*
输入若干限速规则，输出一个限速器

无效规则（次数或时长不为正）被忽略，没有有效规则时返回nil，调用方据此跳过限速
*/
func New(cfgs ...Config) RateLimiter {
	var limits []RateLimiter
	for _, c := range cfgs {
		if c.EventCount <= 0 || c.EventDur <= 0 {
			continue
		}
		bucket := c.Bucket
		if bucket <= 0 {
			bucket = 1
		}
		limits = append(limits, rate.NewLimiter(Per(c.EventCount, time.Duration(c.EventDur)*time.Second), bucket))
	}
	if len(limits) == 0 {
		return nil
	}
	return Multi(limits...)
}

// 将多个限速器按速率限制从小到大排序，然后返回一个多限速器实例
func Multi(limiters ...RateLimiter) *multiLimiter {
	byLimit := func(i, j int) bool {
		return limiters[i].Limit() < limiters[j].Limit()
	}
	sort.Slice(limiters, byLimit)
	return &multiLimiter{limiters: limiters}
}

// 多限速器，只有所有限速器都放行时才能继续
type multiLimiter struct {
	limiters []RateLimiter
}

func (l *multiLimiter) Wait(ctx context.Context) error {
	for _, l := range l.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// 返回最严格的速率限制
func (l *multiLimiter) Limit() rate.Limit {
	return l.limiters[0].Limit()
}

// 指定duration内允许eventCount个事件，换算为两个令牌之间的间隔
func Per(eventCount int, duration time.Duration) rate.Limit {
	return rate.Every(duration / time.Duration(eventCount))
}
