package engine

// 爬虫引擎：按地区抓取开奖页面、解析、保存并记录抓取日志；每日抓取由工作协程并发完成，历史补抓顺序执行并在请求之间停顿

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dszqbsm/xoso/dom"
	"github.com/dszqbsm/xoso/parse/minhngoc"
	"github.com/dszqbsm/xoso/spider"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// 引擎对存储的全部需求
type Store interface {
	spider.ResultStore
	HasSpecial(ctx context.Context, region spider.Region, date string) (bool, error)
	LogCrawl(ctx context.Context, l spider.CrawlLog) error
}

// 页面解析器
type Parser interface {
	Parse(doc *dom.Node, region spider.Region) minhngoc.Extraction
}

// 爬虫实例，管理整个爬取流程
type Crawler struct {
	options // 爬虫配置选项
}

// 创建并初始化一个Crawler爬虫实例，未配置采集器时返回错误
func NewEngine(opts ...Option) (*Crawler, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Fetcher == nil {
		return nil, errors.New("engine: fetcher is required")
	}
	if options.WorkCount <= 0 {
		options.WorkCount = 1
	}
	if options.Broadcaster == nil {
		options.Broadcaster = spider.NopBroadcaster{}
	}
	return &Crawler{options: options}, nil
}

/*
输入一个上下文、地区和开奖日期，输出本次抓取的结果和一个错误

日期为零值时抓取当日最新结果页。流程为：构造URL -> 采集 -> 解析 -> 保存 -> 写抓取日志。
采集失败时原样返回采集器的错误；页面中找不到结果表格不算错误，返回零条结果
*/
func (c *Crawler) CrawlRegion(ctx context.Context, region spider.Region, date time.Time) ([]*spider.Result, error) {
	start := c.clock()
	logger := c.Logger.With(zap.String("region", string(region)))

	url, err := spider.PageURL(c.BaseURL, region, date)
	if err != nil {
		return nil, err
	}

	doc, err := c.Fetcher.Fetch(ctx, url)
	if err != nil {
		logger.Error("fetch failed", zap.String("url", url), zap.Error(err))
		c.logCrawl(ctx, spider.CrawlLog{Status: spider.CrawlFailed, Region: region, Message: err.Error()}, start)
		return nil, err
	}

	ex := c.Parser.Parse(doc, region)
	if !date.IsZero() && ex.DateParsed && ex.Date != date.Format(dateLayout) {
		logger.Warn("page date differs from requested date",
			zap.String("requested", date.Format(dateLayout)),
			zap.String("page", ex.Date),
		)
	}
	if !ex.DateParsed {
		logger.Warn("draw date not found in page title, using current date", zap.String("date", ex.Date))
	}

	status, message := spider.CrawlSuccess, "crawled successfully"
	switch {
	case ex.Outcome == minhngoc.NotFound:
		message = "result table not found"
		logger.Warn(message, zap.String("url", url))
	case len(ex.Results) > 0 && len(pending(ex.Results)) > 0:
		status = spider.CrawlPartial
		message = "special prize pending: " + strings.Join(pending(ex.Results), ", ")
	}

	if c.Store != nil && len(ex.Results) > 0 {
		if err := c.Store.Upsert(ctx, ex.Results...); err != nil {
			err = fmt.Errorf("save %s results: %w", region, err)
			logger.Error("save failed", zap.Error(err))
			c.logCrawl(ctx, spider.CrawlLog{Status: spider.CrawlFailed, Region: region, Message: err.Error()}, start)
			return nil, err
		}
	}

	logger.Info("region crawled",
		zap.String("date", ex.Date),
		zap.Stringer("outcome", ex.Outcome),
		zap.Int("records", len(ex.Results)),
	)
	c.logCrawl(ctx, spider.CrawlLog{Status: status, Region: region, Message: message, Records: len(ex.Results)}, start)
	return ex.Results, nil
}

// 还没有特别奖号码的省份，开奖进行中时会出现
func pending(results []*spider.Result) []string {
	var names []string
	for _, r := range results {
		if r.Prizes.Special == "" {
			names = append(names, r.Province)
		}
	}
	return names
}

func (c *Crawler) logCrawl(ctx context.Context, l spider.CrawlLog, start time.Time) {
	if c.Store == nil {
		return
	}
	l.Duration = c.clock().Sub(start)
	if err := c.Store.LogCrawl(ctx, l); err != nil {
		c.Logger.Error("write crawl log failed", zap.Error(err))
	}
}

/*
输入一个上下文，输出三个地区当日的全部结果和一个错误

各地区由WorkCount个工作协程并发抓取，某个地区失败不影响其他地区；结果按北、中、南的顺序返回，
每条结果都会推送给订阅者，所有地区的错误合并后返回
*/
func (c *Crawler) CrawlDaily(ctx context.Context) ([]*spider.Result, error) {
	jobs := make(chan int)
	perRegion := make([][]*spider.Result, len(spider.Regions))
	errs := make([]error, len(spider.Regions))

	var wg sync.WaitGroup
	for i := 0; i < min(c.WorkCount, len(spider.Regions)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				perRegion[idx], errs[idx] = c.CrawlRegion(ctx, spider.Regions[idx], time.Time{})
			}
		}()
	}
	for idx := range spider.Regions {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	var results []*spider.Result
	for _, rs := range perRegion {
		for _, r := range rs {
			c.Broadcaster.Publish(r)
		}
		results = append(results, rs...)
	}
	c.Logger.Info("daily crawl finished", zap.Int("records", len(results)))
	return results, multierr.Combine(errs...)
}

/*
输入一个上下文和天数，输出抓取到的结果数和一个错误

从今天（越南时间）开始往前逐日补抓，每个地区若已有带特别奖的结果则跳过；单个地区失败只记录日志，
每次实际请求之后停顿HistoryPause，上下文取消时立即返回
*/
func (c *Crawler) CrawlHistory(ctx context.Context, days int) (int, error) {
	today := c.clock().In(minhngoc.Vietnam)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, minhngoc.Vietnam)

	c.Logger.Info("history crawl started", zap.Int("days", days))
	count := 0
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, -i)
		for _, region := range spider.Regions {
			if err := ctx.Err(); err != nil {
				return count, err
			}
			if c.Store != nil {
				done, err := c.Store.HasSpecial(ctx, region, date.Format(dateLayout))
				if err != nil {
					c.Logger.Error("check existing results failed", zap.Error(err))
				} else if done {
					c.Logger.Debug("skip crawled date",
						zap.String("region", string(region)),
						zap.String("date", date.Format(dateLayout)),
					)
					continue
				}
			}

			results, err := c.CrawlRegion(ctx, region, date)
			if err != nil {
				c.Logger.Warn("history crawl failed",
					zap.String("region", string(region)),
					zap.String("date", date.Format(dateLayout)),
					zap.Error(err),
				)
			}
			count += len(results)

			if c.HistoryPause > 0 {
				select {
				case <-time.After(c.HistoryPause):
				case <-ctx.Done():
					return count, ctx.Err()
				}
			}
		}
	}
	c.Logger.Info("history crawl finished", zap.Int("records", count))
	return count, nil
}
