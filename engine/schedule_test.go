package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dszqbsm/xoso/spider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingCrawler struct {
	calls    int
	err      error
	deadline time.Time
}

func (c *countingCrawler) CrawlDaily(ctx context.Context) ([]*spider.Result, error) {
	c.calls++
	c.deadline, _ = ctx.Deadline()
	return nil, c.err
}

type countingPruner struct {
	calls int
}

func (p *countingPruner) Prune(ctx context.Context) (int64, int64, error) {
	p.calls++
	return 3, 1, nil
}

func TestNewSchedulerRejectsBadSchedule(t *testing.T) {
	_, err := NewScheduler(&countingCrawler{}, nil, ScheduleConfig{Crawl: "every day"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewScheduler(&countingCrawler{}, &countingPruner{}, ScheduleConfig{Crawl: "30 11 * * *", Cleanup: "bad"}, zap.NewNop())
	assert.Error(t, err)
}

func TestSchedulerJobs(t *testing.T) {
	crawler := &countingCrawler{err: errors.New("central failed")}
	pruner := &countingPruner{}
	s, err := NewScheduler(crawler, pruner, ScheduleConfig{
		Crawl:    "30 11 * * *",
		Cleanup:  "0 19 * * *",
		Location: time.UTC,
		Timeout:  time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, s.Next(), 2)

	start := time.Now()
	s.RunCrawl()
	s.RunCleanup()
	assert.Equal(t, 1, crawler.calls)
	assert.WithinDuration(t, start.Add(time.Minute), crawler.deadline, 5*time.Second)
	assert.Equal(t, 1, pruner.calls)

	s.Start()
	<-s.Stop().Done()
}

func TestSchedulerWithoutPruner(t *testing.T) {
	crawler := &countingCrawler{}
	s, err := NewScheduler(crawler, nil, ScheduleConfig{Crawl: "@daily"}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, s.Next(), 1)

	s.RunCrawl()
	assert.True(t, crawler.deadline.IsZero(), "no timeout configured")
}
