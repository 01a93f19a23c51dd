package engine

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dszqbsm/xoso/dom"
	"github.com/dszqbsm/xoso/spider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = "http://xoso.test"

const southPage = `<div class="box_kqxs"><div class="title">Thứ Hai ngày 4/3/2024</div><div class="content">
<table class="bkqmiennam">
<thead><tr><th>Tỉnh</th><th>An Giang</th><th>Bình Thuận</th></tr></thead>
<tbody>
<tr><td>Giải tám</td><td>66</td><td>81</td></tr>
<tr><td>Giải đặc biệt</td><td>123456</td><td>654321</td></tr>
</tbody></table></div></div>`

const centralPage = `<div class="box_kqxs"><div class="title">ngày 4/3/2024</div><div class="content">
<table class="bkqmientrung">
<thead><tr><th>Tỉnh</th><th>Huế</th><th>Phú Yên</th></tr></thead>
<tbody>
<tr><td>Giải tám</td><td>10</td><td>20</td></tr>
<tr><td>Giải đặc biệt</td><td>111111</td><td></td></tr>
</tbody></table></div></div>`

const northPage = `<div class="box_kqxs"><div class="title">ngày 4/3/2024</div><div class="content">
<table class="bkqmienbac"><tr><td>ĐB</td><td class="giai_dacbiet">12345</td></tr>
<tr><td>G1</td><td class="giai_nhat">67890</td></tr></table></div></div>`

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*dom.Node, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	page, ok := f.pages[url]
	f.mu.Unlock()
	if !ok {
		return nil, &spider.FetchError{URL: url, StatusCode: http.StatusNotFound}
	}
	return dom.ParseString(page)
}

type fakeStore struct {
	mu        sync.Mutex
	saved     []*spider.Result
	logs      []spider.CrawlLog
	special   map[string]bool
	upsertErr error
}

func (s *fakeStore) Upsert(ctx context.Context, results ...*spider.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.saved = append(s.saved, results...)
	return nil
}

func (s *fakeStore) HasSpecial(ctx context.Context, region spider.Region, date string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.special[string(region)+"/"+date], nil
}

func (s *fakeStore) LogCrawl(ctx context.Context, l spider.CrawlLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, l)
	return nil
}

type recorder struct {
	mu        sync.Mutex
	published []*spider.Result
}

func (r *recorder) Publish(res *spider.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, res)
}

func newCrawler(t *testing.T, f *fakeFetcher, s *fakeStore, opts ...Option) *Crawler {
	t.Helper()
	opts = append([]Option{WithFetcher(f), WithBaseURL(base), WithHistoryPause(0)}, opts...)
	if s != nil {
		opts = append(opts, WithStore(s))
	}
	c, err := NewEngine(opts...)
	require.NoError(t, err)
	return c
}

func TestNewEngineRequiresFetcher(t *testing.T) {
	_, err := NewEngine()
	assert.Error(t, err)
}

func TestCrawlRegion(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{base + "/xo-so-mien-nam.html": southPage}}
	s := &fakeStore{}
	c := newCrawler(t, f, s)

	results, err := c.CrawlRegion(context.Background(), spider.South, time.Time{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "An Giang", results[0].Province)
	assert.Equal(t, []string{"66"}, results[0].Prizes.Eighth)
	assert.Equal(t, []string{"81"}, results[1].Prizes.Eighth)
	assert.Equal(t, "2024-03-04", results[1].Date)

	assert.Len(t, s.saved, 2)
	require.Len(t, s.logs, 1)
	assert.Equal(t, spider.CrawlSuccess, s.logs[0].Status)
	assert.Equal(t, 2, s.logs[0].Records)
}

func TestCrawlRegionFetchError(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{}}
	s := &fakeStore{}
	c := newCrawler(t, f, s)

	results, err := c.CrawlRegion(context.Background(), spider.North, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	assert.Nil(t, results)

	var fe *spider.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, base+"/xo-so-mien-bac/ngay-04-03-2024.html", fe.URL)
	assert.Empty(t, s.saved)
	require.Len(t, s.logs, 1)
	assert.Equal(t, spider.CrawlFailed, s.logs[0].Status)
}

func TestCrawlRegionTableMissing(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{base + "/xo-so-mien-trung.html": `<p>bảo trì</p>`}}
	s := &fakeStore{}
	c := newCrawler(t, f, s)

	results, err := c.CrawlRegion(context.Background(), spider.Central, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, results)
	require.Len(t, s.logs, 1)
	assert.Equal(t, spider.CrawlSuccess, s.logs[0].Status)
	assert.Equal(t, "result table not found", s.logs[0].Message)
}

func TestCrawlRegionPendingSpecial(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{base + "/xo-so-mien-trung.html": centralPage}}
	s := &fakeStore{}
	c := newCrawler(t, f, s)

	results, err := c.CrawlRegion(context.Background(), spider.Central, time.Time{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	require.Len(t, s.logs, 1)
	assert.Equal(t, spider.CrawlPartial, s.logs[0].Status)
	assert.Contains(t, s.logs[0].Message, "Phú Yên")
}

func TestCrawlRegionSaveError(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{base + "/xo-so-mien-nam.html": southPage}}
	s := &fakeStore{upsertErr: errors.New("disk full")}
	c := newCrawler(t, f, s)

	_, err := c.CrawlRegion(context.Background(), spider.South, time.Time{})
	assert.ErrorIs(t, err, s.upsertErr)
	require.Len(t, s.logs, 1)
	assert.Equal(t, spider.CrawlFailed, s.logs[0].Status)
}

func TestCrawlRegionWithoutStore(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{base + "/xo-so-mien-nam.html": southPage}}
	c := newCrawler(t, f, nil)

	results, err := c.CrawlRegion(context.Background(), spider.South, time.Time{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestCrawlDaily(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		base + "/xo-so-mien-bac.html": northPage,
		base + "/xo-so-mien-nam.html": southPage,
	}}
	s := &fakeStore{}
	rec := &recorder{}
	c := newCrawler(t, f, s, WithBroadcaster(rec), WithWorkCount(2))

	results, err := c.CrawlDaily(context.Background())
	require.Error(t, err, "central page is missing")

	var fe *spider.FetchError
	assert.True(t, errors.As(err, &fe))

	require.Len(t, results, 3)
	assert.Equal(t, spider.North, results[0].Region)
	assert.Equal(t, "12345", results[0].Prizes.Special)
	assert.Equal(t, []string{"67890"}, results[0].Prizes.First)
	assert.Equal(t, spider.South, results[1].Region)
	assert.Equal(t, results, rec.published)
	assert.Len(t, s.logs, 3)
}

func TestCrawlHistorySkipsCompletedDates(t *testing.T) {
	// 越南时间2024-03-05 03:00
	now := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	f := &fakeFetcher{pages: map[string]string{
		base + "/xo-so-mien-nam/ngay-05-03-2024.html": southPage,
	}}
	s := &fakeStore{special: map[string]bool{
		"north/2024-03-05":   true,
		"central/2024-03-04": true,
	}}
	c := newCrawler(t, f, s, WithClock(func() time.Time { return now }))

	count, err := c.CrawlHistory(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{
		base + "/xo-so-mien-trung/ngay-05-03-2024.html",
		base + "/xo-so-mien-nam/ngay-05-03-2024.html",
		base + "/xo-so-mien-bac/ngay-04-03-2024.html",
		base + "/xo-so-mien-nam/ngay-04-03-2024.html",
	}, f.calls)
}

func TestCrawlHistoryCanceled(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{}}
	c := newCrawler(t, f, &fakeStore{}, WithHistoryPause(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.CrawlHistory(ctx, 30)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.calls, 1)
}
