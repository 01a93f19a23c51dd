package sqlstorage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dszqbsm/xoso/spider"
	"github.com/dszqbsm/xoso/sqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newMemoryStore(t *testing.T, clock *fakeClock, opts ...Option) *SQLStore {
	t.Helper()
	opts = append([]Option{
		WithDriver(sqldb.SQLite),
		WithSqlUrl(":memory:"),
		WithMaxOpenConns(1),
		WithClock(clock.Now),
	}, opts...)
	s, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func result(region spider.Region, province, date, special string, eighth ...string) *spider.Result {
	res := spider.NewResult(region, province, date)
	res.Prizes.Special = special
	res.Prizes.Append(spider.Eighth, eighth...)
	return res
}

func TestUpsertIsIdempotent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)}
	s := newMemoryStore(t, clock)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, result(spider.South, "An Giang", "2024-03-04", "", "66")))
	require.NoError(t, s.Upsert(ctx, result(spider.South, "An Giang", "2024-03-04", "123456", "66")))

	got, err := s.ByDate(ctx, spider.South, "2024-03-04")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "123456", got[0].Prizes.Special)
	assert.Equal(t, []string{"66"}, got[0].Prizes.Eighth)
	assert.Equal(t, []string{}, got[0].Prizes.First)
}

func TestUpsertBatches(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s := newMemoryStore(t, clock, WithBatchCount(2))
	ctx := context.Background()

	provinces := []string{"Tây Ninh", "An Giang", "Bình Thuận", "Vĩnh Long", "Bình Dương"}
	var results []*spider.Result
	for _, p := range provinces {
		results = append(results, result(spider.South, p, "2024-03-07", "1"))
	}
	require.NoError(t, s.Upsert(ctx, results...))

	got, total, err := s.History(ctx, spider.South, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, got, 5)
	for i, res := range got {
		assert.Equal(t, provinces[i], res.Province)
	}
}

func TestLatestAndHistory(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s := newMemoryStore(t, clock)
	ctx := context.Background()

	_, err := s.Latest(ctx, spider.North)
	assert.ErrorIs(t, err, ErrNotFound)

	for _, date := range []string{"2024-03-01", "2024-03-03", "2024-03-02"} {
		require.NoError(t, s.Upsert(ctx, result(spider.North, "Hà Nội", date, "1")))
	}
	require.NoError(t, s.Upsert(ctx, result(spider.South, "Cà Mau", "2024-03-09", "2")))

	latest, err := s.Latest(ctx, spider.North)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-03", latest.Date)

	page, total, err := s.History(ctx, spider.North, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "2024-03-01", page[0].Date)

	month, err := s.ByDate(ctx, spider.North, "2024-03")
	require.NoError(t, err)
	assert.Len(t, month, 3)

	none, err := s.ByDate(ctx, spider.North, "2023")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, _, err = s.History(ctx, spider.North, 0, 10)
	assert.Error(t, err)
}

func TestHasSpecial(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s := newMemoryStore(t, clock)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx,
		result(spider.Central, "Huế", "2024-03-04", ""),
		result(spider.Central, "Phú Yên", "2024-03-05", "654321"),
	))

	ok, err := s.HasSpecial(ctx, spider.Central, "2024-03-04")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.HasSpecial(ctx, spider.Central, "2024-03-05")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasSpecial(ctx, spider.South, "2024-03-05")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCrawlLogsAndPrune(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	s := newMemoryStore(t, clock, WithRetention(30, 7))
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, result(spider.North, "Hà Nội", "2024-03-01", "1")))
	require.NoError(t, s.LogCrawl(ctx, spider.CrawlLog{
		Status: spider.CrawlSuccess, Region: spider.North, Message: "ok", Records: 1, Duration: 1500 * time.Millisecond,
	}))

	logs, err := s.RecentLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, spider.CrawlSuccess, logs[0].Status)
	assert.Equal(t, 1500*time.Millisecond, logs[0].Duration)
	assert.True(t, start.Equal(logs[0].Time))

	// 10天后日志过期，结果仍然保留
	clock.now = start.Add(10 * 24 * time.Hour)
	results, removedLogs, err := s.Prune(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, results)
	assert.EqualValues(t, 1, removedLogs)

	clock.now = start.Add(31 * 24 * time.Hour)
	results, _, err = s.Prune(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, results)

	_, err = s.Latest(ctx, spider.North)
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeDB struct {
	createErr error
	upsertErr error
	upserts   []sqldb.TableData
}

func (f *fakeDB) CreateTable(t sqldb.TableData) error {
	return f.createErr
}

func (f *fakeDB) Insert(ctx context.Context, t sqldb.TableData) error {
	return nil
}

func (f *fakeDB) Upsert(ctx context.Context, t sqldb.TableData) error {
	f.upserts = append(f.upserts, t)
	return f.upsertErr
}

func (f *fakeDB) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	return 0, nil
}

func (f *fakeDB) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

func TestNewWithDBCreateTableFailed(t *testing.T) {
	_, err := NewWithDB(&fakeDB{createErr: errors.New("denied")})
	assert.Error(t, err)
}

func TestUpsertWithFakeDB(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		batch       int
		upsertErr   error
		wantErr     bool
		wantBatches []int
	}{
		{name: "empty", count: 0, batch: 2, wantBatches: nil},
		{name: "exact batches", count: 4, batch: 2, wantBatches: []int{2, 2}},
		{name: "remainder", count: 3, batch: 2, wantBatches: []int{2, 1}},
		{name: "error stops", count: 3, batch: 1, upsertErr: errors.New("deadlock"), wantErr: true, wantBatches: []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{upsertErr: tt.upsertErr}
			s, err := NewWithDB(db, WithBatchCount(tt.batch))
			require.NoError(t, err)

			var results []*spider.Result
			for i := 0; i < tt.count; i++ {
				results = append(results, result(spider.South, string(rune('A'+i))+" province", "2024-03-04", ""))
			}
			err = s.Upsert(context.Background(), results...)
			assert.Equal(t, tt.wantErr, err != nil)

			var batches []int
			for _, u := range db.upserts {
				batches = append(batches, u.DataCount)
				assert.Len(t, u.Args, u.DataCount*len(resultColumns))
			}
			assert.Equal(t, tt.wantBatches, batches)
		})
	}
}
