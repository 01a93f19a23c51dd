package sqlstorage

// 定义了SQLStore结构体及其方法，将开奖结果以(region, province, draw_date)为唯一键写入SQL数据库，
// 同时记录每次抓取的审计日志，并提供对外查询和过期数据清理

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dszqbsm/xoso/spider"
	"github.com/dszqbsm/xoso/sqldb"
	"go.uber.org/zap"
)

const (
	resultTable = "lottery_results"
	logTable    = "crawl_logs"
	timeLayout  = "2006-01-02 15:04:05" // 时间戳统一按UTC存成文本，两种方言都能按字典序比较
)

// 查询不到记录
var ErrNotFound = errors.New("sqlstorage: not found")

var resultColumns = []sqldb.Field{
	{Title: "region", Type: "VARCHAR(16) NOT NULL"},
	{Title: "province", Type: "VARCHAR(64) NOT NULL"},
	{Title: "draw_date", Type: "VARCHAR(10) NOT NULL"},
	{Title: "special", Type: "VARCHAR(64) NOT NULL"},
	{Title: "prizes", Type: "TEXT NOT NULL"},
	{Title: "created_at", Type: "VARCHAR(19) NOT NULL", KeepOnConflict: true},
	{Title: "updated_at", Type: "VARCHAR(19) NOT NULL"},
}

var logColumns = []sqldb.Field{
	{Title: "status", Type: "VARCHAR(16) NOT NULL"},
	{Title: "region", Type: "VARCHAR(16) NOT NULL"},
	{Title: "message", Type: "TEXT"},
	{Title: "records", Type: "INT NOT NULL"},
	{Title: "duration_ms", Type: "INT NOT NULL"},
	{Title: "created_at", Type: "VARCHAR(19) NOT NULL"},
}

type SQLStore struct {
	db sqldb.DBer // 数据库操作接口
	options
}

/*
输入一个或多个配置选项，输出一个SQLStore实例和一个error

该方法打开数据库连接并确保结果表和日志表存在
*/
func New(opts ...Option) (*SQLStore, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	db, err := sqldb.New(
		sqldb.WithDriver(options.driver),
		sqldb.WithConnURL(options.sqlURL),
		sqldb.WithMaxOpenConns(options.maxOpenConns),
		sqldb.WithLogger(options.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", options.driver, err)
	}
	return NewWithDB(db, opts...)
}

// 在已有的数据库连接上创建SQLStore
func NewWithDB(db sqldb.DBer, opts ...Option) (*SQLStore, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.BatchCount <= 0 {
		options.BatchCount = defaultOptions.BatchCount
	}
	s := &SQLStore{db: db, options: options}

	if err := db.CreateTable(sqldb.TableData{
		TableName:   resultTable,
		ColumnNames: resultColumns,
		UniqueKey:   []string{"region", "province", "draw_date"},
		AutoKey:     true,
	}); err != nil {
		return nil, fmt.Errorf("create table %s: %w", resultTable, err)
	}
	if err := db.CreateTable(sqldb.TableData{
		TableName:   logTable,
		ColumnNames: logColumns,
		AutoKey:     true,
	}); err != nil {
		return nil, fmt.Errorf("create table %s: %w", logTable, err)
	}
	return s, nil
}

// 关闭底层连接，底层实现不支持关闭时什么也不做
func (s *SQLStore) Close() error {
	if c, ok := s.db.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

/*
输入一个上下文和若干结果，输出一个error

结果按BatchCount分批，每批一条upsert语句；唯一键冲突时覆盖号码和更新时间，保留首次写入时间
*/
func (s *SQLStore) Upsert(ctx context.Context, results ...*spider.Result) error {
	now := s.clock().UTC().Format(timeLayout)
	for start := 0; start < len(results); start += s.BatchCount {
		end := start + s.BatchCount
		if end > len(results) {
			end = len(results)
		}
		batch := results[start:end]

		args := make([]interface{}, 0, len(batch)*len(resultColumns))
		for _, res := range batch {
			prizes, err := json.Marshal(res.Prizes)
			if err != nil {
				return fmt.Errorf("encode prizes %s: %w", res.Key(), err)
			}
			args = append(args, string(res.Region), res.Province, res.Date, res.Prizes.Special, string(prizes), now, now)
		}

		if err := s.db.Upsert(ctx, sqldb.TableData{
			TableName:   resultTable,
			ColumnNames: resultColumns,
			UniqueKey:   []string{"region", "province", "draw_date"},
			Args:        args,
			DataCount:   len(batch),
		}); err != nil {
			return fmt.Errorf("upsert %d results: %w", len(batch), err)
		}
		s.logger.Debug("results saved", zap.Int("count", len(batch)))
	}
	return nil
}

const selectResult = `SELECT region, province, draw_date, prizes FROM ` + resultTable

// 获取某地区开奖日期最新的一条结果，没有任何结果时返回ErrNotFound
func (s *SQLStore) Latest(ctx context.Context, region spider.Region) (*spider.Result, error) {
	results, err := s.query(ctx, selectResult+` WHERE region = ? ORDER BY draw_date DESC, id ASC LIMIT 1`, string(region))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return results[0], nil
}

/*
输入上下文、地区、页码和每页条数，输出当页结果、该地区结果总数和一个error

按开奖日期倒序分页，页码从1开始，非法的页码和条数由调用方校验
*/
func (s *SQLStore) History(ctx context.Context, region spider.Region, page, limit int) ([]*spider.Result, int, error) {
	if page < 1 || limit < 1 {
		return nil, 0, fmt.Errorf("invalid page %d or limit %d", page, limit)
	}
	results, err := s.query(ctx,
		selectResult+` WHERE region = ? ORDER BY draw_date DESC, id ASC LIMIT ? OFFSET ?`,
		string(region), limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(ctx, `SELECT COUNT(*) FROM `+resultTable+` WHERE region = ?`, string(region))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	total, err := scanCount(rows)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// 获取开奖日期以指定前缀开头的全部结果，前缀可以是YYYY、YYYY-MM或完整日期
func (s *SQLStore) ByDate(ctx context.Context, region spider.Region, datePrefix string) ([]*spider.Result, error) {
	return s.query(ctx,
		selectResult+` WHERE region = ? AND draw_date LIKE ? ORDER BY draw_date DESC, id ASC`,
		string(region), datePrefix+"%")
}

// 判断某地区某天是否已经有带特别奖号码的结果，用于历史补抓时跳过已完成的日期
func (s *SQLStore) HasSpecial(ctx context.Context, region spider.Region, date string) (bool, error) {
	rows, err := s.db.Query(ctx,
		`SELECT COUNT(*) FROM `+resultTable+` WHERE region = ? AND draw_date = ? AND special <> ''`,
		string(region), date)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	n, err := scanCount(rows)
	return n > 0, err
}

// 写入一条抓取日志，日志时间为空时取当前时间
func (s *SQLStore) LogCrawl(ctx context.Context, l spider.CrawlLog) error {
	at := l.Time
	if at.IsZero() {
		at = s.clock()
	}
	return s.db.Insert(ctx, sqldb.TableData{
		TableName:   logTable,
		ColumnNames: logColumns,
		Args: []interface{}{
			string(l.Status), string(l.Region), l.Message, l.Records,
			l.Duration.Milliseconds(), at.UTC().Format(timeLayout),
		},
		DataCount: 1,
	})
}

// 按时间倒序获取最近的抓取日志
func (s *SQLStore) RecentLogs(ctx context.Context, limit int) ([]spider.CrawlLog, error) {
	rows, err := s.db.Query(ctx,
		`SELECT status, region, message, records, duration_ms, created_at FROM `+logTable+` ORDER BY id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []spider.CrawlLog
	for rows.Next() {
		var (
			l              spider.CrawlLog
			status, region string
			message        sql.NullString
			durationMs     int64
			createdAt      string
		)
		if err := rows.Scan(&status, &region, &message, &l.Records, &durationMs, &createdAt); err != nil {
			return nil, err
		}
		l.Status = spider.CrawlStatus(status)
		l.Region = spider.Region(region)
		l.Message = message.String
		l.Duration = time.Duration(durationMs) * time.Millisecond
		if l.Time, err = time.ParseInLocation(timeLayout, createdAt, time.UTC); err != nil {
			return nil, fmt.Errorf("parse log time %q: %w", createdAt, err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

/*
输入一个上下文，输出删除的结果数、删除的日志数和一个error

删除首次写入时间早于ResultTTL的结果以及早于LogTTL的抓取日志
*/
func (s *SQLStore) Prune(ctx context.Context) (int64, int64, error) {
	now := s.clock().UTC()
	results, err := s.db.Exec(ctx,
		`DELETE FROM `+resultTable+` WHERE created_at < ?`,
		now.Add(-s.ResultTTL).Format(timeLayout))
	if err != nil {
		return 0, 0, fmt.Errorf("prune results: %w", err)
	}
	logs, err := s.db.Exec(ctx,
		`DELETE FROM `+logTable+` WHERE created_at < ?`,
		now.Add(-s.LogTTL).Format(timeLayout))
	if err != nil {
		return results, 0, fmt.Errorf("prune crawl logs: %w", err)
	}
	s.logger.Info("pruned expired rows", zap.Int64("results", results), zap.Int64("logs", logs))
	return results, logs, nil
}

func (s *SQLStore) query(ctx context.Context, query string, args ...interface{}) ([]*spider.Result, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []*spider.Result{}
	for rows.Next() {
		var region, province, date, prizes string
		if err := rows.Scan(&region, &province, &date, &prizes); err != nil {
			return nil, err
		}
		res := spider.NewResult(spider.Region(region), province, date)
		if err := json.Unmarshal([]byte(prizes), &res.Prizes); err != nil {
			return nil, fmt.Errorf("decode prizes %s: %w", res.Key(), err)
		}
		res.Prizes.Normalize()
		results = append(results, res)
	}
	return results, rows.Err()
}

func scanCount(rows *sql.Rows) (int, error) {
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}
