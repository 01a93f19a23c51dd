package sqldb

// 定义了与SQL数据库交互的功能，包括建表、插入和按唯一键覆盖写入，同时屏蔽MySQL与SQLite之间的方言差异

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// 支持的数据库驱动，取值即database/sql中注册的驱动名
type Driver string

const (
	MySQL  Driver = "mysql"
	SQLite Driver = "sqlite"
)

/*
输入一个字符串，输出一个驱动和一个错误

该方法用于解析配置中的驱动名，sqlite3视为sqlite
*/
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported sql driver %q", s)
}

// 为数据库操作统一了规范，存储层只依赖该接口，测试时可替换为假实现
type DBer interface {
	/*
	   输入一个TableData实例，输出一个error

	   该方法根据TableData中的列定义和唯一键构造建表语句并执行，表已存在时不做任何事
	*/
	CreateTable(t TableData) error
	/*
	   输入一个上下文和一个TableData实例，输出一个error

	   该方法构造形如INSERT INTO t(a,b) VALUES (?,?),(?,?);的批量插入语句并执行，多少个问号取决于有多少列
	*/
	Insert(ctx context.Context, t TableData) error
	/*
	   输入一个上下文和一个TableData实例，输出一个error

	   该方法与Insert相同，但唯一键冲突时用新值覆盖非唯一键列
	*/
	Upsert(ctx context.Context, t TableData) error
	// 执行一条语句，返回受影响的行数
	Exec(ctx context.Context, query string, args ...interface{}) (int64, error)
	// 执行一条查询，调用方负责关闭返回的结果集
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// sql数据库实例
type Sqldb struct {
	options
	db *sql.DB
}

/*
无输入，输出一个error

该方法用于打开数据库连接，按驱动设置最大连接数，通过ping测试连接是否正常
*/
func (d *Sqldb) OpenDB() error {
	db, err := sql.Open(string(d.driver), d.sqlURL)
	if err != nil {
		return err
	}
	conns := d.maxOpenConns
	if conns <= 0 {
		conns = 2048
		if d.driver == SQLite {
			conns = 1
		}
	}
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)
	if err = db.Ping(); err != nil {
		db.Close()
		return err
	}
	d.db = db
	return nil
}

func (d *Sqldb) Close() error {
	return d.db.Close()
}

// 定义了创建表的方法，根据TableData中的列定义和唯一键创建数据库表
func (d *Sqldb) CreateTable(t TableData) error {
	if len(t.ColumnNames) == 0 {
		return errors.New("column can not be empty")
	}
	sql := `CREATE TABLE IF NOT EXISTS ` + t.TableName + " ("
	if t.AutoKey {
		if d.driver == SQLite {
			sql += `id INTEGER PRIMARY KEY AUTOINCREMENT,`
		} else {
			sql += `id INT(12) NOT NULL PRIMARY KEY AUTO_INCREMENT,`
		}
	}
	for _, t := range t.ColumnNames {
		sql += t.Title + ` ` + t.Type + `,`
	}
	if len(t.UniqueKey) > 0 {
		sql += `UNIQUE (` + strings.Join(t.UniqueKey, ",") + `),`
	}
	sql = sql[:len(sql)-1] + `)`
	if d.driver == MySQL {
		sql += ` ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	}
	sql += `;`

	d.logger.Debug("create table", zap.String("sql", sql))

	_, err := d.db.Exec(sql)
	return err
}

func (d *Sqldb) Insert(ctx context.Context, t TableData) error {
	sql, err := insertSQL(t)
	if err != nil {
		return err
	}
	sql += `;`
	d.logger.Debug("insert table", zap.String("sql", sql))
	_, err = d.db.ExecContext(ctx, sql, t.Args...)
	return err
}

func (d *Sqldb) Upsert(ctx context.Context, t TableData) error {
	sql, err := insertSQL(t)
	if err != nil {
		return err
	}
	if len(t.UniqueKey) == 0 {
		return errors.New("upsert needs a unique key")
	}
	sql += d.conflictClause(t) + `;`
	d.logger.Debug("upsert table", zap.String("sql", sql))
	_, err = d.db.ExecContext(ctx, sql, t.Args...)
	return err
}

func (d *Sqldb) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	d.logger.Debug("exec", zap.String("sql", query))
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *Sqldb) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	d.logger.Debug("query", zap.String("sql", query))
	return d.db.QueryContext(ctx, query, args...)
}

// 构造不带结尾分号的批量插入语句
func insertSQL(t TableData) (string, error) {
	if len(t.ColumnNames) == 0 {
		return "", errors.New("empty column")
	}
	if t.DataCount <= 0 {
		return "", errors.New("empty data")
	}
	if len(t.Args) != len(t.ColumnNames)*t.DataCount {
		return "", fmt.Errorf("got %d args for %d rows of %d columns", len(t.Args), t.DataCount, len(t.ColumnNames))
	}
	sql := `INSERT INTO ` + t.TableName + `(` // 初始化一个sql插入语句的前缀

	for _, v := range t.ColumnNames { // 列名之间用逗号隔开
		sql += v.Title + ","
	}

	sql = sql[:len(sql)-1] + `) VALUES ` // 去掉最后一个多余逗号，并添加values关键字

	blank := ",(" + strings.Repeat(",?", len(t.ColumnNames))[1:] + ")" // 问号数量等于列的数量
	sql += strings.Repeat(blank, t.DataCount)[1:]
	return sql, nil
}

// 唯一键冲突时覆盖其余列，MySQL与SQLite的语法不同
func (d *Sqldb) conflictClause(t TableData) string {
	unique := make(map[string]bool, len(t.UniqueKey))
	for _, k := range t.UniqueKey {
		unique[k] = true
	}
	var sets []string
	for _, c := range t.ColumnNames {
		if unique[c.Title] || c.KeepOnConflict {
			continue
		}
		if d.driver == SQLite {
			sets = append(sets, c.Title+"=excluded."+c.Title)
		} else {
			sets = append(sets, c.Title+"=VALUES("+c.Title+")")
		}
	}
	if d.driver == SQLite {
		if len(sets) == 0 {
			return ` ON CONFLICT(` + strings.Join(t.UniqueKey, ",") + `) DO NOTHING`
		}
		return ` ON CONFLICT(` + strings.Join(t.UniqueKey, ",") + `) DO UPDATE SET ` + strings.Join(sets, ",")
	}
	if len(sets) == 0 {
		first := t.UniqueKey[0]
		return ` ON DUPLICATE KEY UPDATE ` + first + "=" + first
	}
	return ` ON DUPLICATE KEY UPDATE ` + strings.Join(sets, ",")
}

// 表示数据库表中的一个字段，包含字段名和字段类型
type Field struct {
	Title          string
	Type           string
	KeepOnConflict bool // upsert覆盖时保留原值，例如创建时间
}

// 表示要操作的数据库表的数据
type TableData struct {
	TableName   string
	ColumnNames []Field       // 标题字段
	UniqueKey   []string      // 唯一键列名，upsert以此判断冲突
	Args        []interface{} // 数据，按行依次排列
	DataCount   int           // 插入数据的行数
	AutoKey     bool
}

/*
输入一个或多个Option实例，输出一个Sqldb实例和一个error

该方法用于创建一个新的Sqldb实例，并根据传入的选项打开数据库连接
*/
func New(opts ...Option) (*Sqldb, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if _, err := ParseDriver(string(options.driver)); err != nil {
		return nil, err
	}
	d := &Sqldb{}
	d.options = options
	if err := d.OpenDB(); err != nil {
		return nil, err
	}
	return d, nil
}
