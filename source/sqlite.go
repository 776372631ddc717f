package source

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"net/url"
	"os"
	"strings"
	"sync/atomic"

	"github.com/hatlonely/sqlconv/schema"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var (
	// ErrExhausted Tables 返回的序列只能遍历一次
	ErrExhausted = errors.New("table sequence already consumed")
	ErrNoColumns = errors.New("table has no columns")
)

// Options SQLite 源库配置
type Options struct {
	// Path 数据库文件路径
	Path string `cfg:"path" validate:"required"`
	// ReadOnly 以只读方式打开，默认 true
	ReadOnly *bool `cfg:"readOnly"`
}

// SQLite 基于 database/sql 和 go-sqlite3 的源库读取器
type SQLite struct {
	db   *sql.DB
	path string
}

// Open 打开 SQLite 文件，文件不存在时返回错误而不是创建新库
func Open(ctx context.Context, options *Options) (*SQLite, error) {
	if options == nil || options.Path == "" {
		return nil, errors.New("source path is required")
	}

	info, err := os.Stat(options.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", options.Path)
	}
	if info.IsDir() {
		return nil, errors.Errorf("%s is a directory", options.Path)
	}

	readOnly := options.ReadOnly == nil || *options.ReadOnly

	db, err := sql.Open("sqlite3", buildDSN(options.Path, readOnly))
	if err != nil {
		return nil, errors.Wrap(err, "sql.Open failed")
	}
	// 转换是串行的，一个连接足够
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping failed")
	}

	// sqlite 打开时不校验文件格式，首次查询才会发现文件损坏
	var n int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "%s is not a readable sqlite database", options.Path)
	}

	return &SQLite{db: db, path: options.Path}, nil
}

func buildDSN(path string, readOnly bool) string {
	u := url.URL{Scheme: "file", Opaque: (&url.URL{Path: path}).EscapedPath()}
	if readOnly {
		u.RawQuery = "mode=ro"
	}
	return u.String()
}

func (s *SQLite) Path() string {
	return s.path
}

// Tables 返回用户表名的惰性序列，跳过 sqlite_ 开头的内部表
// 序列只能遍历一次；表名在开始遍历时一次性读出，避免长时间占用唯一的连接
func (s *SQLite) Tables(ctx context.Context) iter.Seq2[string, error] {
	var consumed atomic.Bool

	return func(yield func(string, error) bool) {
		if consumed.Swap(true) {
			yield("", ErrExhausted)
			return
		}

		names, err := s.tableNames(ctx)
		if err != nil {
			yield("", err)
			return
		}

		for _, name := range names {
			if !yield(name, nil) {
				return
			}
		}
	}
}

func (s *SQLite) tableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\\_%' ESCAPE '\\' ORDER BY rowid")
	if err != nil {
		return nil, errors.Wrap(err, "query sqlite_master failed")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan table name failed")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate sqlite_master failed")
	}
	return names, nil
}

// Describe 通过 PRAGMA table_info 读取表结构
func (s *SQLite) Describe(ctx context.Context, table string) (*schema.Table, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quote(table)))
	if err != nil {
		return nil, errors.Wrapf(err, "PRAGMA table_info(%s) failed", table)
	}
	defer rows.Close()

	t := &schema.Table{Name: table}
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, errors.Wrapf(err, "scan table_info of %s failed", table)
		}

		col := schema.Column{
			Name:       name,
			Type:       typ,
			NotNull:    notNull != 0,
			PrimaryKey: pk,
		}
		if dflt.Valid {
			col.Default = schema.StringPtr(dflt.String)
		}
		t.Columns = append(t.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate table_info of %s failed", table)
	}

	// 表不存在时 PRAGMA 不报错，只是没有结果
	if len(t.Columns) == 0 {
		return nil, errors.Wrap(ErrNoColumns, table)
	}
	return t, nil
}

// Rows 按列顺序读取表中所有行，每行调用一次 fn
// fn 返回错误时停止读取并返回该错误
//
// 每列前加一元 +（SQLite 中为空操作），结果列因此没有声明类型，
// 驱动不会把 DATETIME/BOOLEAN 列转成 time.Time/bool，值保持存储类原样：
// nil, int64, float64, string, []byte
func (s *SQLite) Rows(ctx context.Context, table *schema.Table, fn func(schema.Row) error) error {
	cols := make([]string, 0, len(table.Columns))
	for _, c := range table.Columns {
		cols = append(cols, "+"+quote(c.Name))
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quote(table.Name)))
	if err != nil {
		return errors.Wrapf(err, "select from %s failed", table.Name)
	}
	defer rows.Close()

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return errors.Wrapf(err, "scan row of %s failed", table.Name)
		}
		if err := fn(schema.Row(values)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, "iterate rows of %s failed", table.Name)
	}
	return nil
}

// Close 可重复调用
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// quote SQLite 标识符引用
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
