package translate

import (
	"fmt"
	"strings"

	"github.com/hatlonely/sqlconv/dialect"
	"github.com/hatlonely/sqlconv/schema"
	"github.com/pkg/errors"
)

var (
	ErrUnmappedType = errors.New("unmapped type")
	ErrRowMismatch  = errors.New("row does not match table columns")
)

// UnmappedPolicy 无法映射的源类型的处理策略
type UnmappedPolicy string

const (
	// PolicyPassthrough 原样输出源类型
	PolicyPassthrough UnmappedPolicy = "passthrough"
	// PolicyStrict 直接报错
	PolicyStrict UnmappedPolicy = "strict"
	// PolicyFallback 使用方言的兜底类型
	PolicyFallback UnmappedPolicy = "fallback"
)

type Options struct {
	UnmappedPolicy UnmappedPolicy `cfg:"unmappedPolicy" def:"passthrough" validate:"omitempty,oneof=passthrough strict fallback"`
}

// UnmappedColumn 类型未命中映射表的列
type UnmappedColumn struct {
	Table   string
	Column  string
	Mapping dialect.TypeMapping
}

// CreateTableResult 建表语句以及其中未映射的列
type CreateTableResult struct {
	SQL      string
	Unmapped []UnmappedColumn
}

// Translator 将源表结构和数据翻译为目标方言的语句，本身无状态
type Translator struct {
	dialect dialect.Dialect
	policy  UnmappedPolicy
}

func NewTranslatorWithOptions(d dialect.Dialect, options *Options) (*Translator, error) {
	if d == nil {
		return nil, errors.New("dialect is nil")
	}
	if options == nil {
		options = &Options{}
	}

	policy := options.UnmappedPolicy
	switch policy {
	case "":
		policy = PolicyPassthrough
	case PolicyPassthrough, PolicyStrict, PolicyFallback:
	default:
		return nil, errors.Errorf("unknown unmapped policy %q", policy)
	}

	return &Translator{dialect: d, policy: policy}, nil
}

func (t *Translator) Dialect() dialect.Dialect {
	return t.dialect
}

// DropTable DROP TABLE IF EXISTS，保证脚本可重复执行
func (t *Translator) DropTable(table *schema.Table) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", t.dialect.QuoteIdentifier(table.Name))
}

// CreateTable 按源列顺序生成建表语句
// 每列依次为：列名、类型、NOT NULL、DEFAULT、PRIMARY KEY
// 联合主键以表级约束输出
func (t *Translator) CreateTable(table *schema.Table) (*CreateTableResult, error) {
	if len(table.Columns) == 0 {
		return nil, errors.Errorf("table %s has no columns", table.Name)
	}

	pks := table.PrimaryKeyColumns()
	inlinePK := len(pks) == 1

	result := &CreateTableResult{}
	defs := make([]string, 0, len(table.Columns)+1)

	for _, col := range table.Columns {
		m := t.dialect.MapType(col.Type)
		typ := m.Target
		if !m.Mapped {
			result.Unmapped = append(result.Unmapped, UnmappedColumn{Table: table.Name, Column: col.Name, Mapping: m})
			switch t.policy {
			case PolicyStrict:
				return nil, errors.Wrapf(ErrUnmappedType, "%s.%s: %q", table.Name, col.Name, col.Type)
			case PolicyFallback:
				typ = t.dialect.FallbackType()
			}
		}

		parts := []string{t.dialect.QuoteIdentifier(col.Name)}
		if typ != "" {
			parts = append(parts, typ)
		}
		if col.NotNull {
			parts = append(parts, "NOT NULL")
		}
		if col.HasDefault() {
			parts = append(parts, "DEFAULT "+*col.Default)
		}
		if inlinePK && col.IsPrimaryKey() {
			parts = append(parts, "PRIMARY KEY")
		}
		defs = append(defs, strings.Join(parts, " "))
	}

	if len(pks) > 1 {
		quoted := make([]string, 0, len(pks))
		for _, pk := range pks {
			quoted = append(quoted, t.dialect.QuoteIdentifier(pk))
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}

	result.SQL = fmt.Sprintf("CREATE TABLE %s (\n  %s\n);",
		t.dialect.QuoteIdentifier(table.Name), strings.Join(defs, ",\n  "))
	return result, nil
}

// Insert 生成单行 INSERT 语句，值按列顺序排列
func (t *Translator) Insert(table *schema.Table, row schema.Row) (string, error) {
	if len(row) != len(table.Columns) {
		return "", errors.Wrapf(ErrRowMismatch, "table %s has %d columns, row has %d values",
			table.Name, len(table.Columns), len(row))
	}

	values := make([]string, 0, len(row))
	for i, v := range row {
		lit, err := t.dialect.Literal(v)
		if err != nil {
			return "", errors.WithMessagef(err, "%s.%s", table.Name, table.Columns[i].Name)
		}
		values = append(values, lit)
	}

	return fmt.Sprintf("INSERT INTO %s VALUES (%s);",
		t.dialect.QuoteIdentifier(table.Name), strings.Join(values, ", ")), nil
}
