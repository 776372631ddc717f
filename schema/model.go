package schema

import "sort"

// Table 源表定义，Columns 保持源表中的列顺序
type Table struct {
	Name    string
	Columns []Column
}

// Column 列定义
type Column struct {
	Name string
	// Type 源库中声明的类型，原样保留
	Type    string
	NotNull bool
	// Default 默认值表达式，nil 表示没有默认值
	// 用指针区分 "没有默认值" 和 "默认值为 0 或空串"
	Default *string
	// PrimaryKey 在主键中的序号（从 1 开始），0 表示不是主键列
	PrimaryKey int
}

// Row 一行数据，与 Table.Columns 按位置对齐
// 值的类型为 nil, int64, float64, string, []byte, bool, time.Time 之一
type Row []any

func (c Column) IsPrimaryKey() bool {
	return c.PrimaryKey > 0
}

// HasDefault 是否声明了默认值
func (c Column) HasDefault() bool {
	return c.Default != nil
}

// ColumnNames 按源表顺序返回列名
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// PrimaryKeyColumns 按主键序号返回主键列名
func (t *Table) PrimaryKeyColumns() []string {
	var pks []Column
	for _, c := range t.Columns {
		if c.IsPrimaryKey() {
			pks = append(pks, c)
		}
	}
	sort.SliceStable(pks, func(i, j int) bool {
		return pks[i].PrimaryKey < pks[j].PrimaryKey
	})

	names := make([]string, 0, len(pks))
	for _, c := range pks {
		names = append(names, c.Name)
	}
	return names
}

// StringPtr 返回 s 的指针，用于构造 Column.Default
func StringPtr(s string) *string {
	return &s
}
