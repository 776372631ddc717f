package dialect

// SQLite 方言，主要用于生成可回灌到 SQLite 的脚本
type SQLite struct {
	targets   *typeTargets
	formatter *literalFormatter
}

func NewSQLiteWithOptions(options *Options) (Dialect, error) {
	return &SQLite{
		targets: &typeTargets{
			text: "TEXT",
			real: "REAL",
			blob: "BLOB",
		},
		formatter: &literalFormatter{
			quoteString: quoteStandard,
			formatBytes: hexLiteral,
			trueValue:   "1",
			falseValue:  "0",
		},
	}, nil
}

func (d *SQLite) Name() string {
	return "sqlite"
}

func (d *SQLite) Header() string {
	return "Script generated for SQLite"
}

func (d *SQLite) QuoteIdentifier(name string) string {
	return quoteIdentifier(name, `"`)
}

func (d *SQLite) MapType(declared string) TypeMapping {
	return mapByFamily(declared, d.targets)
}

func (d *SQLite) FallbackType() string {
	return "NUMERIC"
}

func (d *SQLite) Literal(v any) (string, error) {
	return d.formatter.format(v)
}
