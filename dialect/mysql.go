package dialect

import (
	"fmt"
	"strings"
)

// MySQL 方言，标识符使用反引号
type MySQL struct {
	targets   *typeTargets
	formatter *literalFormatter
}

// VARCHAR 的最大声明长度
const mysqlMaxVarchar = 65535

// mysql 默认开启反斜杠转义，反斜杠和控制字符需要额外处理
var mysqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `''`,
	"\x00", `\0`,
	"\x1a", `\Z`,
)

func NewMySQLWithOptions(options *Options) (Dialect, error) {
	return &MySQL{
		targets: &typeTargets{
			integers: map[string]bool{
				"INT": true, "INTEGER": true, "TINYINT": true, "SMALLINT": true, "MEDIUMINT": true, "BIGINT": true,
				"INT UNSIGNED": true, "INTEGER UNSIGNED": true, "TINYINT UNSIGNED": true,
				"SMALLINT UNSIGNED": true, "MEDIUMINT UNSIGNED": true, "BIGINT UNSIGNED": true,
			},
			wideInteger: "BIGINT",
			text:        fmt.Sprintf("VARCHAR(%d)", options.TextSize),
			sizedText: func(n int) string {
				if n > mysqlMaxVarchar {
					return "LONGTEXT"
				}
				return fmt.Sprintf("VARCHAR(%d)", n)
			},
			real: "DOUBLE",
			blob: "LONGBLOB",
		},
		formatter: &literalFormatter{
			quoteString: func(s string) string {
				return "'" + mysqlEscaper.Replace(s) + "'"
			},
			formatBytes: hexLiteral,
			trueValue:   "1",
			falseValue:  "0",
		},
	}, nil
}

func (d *MySQL) Name() string {
	return "mysql"
}

func (d *MySQL) Header() string {
	return "Script generated for MySQL"
}

func (d *MySQL) QuoteIdentifier(name string) string {
	return quoteIdentifier(name, "`")
}

func (d *MySQL) MapType(declared string) TypeMapping {
	return mapByFamily(declared, d.targets)
}

func (d *MySQL) FallbackType() string {
	return "LONGTEXT"
}

func (d *MySQL) Literal(v any) (string, error) {
	return d.formatter.format(v)
}
