package dialect

import (
	"encoding/hex"
	"fmt"
)

// VARCHAR 的最大声明长度
const postgresMaxVarchar = 10485760

// Postgres 方言，假定 standard_conforming_strings 为 on
type Postgres struct {
	targets   *typeTargets
	formatter *literalFormatter
}

func NewPostgresWithOptions(options *Options) (Dialect, error) {
	return &Postgres{
		targets: &typeTargets{
			integers: map[string]bool{
				"INT": true, "INTEGER": true, "SMALLINT": true, "BIGINT": true,
				"INT2": true, "INT4": true, "INT8": true,
			},
			wideInteger: "BIGINT",
			text:        fmt.Sprintf("VARCHAR(%d)", options.TextSize),
			sizedText: func(n int) string {
				if n > postgresMaxVarchar {
					return "TEXT"
				}
				return fmt.Sprintf("VARCHAR(%d)", n)
			},
			real: "DOUBLE PRECISION",
			blob: "BYTEA",
		},
		formatter: &literalFormatter{
			quoteString: quoteStandard,
			formatBytes: func(b []byte) string {
				return `'\x` + hex.EncodeToString(b) + `'::bytea`
			},
			trueValue:  "TRUE",
			falseValue: "FALSE",
		},
	}, nil
}

func (d *Postgres) Name() string {
	return "postgres"
}

func (d *Postgres) Header() string {
	return "Script generated for PostgreSQL"
}

func (d *Postgres) QuoteIdentifier(name string) string {
	return quoteIdentifier(name, `"`)
}

func (d *Postgres) MapType(declared string) TypeMapping {
	return mapByFamily(declared, d.targets)
}

func (d *Postgres) FallbackType() string {
	return "TEXT"
}

func (d *Postgres) Literal(v any) (string, error) {
	return d.formatter.format(v)
}
