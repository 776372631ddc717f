package dialect

import (
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

func mustNew(t *testing.T, name string) Dialect {
	d, err := New(name, nil)
	if err != nil {
		t.Fatalf("New(%q) failed: %v", name, err)
	}
	return d
}

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		declared string
		want     Family
	}{
		{"INTEGER", FamilyInteger},
		{"int", FamilyInteger},
		{"BIGINT", FamilyInteger},
		{"UNSIGNED BIG INT", FamilyInteger},
		{"FLOATING POINT", FamilyInteger}, // 含 INT，与 SQLite 的亲和性规则一致
		{"TEXT", FamilyText},
		{"varchar(10)", FamilyText},
		{"NCHAR(55)", FamilyText},
		{"CLOB", FamilyText},
		{"BLOB", FamilyBlob},
		{"REAL", FamilyReal},
		{"DOUBLE", FamilyReal},
		{"double precision", FamilyReal},
		{"FLOAT", FamilyReal},
		{"NUMERIC", FamilyUnknown},
		{"DECIMAL(10,5)", FamilyUnknown},
		{"BOOLEAN", FamilyUnknown},
		{"DATETIME", FamilyUnknown},
		{"", FamilyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			assert.Equal(t, tt.want, FamilyOf(tt.declared))
		})
	}
}

func TestMapType(t *testing.T) {
	tests := []struct {
		dialect  string
		declared string
		target   string
		mapped   bool
	}{
		{"mysql", "INTEGER", "INTEGER", true},
		{"mysql", "BIGINT", "BIGINT", true},
		{"mysql", "TEXT", "VARCHAR(255)", true},
		{"mysql", "VARCHAR(20)", "VARCHAR(20)", true},
		{"mysql", "VARCHAR(1000)", "VARCHAR(1000)", true},
		{"mysql", "CHAR(2000)", "VARCHAR(2000)", true},
		{"mysql", "NVARCHAR(4000)", "VARCHAR(4000)", true},
		{"mysql", "varchar( 30 )", "VARCHAR(30)", true},
		{"mysql", "VARCHAR", "VARCHAR(255)", true},
		{"mysql", "CHAR", "VARCHAR(255)", true},
		{"mysql", "CLOB", "VARCHAR(255)", true},
		{"mysql", "VARCHAR(100000)", "LONGTEXT", true},
		{"mysql", "int", "int", true},
		{"mysql", "INT(11)", "INT(11)", true},
		{"mysql", "int(10) unsigned", "int(10) unsigned", true},
		{"mysql", "MEDIUMINT", "MEDIUMINT", true},
		{"mysql", "UNSIGNED BIG INT", "BIGINT", true},
		{"mysql", "INT8", "BIGINT", true},
		{"mysql", "REAL", "DOUBLE", true},
		{"mysql", "BLOB", "LONGBLOB", true},
		{"mysql", "DATETIME", "DATETIME", false},
		{"mysql", "", "", false},
		{"sqlite", "TEXT", "TEXT", true},
		{"sqlite", "REAL", "REAL", true},
		{"sqlite", "VARCHAR(1000)", "TEXT", true},
		{"sqlite", "UNSIGNED BIG INT", "UNSIGNED BIG INT", true},
		{"postgres", "REAL", "DOUBLE PRECISION", true},
		{"postgres", "BLOB", "BYTEA", true},
		{"postgres", " text ", "VARCHAR(255)", true},
		{"postgres", "VARCHAR(1000)", "VARCHAR(1000)", true},
		{"postgres", "CHARACTER(20)", "VARCHAR(20)", true},
		{"postgres", "INTEGER", "INTEGER", true},
		{"postgres", "BIGINT", "BIGINT", true},
		{"postgres", "INT8", "INT8", true},
		{"postgres", "TINYINT", "BIGINT", true},
		{"postgres", "MEDIUMINT", "BIGINT", true},
		{"postgres", "UNSIGNED BIG INT", "BIGINT", true},
		{"postgres", "INT(11)", "BIGINT", true},
	}

	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.declared, func(t *testing.T) {
			m := mustNew(t, tt.dialect).MapType(tt.declared)
			assert.Equal(t, tt.target, m.Target)
			assert.Equal(t, tt.mapped, m.Mapped)
		})
	}
}

func TestMapTypeDeterministic(t *testing.T) {
	d := mustNew(t, "mysql")
	for i := 0; i < 3; i++ {
		assert.Equal(t, d.MapType("NVARCHAR(100)"), d.MapType("NVARCHAR(100)"))
	}
}

func TestTextSize(t *testing.T) {
	d, err := New("mysql", &Options{TextSize: 1024})
	assert.NoError(t, err)
	assert.Equal(t, "VARCHAR(1024)", d.MapType("TEXT").Target)
	assert.Equal(t, "VARCHAR(20)", d.MapType("VARCHAR(20)").Target)

	_, err = New("mysql", &Options{TextSize: -1})
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	Convey("测试方言注册表", t, func() {
		Convey("内置方言", func() {
			So(Names(), ShouldResemble, []string{"mysql", "postgres", "sqlite"})
		})

		Convey("名称大小写不敏感", func() {
			d, err := New("MySQL", nil)
			So(err, ShouldBeNil)
			So(d.Name(), ShouldEqual, "mysql")
		})

		Convey("未知方言", func() {
			_, err := New("oracle", nil)
			So(errors.Is(err, ErrUnknownDialect), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "mysql, postgres, sqlite")
		})

		Convey("重复注册", func() {
			So(Register("mysql", NewMySQLWithOptions), ShouldNotBeNil)
			So(func() { MustRegister("sqlite", NewSQLiteWithOptions) }, ShouldPanic)
			So(Register("", NewMySQLWithOptions), ShouldNotBeNil)
		})
	})
}

func TestQuoteIdentifier(t *testing.T) {
	Convey("测试标识符引用", t, func() {
		Convey("mysql 使用反引号并转义内部反引号", func() {
			d := mustNew(t, "mysql")
			So(d.QuoteIdentifier("users"), ShouldEqual, "`users`")
			So(d.QuoteIdentifier("we`ird"), ShouldEqual, "`we``ird`")
		})

		Convey("sqlite 和 postgres 使用双引号", func() {
			for _, name := range []string{"sqlite", "postgres"} {
				d := mustNew(t, name)
				So(d.QuoteIdentifier(`a"b`), ShouldEqual, `"a""b"`)
			}
		})
	})
}

func TestLiteral(t *testing.T) {
	ts := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		dialect string
		value   any
		want    string
	}{
		{"mysql", nil, "NULL"},
		{"mysql", int64(1), "1"},
		{"mysql", int64(-42), "-42"},
		{"mysql", 7, "7"},
		{"mysql", uint8(3), "3"},
		{"mysql", 3.5, "3.5"},
		{"mysql", 1.0, "1"},
		{"mysql", math.NaN(), "NULL"},
		{"mysql", math.Inf(1), "NULL"},
		{"mysql", float32(0.25), "0.25"},
		{"mysql", true, "1"},
		{"mysql", false, "0"},
		{"mysql", "Ann", "'Ann'"},
		{"mysql", "Bo's", "'Bo''s'"},
		{"mysql", `C:\tmp`, `'C:\\tmp'`},
		{"mysql", "a\x00b", `'a\0b'`},
		{"mysql", "", "''"},
		{"mysql", []byte{0x00, 0xff, 0x10}, "X'00FF10'"},
		{"mysql", []byte{}, "X''"},
		{"mysql", ts, "'2024-03-01 08:30:00'"},
		{"sqlite", `C:\tmp`, `'C:\tmp'`},
		{"sqlite", "Bo's", "'Bo''s'"},
		{"sqlite", []byte("hi"), "X'6869'"},
		{"postgres", true, "TRUE"},
		{"postgres", []byte("hi"), `'\x6869'::bytea`},
		{"postgres", ts.Add(1500 * time.Millisecond), "'2024-03-01 08:30:01.5'"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			got, err := mustNew(t, tt.dialect).Literal(tt.value)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLiteralUnsupported(t *testing.T) {
	_, err := mustNew(t, "mysql").Literal(struct{}{})
	assert.True(t, errors.Is(err, ErrUnsupportedValue))
}

func TestHeaderAndFallback(t *testing.T) {
	Convey("测试各方言的头部注释和兜底类型", t, func() {
		So(mustNew(t, "mysql").Header(), ShouldEqual, "Script generated for MySQL")
		So(mustNew(t, "mysql").FallbackType(), ShouldEqual, "LONGTEXT")
		So(mustNew(t, "sqlite").FallbackType(), ShouldEqual, "NUMERIC")
		So(mustNew(t, "postgres").FallbackType(), ShouldEqual, "TEXT")
	})
}
