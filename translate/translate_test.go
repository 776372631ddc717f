package translate

import (
	"testing"

	"github.com/hatlonely/sqlconv/dialect"
	"github.com/hatlonely/sqlconv/schema"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func newTranslator(dialectName string, policy UnmappedPolicy) *Translator {
	d, err := dialect.New(dialectName, nil)
	So(err, ShouldBeNil)
	tr, err := NewTranslatorWithOptions(d, &Options{UnmappedPolicy: policy})
	So(err, ShouldBeNil)
	return tr
}

var usersTable = &schema.Table{
	Name: "users",
	Columns: []schema.Column{
		{Name: "id", Type: "INTEGER", PrimaryKey: 1},
		{Name: "name", Type: "TEXT", NotNull: true},
		{Name: "score", Type: "REAL"},
	},
}

func TestNewTranslatorWithOptions(t *testing.T) {
	Convey("测试 NewTranslatorWithOptions", t, func() {
		d, err := dialect.New("mysql", nil)
		So(err, ShouldBeNil)

		Convey("nil options 使用 passthrough", func() {
			tr, err := NewTranslatorWithOptions(d, nil)
			So(err, ShouldBeNil)
			So(tr.policy, ShouldEqual, PolicyPassthrough)
			So(tr.Dialect(), ShouldEqual, d)
		})

		Convey("未知策略", func() {
			_, err := NewTranslatorWithOptions(d, &Options{UnmappedPolicy: "ignore"})
			So(err, ShouldNotBeNil)
		})

		Convey("nil dialect", func() {
			_, err := NewTranslatorWithOptions(nil, nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCreateTable(t *testing.T) {
	Convey("测试 CreateTable", t, func() {
		Convey("users 示例", func() {
			tr := newTranslator("mysql", PolicyPassthrough)
			So(tr.DropTable(usersTable), ShouldEqual, "DROP TABLE IF EXISTS `users`;")

			res, err := tr.CreateTable(usersTable)
			So(err, ShouldBeNil)
			So(res.SQL, ShouldEqual, "CREATE TABLE `users` (\n"+
				"  `id` INTEGER PRIMARY KEY,\n"+
				"  `name` VARCHAR(255) NOT NULL,\n"+
				"  `score` DOUBLE\n"+
				");")
			So(res.Unmapped, ShouldBeEmpty)
		})

		Convey("默认值 0 和空串不会被吞掉", func() {
			tr := newTranslator("mysql", PolicyPassthrough)
			res, err := tr.CreateTable(&schema.Table{
				Name: "counters",
				Columns: []schema.Column{
					{Name: "n", Type: "INTEGER", NotNull: true, Default: schema.StringPtr("0")},
					{Name: "label", Type: "TEXT", Default: schema.StringPtr("''")},
					{Name: "blob", Type: "BLOB"},
				},
			})
			So(err, ShouldBeNil)
			So(res.SQL, ShouldContainSubstring, "`n` INTEGER NOT NULL DEFAULT 0,")
			So(res.SQL, ShouldContainSubstring, "`label` VARCHAR(255) DEFAULT '',")
			So(res.SQL, ShouldContainSubstring, "`blob` LONGBLOB\n")
		})

		Convey("保留声明的文本长度，整数类型按方言归一", func() {
			table := &schema.Table{
				Name: "notes",
				Columns: []schema.Column{
					{Name: "id", Type: "UNSIGNED BIG INT"},
					{Name: "title", Type: "VARCHAR(1000)"},
					{Name: "body", Type: "TEXT"},
				},
			}

			res, err := newTranslator("mysql", PolicyStrict).CreateTable(table)
			So(err, ShouldBeNil)
			So(res.SQL, ShouldContainSubstring, "`id` BIGINT,")
			So(res.SQL, ShouldContainSubstring, "`title` VARCHAR(1000),")
			So(res.SQL, ShouldContainSubstring, "`body` VARCHAR(255)\n")

			res, err = newTranslator("postgres", PolicyStrict).CreateTable(table)
			So(err, ShouldBeNil)
			So(res.SQL, ShouldContainSubstring, `"id" BIGINT,`)
			So(res.SQL, ShouldContainSubstring, `"title" VARCHAR(1000),`)
		})

		Convey("联合主键输出为表级约束", func() {
			tr := newTranslator("mysql", PolicyPassthrough)
			res, err := tr.CreateTable(&schema.Table{
				Name: "order_items",
				Columns: []schema.Column{
					{Name: "item_id", Type: "INTEGER", NotNull: true, PrimaryKey: 2},
					{Name: "order_id", Type: "INTEGER", NotNull: true, PrimaryKey: 1},
				},
			})
			So(err, ShouldBeNil)
			So(res.SQL, ShouldEqual, "CREATE TABLE `order_items` (\n"+
				"  `item_id` INTEGER NOT NULL,\n"+
				"  `order_id` INTEGER NOT NULL,\n"+
				"  PRIMARY KEY (`order_id`, `item_id`)\n"+
				");")
		})

		Convey("标识符中的引号被转义", func() {
			tr := newTranslator("mysql", PolicyPassthrough)
			tbl := &schema.Table{Name: "a`b", Columns: []schema.Column{{Name: "c`d", Type: "INT"}}}
			So(tr.DropTable(tbl), ShouldEqual, "DROP TABLE IF EXISTS `a``b`;")
			res, err := tr.CreateTable(tbl)
			So(err, ShouldBeNil)
			So(res.SQL, ShouldEqual, "CREATE TABLE `a``b` (\n  `c``d` INT\n);")
		})

		Convey("没有列的表", func() {
			tr := newTranslator("mysql", PolicyPassthrough)
			_, err := tr.CreateTable(&schema.Table{Name: "empty"})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestUnmappedPolicy(t *testing.T) {
	Convey("测试未映射类型的处理策略", t, func() {
		table := &schema.Table{
			Name: "events",
			Columns: []schema.Column{
				{Name: "id", Type: "INTEGER"},
				{Name: "at", Type: "DATETIME"},
				{Name: "raw"},
			},
		}

		Convey("passthrough 原样输出并报告", func() {
			res, err := newTranslator("mysql", PolicyPassthrough).CreateTable(table)
			So(err, ShouldBeNil)
			So(res.SQL, ShouldContainSubstring, "`at` DATETIME,")
			So(res.SQL, ShouldContainSubstring, "`raw`\n")
			So(len(res.Unmapped), ShouldEqual, 2)
			So(res.Unmapped[0].Column, ShouldEqual, "at")
			So(res.Unmapped[0].Table, ShouldEqual, "events")
			So(res.Unmapped[0].Mapping.Family, ShouldEqual, dialect.FamilyUnknown)
			So(res.Unmapped[0].Mapping.Mapped, ShouldBeFalse)
		})

		Convey("fallback 使用兜底类型", func() {
			res, err := newTranslator("mysql", PolicyFallback).CreateTable(table)
			So(err, ShouldBeNil)
			So(res.SQL, ShouldContainSubstring, "`at` LONGTEXT,")
			So(res.SQL, ShouldContainSubstring, "`raw` LONGTEXT\n")
			So(len(res.Unmapped), ShouldEqual, 2)
		})

		Convey("strict 报错", func() {
			_, err := newTranslator("mysql", PolicyStrict).CreateTable(table)
			So(errors.Is(err, ErrUnmappedType), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "events.at")
		})
	})
}

func TestInsert(t *testing.T) {
	Convey("测试 Insert", t, func() {
		tr := newTranslator("mysql", PolicyPassthrough)

		Convey("users 示例", func() {
			stmt, err := tr.Insert(usersTable, schema.Row{int64(1), "Ann", 3.5})
			So(err, ShouldBeNil)
			So(stmt, ShouldEqual, "INSERT INTO `users` VALUES (1, 'Ann', 3.5);")

			stmt, err = tr.Insert(usersTable, schema.Row{int64(2), "Bo's", nil})
			So(err, ShouldBeNil)
			So(stmt, ShouldEqual, "INSERT INTO `users` VALUES (2, 'Bo''s', NULL);")
		})

		Convey("值数量与列数不一致", func() {
			_, err := tr.Insert(usersTable, schema.Row{int64(1)})
			So(errors.Is(err, ErrRowMismatch), ShouldBeTrue)
		})

		Convey("不支持的值类型", func() {
			_, err := tr.Insert(usersTable, schema.Row{int64(1), struct{}{}, nil})
			So(errors.Is(err, dialect.ErrUnsupportedValue), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "users.name")
		})

		Convey("sqlite 方言", func() {
			tr := newTranslator("sqlite", PolicyPassthrough)
			stmt, err := tr.Insert(usersTable, schema.Row{int64(3), "x", []byte{1}})
			So(err, ShouldBeNil)
			So(stmt, ShouldEqual, `INSERT INTO "users" VALUES (3, 'x', X'01');`)
		})
	})
}
