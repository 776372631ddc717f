package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/smartystreets/goconvey/convey"
)

func createDB(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "app.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
		"INSERT INTO users VALUES (1, 'Ann')",
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}

func TestRun(t *testing.T) {
	Convey("测试 run", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		src := createDB(t, dir)
		var stdout, stderr bytes.Buffer

		Convey("默认输出到源文件同目录的 .sql 文件", func() {
			code := run(ctx, []string{src, "--log-level", "error"}, &stdout, &stderr)
			So(code, ShouldEqual, 0)

			dest := filepath.Join(dir, "app.sql")
			So(stdout.String(), ShouldEqual, "File "+dest+" generated successfully!\n")

			buf, err := os.ReadFile(dest)
			So(err, ShouldBeNil)
			So(string(buf), ShouldContainSubstring, "-- Script generated for MySQL")
			So(string(buf), ShouldContainSubstring, "INSERT INTO `users` VALUES (1, 'Ann');")
		})

		Convey("指定目标文件和方言", func() {
			dest := filepath.Join(dir, "out.sql")
			code := run(ctx, []string{"-d", "postgres", "--text-size", "64", src, dest}, &stdout, &stderr)
			So(code, ShouldEqual, 0)
			So(stdout.String(), ShouldContainSubstring, dest)

			buf, err := os.ReadFile(dest)
			So(err, ShouldBeNil)
			So(string(buf), ShouldContainSubstring, `DROP TABLE IF EXISTS "users";`)
			So(string(buf), ShouldContainSubstring, "VARCHAR(64)")
		})

		Convey("从配置文件读取参数", func() {
			dest := filepath.Join(dir, "conf.sql")
			conf := filepath.Join(dir, "sqlconv.yaml")
			So(os.WriteFile(conf, []byte("source: "+src+"\ntarget: "+dest+"\ndialect: sqlite\nlog:\n  level: error\n"), 0644), ShouldBeNil)

			code := run(ctx, []string{"-c", conf}, &stdout, &stderr)
			So(code, ShouldEqual, 0)

			buf, err := os.ReadFile(dest)
			So(err, ShouldBeNil)
			So(string(buf), ShouldContainSubstring, "-- Script generated for SQLite")
		})

		Convey("命令行参数覆盖配置文件", func() {
			dest := filepath.Join(dir, "override.sql")
			conf := filepath.Join(dir, "sqlconv.yaml")
			So(os.WriteFile(conf, []byte("source: "+src+"\ntarget: "+dest+"\ndialect: sqlite\n"), 0644), ShouldBeNil)

			code := run(ctx, []string{"-c", conf, "-d", "mysql", "--log-level", "error"}, &stdout, &stderr)
			So(code, ShouldEqual, 0)

			buf, err := os.ReadFile(dest)
			So(err, ShouldBeNil)
			So(string(buf), ShouldContainSubstring, "-- Script generated for MySQL")
		})

		Convey("直接写入 sqlite 目标库", func() {
			target := filepath.Join(dir, "target.db")
			code := run(ctx, []string{"-d", "sqlite", "--apply-driver", "sqlite", "--apply-dsn", target, "--log-level", "error", src}, &stdout, &stderr)
			So(code, ShouldEqual, 0)
			So(stdout.String(), ShouldEqual, "Target sqlite updated successfully!\n")

			db, err := sql.Open("sqlite3", target)
			So(err, ShouldBeNil)
			defer db.Close()
			var name string
			So(db.QueryRow("SELECT name FROM users WHERE id = 1").Scan(&name), ShouldBeNil)
			So(name, ShouldEqual, "Ann")
		})

		Convey("未指定方言时按目标库驱动生成语句", func() {
			db, err := sql.Open("sqlite3", src)
			So(err, ShouldBeNil)
			_, err = db.Exec(`INSERT INTO users VALUES (2, 'C:\path')`)
			So(err, ShouldBeNil)
			So(db.Close(), ShouldBeNil)

			target := filepath.Join(dir, "target.db")
			code := run(ctx, []string{"--apply-driver", "sqlite", "--apply-dsn", target, "--log-level", "error", src}, &stdout, &stderr)
			So(code, ShouldEqual, 0)

			db, err = sql.Open("sqlite3", target)
			So(err, ShouldBeNil)
			defer db.Close()
			var name string
			So(db.QueryRow("SELECT name FROM users WHERE id = 2").Scan(&name), ShouldBeNil)
			So(name, ShouldEqual, `C:\path`)
		})

		Convey("方言和目标库驱动不一致时返回 2", func() {
			code := run(ctx, []string{"-d", "postgres", "--apply-driver", "sqlite", "--apply-dsn", filepath.Join(dir, "target.db"), src}, &stdout, &stderr)
			So(code, ShouldEqual, 2)
			So(stderr.String(), ShouldContainSubstring, "does not match")
		})

		Convey("源文件不存在时返回 1", func() {
			code := run(ctx, []string{filepath.Join(dir, "missing.db"), "--log-level", "error"}, &stdout, &stderr)
			So(code, ShouldEqual, 1)
			So(stderr.String(), ShouldContainSubstring, "source connection error")
			So(stdout.String(), ShouldBeEmpty)
		})

		Convey("缺少源文件参数时返回 2", func() {
			code := run(ctx, []string{}, &stdout, &stderr)
			So(code, ShouldEqual, 2)
			So(stderr.String(), ShouldContainSubstring, "Source")
			So(stdout.String(), ShouldBeEmpty)
		})

		Convey("环境变量提供源文件", func() {
			dest := filepath.Join(dir, "env.sql")
			t.Setenv("SQLCONV_SOURCE", src)
			t.Setenv("SQLCONV_TARGET", dest)
			code := run(ctx, []string{"--log-level", "error"}, &stdout, &stderr)
			So(code, ShouldEqual, 0)
			_, err := os.Stat(dest)
			So(err, ShouldBeNil)
		})

		Convey("未知方言返回 2", func() {
			code := run(ctx, []string{"-d", "oracle", src}, &stdout, &stderr)
			So(code, ShouldEqual, 2)
			So(stderr.String(), ShouldContainSubstring, "oracle")
		})

		Convey("mysql DSN 缺少库名时返回 2", func() {
			code := run(ctx, []string{"--apply-driver", "mysql", "--apply-dsn", "root@tcp(127.0.0.1:3306)/", src}, &stdout, &stderr)
			So(code, ShouldEqual, 2)
			So(stderr.String(), ShouldNotBeEmpty)
		})
	})
}
