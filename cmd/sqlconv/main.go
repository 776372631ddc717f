package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/hatlonely/sqlconv/config"
	"github.com/hatlonely/sqlconv/convert"
	"github.com/hatlonely/sqlconv/dialect"
	"github.com/hatlonely/sqlconv/sink"
	"github.com/hatlonely/sqlconv/translate"
	"github.com/hatlonely/sqlconv/watch"
	"github.com/pkg/errors"
)

// 构建时通过 -ldflags "-X main.version=..." 设置
var version = "dev"

// command 命令行参数，未指定的参数不覆盖配置文件和环境变量
type command struct {
	configFile  string
	source      string
	dest        string
	dialect     string
	textSize    int
	unmapped    string
	noAtomic    bool
	applyDriver string
	applyDSN    string
	logLevel    string
	logFormat   string
	metricsFile string
	watch       bool
}

func newApp(cmd *command) *kingpin.Application {
	app := kingpin.New("sqlconv", "Convert a SQLite database into a SQL script for another engine.")
	app.Version(version)
	app.HelpFlag.Short('h')

	app.Flag("config", "Config file (yaml, json, toml or ini).").Short('c').ExistingFileVar(&cmd.configFile)
	app.Flag("dialect", "Target dialect.").Short('d').EnumVar(&cmd.dialect, dialect.Names()...)
	app.Flag("text-size", "VARCHAR length for text columns.").IntVar(&cmd.textSize)
	app.Flag("unmapped", "How to handle types without a mapping.").
		EnumVar(&cmd.unmapped, string(translate.PolicyPassthrough), string(translate.PolicyStrict), string(translate.PolicyFallback))
	app.Flag("no-atomic", "Write the script in place instead of replacing it on success.").BoolVar(&cmd.noAtomic)
	app.Flag("apply-driver", "Execute statements on a target database instead of writing a script.").EnumVar(&cmd.applyDriver, "mysql", "sqlite", "postgres")
	app.Flag("apply-dsn", "Target database DSN, a file path for sqlite or a postgres:// URL.").StringVar(&cmd.applyDSN)
	app.Flag("log-level", "Log level.").EnumVar(&cmd.logLevel, "debug", "info", "warn", "error")
	app.Flag("log-format", "Log format.").EnumVar(&cmd.logFormat, "text", "json")
	app.Flag("metrics-file", "Write prometheus metrics to this file after each conversion.").StringVar(&cmd.metricsFile)
	app.Flag("watch", "Convert again whenever the source file changes.").Short('w').BoolVar(&cmd.watch)

	app.Arg("source", "SQLite database file.").StringVar(&cmd.source)
	app.Arg("dest", "Output script, - for stdout. Defaults to the source name with a .sql extension.").StringVar(&cmd.dest)

	return app
}

// options 按配置文件、环境变量、命令行参数的顺序合并配置
func (cmd *command) options() (*config.Options, error) {
	options := &config.Options{}
	if cmd.configFile != "" {
		var err error
		if options, err = config.Load(cmd.configFile); err != nil {
			return nil, err
		}
	}

	if err := options.ApplyEnv(config.EnvPrefix); err != nil {
		return nil, errors.WithMessage(err, "apply env")
	}

	if cmd.source != "" {
		options.Source = cmd.source
	}
	if cmd.dest != "" {
		options.Target = cmd.dest
	}
	if cmd.dialect != "" {
		options.Dialect = cmd.dialect
	}
	if cmd.textSize != 0 {
		options.TextSize = cmd.textSize
	}
	if cmd.unmapped != "" {
		options.UnmappedPolicy = cmd.unmapped
	}
	if cmd.noAtomic {
		atomic := false
		options.Atomic = &atomic
	}
	if cmd.applyDriver != "" || cmd.applyDSN != "" {
		if options.Apply == nil {
			options.Apply = &sink.ExecSinkOptions{}
		}
		if cmd.applyDriver != "" {
			options.Apply.Driver = cmd.applyDriver
		}
		if cmd.applyDSN != "" {
			options.Apply.DSN = cmd.applyDSN
		}
		options.Sink = config.SinkExec
	}
	if cmd.logLevel != "" {
		options.Log.Level = cmd.logLevel
	}
	if cmd.logFormat != "" {
		options.Log.Format = cmd.logFormat
	}
	if cmd.metricsFile != "" {
		options.MetricsFile = cmd.metricsFile
	}
	if cmd.watch {
		options.Watch = true
	}

	if err := options.Complete(); err != nil {
		return nil, err
	}
	return options, nil
}

func run(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) int {
	cmd := &command{}
	app := newApp(cmd)
	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)

	if _, err := app.Parse(args); err != nil {
		app.Errorf("%v", err)
		return 2
	}

	// source 可以来自配置文件或环境变量，不能声明为必填参数
	// 合并后的配置不完整或不合法同样属于用法错误
	options, err := cmd.options()
	if err != nil {
		app.Errorf("%v", err)
		return 2
	}

	r, err := convert.NewRunnerWithOptions(options)
	if err != nil {
		fmt.Fprintf(stderr, "sqlconv: %v\n", err)
		return 1
	}

	// 输出到标准输出时提示信息写到 stderr，避免混入脚本
	out := stdout
	if options.Sink == config.SinkScript && options.TargetPath() == sink.StdoutPath {
		out = stderr
	}

	once := func(ctx context.Context) error {
		if _, err := r.Run(ctx); err != nil {
			return err
		}
		if options.Sink == config.SinkExec {
			fmt.Fprintf(out, "Target %s updated successfully!\n", options.Apply.Driver)
		} else {
			fmt.Fprintf(out, "File %s generated successfully!\n", options.TargetPath())
		}
		return nil
	}

	if !options.Watch {
		if err := once(ctx); err != nil {
			fmt.Fprintf(stderr, "sqlconv: %v\n", err)
			return 1
		}
		return 0
	}

	trigger, err := watch.NewFileTriggerWithOptions(&watch.FileTriggerOptions{
		FilePath: options.Source,
		Delay:    200 * time.Millisecond,
		Logger:   r.Logger(),
	})
	if err != nil {
		fmt.Fprintf(stderr, "sqlconv: %v\n", err)
		return 1
	}
	defer trigger.Close()

	// watch 模式下单次转换失败不退出，等待下一次变化
	err = trigger.OnChange(ctx, func(ctx context.Context) error {
		if err := once(ctx); err != nil {
			fmt.Fprintf(stderr, "sqlconv: %v\n", err)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(stderr, "sqlconv: %v\n", err)
		return 1
	}

	r.Logger().Info("watching for changes", "source", options.Source)
	<-ctx.Done()
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
