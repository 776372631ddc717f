package log

import (
	"context"

	"github.com/pkg/errors"
)

// Logger 日志接口
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

// Options 日志配置
type Options struct {
	// 日志级别：debug, info, warn, error
	Level string `cfg:"level" def:"info" validate:"omitempty,oneof=debug info warn warning error"`

	// 输出格式：text, json
	Format string `cfg:"format" def:"text" validate:"omitempty,oneof=text json"`

	// 输出目标：stdout, stderr, file
	Output string `cfg:"output" def:"stderr" validate:"omitempty,oneof=stdout stderr file"`

	// Output 为 file 时的文件配置
	File FileWriterOptions `cfg:"file"`

	// 时间格式，为空时使用 RFC3339
	TimeFormat string `cfg:"timeFormat"`

	AddSource bool `cfg:"addSource"`

	// 附加到每条日志上的字段
	Fields map[string]any `cfg:"fields"`
}

var defaultLogger Logger

func init() {
	l, err := NewLoggerWithOptions(&Options{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger = l
}

// Default 返回向 stderr 输出 text 格式的默认日志器
func Default() Logger {
	return defaultLogger
}

// NewLoggerWithOptions 根据配置创建日志器，options 为 nil 时返回默认日志器
func NewLoggerWithOptions(options *Options) (Logger, error) {
	if options == nil {
		return Default(), nil
	}

	w, err := newWriter(options)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create writer")
	}

	l, err := NewSLogWithOptions(w, options)
	if err != nil {
		w.Close()
		return nil, err
	}
	return l, nil
}

func newWriter(options *Options) (Writer, error) {
	switch options.Output {
	case "file":
		return NewFileWriterWithOptions(&options.File)
	default:
		return NewConsoleWriterWithOptions(&ConsoleWriterOptions{Target: options.Output})
	}
}
