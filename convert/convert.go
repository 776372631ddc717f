package convert

import (
	"context"

	"github.com/hatlonely/sqlconv/config"
	"github.com/hatlonely/sqlconv/log"
	"github.com/hatlonely/sqlconv/sink"
	"github.com/hatlonely/sqlconv/source"
	"github.com/hatlonely/sqlconv/translate"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// ConvertFile 将 sourcePath 的 SQLite 库转换为 destPath 的脚本
// 源库和目标文件在返回前都会被释放；转换失败时目标文件保持原样
func ConvertFile(ctx context.Context, sourcePath string, destPath string, options *Options) (*Report, error) {
	c, err := NewConverterWithOptions(options)
	if err != nil {
		return nil, err
	}

	src, err := source.Open(ctx, &source.Options{Path: sourcePath})
	if err != nil {
		return nil, newError(ErrConnection, "", err)
	}
	defer src.Close()

	dst, err := sink.NewScriptSinkWithOptions(&sink.ScriptSinkOptions{Path: destPath})
	if err != nil {
		return nil, newError(ErrIO, "", err)
	}

	return execute(ctx, c, src, dst)
}

// execute 转换成功时提交 dst，失败时放弃
func execute(ctx context.Context, c *Converter, src Source, dst sink.Sink) (*Report, error) {
	report, err := c.Convert(ctx, src, dst)
	if err != nil {
		if abortErr := dst.Abort(); abortErr != nil {
			c.logger.WarnContext(ctx, "abort destination failed", "error", abortErr)
		}
		return report, err
	}

	if err := dst.Close(); err != nil {
		return report, newError(ErrIO, "", err)
	}
	return report, nil
}

// Runner 按配置执行转换，watch 模式下每次文件变化复用同一个 Runner
type Runner struct {
	options   *config.Options
	logger    log.Logger
	registry  *prometheus.Registry
	converter *Converter
}

// NewRunnerWithOptions options 需要已经调用过 Complete
func NewRunnerWithOptions(options *config.Options) (*Runner, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	logger, err := log.NewLoggerWithOptions(&options.Log)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}

	r := &Runner{
		options:  options,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	r.converter, err = NewConverterWithOptions(&Options{
		Dialect:        options.Dialect,
		TextSize:       options.TextSize,
		UnmappedPolicy: translate.UnmappedPolicy(options.UnmappedPolicy),
		Logger:         logger,
		Registerer:     r.registry,
	})
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Runner) Logger() log.Logger {
	return r.logger
}

func (r *Runner) Registry() *prometheus.Registry {
	return r.registry
}

// Run 执行一次完整的转换；配置了 MetricsFile 时，无论成功与否都会写出指标
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report, err := r.run(ctx)

	if r.options.MetricsFile != "" {
		if werr := prometheus.WriteToTextfile(r.options.MetricsFile, r.registry); werr != nil {
			r.logger.WarnContext(ctx, "write metrics file failed", "path", r.options.MetricsFile, "error", werr)
		}
	}
	return report, err
}

func (r *Runner) run(ctx context.Context) (*Report, error) {
	src, err := source.Open(ctx, &source.Options{Path: r.options.Source})
	if err != nil {
		return nil, newError(ErrConnection, "", err)
	}
	defer src.Close()

	dst, err := r.newSink(ctx)
	if err != nil {
		return nil, newError(ErrIO, "", err)
	}

	return execute(ctx, r.converter, src, dst)
}

func (r *Runner) newSink(ctx context.Context) (sink.Sink, error) {
	if r.options.Sink == config.SinkExec {
		s, err := sink.NewExecSinkWithOptions(ctx, r.options.Apply)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	atomic := r.options.IsAtomic()
	s, err := sink.NewScriptSinkWithOptions(&sink.ScriptSinkOptions{
		Path:   r.options.TargetPath(),
		Atomic: &atomic,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Run 按配置执行一次转换
func Run(ctx context.Context, options *config.Options) (*Report, error) {
	r, err := NewRunnerWithOptions(options)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}
