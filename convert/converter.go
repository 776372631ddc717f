package convert

import (
	"context"
	"iter"
	"time"

	"github.com/hatlonely/sqlconv/dialect"
	"github.com/hatlonely/sqlconv/log"
	"github.com/hatlonely/sqlconv/schema"
	"github.com/hatlonely/sqlconv/sink"
	"github.com/hatlonely/sqlconv/translate"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Source 转换的数据来源
type Source interface {
	// Tables 表名序列，只能遍历一次
	Tables(ctx context.Context) iter.Seq2[string, error]
	Describe(ctx context.Context, table string) (*schema.Table, error)
	Rows(ctx context.Context, table *schema.Table, fn func(schema.Row) error) error
}

type Options struct {
	// Dialect 目标方言：mysql, sqlite, postgres
	Dialect string `cfg:"dialect" def:"mysql"`

	// TextSize 文本类型映射为 VARCHAR 时的长度
	TextSize int `cfg:"textSize" def:"255"`

	// UnmappedPolicy 无法映射的类型的处理策略
	UnmappedPolicy translate.UnmappedPolicy `cfg:"unmappedPolicy" def:"passthrough"`

	// Namespace 指标名前缀
	Namespace string `cfg:"namespace" def:"sqlconv"`

	// Logger 为空时使用 log.Default()
	Logger log.Logger `cfg:"-"`

	// Registerer 为空时不采集指标
	Registerer prometheus.Registerer `cfg:"-"`
}

// Report 一次转换的结果
type Report struct {
	Tables   int
	Rows     int
	Unmapped []translate.UnmappedColumn
	Duration time.Duration
}

// Converter 将源库的表结构和数据依次写入 sink，不保存转换之间的状态
type Converter struct {
	dialect    dialect.Dialect
	translator *translate.Translator
	logger     log.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

func NewConverterWithOptions(options *Options) (*Converter, error) {
	if options == nil {
		options = &Options{}
	}

	name := options.Dialect
	if name == "" {
		name = "mysql"
	}
	d, err := dialect.New(name, &dialect.Options{TextSize: options.TextSize})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create dialect")
	}

	tr, err := translate.NewTranslatorWithOptions(d, &translate.Options{UnmappedPolicy: options.UnmappedPolicy})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create translator")
	}

	logger := options.Logger
	if logger == nil {
		logger = log.Default()
	}

	c := &Converter{
		dialect:    d,
		translator: tr,
		logger:     logger.WithGroup("converter"),
		tracer:     otel.Tracer("sqlconv/convert"),
	}

	if options.Registerer != nil {
		namespace := options.Namespace
		if namespace == "" {
			namespace = "sqlconv"
		}
		if c.metrics, err = NewMetrics(namespace, options.Registerer); err != nil {
			return nil, errors.WithMessage(err, "failed to create metrics")
		}
	}

	return c, nil
}

func (c *Converter) Dialect() dialect.Dialect {
	return c.dialect
}

// Convert 依次转换 src 中的每张表并写入 dst
// 不会调用 dst 的 Close 或 Abort，由调用方决定提交还是放弃
func (c *Converter) Convert(ctx context.Context, src Source, dst sink.Sink) (*Report, error) {
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "convert.Convert",
		trace.WithAttributes(attribute.String("dialect", c.dialect.Name())),
	)
	defer span.End()

	report := &Report{}
	err := c.convert(ctx, src, dst, report)
	report.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("tables", report.Tables),
		attribute.Int("rows", report.Rows),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		c.logger.ErrorContext(ctx, "conversion failed", "error", err, "tables", report.Tables, "rows", report.Rows)
		return report, err
	}
	span.SetStatus(codes.Ok, "")

	c.logger.InfoContext(ctx, "conversion finished",
		"dialect", c.dialect.Name(),
		"tables", report.Tables,
		"rows", report.Rows,
		"unmapped", len(report.Unmapped),
		"duration", report.Duration,
	)
	return report, nil
}

func (c *Converter) convert(ctx context.Context, src Source, dst sink.Sink, report *Report) error {
	if err := dst.Comment(c.dialect.Header()); err != nil {
		return newError(ErrIO, "", err)
	}
	if err := dst.Blank(); err != nil {
		return newError(ErrIO, "", err)
	}

	for name, err := range src.Tables(ctx) {
		if err != nil {
			return newError(ErrConnection, "", err)
		}
		if err := ctx.Err(); err != nil {
			return errors.WithMessage(err, "conversion canceled")
		}
		if err := c.convertTable(ctx, src, dst, name, report); err != nil {
			return err
		}
	}
	return nil
}

func (c *Converter) convertTable(ctx context.Context, src Source, dst sink.Sink, name string, report *Report) (err error) {
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "convert.Table", trace.WithAttributes(attribute.String("table", name)))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	table, err := src.Describe(ctx, name)
	if err != nil {
		return newError(ErrIntrospection, name, err)
	}

	res, err := c.translator.CreateTable(table)
	if err != nil {
		if errors.Is(err, translate.ErrUnmappedType) {
			return newError(translate.ErrUnmappedType, name, err)
		}
		return newError(ErrIntrospection, name, err)
	}
	for _, u := range res.Unmapped {
		c.logger.WarnContext(ctx, "unmapped column type",
			"table", u.Table,
			"column", u.Column,
			"type", u.Mapping.Declared,
		)
		c.metrics.observeUnmapped(c.dialect.Name())
	}
	report.Unmapped = append(report.Unmapped, res.Unmapped...)

	for _, stmt := range []string{c.translator.DropTable(table), res.SQL} {
		if err := dst.Statement(stmt); err != nil {
			return newError(ErrIO, name, err)
		}
	}
	if err := dst.Blank(); err != nil {
		return newError(ErrIO, name, err)
	}

	rows := 0
	err = src.Rows(ctx, table, func(row schema.Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stmt, err := c.translator.Insert(table, row)
		if err != nil {
			return newError(ErrSerialization, name, err)
		}
		if err := dst.Statement(stmt); err != nil {
			return newError(ErrIO, name, err)
		}
		rows++
		return nil
	})
	if err != nil {
		var e *Error
		switch {
		case errors.As(err, &e):
			return err
		case ctx.Err() != nil:
			return errors.WithMessagef(ctx.Err(), "conversion canceled at table %s", name)
		default:
			return newError(ErrConnection, name, err)
		}
	}

	if err := dst.Blank(); err != nil {
		return newError(ErrIO, name, err)
	}

	report.Tables++
	report.Rows += rows

	duration := time.Since(start)
	c.metrics.observeTable(rows, duration)
	span.SetAttributes(attribute.Int("rows", rows))
	c.logger.DebugContext(ctx, "table converted",
		"table", name,
		"columns", len(table.Columns),
		"rows", rows,
		"duration", duration,
	)
	return nil
}
