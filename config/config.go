package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hatlonely/sqlconv/log"
	"github.com/hatlonely/sqlconv/sink"
	"github.com/pkg/errors"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "SQLCONV"

const (
	SinkScript = "script"
	SinkExec   = "exec"
)

// Options 一次转换运行的完整配置
type Options struct {
	// Source 源 SQLite 文件路径
	Source string `cfg:"source" validate:"required"`

	// Target 输出脚本路径，为空时使用源文件名加 .sql 后缀，- 表示标准输出
	Target string `cfg:"target"`

	// Dialect 目标方言
	Dialect string `cfg:"dialect" def:"mysql" validate:"required"`

	// TextSize 文本类型映射为 VARCHAR 时的长度
	TextSize int `cfg:"textSize" def:"255" validate:"gte=1,lte=65535"`

	// UnmappedPolicy 无法映射的类型的处理策略：passthrough, strict, fallback
	UnmappedPolicy string `cfg:"unmappedPolicy" def:"passthrough" validate:"oneof=passthrough strict fallback"`

	// Sink 输出方式：script 写脚本文件，exec 直接在目标库执行
	Sink string `cfg:"sink" def:"script" validate:"oneof=script exec"`

	// Atomic 脚本先写临时文件再替换目标文件
	Atomic *bool `cfg:"atomic" def:"true"`

	// Apply sink 为 exec 时的目标库
	Apply *sink.ExecSinkOptions `cfg:"apply" validate:"required_if=Sink exec"`

	Log log.Options `cfg:"log"`

	// MetricsFile 每次转换结束后以 prometheus 文本格式写出指标
	MetricsFile string `cfg:"metricsFile"`

	// Watch 源文件变化时重新转换
	Watch bool `cfg:"watch"`
}

// Load 按扩展名解码配置文件，支持 yaml, yml, json, toml, ini
// 返回的配置尚未设置默认值和校验，调用方覆盖完参数后调用 Complete
func Load(filename string) (*Options, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", filename)
	}

	options, err := Decode(data, formatOf(filename))
	if err != nil {
		return nil, errors.WithMessage(err, filename)
	}
	return options, nil
}

// Decode 将 format 格式的配置内容转换为 Options
func Decode(data []byte, format string) (*Options, error) {
	m, err := decode(data, format)
	if err != nil {
		return nil, err
	}

	options := &Options{}
	if err := bind(m, reflect.ValueOf(options)); err != nil {
		return nil, errors.WithMessage(err, "bind config")
	}
	return options, nil
}

// ApplyEnv 用 prefix 开头的环境变量覆盖配置，如 SQLCONV_SOURCE, SQLCONV_LOG_LEVEL
func (o *Options) ApplyEnv(prefix string) error {
	return bindEnv(prefix, reflect.ValueOf(o).Elem())
}

// Complete 设置默认值并校验
func (o *Options) Complete() error {
	if o.Sink == "" && o.Apply != nil {
		o.Sink = SinkExec
	}

	// 直接执行时方言必须与目标库一致，未指定的一方取另一方的值
	if err := o.matchDialect(); err != nil {
		return err
	}

	if err := SetDefaults(o); err != nil {
		return errors.WithMessage(err, "set defaults")
	}

	if err := validator.New().Struct(o); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	if o.Sink == SinkExec {
		if err := sink.ValidateDSN(o.Apply.Driver, o.Apply.DSN); err != nil {
			return errors.WithMessage(err, "invalid apply target")
		}
	}
	return nil
}

func (o *Options) matchDialect() error {
	if o.Sink != SinkExec || o.Apply == nil {
		return nil
	}
	switch {
	case o.Dialect == "" && o.Apply.Driver != "":
		o.Dialect = o.Apply.Driver
	case o.Apply.Driver == "" && o.Dialect != "":
		o.Apply.Driver = o.Dialect
	case o.Dialect != o.Apply.Driver:
		return errors.Errorf("dialect %q does not match apply driver %q", o.Dialect, o.Apply.Driver)
	}
	return nil
}

// TargetPath 输出脚本路径
func (o *Options) TargetPath() string {
	if o.Target != "" {
		return o.Target
	}
	return DefaultTarget(o.Source)
}

// DefaultTarget 将源文件的扩展名替换为 .sql
func DefaultTarget(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".sql"
}

func (o *Options) IsAtomic() bool {
	return o.Atomic == nil || *o.Atomic
}
