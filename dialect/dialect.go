package dialect

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrUnknownDialect   = errors.New("unknown dialect")
	ErrUnsupportedValue = errors.New("unsupported value type")
)

// Dialect 目标数据库方言，决定标识符引用、类型映射和字面量格式
type Dialect interface {
	// Name 方言名称，如 mysql
	Name() string

	// Header 脚本开头的注释内容（不含注释符号）
	Header() string

	// QuoteIdentifier 引用表名或列名，内部的引号字符会被转义
	QuoteIdentifier(name string) string

	// MapType 将源库声明的类型映射为目标类型，只依赖类型字符串本身
	MapType(declared string) TypeMapping

	// FallbackType 无法映射的类型在 fallback 策略下使用的目标类型
	FallbackType() string

	// Literal 将一个值格式化为目标方言的字面量
	Literal(v any) (string, error)
}

// Options 方言选项
type Options struct {
	// TextSize 文本类型映射为 VARCHAR 时的长度
	TextSize int `cfg:"textSize" def:"255" validate:"gte=1,lte=65535"`
}

// Constructor 方言构造函数
type Constructor func(options *Options) (Dialect, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

func init() {
	MustRegister("mysql", NewMySQLWithOptions)
	MustRegister("sqlite", NewSQLiteWithOptions)
	MustRegister("postgres", NewPostgresWithOptions)
}

// Register 注册方言，同名重复注册返回错误
func Register(name string, newFunc Constructor) error {
	if name == "" || newFunc == nil {
		return errors.New("name and constructor are required")
	}

	key := strings.ToLower(name)

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[key]; ok {
		return errors.Errorf("dialect %s already registered", name)
	}
	registry[key] = newFunc
	return nil
}

func MustRegister(name string, newFunc Constructor) {
	if err := Register(name, newFunc); err != nil {
		panic(err)
	}
}

// New 按名称创建方言，options 为 nil 时使用默认选项
func New(name string, options *Options) (Dialect, error) {
	registryMu.RLock()
	newFunc, ok := registry[strings.ToLower(name)]
	registryMu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrUnknownDialect, "%q (available: %s)", name, strings.Join(Names(), ", "))
	}

	if options == nil {
		options = &Options{}
	}
	if options.TextSize == 0 {
		options.TextSize = 255
	}
	if options.TextSize < 0 {
		return nil, errors.Errorf("invalid text size %d", options.TextSize)
	}

	return newFunc(options)
}

// Names 返回已注册的方言名称（有序）
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
