package convert

import (
	"fmt"

	"github.com/pkg/errors"
)

// 错误类型，通过 errors.Is 判断
var (
	// ErrConnection 源库无法打开、枚举表或读取数据
	ErrConnection = errors.New("source connection error")
	// ErrIntrospection 表结构读取失败或表没有列
	ErrIntrospection = errors.New("schema introspection error")
	// ErrIO 目标无法创建、写入或提交
	ErrIO = errors.New("destination io error")
	// ErrSerialization 行中的值无法格式化为目标方言的字面量
	ErrSerialization = errors.New("row serialization error")
)

// Error 转换错误，Kind 为上面的错误类型之一或 translate.ErrUnmappedType
type Error struct {
	Kind  error
	Table string
	Err   error
}

func newError(kind error, table string, err error) *Error {
	return &Error{Kind: kind, Table: table, Err: err}
}

func (e *Error) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%v: table %s: %v", e.Kind, e.Table, e.Err)
}

// Unwrap 同时匹配错误类型和底层错误
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Cause 兼容 github.com/pkg/errors
func (e *Error) Cause() error {
	return e.Err
}
