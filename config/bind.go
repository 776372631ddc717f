package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// fieldName 获取字段的配置名称，cfg tag 优先，没有时使用字段名
// 返回空串表示该字段不参与配置
func fieldName(field reflect.StructField) string {
	tag := field.Tag.Get("cfg")
	if tag == "" {
		return field.Name
	}
	name := strings.Split(tag, ",")[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// bind 将解码得到的数据转换为目标类型
func bind(src any, dst reflect.Value) error {
	srcValue := reflect.ValueOf(src)
	if !srcValue.IsValid() {
		return nil
	}

	// 处理目标为指针的情况
	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return bind(src, dst.Elem())
	}

	if srcValue.Type().AssignableTo(dst.Type()) {
		dst.Set(srcValue)
		return nil
	}

	if dst.Type() == reflect.TypeOf(time.Duration(0)) {
		return bindDuration(srcValue, dst)
	}

	switch dst.Kind() {
	case reflect.Struct:
		return bindStruct(srcValue, dst)
	case reflect.Map:
		return bindMap(srcValue, dst)
	case reflect.Slice:
		return bindSlice(srcValue, dst)
	case reflect.Interface:
		if dst.Type().NumMethod() == 0 {
			dst.Set(srcValue)
			return nil
		}
	case reflect.String:
		// 数字和布尔值按文本处理
		dst.SetString(fmt.Sprint(src))
		return nil
	case reflect.Bool:
		if srcValue.Kind() == reflect.String {
			b, err := strconv.ParseBool(srcValue.String())
			if err != nil {
				return errors.Wrapf(err, "invalid bool %q", srcValue.String())
			}
			dst.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if srcValue.Kind() == reflect.String {
			i, err := strconv.ParseInt(srcValue.String(), 10, dst.Type().Bits())
			if err != nil {
				return errors.Wrapf(err, "invalid int %q", srcValue.String())
			}
			dst.SetInt(i)
			return nil
		}
	}

	if isNumber(srcValue.Kind()) && isNumber(dst.Kind()) {
		dst.Set(srcValue.Convert(dst.Type()))
		return nil
	}

	return errors.Errorf("cannot convert %v to %v", srcValue.Type(), dst.Type())
}

func isNumber(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func bindDuration(src, dst reflect.Value) error {
	switch {
	case src.Kind() == reflect.String:
		d, err := time.ParseDuration(src.String())
		if err != nil {
			return errors.Wrapf(err, "invalid duration %q", src.String())
		}
		dst.SetInt(int64(d))
		return nil
	case isNumber(src.Kind()):
		// 数字按秒处理
		dst.SetInt(int64(src.Convert(reflect.TypeOf(float64(0))).Float() * float64(time.Second)))
		return nil
	}
	return errors.Errorf("cannot convert %v to time.Duration", src.Type())
}

func bindStruct(src, dst reflect.Value) error {
	if src.Kind() != reflect.Map {
		return errors.Errorf("cannot convert %v to %v", src.Type(), dst.Type())
	}

	dstType := dst.Type()
	for i := 0; i < dstType.NumField(); i++ {
		field := dstType.Field(i)
		fieldValue := dst.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		name := fieldName(field)
		if name == "" {
			continue
		}

		for _, key := range src.MapKeys() {
			if fmt.Sprint(key.Interface()) != name {
				continue
			}
			if err := bind(src.MapIndex(key).Interface(), fieldValue); err != nil {
				return errors.WithMessage(err, name)
			}
			break
		}
	}
	return nil
}

func bindMap(src, dst reflect.Value) error {
	if src.Kind() != reflect.Map {
		return errors.Errorf("cannot convert %v to %v", src.Type(), dst.Type())
	}
	if dst.Type().Key().Kind() != reflect.String {
		return errors.Errorf("unsupported map key type %v", dst.Type().Key())
	}

	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}
	for _, key := range src.MapKeys() {
		value := reflect.New(dst.Type().Elem()).Elem()
		if err := bind(src.MapIndex(key).Interface(), value); err != nil {
			return err
		}
		dst.SetMapIndex(reflect.ValueOf(fmt.Sprint(key.Interface())).Convert(dst.Type().Key()), value)
	}
	return nil
}

func bindSlice(src, dst reflect.Value) error {
	if src.Kind() != reflect.Slice && src.Kind() != reflect.Array {
		return errors.Errorf("cannot convert %v to %v", src.Type(), dst.Type())
	}

	dst.Set(reflect.MakeSlice(dst.Type(), src.Len(), src.Len()))
	for i := 0; i < src.Len(); i++ {
		if err := bind(src.Index(i).Interface(), dst.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

// bindEnv 用环境变量覆盖叶子字段，变量名为前缀加上大写的配置路径，以 _ 连接
// 如 SQLCONV_DIALECT, SQLCONV_LOG_LEVEL
// 未设置的 struct 指针字段只有在存在对应环境变量时才会被分配
func bindEnv(prefix string, dst reflect.Value) error {
	dstType := dst.Type()
	for i := 0; i < dstType.NumField(); i++ {
		field := dstType.Field(i)
		fieldValue := dst.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		name := fieldName(field)
		if name == "" {
			continue
		}
		key := prefix + "_" + strings.ToUpper(name)

		switch {
		case fieldValue.Kind() == reflect.Struct:
			if err := bindEnv(key, fieldValue); err != nil {
				return err
			}
		case fieldValue.Kind() == reflect.Ptr && fieldValue.Type().Elem().Kind() == reflect.Struct:
			if !hasEnvPrefix(key + "_") {
				continue
			}
			if fieldValue.IsNil() {
				fieldValue.Set(reflect.New(fieldValue.Type().Elem()))
			}
			if err := bindEnv(key, fieldValue.Elem()); err != nil {
				return err
			}
		case fieldValue.Kind() == reflect.Map || fieldValue.Kind() == reflect.Slice:
			// 复合类型只能通过配置文件设置
		default:
			value, ok := os.LookupEnv(key)
			if !ok {
				continue
			}
			if err := bind(value, fieldValue); err != nil {
				return errors.WithMessage(err, key)
			}
		}
	}
	return nil
}

func hasEnvPrefix(prefix string) bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}
	return false
}
