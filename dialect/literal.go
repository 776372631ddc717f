package dialect

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const timeLayout = "2006-01-02 15:04:05.999999999"

// literalFormatter 各方言共用的字面量格式化逻辑，差异部分由字段控制
type literalFormatter struct {
	quoteString func(s string) string
	formatBytes func(b []byte) string
	trueValue   string
	falseValue  string
}

func (f *literalFormatter) format(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int8:
		return strconv.FormatInt(int64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(val), 10), nil
	case float64:
		return formatFloat(val, 64), nil
	case float32:
		return formatFloat(float64(val), 32), nil
	case bool:
		if val {
			return f.trueValue, nil
		}
		return f.falseValue, nil
	case string:
		return f.quoteString(val), nil
	case []byte:
		return f.formatBytes(val), nil
	case time.Time:
		return f.quoteString(val.UTC().Format(timeLayout)), nil
	default:
		return "", errors.Wrapf(ErrUnsupportedValue, "%T", v)
	}
}

// formatFloat NaN 和 Inf 在目标库中没有字面量，输出 NULL
func formatFloat(v float64, bitSize int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NULL"
	}
	return strconv.FormatFloat(v, 'g', -1, bitSize)
}

// quoteStandard 标准 SQL 字符串，单引号转义为两个单引号
func quoteStandard(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// hexLiteral X'0A1B' 形式的二进制字面量
func hexLiteral(b []byte) string {
	return "X'" + strings.ToUpper(hex.EncodeToString(b)) + "'"
}

// quoteIdentifier 用 q 包裹标识符，内部的 q 加倍转义
func quoteIdentifier(name string, q string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}
