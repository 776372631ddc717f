package dialect

import (
	"regexp"
	"strconv"
	"strings"
)

// Family 源类型所属的类型族
type Family string

const (
	FamilyInteger Family = "integer"
	FamilyText    Family = "text"
	FamilyReal    Family = "real"
	FamilyBlob    Family = "blob"
	// FamilyUnknown 不在映射表中的类型
	FamilyUnknown Family = "unknown"
)

// TypeMapping 类型映射结果
type TypeMapping struct {
	// Declared 源库声明的类型
	Declared string
	// Target 目标类型，Mapped 为 false 时等于 Declared
	Target string
	Family Family
	// Mapped 是否命中映射表
	Mapped bool
}

type familyRule struct {
	family   Family
	patterns []string
}

// 按 SQLite 类型亲和性的判定顺序匹配，第一条命中的规则生效
var familyRules = []familyRule{
	{family: FamilyInteger, patterns: []string{"INT"}},
	{family: FamilyText, patterns: []string{"CHAR", "CLOB", "TEXT"}},
	{family: FamilyBlob, patterns: []string{"BLOB"}},
	{family: FamilyReal, patterns: []string{"REAL", "FLOA", "DOUB"}},
}

// FamilyOf 判断声明类型所属的类型族，大小写不敏感
func FamilyOf(declared string) Family {
	upper := strings.ToUpper(declared)
	for _, rule := range familyRules {
		for _, p := range rule.patterns {
			if strings.Contains(upper, p) {
				return rule.family
			}
		}
	}
	return FamilyUnknown
}

// typeTargets 一个方言的类型映射表
type typeTargets struct {
	// integers 目标库原生支持的整数类型名（大写，不含括号内的显示宽度）
	// 为 nil 时整数类型原样输出
	integers map[string]bool
	// wideInteger 不在 integers 中的整数类型映射到的类型，能容纳 SQLite 的 64 位整数
	wideInteger string

	// text 未声明长度的文本类型
	text string
	// sizedText 声明了长度的文本类型，如 VARCHAR(1000)；为 nil 时忽略声明的长度
	sizedText func(n int) string

	real string
	blob string
}

var lengthPattern = regexp.MustCompile(`\(\s*(\d+)\s*\)`)

// declaredLength 类型声明中括号内的长度，如 VARCHAR(20) 返回 20
func declaredLength(declared string) (int, bool) {
	m := lengthPattern.FindStringSubmatch(declared)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// mapByFamily 根据类型族查表
// 文本类型保留声明的长度，未声明长度时使用 textSize
func mapByFamily(declared string, targets *typeTargets) TypeMapping {
	declared = strings.TrimSpace(declared)
	family := FamilyOf(declared)

	m := TypeMapping{
		Declared: declared,
		Target:   declared,
		Family:   family,
	}

	switch family {
	case FamilyUnknown:
		return m
	case FamilyInteger:
		if targets.integers != nil {
			name := strings.ToUpper(strings.TrimSpace(lengthPattern.ReplaceAllString(declared, "")))
			if !targets.integers[name] {
				m.Target = targets.wideInteger
			}
		}
	case FamilyText:
		m.Target = targets.text
		if n, ok := declaredLength(declared); ok && targets.sizedText != nil {
			m.Target = targets.sizedText(n)
		}
	case FamilyReal:
		m.Target = targets.real
	case FamilyBlob:
		m.Target = targets.blob
	}
	m.Mapped = true
	return m
}
