// Package code 产品编码规范化
//
// 原始编码来自自由文本（存货名称、备注、带前缀的物料号），统一规范为
// 5 位补零的数字字符串。短编码 "dddd-" 表示按后 4 位匹配。
package code

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"stockrecon/internal/model"
)

const (
	// Width 完整编码宽度
	Width = 5
	// SuffixWidth 后缀编码宽度
	SuffixWidth = 4
)

var (
	digitRun    = regexp.MustCompile(`\d+`)
	suffixShape = regexp.MustCompile(`^(\d{4})-$`)
	fullShape   = regexp.MustCompile(`^\d{1,5}$`)
)

// Kind 原始编码的形态
type Kind int

const (
	KindUnknown Kind = iota
	KindSuffix       // "dddd-"，按后 4 位匹配
	KindFull         // 不超过 5 位的纯数字，补零后按完整编码匹配
)

func (k Kind) String() string {
	switch k {
	case KindSuffix:
		return "suffix"
	case KindFull:
		return "full"
	}
	return "unknown"
}

// Text 单元格值转文本
// Excel 会把 00514 存成数字 514，整数值不保留小数部分
func Text(v model.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return ""
}

// Normalize 提取第一段连续数字，取末 5 位并左补零
// 没有数字时返回空串
func Normalize(raw model.Value) string {
	s := Text(raw)
	if s == "" {
		return ""
	}
	run := digitRun.FindString(s)
	if run == "" {
		return ""
	}
	if len(run) > Width {
		run = run[len(run)-Width:]
	}
	return pad(run)
}

// Suffix 编码的末 4 位
func Suffix(c string) string {
	if len(c) <= SuffixWidth {
		return c
	}
	return c[len(c)-SuffixWidth:]
}

// Shape 判断原始编码形态并返回查找键
func Shape(raw model.Value) (Kind, string) {
	s := Text(raw)
	if m := suffixShape.FindStringSubmatch(s); m != nil {
		return KindSuffix, m[1]
	}
	if fullShape.MatchString(s) {
		return KindFull, pad(s)
	}
	return KindUnknown, ""
}

// HomeStockCode 从存货名称取编码：前 5 个字符，全部为汉字时为空
func HomeStockCode(name string) string {
	name = strings.TrimSpace(name)
	runes := []rune(name)
	if len(runes) == 0 {
		return ""
	}
	if len(runes) > Width {
		runes = runes[:Width]
	}
	allHan := true
	for _, r := range runes {
		if !unicode.Is(unicode.Han, r) {
			allHan = false
			break
		}
	}
	if allHan {
		return ""
	}
	return string(runes)
}

func pad(s string) string {
	if len(s) >= Width {
		return s
	}
	return strings.Repeat("0", Width-len(s)) + s
}
