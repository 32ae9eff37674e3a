package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"stockrecon/internal/model"
)

var (
	spaceRe     = regexp.MustCompile(`\s+`)
	columnRefRe = regexp.MustCompile(`^[A-Z]{1,3}$`)
)

// NormalizeColumnName 规范化列名，去除空格和特殊字符
func NormalizeColumnName(name string) string {
	// 去除首尾空格
	name = strings.TrimSpace(name)
	// 去除换行符和制表符
	name = strings.ReplaceAll(name, "\n", "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\t", "")
	// 去除中间所有空白
	name = spaceRe.ReplaceAllString(name, "")
	// 全角括号统一为半角
	name = strings.ReplaceAll(name, "（", "(")
	name = strings.ReplaceAll(name, "）", ")")
	return name
}

// ContainsAny 检查字符串是否包含任意一个关键词
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// MatchPattern 使用正则匹配
func MatchPattern(text, pattern string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// ToFloat 尽力解析数值
// 空值、非数字文本、公式（以 = 开头）均返回 0；ok 表示值本身是数值
func ToFloat(v model.Value) (f float64, ok bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" || strings.HasPrefix(s, "=") {
			return 0, false
		}
		s = strings.ReplaceAll(s, ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Float 尽力解析数值，失败为 0
func Float(v model.Value) float64 {
	f, _ := ToFloat(v)
	return f
}

// IsEmpty 空单元格：nil 或空白字符串
func IsEmpty(v model.Value) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

// IsColumnRef 是否为列字母（A..XFD）
func IsColumnRef(ref string) bool {
	return columnRefRe.MatchString(strings.TrimSpace(ref))
}

// ResolveColumn 按列名或列字母定位列号
// 先按规范化后的表头名查找，找不到且 ref 形如列字母时按字母换算
func ResolveColumn(headers map[string]int, ref string) (int, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, false
	}
	if col, ok := headers[NormalizeColumnName(ref)]; ok {
		return col, true
	}
	if IsColumnRef(ref) {
		col, err := excelize.ColumnNameToNumber(ref)
		if err == nil {
			return col, true
		}
	}
	return 0, false
}

// ColumnLetter 列号转列字母
func ColumnLetter(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return ""
	}
	return name
}

// HeaderIndex 表头行转 规范化列名 → 列号（1 起），重复列名取第一个
func HeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := NormalizeColumnName(h)
		if name == "" {
			continue
		}
		if _, exists := idx[name]; !exists {
			idx[name] = i + 1
		}
	}
	return idx
}

func getCell(row []string, idx int) string {
	if idx <= 0 || idx > len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx-1])
}
