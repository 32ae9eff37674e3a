package model

// Value 单元格值，取值为 nil（空）、float64 或 string
type Value = any

// RowRange 数据行范围，First 为首个数据行（1 起），End 为首个空行（不含）
type RowRange struct {
	First int `json:"first"`
	End   int `json:"end"`
}

// Len 数据行数
func (r RowRange) Len() int {
	if r.End <= r.First {
		return 0
	}
	return r.End - r.First
}

// Contains 判断行号是否在范围内
func (r RowRange) Contains(row int) bool {
	return row >= r.First && row < r.End
}

// Emphasis 数值单元格的显示强调（非业务数据）
type Emphasis int

const (
	EmphasisNormal Emphasis = iota
	EmphasisMuted           // 值 ≤ 0 时灰显
)

func (e Emphasis) String() string {
	if e == EmphasisMuted {
		return "muted"
	}
	return "normal"
}

// TabularStore 表格存储接口，行列号均从 1 开始
type TabularStore interface {
	// Columns 读取表头行，返回 规范化列名 → 列号
	Columns(headerRow int) map[string]int
	Cell(row, col int) Value
	SetCell(row, col int, v Value)
	SetHighlight(row, col int, h Highlight)
	SetEmphasis(row, col int, e Emphasis)
}
