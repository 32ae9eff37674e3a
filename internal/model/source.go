package model

// Source 源数据表（家里库存、需求计划、外仓出入库汇总）
// Fields 与每行 Values 一一对应
type Source struct {
	Name   string      `json:"name"`
	Fields []string    `json:"fields"`
	Rows   []SourceRow `json:"rows"`
}

// SourceRow 源数据行
type SourceRow struct {
	Line   int     `json:"line"` // 源表中的行号，仅用于报告
	Key    Value   `json:"key"`  // 原始编码
	Values []Value `json:"values"`
}

// Len 源数据行数
func (s Source) Len() int {
	return len(s.Rows)
}
