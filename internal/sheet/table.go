// Package sheet 内存表格：行数组 + 按 (行, 列) 存放的显示元数据
package sheet

import (
	"sort"
	"sync"

	"stockrecon/internal/model"
	"stockrecon/internal/parser"
)

// Pos 单元格位置，行列均从 1 开始
type Pos struct {
	Row int
	Col int
}

// Change 单元格的修改类型
type Change uint8

const (
	ChangeValue Change = 1 << iota
	ChangeHighlight
	ChangeEmphasis
)

// Has 是否包含某类修改
func (c Change) Has(k Change) bool {
	return c&k != 0
}

// Edit 被修改的单元格
type Edit struct {
	Pos
	Change Change
}

// Table 内存表格
// 业务数据存放在 rows，高亮和灰显存放在独立的 side-table，不进入业务数据
type Table struct {
	name       string
	rows       [][]model.Value
	highlights map[Pos]model.Highlight
	emphasis   map[Pos]model.Emphasis
	dirty      map[Pos]Change
	mu         sync.RWMutex
}

// New 创建空表
func New(name string) *Table {
	return &Table{
		name:       name,
		highlights: make(map[Pos]model.Highlight),
		emphasis:   make(map[Pos]model.Emphasis),
		dirty:      make(map[Pos]Change),
	}
}

// FromRows 由二维数组创建，rows[0] 为第 1 行
func FromRows(name string, rows [][]model.Value) *Table {
	t := New(name)
	t.rows = make([][]model.Value, len(rows))
	for i, r := range rows {
		t.rows[i] = append([]model.Value(nil), r...)
	}
	return t
}

// Name 表名
func (t *Table) Name() string {
	return t.name
}

// Columns 读取表头行，返回 规范化列名 → 列号
func (t *Table) Columns(headerRow int) map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]int)
	if headerRow <= 0 || headerRow > len(t.rows) {
		return result
	}
	for i, v := range t.rows[headerRow-1] {
		s, ok := v.(string)
		if !ok {
			continue
		}
		name := parser.NormalizeColumnName(s)
		if name == "" {
			continue
		}
		if _, exists := result[name]; !exists {
			result[name] = i + 1
		}
	}
	return result
}

// Cell 读取单元格，越界为 nil
func (t *Table) Cell(row, col int) model.Value {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if row <= 0 || col <= 0 || row > len(t.rows) {
		return nil
	}
	r := t.rows[row-1]
	if col > len(r) {
		return nil
	}
	return r[col-1]
}

// SetCell 写入单元格，必要时扩展行列
func (t *Table) SetCell(row, col int, v model.Value) {
	if row <= 0 || col <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for len(t.rows) < row {
		t.rows = append(t.rows, nil)
	}
	r := t.rows[row-1]
	for len(r) < col {
		r = append(r, nil)
	}
	r[col-1] = v
	t.rows[row-1] = r
	t.dirty[Pos{row, col}] |= ChangeValue
}

// SetHighlight 设置高亮，HighlightNone 表示清除
func (t *Table) SetHighlight(row, col int, h model.Highlight) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := Pos{row, col}
	if h == model.HighlightNone {
		delete(t.highlights, p)
	} else {
		t.highlights[p] = h
	}
	t.dirty[p] |= ChangeHighlight
}

// Highlight 读取高亮
func (t *Table) Highlight(row, col int) model.Highlight {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.highlights[Pos{row, col}]
}

// SetEmphasis 设置灰显
func (t *Table) SetEmphasis(row, col int, e model.Emphasis) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := Pos{row, col}
	t.emphasis[p] = e
	t.dirty[p] |= ChangeEmphasis
}

// Emphasis 读取灰显，未设置时为 EmphasisNormal
func (t *Table) Emphasis(row, col int) (model.Emphasis, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.emphasis[Pos{row, col}]
	return e, ok
}

// MaxRow 最大行号
func (t *Table) MaxRow() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// MaxCol 最大列号
func (t *Table) MaxCol() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, r := range t.rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}

// DataRange 从 first 行开始扫描 keyCol，遇到第一个空单元格为止
func (t *Table) DataRange(keyCol, first int) model.RowRange {
	end := first
	for end <= t.MaxRow() && !parser.IsEmpty(t.Cell(end, keyCol)) {
		end++
	}
	return model.RowRange{First: first, End: end}
}

// Dirty 返回被修改过的单元格，按行列排序
func (t *Table) Dirty() []Edit {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Edit, 0, len(t.dirty))
	for p, c := range t.dirty {
		out = append(out, Edit{Pos: p, Change: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Clone 深拷贝（用于试运行）
func (t *Table) Clone() *Table {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c := FromRows(t.name, t.rows)
	for p, h := range t.highlights {
		c.highlights[p] = h
	}
	for p, e := range t.emphasis {
		c.emphasis[p] = e
	}
	return c
}

var _ model.TabularStore = (*Table)(nil)
