package sheet

import (
	"sync"
	"testing"

	"stockrecon/internal/model"
)

// TestNewTable 测试创建空表
func TestNewTable(t *testing.T) {
	tb := New("库存表")
	if tb.MaxRow() != 0 || tb.MaxCol() != 0 {
		t.Errorf("New table should be empty, got %dx%d", tb.MaxRow(), tb.MaxCol())
	}
	if tb.Cell(1, 1) != nil {
		t.Errorf("out-of-range cell should be nil")
	}
}

// TestColumns 测试读取表头
func TestColumns(t *testing.T) {
	tb := FromRows("库存表", [][]model.Value{
		{"标题"},
		{nil, " 名称 ", "编号", 3.0, "外应存"},
	})
	cols := tb.Columns(2)
	if cols["名称"] != 2 || cols["编号"] != 3 || cols["外应存"] != 5 {
		t.Errorf("Columns = %v", cols)
	}
	if len(tb.Columns(9)) != 0 {
		t.Errorf("missing header row should give empty map")
	}
}

// TestSetCellGrows 测试写入时扩展
func TestSetCellGrows(t *testing.T) {
	tb := New("t")
	tb.SetCell(3, 4, 1.5)
	if tb.MaxRow() != 3 || tb.MaxCol() != 4 {
		t.Errorf("size = %dx%d, want 3x4", tb.MaxRow(), tb.MaxCol())
	}
	if tb.Cell(3, 4) != 1.5 {
		t.Errorf("Cell(3,4) = %v", tb.Cell(3, 4))
	}
	tb.SetCell(0, 1, "ignored")
	if tb.MaxRow() != 3 {
		t.Errorf("row 0 write should be ignored")
	}
}

// TestHighlightSideTable 测试高亮不进入业务数据
func TestHighlightSideTable(t *testing.T) {
	tb := FromRows("t", [][]model.Value{{"a", 1.0}})
	tb.SetHighlight(1, 2, model.HighlightSevereFocus)
	if tb.Cell(1, 2) != 1.0 {
		t.Errorf("highlight changed cell value")
	}
	if tb.Highlight(1, 2) != model.HighlightSevereFocus {
		t.Errorf("Highlight = %v", tb.Highlight(1, 2))
	}
	tb.SetHighlight(1, 2, model.HighlightNone)
	if tb.Highlight(1, 2) != model.HighlightNone {
		t.Errorf("highlight should be cleared")
	}

	tb.SetEmphasis(1, 2, model.EmphasisMuted)
	if e, ok := tb.Emphasis(1, 2); !ok || e != model.EmphasisMuted {
		t.Errorf("Emphasis = %v %v", e, ok)
	}
}

// TestDataRange 测试数据范围扫描
func TestDataRange(t *testing.T) {
	tb := FromRows("t", [][]model.Value{
		{"h"}, {"h"}, {"h"}, {"h"},
		{nil, "A"},
		{nil, "B"},
		{nil, "  "},
		{nil, "D"},
	})
	r := tb.DataRange(2, 5)
	if r.First != 5 || r.End != 7 || r.Len() != 2 {
		t.Errorf("DataRange = %+v, want [5,7)", r)
	}

	empty := tb.DataRange(2, 20)
	if empty.Len() != 0 {
		t.Errorf("range past end should be empty, got %+v", empty)
	}
}

// TestCloneIsIndependent 测试深拷贝
func TestCloneIsIndependent(t *testing.T) {
	tb := FromRows("t", [][]model.Value{{1.0}})
	tb.SetHighlight(1, 1, model.HighlightCriticalFocus)
	c := tb.Clone()
	c.SetCell(1, 1, 2.0)
	c.SetHighlight(1, 1, model.HighlightNone)
	if tb.Cell(1, 1) != 1.0 || tb.Highlight(1, 1) != model.HighlightCriticalFocus {
		t.Errorf("clone mutated source")
	}
	dirty := c.Dirty()
	if len(dirty) != 1 {
		t.Fatalf("clone dirty = %v", dirty)
	}
	if !dirty[0].Change.Has(ChangeValue) || !dirty[0].Change.Has(ChangeHighlight) || dirty[0].Change.Has(ChangeEmphasis) {
		t.Errorf("change flags = %b", dirty[0].Change)
	}
}

// TestConcurrentAccess 测试并发读写
func TestConcurrentAccess(t *testing.T) {
	tb := New("t")
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()
			tb.SetCell(row, 1, float64(row))
			_ = tb.Cell(row, 1)
		}(i)
	}
	wg.Wait()
	if tb.MaxRow() != 50 {
		t.Errorf("MaxRow = %d, want 50", tb.MaxRow())
	}
}
