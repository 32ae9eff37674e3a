package parser

import (
	"errors"
	"testing"

	"stockrecon/internal/model"
)

func TestExtractHomeStock_FiltersWarehouseAndDerivesCode(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"仓库", "存货名称", "主数量"},
		{"成品库", "0023-KFR空调", "12"},
		{"原料库", "00514压缩机", "99"},
		{"成品库", "00514压缩机", "1,200"},
		{"成品库", "美的空调外机", "3"},
		{},
	}

	src, err := ExtractHomeStock("第一页", rows, HomeStockOptions{
		HeaderRow:       1,
		WarehouseColumn: "仓库",
		Warehouse:       "成品库",
		NameColumn:      "存货名称",
		QuantityColumn:  "主数量",
		Field:           "家里库存",
	})
	if err != nil {
		t.Fatalf("ExtractHomeStock: %v", err)
	}
	if src.Len() != 3 {
		t.Fatalf("rows=%d, want 3", src.Len())
	}
	if src.Rows[0].Key != "0023-" || src.Rows[0].Values[0] != 12.0 {
		t.Fatalf("row0=%+v", src.Rows[0])
	}
	if src.Rows[1].Key != "00514" || src.Rows[1].Values[0] != 1200.0 || src.Rows[1].Line != 4 {
		t.Fatalf("row1=%+v", src.Rows[1])
	}
	if src.Rows[2].Key != "" {
		t.Fatalf("all-han name should give empty key, got %v", src.Rows[2].Key)
	}
}

func TestExtractHomeStock_MissingColumn(t *testing.T) {
	t.Parallel()

	_, err := ExtractHomeStock("第一页", [][]string{{"仓库", "存货名称"}}, HomeStockOptions{
		HeaderRow:      1,
		NameColumn:     "存货名称",
		QuantityColumn: "主数量",
	})
	var cfgErr *model.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("want ConfigError, got %v", err)
	}
	if len(cfgErr.Missing) != 1 || cfgErr.Missing[0] != "主数量" {
		t.Fatalf("missing=%v", cfgErr.Missing)
	}
}

func TestExtractDemand(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"编码", "外应存", "家应存", "月计划"},
		{"00514", "10", "", "300"},
		{"", "1", "1", "1"},
		{"10023", "x", "5", "20"},
	}
	src, err := ExtractDemand("2503", rows, DemandOptions{
		HeaderRow:    1,
		CodeColumn:   "A",
		ValueColumns: []string{"B", "C", "D"},
		Fields:       []string{"外应存", "家应存", "月计划"},
	})
	if err != nil {
		t.Fatalf("ExtractDemand: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("rows=%d, want 2", src.Len())
	}
	first := src.Rows[0]
	if first.Values[0] != 10.0 || first.Values[1] != nil || first.Values[2] != 300.0 {
		t.Fatalf("values=%v", first.Values)
	}
	if src.Rows[1].Values[0] != "x" {
		t.Fatalf("text value should be kept, got %v", src.Rows[1].Values[0])
	}
}

func TestSummarizeMovements(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"外仓出入库明细"},
		{},
		{"美的编码", "库存变动类别", "本期收入", "本期发出", "出入库日期"},
		{"A1", "入库", "10", "", "2025-03-01"},
		{"A1", "出库", "", "4", "2025-03-02"},
		{"A1", "入库", "5", "", "2025-03-03"},
		{"B2", "出库", "", "7", "2025-03-03"},
		{"B2", "盘点", "1", "", "2025-03-04"},
	}
	src, stats, err := SummarizeMovements("出入库明细表", rows, MovementOptions{
		HeaderRow:      3,
		CategoryColumn: "库存变动类别",
		CodeColumn:     "美的编码",
		InColumn:       "本期收入",
		OutColumn:      "本期发出",
		DateColumn:     "出入库日期",
		InboundLabel:   "入库",
		OutboundLabel:  "出库",
		OutboundField:  "外仓出库总量",
		InboundField:   "外仓入库总量",
	})
	if err != nil {
		t.Fatalf("SummarizeMovements: %v", err)
	}
	if stats.Rows != 5 || stats.Inbound != 2 || stats.Outbound != 2 || stats.Other != 1 || stats.Codes != 2 {
		t.Fatalf("stats=%+v", stats)
	}
	if src.Rows[0].Key != "A1" || src.Rows[0].Values[0] != 4.0 || src.Rows[0].Values[1] != 15.0 {
		t.Fatalf("A1=%+v", src.Rows[0])
	}
	if src.Rows[1].Key != "B2" || src.Rows[1].Values[0] != 7.0 || src.Rows[1].Values[1] != 0.0 {
		t.Fatalf("B2=%+v", src.Rows[1])
	}
}
