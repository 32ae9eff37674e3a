package parser

import (
	"strings"

	"stockrecon/internal/code"
	"stockrecon/internal/model"
)

// HomeStockOptions 家里库存提取选项
type HomeStockOptions struct {
	HeaderRow       int
	WarehouseColumn string // 仓库列，为空时不过滤
	Warehouse       string // 只保留该仓库（成品库）
	CodeColumn      string // 已整理的编号列，存在时优先使用
	NameColumn      string // 存货名称，编号列缺失时从名称取前 5 位
	QuantityColumn  string
	Field           string // 目标字段名
}

// DemandOptions 量化需求提取选项
type DemandOptions struct {
	HeaderRow    int
	CodeColumn   string
	ValueColumns []string
	Fields       []string // 与 ValueColumns 一一对应
}

// MovementOptions 外仓出入库明细汇总选项
type MovementOptions struct {
	HeaderRow      int
	CategoryColumn string // 库存变动类别
	CodeColumn     string // 美的编码
	InColumn       string // 本期收入
	OutColumn      string // 本期发出
	DateColumn     string // 出入库日期，只做存在性检查
	InboundLabel   string
	OutboundLabel  string
	OutboundField  string
	InboundField   string
}

// ExtractHomeStock 提取家里库存，每行一个 (编码, 数量)
func ExtractHomeStock(sheet string, rows [][]string, opts HomeStockOptions) (model.Source, error) {
	src := model.Source{Name: sheet, Fields: []string{opts.Field}}

	header, err := headerAt(sheet, rows, opts.HeaderRow)
	if err != nil {
		return src, err
	}

	qtyCol, ok := ResolveColumn(header, opts.QuantityColumn)
	if !ok {
		return src, model.MissingColumns(sheet, opts.QuantityColumn)
	}
	codeCol, hasCode := ResolveColumn(header, opts.CodeColumn)
	nameCol, hasName := ResolveColumn(header, opts.NameColumn)
	if !hasCode && !hasName {
		return src, model.MissingColumns(sheet, opts.CodeColumn, opts.NameColumn)
	}
	whCol := 0
	if opts.WarehouseColumn != "" && opts.Warehouse != "" {
		if whCol, ok = ResolveColumn(header, opts.WarehouseColumn); !ok {
			return src, model.MissingColumns(sheet, opts.WarehouseColumn)
		}
	}

	for i := opts.HeaderRow; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		if whCol > 0 && getCell(row, whCol) != opts.Warehouse {
			continue
		}

		var key model.Value
		if hasCode {
			key = getCell(row, codeCol)
		} else {
			key = code.HomeStockCode(getCell(row, nameCol))
		}

		src.Rows = append(src.Rows, model.SourceRow{
			Line:   i + 1,
			Key:    key,
			Values: []model.Value{cellValue(getCell(row, qtyCol))},
		})
	}
	return src, nil
}

// ExtractDemand 提取量化需求，每行一个编码对应多个值
func ExtractDemand(sheet string, rows [][]string, opts DemandOptions) (model.Source, error) {
	src := model.Source{Name: sheet, Fields: opts.Fields}
	if len(opts.ValueColumns) != len(opts.Fields) {
		return src, model.InvalidConfig(sheet, "demand value columns (%d) and fields (%d) differ",
			len(opts.ValueColumns), len(opts.Fields))
	}

	header, err := headerAt(sheet, rows, opts.HeaderRow)
	if err != nil {
		return src, err
	}

	var missing []string
	codeCol, ok := ResolveColumn(header, opts.CodeColumn)
	if !ok {
		missing = append(missing, opts.CodeColumn)
	}
	valueCols := make([]int, len(opts.ValueColumns))
	for i, ref := range opts.ValueColumns {
		col, ok := ResolveColumn(header, ref)
		if !ok {
			missing = append(missing, ref)
			continue
		}
		valueCols[i] = col
	}
	if len(missing) > 0 {
		return src, model.MissingColumns(sheet, missing...)
	}

	for i := opts.HeaderRow; i < len(rows); i++ {
		row := rows[i]
		key := getCell(row, codeCol)
		if key == "" {
			continue
		}
		values := make([]model.Value, len(valueCols))
		for j, col := range valueCols {
			values[j] = cellValue(getCell(row, col))
		}
		src.Rows = append(src.Rows, model.SourceRow{Line: i + 1, Key: key, Values: values})
	}
	return src, nil
}

// SummarizeMovements 按编码汇总外仓出入库明细
// 入库累加本期收入，出库累加本期发出，其他类别只计数
func SummarizeMovements(sheet string, rows [][]string, opts MovementOptions) (model.Source, MovementStats, error) {
	src := model.Source{Name: sheet, Fields: []string{opts.OutboundField, opts.InboundField}}
	stats := MovementStats{}

	header, err := headerAt(sheet, rows, opts.HeaderRow)
	if err != nil {
		return src, stats, err
	}

	refs := []string{opts.CategoryColumn, opts.CodeColumn, opts.InColumn, opts.OutColumn}
	if opts.DateColumn != "" {
		refs = append(refs, opts.DateColumn)
	}
	cols := make([]int, len(refs))
	var missing []string
	for i, ref := range refs {
		col, ok := ResolveColumn(header, ref)
		if !ok {
			missing = append(missing, ref)
			continue
		}
		cols[i] = col
	}
	if len(missing) > 0 {
		return src, stats, model.MissingColumns(sheet, missing...)
	}
	catCol, codeCol, inCol, outCol := cols[0], cols[1], cols[2], cols[3]

	type totals struct {
		line    int
		in, out float64
	}
	sums := make(map[string]*totals)
	order := make([]string, 0)

	for i := opts.HeaderRow; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		stats.Rows++

		key := getCell(row, codeCol)
		category := getCell(row, catCol)
		switch category {
		case opts.InboundLabel, opts.OutboundLabel:
		default:
			stats.Other++
			continue
		}

		t, ok := sums[key]
		if !ok {
			t = &totals{line: i + 1}
			sums[key] = t
			order = append(order, key)
		}
		if category == opts.InboundLabel {
			stats.Inbound++
			t.in += Float(getCell(row, inCol))
		} else {
			stats.Outbound++
			t.out += Float(getCell(row, outCol))
		}
	}

	for _, key := range order {
		t := sums[key]
		src.Rows = append(src.Rows, model.SourceRow{
			Line:   t.line,
			Key:    key,
			Values: []model.Value{t.out, t.in},
		})
	}
	stats.Codes = len(order)
	return src, stats, nil
}

func headerAt(sheet string, rows [][]string, headerRow int) (map[string]int, error) {
	if headerRow <= 0 || headerRow > len(rows) {
		return nil, model.InvalidConfig(sheet, "header row %d out of range (sheet has %d rows)", headerRow, len(rows))
	}
	return HeaderIndex(rows[headerRow-1]), nil
}

// cellValue 文本单元格转值：空为 nil，可解析为数值时为 float64
func cellValue(s string) model.Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, ok := ToFloat(s); ok {
		return f
	}
	return s
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
