// Package aggregate 数据区之后的合计行
package aggregate

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockrecon/internal/model"
	"stockrecon/internal/parser"
)

// Column 参与合计的列
type Column struct {
	Col         int
	Header      string
	NonNegative bool // 只累加 > 0 的值
}

// Aggregator 合计器
type Aggregator struct {
	columns []Column
	logger  *zap.Logger
}

// New 创建合计器
func New(columns []Column, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{columns: columns, logger: logger}
}

// Validate 合计列不得包含数据范围的判定列，否则重跑时合计行会被当作数据行
func Validate(table string, columns []Column, keyCol int) error {
	seen := make(map[int]bool, len(columns))
	for _, c := range columns {
		if c.Col <= 0 {
			return model.MissingColumns(table, c.Header)
		}
		if c.Col == keyCol {
			return model.InvalidConfig(table, "sum column %s is the data range key column", parser.ColumnLetter(c.Col))
		}
		if seen[c.Col] {
			return model.InvalidConfig(table, "sum column %s listed twice", parser.ColumnLetter(c.Col))
		}
		seen[c.Col] = true
	}
	return nil
}

// Sum 计算一列合计，非数值按 0
func Sum(store model.TabularStore, col int, rng model.RowRange, nonNegative bool) float64 {
	total := decimal.Zero
	for row := rng.First; row < rng.End; row++ {
		f := parser.Float(store.Cell(row, col))
		if nonNegative && f <= 0 {
			continue
		}
		total = total.Add(decimal.NewFromFloat(f))
	}
	v, _ := total.Float64()
	return v
}

// Apply 写入合计行（数据范围之后紧邻的一行），重复执行覆盖原值
func (a *Aggregator) Apply(store model.TabularStore, rng model.RowRange) model.AggregateReport {
	report := model.AggregateReport{SummaryRow: rng.End}

	for _, c := range a.columns {
		total := Sum(store, c.Col, rng, c.NonNegative)
		store.SetCell(rng.End, c.Col, total)
		report.Totals = append(report.Totals, model.ColumnTotal{
			Column:      parser.ColumnLetter(c.Col),
			Header:      c.Header,
			Total:       total,
			NonNegative: c.NonNegative,
		})
	}

	a.logger.Info("summary row written",
		zap.Int("row", report.SummaryRow),
		zap.Int("columns", len(report.Totals)),
	)
	return report
}
