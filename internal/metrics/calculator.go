// Package metrics 计算最小发货、排产、月计划缺口
package metrics

import (
	"go.uber.org/zap"

	"stockrecon/internal/model"
	"stockrecon/internal/parser"
)

// Columns 参与计算的列号，0 表示未配置
type Columns struct {
	ExternalStock   int // 外应存
	HomeRequirement int // 家应存
	HomeStock       int // 家里库存
	Reference       int // 基准列（J 列总库存）

	MinShip        int // 最小发货
	ProductionNeed int // 排产

	MonthlyPlan     int // 月计划
	TotalStock      int // 总库存
	ExternalShipped int // 外仓出库总量
	MonthlyGap      int // 月计划缺口
}

// HasMonthlyGap 月计划缺口所需列是否齐全
func (c Columns) HasMonthlyGap() bool {
	return c.MonthlyPlan > 0 && c.TotalStock > 0 && c.ExternalShipped > 0 && c.MonthlyGap > 0
}

// MinShip 最小发货 = 外应存 − 基准
func MinShip(externalStock, reference float64) float64 {
	return externalStock - reference
}

// ProductionNeed 排产 = 家应存 + 外应存 − 基准 − 家里库存
func ProductionNeed(homeRequirement, externalStock, reference, homeStock float64) float64 {
	return homeRequirement + externalStock - reference - homeStock
}

// MonthlyGap 月计划缺口 = 月计划 − 家里库存 − 总库存 − 外仓出库总量
func MonthlyGap(monthlyPlan, homeStock, totalStock, externalShipped float64) float64 {
	return monthlyPlan - homeStock - totalStock - externalShipped
}

// Calculator 衍生指标计算器
type Calculator struct {
	cols   Columns
	logger *zap.Logger
}

// NewCalculator 创建计算器
func NewCalculator(cols Columns, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{cols: cols, logger: logger}
}

// Apply 逐行计算并覆盖写入，值 ≤ 0 的结果灰显
func (c *Calculator) Apply(store model.TabularStore, rng model.RowRange) model.MetricsReport {
	report := model.MetricsReport{MonthlyGap: c.cols.HasMonthlyGap()}

	for row := rng.First; row < rng.End; row++ {
		read := func(col int) float64 {
			v := store.Cell(row, col)
			f, ok := parser.ToFloat(v)
			if !ok && !parser.IsEmpty(v) {
				report.Coerced++
			}
			return f
		}

		ext := read(c.cols.ExternalStock)
		homeReq := read(c.cols.HomeRequirement)
		home := read(c.cols.HomeStock)
		ref := read(c.cols.Reference)

		report.Muted += c.put(store, row, c.cols.MinShip, MinShip(ext, ref))
		report.Muted += c.put(store, row, c.cols.ProductionNeed, ProductionNeed(homeReq, ext, ref, home))

		if report.MonthlyGap {
			plan := read(c.cols.MonthlyPlan)
			total := read(c.cols.TotalStock)
			shipped := read(c.cols.ExternalShipped)
			report.Muted += c.put(store, row, c.cols.MonthlyGap, MonthlyGap(plan, home, total, shipped))
		}
		report.Rows++
	}

	c.logger.Info("derived metrics computed",
		zap.Int("rows", report.Rows),
		zap.Int("coerced", report.Coerced),
		zap.Int("muted", report.Muted),
		zap.Bool("monthly_gap", report.MonthlyGap),
	)
	return report
}

// put 写入结果并设置灰显，返回 1 表示灰显
func (c *Calculator) put(store model.TabularStore, row, col int, v float64) int {
	store.SetCell(row, col, v)
	if v <= 0 {
		store.SetEmphasis(row, col, model.EmphasisMuted)
		return 1
	}
	store.SetEmphasis(row, col, model.EmphasisNormal)
	return 0
}
