package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockrecon/internal/model"
)

func sampleRun() *model.RunReport {
	return &model.RunReport{
		RunID: "r1",
		File:  "总库存1019.xlsx",
		Sheet: "库存表",
		Range: model.RowRange{First: 5, End: 8},
		Reconcile: []model.ReconcileReport{
			{Source: "家里库存", Unmatched: []model.Unmatched{{Line: 3, RawCode: "X", Reason: model.ReasonFormat}}},
			{Source: "需求计划"},
		},
		Classify: model.ClassifyReport{
			Counts: map[model.Category]int{model.CategoryCritical: 1, model.CategorySevere: 1, model.CategoryModerate: 1},
			Rows: []model.RowOutcome{
				{Row: 5, Code: "00514", Name: "空调|挂机", Category: model.CategoryCritical, Baseline: 1200, Metric: 100},
				{Row: 6, Code: "00612", Category: model.CategoryModerate, Baseline: 100, Metric: 80},
				{Row: 7, Code: "04928", Category: model.CategorySevere, Baseline: 100, Metric: 60},
			},
		},
		Aggregate: model.AggregateReport{
			SummaryRow: 8,
			Totals: []model.ColumnTotal{
				{Column: "J", Header: "库存", Total: 1400},
				{Column: "P", Header: "月计划", Total: 5000},
				{Column: "R", Header: "外仓出库总量", Total: 1250.5},
			},
			Remaining:    3749.5,
			HasRemaining: true,
		},
	}
}

func TestBuild(t *testing.T) {
	s := Build(sampleRun())
	assert.Equal(t, 3, s.DataRows)
	require.Len(t, s.Shortages, 2)
	assert.Equal(t, "00514", s.Shortages[0].Code)
	assert.Equal(t, "04928", s.Shortages[1].Code)
	assert.Equal(t, map[string]int{"家里库存": 1}, s.Unmatched)
}

func TestBuild_EmptyReport(t *testing.T) {
	s := Build(&model.RunReport{})
	assert.NotNil(t, s.Counts)
	assert.Contains(t, s.Markdown(), "| CRITICAL | 0 |")
	assert.NotContains(t, s.Markdown(), "## 缺货物料")
}

func TestMarkdown(t *testing.T) {
	md := Build(sampleRun()).Markdown()

	assert.Contains(t, md, "物料有 **2** 款（CRITICAL 1，SEVERE 1）")
	assert.Contains(t, md, "| 5 | 00514 | 空调\\|挂机 | CRITICAL | 1,200.0 | 100.0 |")
	assert.NotContains(t, md, "| 00612 |", "moderate rows are not shortages")
	assert.Contains(t, md, "| 外仓出库总量 | 1,250.5 |")
	assert.Contains(t, md, "| 月预估还有要发货 | 3,749.5 |")
	assert.Contains(t, md, "- 家里库存：1 行")
}

func TestMarkdown_HeadlineCountsAllShortages(t *testing.T) {
	run := sampleRun()
	run.Classify = model.ClassifyReport{
		Counts: map[model.Category]int{model.CategoryCritical: 1, model.CategorySevere: 2},
		Rows: []model.RowOutcome{
			{Row: 5, Code: "00514", Category: model.CategoryCritical, Baseline: 0, Metric: 10},
			{Row: 6, Code: "00612", Category: model.CategorySevere, Baseline: 100, Metric: 150},
			{Row: 7, Code: "04928", Category: model.CategorySevere, Baseline: 20, Metric: 30},
		},
	}

	md := Build(run).Markdown()
	assert.Contains(t, md, "“外仓库存＜50%外仓应存数量”的物料有 **3** 款（CRITICAL 1，SEVERE 2）")
}

func TestHTML(t *testing.T) {
	html, err := Build(sampleRun()).HTML()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>00514</td>")
	assert.Contains(t, html, "<h1>库存缺货提醒</h1>")
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "1,234,567.9", Number(1234567.89))
	assert.Equal(t, "-5.0", Number(-5))
}
