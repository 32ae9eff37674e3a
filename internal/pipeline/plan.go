// Package pipeline 一次完整运行：检查配置、回填、计算、分类、合计、保存
package pipeline

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"stockrecon/internal/aggregate"
	"stockrecon/internal/classify"
	"stockrecon/internal/config"
	"stockrecon/internal/metrics"
	"stockrecon/internal/model"
	"stockrecon/internal/parser"
	"stockrecon/internal/sheet"
)

// Plan 解析后的目标表布局，所有列号在写入前确定
type Plan struct {
	Sheet string
	Range model.RowRange

	KeyCol  int
	CodeCol int
	NameCol int

	HomeTarget      int
	DemandTargets   []int
	DemandMatch     int
	MovementTargets []int // 出库、入库
	MovementMatch   int

	Metrics   metrics.Columns
	Classify  classify.Options
	Aggregate []aggregate.Column

	PlanCol    int // 月计划，用于剩余发货
	ShippedCol int // 外仓出库总量
}

// resolver 收集缺失的列，一次报告全部
type resolver struct {
	headers map[string]int
	missing []string
}

func (r *resolver) need(ref string) int {
	col, ok := parser.ResolveColumn(r.headers, ref)
	if !ok {
		r.missing = append(r.missing, ref)
	}
	return col
}

func (r *resolver) want(ref string) int {
	col, _ := parser.ResolveColumn(r.headers, ref)
	return col
}

// NewPlan 按配置解析目标表，任何列缺失或范围非法都返回 ConfigError，不修改表
// demand 与 movement 表示本次是否要回填这两类源数据
func NewPlan(cfg *config.AppConfig, tb *sheet.Table, demand, movement bool) (*Plan, error) {
	wc := cfg.Workbook
	name := tb.Name()
	if wc.HeaderRow <= 0 || wc.HeaderRow > tb.MaxRow() {
		return nil, model.InvalidConfig(name, "header row %d out of range (sheet has %d rows)", wc.HeaderRow, tb.MaxRow())
	}
	if wc.FirstRow <= wc.HeaderRow {
		return nil, model.InvalidConfig(name, "first data row %d must be after header row %d", wc.FirstRow, wc.HeaderRow)
	}

	r := &resolver{headers: tb.Columns(wc.HeaderRow)}
	p := &Plan{Sheet: name}

	p.KeyCol = r.need(wc.KeyColumn)
	p.CodeCol = r.need(wc.CodeColumn)
	p.NameCol = r.want(wc.NameColumn)

	if cfg.Sources.Home.Enabled {
		p.HomeTarget = r.need(cfg.Sources.Home.Target)
	}
	if demand {
		dc := cfg.Sources.Demand
		for _, t := range dc.Targets {
			p.DemandTargets = append(p.DemandTargets, r.need(t))
		}
		p.DemandMatch = r.need(dc.MatchColumn)
	}
	if movement {
		mc := cfg.Sources.Movement
		p.MovementTargets = []int{r.need(mc.OutboundTarget), r.need(mc.InboundTarget)}
		p.MovementMatch = r.need(mc.MatchColumn)
	}

	mc := cfg.Metrics
	p.Metrics = metrics.Columns{
		ExternalStock:   r.need(mc.ExternalStock),
		HomeRequirement: r.need(mc.HomeRequirement),
		HomeStock:       r.need(mc.HomeStock),
		Reference:       r.need(mc.Reference),
		MinShip:         r.need(mc.MinShip),
		ProductionNeed:  r.need(mc.ProductionNeed),
		MonthlyPlan:     r.want(mc.MonthlyPlan),
		TotalStock:      r.want(mc.TotalStock),
		ExternalShipped: r.want(mc.ExternalShipped),
		MonthlyGap:      r.want(mc.MonthlyGap),
	}
	p.PlanCol = p.Metrics.MonthlyPlan
	p.ShippedCol = p.Metrics.ExternalShipped

	cc := cfg.Classify
	p.Classify = classify.Options{
		CodeColumn:     r.need(cc.SkipColumn),
		NameColumn:     p.NameCol,
		BaselineColumn: r.need(cc.Baseline),
		MetricColumn:   r.need(cc.Metric),
		SkipCodes:      cc.SkipCodes,
		Policy:         classify.ContextPolicy(cc.ContextPolicy),
		ClearSkipped:   cc.ClearSkipped,
	}

	if cfg.Aggregate.Enabled {
		nonNeg := make(map[string]bool, len(cfg.Aggregate.NonNegative))
		for _, ref := range cfg.Aggregate.NonNegative {
			nonNeg[strings.ToUpper(strings.TrimSpace(ref))] = true
		}
		for _, ref := range cfg.Aggregate.Columns {
			col := r.need(ref)
			header, _ := tb.Cell(wc.HeaderRow, col).(string)
			p.Aggregate = append(p.Aggregate, aggregate.Column{
				Col:         col,
				Header:      strings.TrimSpace(header),
				NonNegative: nonNeg[strings.ToUpper(strings.TrimSpace(ref))],
			})
		}
	}

	if len(r.missing) > 0 {
		return nil, model.MissingColumns(name, r.missing...)
	}

	spans, err := contextSpans(name, cc.ContextRanges)
	if err != nil {
		return nil, err
	}
	if err := classify.ValidateSpans(name, spans); err != nil {
		return nil, err
	}
	p.Classify.ContextSpans = spans

	if cfg.Aggregate.Enabled {
		if err := aggregate.Validate(name, p.Aggregate, p.KeyCol); err != nil {
			return nil, err
		}
	}

	p.Range = tb.DataRange(p.KeyCol, wc.FirstRow)
	return p, nil
}

func contextSpans(table string, ranges []string) ([]classify.Span, error) {
	spans := make([]classify.Span, 0, len(ranges))
	for _, r := range ranges {
		from, to, ok := config.SplitRange(r)
		if !ok {
			return nil, model.InvalidConfig(table, "context range %q must look like A:K", r)
		}
		a, err := excelize.ColumnNameToNumber(from)
		if err != nil {
			return nil, model.InvalidConfig(table, "context range %q: %v", r, err)
		}
		b, err := excelize.ColumnNameToNumber(to)
		if err != nil {
			return nil, model.InvalidConfig(table, "context range %q: %v", r, err)
		}
		spans = append(spans, classify.Span{From: a, To: b})
	}
	return spans, nil
}
