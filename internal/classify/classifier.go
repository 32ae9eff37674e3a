// Package classify 缺货严重程度分类与高亮
package classify

import (
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"stockrecon/internal/code"
	"stockrecon/internal/model"
	"stockrecon/internal/parser"
)

// ContextPolicy 整行高亮策略
type ContextPolicy string

const (
	// ContextAll 范围内所有单元格都高亮（默认）
	ContextAll ContextPolicy = "all"
	// ContextNonEmpty 只高亮非空单元格
	ContextNonEmpty ContextPolicy = "non_empty"
)

// Span 列范围（闭区间）
type Span struct {
	From int
	To   int
}

// Options 分类选项，列号从 1 开始
type Options struct {
	CodeColumn     int // 跳过判断用的编号列
	NameColumn     int // 仅用于报告，可为 0
	BaselineColumn int // 基准 m
	MetricColumn   int // 指标 n
	SkipCodes      []string
	ContextSpans   []Span
	Policy         ContextPolicy
	ClearSkipped   bool // 跳过行清除已有高亮
}

// Classifier 分类器
type Classifier struct {
	opts   Options
	skip   map[string]struct{}
	logger *zap.Logger
}

// New 创建分类器，跳过编码统一规范为 5 位
func New(opts Options, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Policy == "" {
		opts.Policy = ContextAll
	}
	skip := lo.SliceToMap(lo.Filter(opts.SkipCodes, func(c string, _ int) bool {
		return code.Normalize(c) != ""
	}), func(c string) (string, struct{}) {
		return code.Normalize(c), struct{}{}
	})
	return &Classifier{opts: opts, skip: skip, logger: logger}
}

// Evaluate 根据基准和指标判定类别
//
//	metric ≤ 0                          → NONE
//	baseline == 0 或 baseline < 0       → CRITICAL
//	metric / baseline < 1               → MODERATE
//	metric / baseline ≥ 1               → SEVERE
func Evaluate(baseline, metric float64) model.Category {
	if metric <= 0 {
		return model.CategoryNone
	}
	if baseline == 0 || baseline < 0 {
		return model.CategoryCritical
	}
	if metric/baseline < 1 {
		return model.CategoryModerate
	}
	return model.CategorySevere
}

// Skipped 编码是否在跳过名单
func (c *Classifier) Skipped(normalized string) bool {
	_, ok := c.skip[normalized]
	return ok
}

// Classify 逐行分类并设置高亮
func (c *Classifier) Classify(store model.TabularStore, rng model.RowRange) model.ClassifyReport {
	report := model.ClassifyReport{
		Counts: make(map[model.Category]int, len(model.AllCategories)),
		Rows:   make([]model.RowOutcome, 0, rng.Len()),
	}

	for row := rng.First; row < rng.End; row++ {
		out := c.classifyRow(store, row)
		report.Counts[out.Category]++
		report.Rows = append(report.Rows, out)

		c.logger.Debug("row classified",
			zap.Int("row", row),
			zap.String("code", out.Code),
			zap.Float64("baseline", out.Baseline),
			zap.Float64("metric", out.Metric),
			zap.String("category", string(out.Category)),
		)
	}

	c.logger.Info("classification finished",
		zap.Int("critical", report.Counts[model.CategoryCritical]),
		zap.Int("moderate", report.Counts[model.CategoryModerate]),
		zap.Int("severe", report.Counts[model.CategorySevere]),
		zap.Int("skipped", report.Counts[model.CategorySkipped]),
	)
	return report
}

func (c *Classifier) classifyRow(store model.TabularStore, row int) model.RowOutcome {
	out := model.RowOutcome{
		Row:  row,
		Code: code.Normalize(store.Cell(row, c.opts.CodeColumn)),
	}
	if c.opts.NameColumn > 0 {
		out.Name = code.Text(store.Cell(row, c.opts.NameColumn))
	}

	if c.Skipped(out.Code) {
		out.Category = model.CategorySkipped
		if c.opts.ClearSkipped {
			c.paint(store, row, model.HighlightNone, model.HighlightNone, false)
		}
		return out
	}

	out.Baseline = parser.Float(store.Cell(row, c.opts.BaselineColumn))
	out.Metric = parser.Float(store.Cell(row, c.opts.MetricColumn))
	out.Category = Evaluate(out.Baseline, out.Metric)

	if focus := out.Category.Focus(); focus != model.HighlightNone {
		c.paint(store, row, focus, out.Category.Context(), c.opts.Policy == ContextNonEmpty)
	}
	return out
}

// paint 指标列设置 focus，其余范围设置 context（跳过指标列）
func (c *Classifier) paint(store model.TabularStore, row int, focus, context model.Highlight, nonEmptyOnly bool) {
	store.SetHighlight(row, c.opts.MetricColumn, focus)
	if context == model.HighlightNone && focus != model.HighlightNone {
		return
	}
	for _, span := range c.opts.ContextSpans {
		for col := span.From; col <= span.To; col++ {
			if col == c.opts.MetricColumn {
				continue
			}
			if nonEmptyOnly && parser.IsEmpty(store.Cell(row, col)) {
				continue
			}
			store.SetHighlight(row, col, context)
		}
	}
}

// ValidateSpans 检查范围合法且互不重叠
func ValidateSpans(table string, spans []Span) error {
	sorted := append([]Span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })
	for i, s := range sorted {
		if s.From <= 0 || s.To < s.From {
			return model.InvalidConfig(table, "invalid context range %s:%s",
				parser.ColumnLetter(s.From), parser.ColumnLetter(s.To))
		}
		if i > 0 && s.From <= sorted[i-1].To {
			return model.InvalidConfig(table, "context ranges %s:%s and %s:%s overlap",
				parser.ColumnLetter(sorted[i-1].From), parser.ColumnLetter(sorted[i-1].To),
				parser.ColumnLetter(s.From), parser.ColumnLetter(s.To))
		}
	}
	return nil
}
