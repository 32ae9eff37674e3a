package model

import "time"

// UnmatchedReason 未匹配原因
type UnmatchedReason string

const (
	ReasonFormat   UnmatchedReason = "format not recognized"
	ReasonNoTarget UnmatchedReason = "no matching target row"
)

// Unmatched 未能写入目标表的源数据行
type Unmatched struct {
	Line    int             `json:"line"`
	RawCode string          `json:"rawCode"`
	Reason  UnmatchedReason `json:"reason"`
}

// ReconcileReport 单次回填统计
type ReconcileReport struct {
	Source        string      `json:"source"`
	SourceRows    int         `json:"sourceRows"`
	SuffixMatched int         `json:"suffixMatched"`
	FullMatched   int         `json:"fullMatched"`
	ExactMatched  int         `json:"exactMatched"`
	Unmatched     []Unmatched `json:"unmatched"`
	UpdatedRows   int         `json:"updatedRows"` // 被写入的目标行数（去重）
	Overwritten   int         `json:"overwritten"` // 同一目标行被多条源数据命中的次数
}

// Matched 命中总数
func (r ReconcileReport) Matched() int {
	return r.SuffixMatched + r.FullMatched + r.ExactMatched
}

// CountReason 按原因统计未匹配行
func (r ReconcileReport) CountReason(reason UnmatchedReason) int {
	n := 0
	for _, u := range r.Unmatched {
		if u.Reason == reason {
			n++
		}
	}
	return n
}

// MetricsReport 衍生指标计算统计
type MetricsReport struct {
	Rows       int  `json:"rows"`
	Coerced    int  `json:"coerced"` // 非空但无法解析为数值、按 0 处理的单元格
	Muted      int  `json:"muted"`
	MonthlyGap bool `json:"monthlyGap"` // 是否计算了月计划缺口
}

// RowOutcome 单行分类结果
type RowOutcome struct {
	Row      int      `json:"row"`
	Code     string   `json:"code"`
	Name     string   `json:"name,omitempty"`
	Category Category `json:"category"`
	Baseline float64  `json:"baseline"`
	Metric   float64  `json:"metric"`
}

// ClassifyReport 分类统计
type ClassifyReport struct {
	Counts map[Category]int `json:"counts"`
	Rows   []RowOutcome     `json:"rows"`
}

// Shortages 返回 CRITICAL 与 SEVERE 行
func (r ClassifyReport) Shortages() []RowOutcome {
	out := make([]RowOutcome, 0)
	for _, o := range r.Rows {
		if o.Category.Shortage() {
			out = append(out, o)
		}
	}
	return out
}

// ColumnTotal 汇总行中一列的合计
type ColumnTotal struct {
	Column      string  `json:"column"` // 列字母
	Header      string  `json:"header"`
	Total       float64 `json:"total"`
	NonNegative bool    `json:"nonNegative"`
}

// AggregateReport 汇总行统计
type AggregateReport struct {
	SummaryRow int           `json:"summaryRow"`
	Totals     []ColumnTotal `json:"totals"`

	// Remaining 月计划合计减外仓出库合计，任一合计为 0 时为 0
	// HasRemaining 表示月计划列与外仓出库列都存在
	Remaining    float64 `json:"remaining"`
	HasRemaining bool    `json:"hasRemaining"`
}

// Total 按列字母查找合计
func (r AggregateReport) Total(column string) (float64, bool) {
	for _, t := range r.Totals {
		if t.Column == column {
			return t.Total, true
		}
	}
	return 0, false
}

// Stage 流水线阶段
type Stage string

const (
	StagePlan      Stage = "plan"
	StageFillCodes Stage = "fill_codes"
	StageReconcile Stage = "reconcile"
	StageMetrics   Stage = "metrics"
	StageClassify  Stage = "classify"
	StageAggregate Stage = "aggregate"
	StageSave      Stage = "save"
)

// RunReport 一次完整运行的报告
type RunReport struct {
	RunID      string            `json:"runId"`
	File       string            `json:"file"`
	Sheet      string            `json:"sheet"`
	Range      RowRange          `json:"range"`
	Stages     []Stage           `json:"stages"` // 已完成的阶段
	FilledCode int               `json:"filledCode"`
	Reconcile  []ReconcileReport `json:"reconcile"`
	Metrics    MetricsReport     `json:"metrics"`
	Classify   ClassifyReport    `json:"classify"`
	Aggregate  AggregateReport   `json:"aggregate"`
	DryRun     bool              `json:"dryRun"`
	Output     string            `json:"output,omitempty"` // 保存后的工作簿路径
	Backup     string            `json:"backup,omitempty"`
	Duration   time.Duration     `json:"duration"`
	Error      string            `json:"error,omitempty"`
}

// LastStage 最后完成的阶段
func (r *RunReport) LastStage() Stage {
	if len(r.Stages) == 0 {
		return ""
	}
	return r.Stages[len(r.Stages)-1]
}

// Done 记录阶段完成
func (r *RunReport) Done(s Stage) {
	r.Stages = append(r.Stages, s)
}
