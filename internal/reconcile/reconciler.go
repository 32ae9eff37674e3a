// Package reconcile 按产品编码把源数据回填到目标表
package reconcile

import (
	"fmt"

	"go.uber.org/zap"

	"stockrecon/internal/code"
	"stockrecon/internal/model"
)

// Reconciler 回填器
type Reconciler struct {
	logger *zap.Logger
}

// NewReconciler 创建回填器，logger 可为 nil
func NewReconciler(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// Reconcile 按编码形态回填
// "dddd-" 走后缀索引，不超过 5 位的纯数字走完整编码索引，其他形态记为无法识别
// targets 与 src.Fields 一一对应，为目标表列号
func (r *Reconciler) Reconcile(store model.TabularStore, ix *Index, src model.Source, targets []int) (model.ReconcileReport, error) {
	report := model.ReconcileReport{Source: src.Name, SourceRows: src.Len(), Unmatched: []model.Unmatched{}}
	if err := checkTargets(src, targets); err != nil {
		return report, err
	}

	hits := make(map[int]int)
	for _, sr := range src.Rows {
		kind, key := code.Shape(sr.Key)
		if kind == code.KindUnknown {
			report.Unmatched = append(report.Unmatched, model.Unmatched{
				Line: sr.Line, RawCode: code.Text(sr.Key), Reason: model.ReasonFormat,
			})
			continue
		}

		row, ok := ix.Lookup(kind, key)
		if !ok {
			report.Unmatched = append(report.Unmatched, model.Unmatched{
				Line: sr.Line, RawCode: code.Text(sr.Key), Reason: model.ReasonNoTarget,
			})
			continue
		}

		if kind == code.KindSuffix {
			report.SuffixMatched++
		} else {
			report.FullMatched++
		}
		write(store, row, targets, sr.Values)
		hits[row]++
	}

	finish(&report, hits)
	r.logger.Info("reconcile pass finished",
		zap.String("source", src.Name),
		zap.Int("suffix", report.SuffixMatched),
		zap.Int("full", report.FullMatched),
		zap.Int("unmatched", len(report.Unmatched)),
		zap.Int("overwritten", report.Overwritten),
	)
	return report, nil
}

// JoinExact 按原值精确匹配回填（外仓出入库按美的编码匹配目标表 B 列）
func (r *Reconciler) JoinExact(store model.TabularStore, keyCol int, rng model.RowRange, src model.Source, targets []int) (model.ReconcileReport, error) {
	report := model.ReconcileReport{Source: src.Name, SourceRows: src.Len(), Unmatched: []model.Unmatched{}}
	if err := checkTargets(src, targets); err != nil {
		return report, err
	}

	ix := exactIndex(store, keyCol, rng)
	hits := make(map[int]int)
	for _, sr := range src.Rows {
		key := code.Text(sr.Key)
		if key == "" {
			report.Unmatched = append(report.Unmatched, model.Unmatched{
				Line: sr.Line, Reason: model.ReasonFormat,
			})
			continue
		}
		rows, ok := ix[key]
		if !ok {
			report.Unmatched = append(report.Unmatched, model.Unmatched{
				Line: sr.Line, RawCode: key, Reason: model.ReasonNoTarget,
			})
			continue
		}
		report.ExactMatched++
		// 目标表里重复的键每一行都写入
		for _, row := range rows {
			write(store, row, targets, sr.Values)
			hits[row]++
		}
	}

	finish(&report, hits)
	r.logger.Info("exact join finished",
		zap.String("source", src.Name),
		zap.Int("matched", report.ExactMatched),
		zap.Int("unmatched", len(report.Unmatched)),
	)
	return report, nil
}

// FillCodes 由原始编码列生成规范化编号列，返回写入的行数
// 原始值没有数字时保留编号列原有内容
func FillCodes(store model.TabularStore, rawCol, codeCol int, rng model.RowRange) int {
	n := 0
	for row := rng.First; row < rng.End; row++ {
		c := code.Normalize(store.Cell(row, rawCol))
		if c == "" {
			continue
		}
		store.SetCell(row, codeCol, c)
		n++
	}
	return n
}

func checkTargets(src model.Source, targets []int) error {
	if len(targets) != len(src.Fields) {
		return model.InvalidConfig(src.Name, "source has %d fields but %d target columns", len(src.Fields), len(targets))
	}
	for i, col := range targets {
		if col <= 0 {
			return model.MissingColumns(src.Name, src.Fields[i])
		}
	}
	for _, sr := range src.Rows {
		if len(sr.Values) != len(targets) {
			return fmt.Errorf("source %s line %d: %d values, want %d", src.Name, sr.Line, len(sr.Values), len(targets))
		}
	}
	return nil
}

func write(store model.TabularStore, row int, targets []int, values []model.Value) {
	for i, col := range targets {
		store.SetCell(row, col, values[i])
	}
}

func finish(report *model.ReconcileReport, hits map[int]int) {
	report.UpdatedRows = len(hits)
	for _, n := range hits {
		if n > 1 {
			report.Overwritten += n - 1
		}
	}
}
