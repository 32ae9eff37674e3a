// Package report 缺货提醒汇总：Markdown 文本与 HTML 页面
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"stockrecon/internal/model"
)

// Summary 一次运行的汇总
type Summary struct {
	RunID     string
	File      string
	Sheet     string
	DataRows  int
	DryRun    bool
	Counts    map[model.Category]int
	Shortages []model.RowOutcome
	Totals    []model.ColumnTotal
	Unmatched map[string]int // 源表名 → 未匹配行数

	Remaining    float64
	HasRemaining bool
}

// Build 由运行报告生成汇总
func Build(r *model.RunReport) Summary {
	s := Summary{
		RunID:        r.RunID,
		File:         r.File,
		Sheet:        r.Sheet,
		DataRows:     r.Range.Len(),
		DryRun:       r.DryRun,
		Counts:       r.Classify.Counts,
		Shortages:    r.Classify.Shortages(),
		Totals:       r.Aggregate.Totals,
		Unmatched:    make(map[string]int),
		Remaining:    r.Aggregate.Remaining,
		HasRemaining: r.Aggregate.HasRemaining,
	}
	if s.Counts == nil {
		s.Counts = make(map[model.Category]int)
	}
	for _, rec := range r.Reconcile {
		if len(rec.Unmatched) > 0 {
			s.Unmatched[rec.Source] += len(rec.Unmatched)
		}
	}
	return s
}

// Markdown 渲染为 Markdown 文本
func (s Summary) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# 库存缺货提醒\n\n")
	fmt.Fprintf(&b, "- 文件：%s\n", s.File)
	fmt.Fprintf(&b, "- 工作表：%s（%d 行）\n", s.Sheet, s.DataRows)
	if s.DryRun {
		b.WriteString("- 试运行，未保存\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "“外仓库存＜50%%外仓应存数量”的物料有 **%d** 款（CRITICAL %d，SEVERE %d）\n\n",
		len(s.Shortages), s.Counts[model.CategoryCritical], s.Counts[model.CategorySevere])

	b.WriteString("## 分类统计\n\n")
	b.WriteString("| 类别 | 行数 |\n|---|---:|\n")
	for _, c := range model.AllCategories {
		fmt.Fprintf(&b, "| %s | %d |\n", c, s.Counts[c])
	}
	b.WriteString("\n")

	if len(s.Shortages) > 0 {
		b.WriteString("## 缺货物料\n\n")
		b.WriteString("| 行 | 编号 | 名称 | 类别 | 库存 | 指标 |\n|---:|---|---|---|---:|---:|\n")
		for _, o := range s.Shortages {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
				o.Row, escape(o.Code), escape(o.Name), o.Category, Number(o.Baseline), Number(o.Metric))
		}
		b.WriteString("\n")
	}

	if len(s.Totals) > 0 || s.HasRemaining {
		b.WriteString("## 汇总信息\n\n")
		b.WriteString("| 项目 | 数值 |\n|---|---:|\n")
		for _, t := range s.Totals {
			label := t.Header
			if label == "" {
				label = t.Column
			}
			fmt.Fprintf(&b, "| %s | %s |\n", escape(label), Number(t.Total))
		}
		if s.HasRemaining {
			fmt.Fprintf(&b, "| 月预估还有要发货 | %s |\n", Number(s.Remaining))
		}
		b.WriteString("\n")
	}

	if len(s.Unmatched) > 0 {
		b.WriteString("## 未匹配\n\n")
		sources := lo.Keys(s.Unmatched)
		sort.Strings(sources)
		for _, source := range sources {
			fmt.Fprintf(&b, "- %s：%d 行\n", source, s.Unmatched[source])
		}
	}
	return b.String()
}

var page = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
table { border-collapse: collapse; margin-top: 10px; }
th, td { border: 1px solid #999; padding: 6px 10px; }
th { background-color: #f2f2f2; text-align: left; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML 把 Markdown 汇总渲染为完整 HTML 页面
func (s Summary) HTML() (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var body bytes.Buffer
	if err := md.Convert([]byte(s.Markdown()), &body); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}

	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{
		Title: "库存缺货提醒 " + s.File,
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// Number 千位分隔、保留一位小数
func Number(v float64) string {
	return message.NewPrinter(language.English).Sprintf("%.1f", v)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
