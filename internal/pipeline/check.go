package pipeline

import (
	"path/filepath"

	"stockrecon/internal/config"
	"stockrecon/internal/workbook"
)

// CheckResult 配置检查结果
type CheckResult struct {
	File    string
	Plan    *Plan
	Sources map[string]int // 源名称 -> 记录数
}

// Check 只做配置检查：解析目标表布局并读取源数据，不修改也不保存工作簿
// path 为空时在输入目录中查找最新的总库存文件
func (c *Coordinator) Check(path, demandPath string) (*CheckResult, error) {
	if path == "" {
		found, err := workbook.FindLatest(config.InputDir(c.cfg), c.cfg.Workbook.FilePattern)
		if err != nil {
			return nil, err
		}
		path = found
	}

	wb, err := workbook.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	tb, err := wb.LoadTable(c.cfg.Workbook.TargetSheet)
	if err != nil {
		return nil, err
	}
	useDemand := demandPath != "" || c.cfg.Sources.Demand.Enabled
	useMovement := c.cfg.Sources.Movement.Enabled

	plan, err := NewPlan(c.cfg, tb, useDemand, useMovement)
	if err != nil {
		return nil, err
	}
	src, err := c.loadSources(wb, Options{DemandPath: demandPath}, useDemand, useMovement)
	if err != nil {
		return nil, err
	}

	res := &CheckResult{File: filepath.Base(path), Plan: plan, Sources: map[string]int{}}
	for _, s := range src.all() {
		res.Sources[s.Name] = s.Len()
	}
	return res, nil
}
