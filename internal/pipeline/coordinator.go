package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stockrecon/internal/aggregate"
	"stockrecon/internal/classify"
	"stockrecon/internal/config"
	"stockrecon/internal/metrics"
	"stockrecon/internal/model"
	"stockrecon/internal/parser"
	"stockrecon/internal/reconcile"
	"stockrecon/internal/sheet"
	"stockrecon/internal/store"
	"stockrecon/internal/workbook"
)

// 进度事件类型
const (
	EventStart   = "start"
	EventStage   = "stage"
	EventWarning = "warning"
	EventDone    = "done"
	EventError   = "error"
)

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/stage/warning/done/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// Options 运行选项
type Options struct {
	RunID        string // 为空时生成
	WorkbookPath string // 为空时在输入目录中查找最新的总库存文件
	DemandPath   string // 覆盖配置中的需求计划文件，非空即启用
	OutputPath   string // 为空时覆盖原文件
	DryRun       bool   // 只计算不保存
}

// Coordinator 运行协调器
type Coordinator struct {
	cfg        *config.AppConfig
	store      *store.Store
	recognizer *parser.SheetRecognizer
	logger     *zap.Logger
}

// NewCoordinator 创建协调器，st 为 nil 时不记录运行历史
func NewCoordinator(cfg *config.AppConfig, st *store.Store, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		cfg:        cfg,
		store:      st,
		recognizer: parser.NewSheetRecognizer(),
		logger:     logger,
	}
}

// Start 异步运行，返回进度通道；运行结束后通道关闭
func (c *Coordinator) Start(ctx context.Context, opts Options) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)

		report, err := c.Run(ctx, opts, func(e ProgressEvent) {
			c.sendProgress(progressChan, e)
		})
		final := ProgressEvent{Type: EventDone, Message: "运行完成", Data: report, Timestamp: time.Now()}
		if err != nil {
			final = ProgressEvent{Type: EventError, Message: err.Error(), Data: report, Timestamp: time.Now()}
		}
		select {
		case progressChan <- final:
		case <-ctx.Done():
		}
	}()

	return progressChan
}

// Run 同步执行一次完整运行
// 配置错误在任何修改之前检出；修改开始后出错时不保存工作簿，报告记录最后完成的阶段
func (c *Coordinator) Run(ctx context.Context, opts Options, progress func(ProgressEvent)) (*model.RunReport, error) {
	if progress == nil {
		progress = func(ProgressEvent) {}
	}
	startTime := time.Now()

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	report := &model.RunReport{
		RunID:  runID,
		Sheet:  c.cfg.Workbook.TargetSheet,
		DryRun: opts.DryRun,
	}

	path := opts.WorkbookPath
	if path == "" {
		found, err := workbook.FindLatest(config.InputDir(c.cfg), c.cfg.Workbook.FilePattern)
		if err != nil {
			report.Error = err.Error()
			return report, err
		}
		path = found
	}
	report.File = filepath.Base(path)

	if c.store != nil {
		if err := c.store.CreateRun(runID, report.File, opts.DryRun); err != nil {
			c.logger.Warn("record run failed", zap.Error(err))
		}
	}

	progress(ProgressEvent{
		Type:    EventStart,
		Message: "开始处理 " + report.File,
		Data: map[string]interface{}{
			"runId":  runID,
			"file":   report.File,
			"dryRun": opts.DryRun,
		},
		Timestamp: time.Now(),
	})

	err := c.execute(ctx, path, opts, report, progress)
	report.Duration = time.Since(startTime)
	if err != nil {
		report.Error = err.Error()
		c.logger.Error("run failed",
			zap.String("run_id", runID),
			zap.String("stage", string(report.LastStage())),
			zap.Error(err),
		)
	} else {
		c.logger.Info("run finished",
			zap.String("run_id", runID),
			zap.String("file", report.File),
			zap.Int("rows", report.Range.Len()),
			zap.Duration("duration", report.Duration),
			zap.Bool("dry_run", opts.DryRun),
		)
	}

	if c.store != nil {
		if ferr := c.store.FinishRun(report); ferr != nil {
			c.logger.Warn("record run result failed", zap.Error(ferr))
		}
	}
	return report, err
}

func (c *Coordinator) execute(ctx context.Context, path string, opts Options, report *model.RunReport, progress func(ProgressEvent)) error {
	wb, err := workbook.Open(path)
	if err != nil {
		return err
	}
	defer wb.Close()

	tb, err := wb.LoadTable(c.cfg.Workbook.TargetSheet)
	if err != nil {
		return err
	}

	useDemand := opts.DemandPath != "" || c.cfg.Sources.Demand.Enabled
	useMovement := c.cfg.Sources.Movement.Enabled

	plan, err := NewPlan(c.cfg, tb, useDemand, useMovement)
	if err != nil {
		return err
	}
	src, err := c.loadSources(wb, opts, useDemand, useMovement)
	if err != nil {
		return err
	}
	report.Range = plan.Range
	c.stageDone(report, model.StagePlan, progress, fmt.Sprintf("数据范围 %d-%d 行，共 %d 行",
		plan.Range.First, plan.Range.End-1, plan.Range.Len()), plan.Range)
	if plan.Range.Len() == 0 {
		progress(ProgressEvent{Type: EventWarning, Message: "数据范围为空", Timestamp: time.Now()})
	}
	if src.movement != nil {
		progress(ProgressEvent{
			Type:      EventStage,
			Message:   fmt.Sprintf("出入库明细 %d 行，汇总 %d 个编码", src.moves.Rows, src.moves.Codes),
			Data:      src.moves,
			Timestamp: time.Now(),
		})
	}

	// 以下开始修改内存表
	work := tb
	if opts.DryRun {
		work = tb.Clone()
	}

	if c.cfg.Workbook.FillCodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.FilledCode = reconcile.FillCodes(work, plan.KeyCol, plan.CodeCol, plan.Range)
		c.stageDone(report, model.StageFillCodes, progress, fmt.Sprintf("生成编号 %d 行", report.FilledCode), nil)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.reconcile(work, plan, src, report); err != nil {
		return err
	}
	c.stageDone(report, model.StageReconcile, progress, "回填完成", report.Reconcile)

	if err := ctx.Err(); err != nil {
		return err
	}
	report.Metrics = metrics.NewCalculator(plan.Metrics, c.logger).Apply(work, plan.Range)
	c.stageDone(report, model.StageMetrics, progress, fmt.Sprintf("计算 %d 行", report.Metrics.Rows), report.Metrics)

	if err := ctx.Err(); err != nil {
		return err
	}
	report.Classify = classify.New(plan.Classify, c.logger).Classify(work, plan.Range)
	c.stageDone(report, model.StageClassify, progress, fmt.Sprintf("缺货提醒 %d 行", len(report.Classify.Shortages())), report.Classify.Counts)

	if err := ctx.Err(); err != nil {
		return err
	}
	if c.cfg.Aggregate.Enabled {
		report.Aggregate = aggregate.New(plan.Aggregate, c.logger).Apply(work, plan.Range)
	}
	remaining(work, plan, &report.Aggregate)
	c.stageDone(report, model.StageAggregate, progress, fmt.Sprintf("合计行 %d", report.Aggregate.SummaryRow), report.Aggregate)

	if opts.DryRun {
		progress(ProgressEvent{Type: EventWarning, Message: "试运行，未保存工作簿", Timestamp: time.Now()})
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.save(wb, work, opts, report); err != nil {
		return err
	}
	c.stageDone(report, model.StageSave, progress, "已保存 "+filepath.Base(report.Output), nil)

	if c.store != nil {
		if err := c.store.SetMeta(store.MetaLastWorkbook, path); err != nil {
			c.logger.Warn("record last workbook failed", zap.Error(err))
		}
		if err := c.store.SetMeta(store.MetaLastRun, report.RunID); err != nil {
			c.logger.Warn("record last run failed", zap.Error(err))
		}
	}
	return nil
}

// loadSources 读取所有源数据，在修改目标表之前完成
func (c *Coordinator) loadSources(wb *workbook.Workbook, opts Options, useDemand, useMovement bool) (*sources, error) {
	src := &sources{}
	loc := &sheetLocator{wb: wb, recognizer: c.recognizer, logger: c.logger}
	baseDir := filepath.Dir(wb.Path())
	encoding := c.cfg.Sources.Home.Encoding

	if c.cfg.Sources.Home.Enabled {
		home, err := loadHome(c.cfg.Sources.Home, baseDir, loc)
		if err != nil {
			return nil, err
		}
		src.home = &home
	}
	if useDemand {
		path := opts.DemandPath
		if path == "" {
			path = resolvePath(baseDir, c.cfg.Sources.Demand.File)
		}
		demand, err := loadDemand(c.cfg.Sources.Demand, path, encoding)
		if err != nil {
			return nil, err
		}
		src.demand = &demand
	}
	if useMovement {
		movement, stats, err := loadMovement(c.cfg.Sources.Movement, loc)
		if err != nil {
			return nil, err
		}
		src.movement = &movement
		src.moves = stats
	}
	return src, nil
}

func (c *Coordinator) reconcile(work *sheet.Table, plan *Plan, src *sources, report *model.RunReport) error {
	rec := reconcile.NewReconciler(c.logger)
	report.Reconcile = []model.ReconcileReport{}

	if src.home != nil {
		ix := reconcile.BuildIndex(work, plan.CodeCol, plan.Range)
		if ix.Duplicates > 0 {
			c.logger.Warn("duplicate codes in target sheet", zap.Int("duplicates", ix.Duplicates))
		}
		r, err := rec.Reconcile(work, ix, *src.home, []int{plan.HomeTarget})
		if err != nil {
			return err
		}
		report.Reconcile = append(report.Reconcile, r)
	}
	if src.demand != nil {
		r, err := rec.JoinExact(work, plan.DemandMatch, plan.Range, *src.demand, plan.DemandTargets)
		if err != nil {
			return err
		}
		report.Reconcile = append(report.Reconcile, r)
	}
	if src.movement != nil {
		r, err := rec.JoinExact(work, plan.MovementMatch, plan.Range, *src.movement, plan.MovementTargets)
		if err != nil {
			return err
		}
		report.Reconcile = append(report.Reconcile, r)
	}
	return nil
}

func (c *Coordinator) save(wb *workbook.Workbook, work *sheet.Table, opts Options, report *model.RunReport) error {
	if c.cfg.Data.AutoBackup && opts.OutputPath == "" {
		backup, err := wb.Backup(config.GetDataPath(c.cfg, "backups", ""))
		if err != nil {
			return fmt.Errorf("backup workbook: %w", err)
		}
		report.Backup = backup
	}
	if err := wb.Apply(work, workbook.PaletteFromConfig(c.cfg.Classify.Colors)); err != nil {
		return err
	}
	out := opts.OutputPath
	if out == "" {
		out = wb.Path()
	}
	if err := wb.SaveAs(out); err != nil {
		return err
	}
	report.Output = out
	return nil
}

// remaining 月预估还要发货 = 月计划合计 - 外仓出库合计
// 两列都存在时 HasRemaining 为 true；任一合计为 0 时 Remaining 记 0
func remaining(tb model.TabularStore, plan *Plan, agg *model.AggregateReport) {
	if plan.PlanCol == 0 || plan.ShippedCol == 0 {
		return
	}
	total := func(col int) float64 {
		if v, ok := agg.Total(parser.ColumnLetter(col)); ok {
			return v
		}
		return aggregate.Sum(tb, col, plan.Range, false)
	}
	planned, shipped := total(plan.PlanCol), total(plan.ShippedCol)
	agg.HasRemaining = true
	if planned != 0 && shipped != 0 {
		agg.Remaining = planned - shipped
	}
}

func (c *Coordinator) stageDone(report *model.RunReport, stage model.Stage, progress func(ProgressEvent), msg string, data interface{}) {
	report.Done(stage)
	progress(ProgressEvent{
		Type:      EventStage,
		Message:   fmt.Sprintf("[%s] %s", stage, msg),
		Data:      data,
		Timestamp: time.Now(),
	})
}

// sendProgress 发送进度事件，通道已满时丢弃
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
	}
}
