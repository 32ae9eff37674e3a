package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"stockrecon/internal/config"
	"stockrecon/internal/model"
	"stockrecon/internal/pipeline"
	"stockrecon/internal/report"
	"stockrecon/internal/util"
)

var (
	demandFile string
	dryRun     bool
	outputFile string
	openReport bool
)

// runCmd 完整运行
var runCmd = &cobra.Command{
	Use:   "run [workbook|dir]",
	Short: "对账、计算、分类并保存总库存工作簿",
	Long: `对总库存工作簿执行完整流程：
  - 由名称生成编号，回填家里库存、需求计划、外仓出入库
  - 计算最小发货、排产、月计划缺口
  - 按可用库存标记 CRITICAL / SEVERE / MODERATE
  - 写入合计行，备份后保存

未指定工作簿时，在输入目录中查找最新的 总库存*.xlsx。`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

// checkCmd 只检查配置
var checkCmd = &cobra.Command{
	Use:   "check [workbook|dir]",
	Short: "检查工作簿与配置是否匹配，不修改文件",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	runCmd.Flags().StringVarP(&demandFile, "demand", "d", "", "需求计划文件 (CSV 或 xlsx)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "只计算不保存")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "另存为 (默认覆盖原文件)")
	runCmd.Flags().BoolVar(&openReport, "open", false, "完成后在浏览器中打开缺货摘要")

	checkCmd.Flags().StringVarP(&demandFile, "demand", "d", "", "需求计划文件 (CSV 或 xlsx)")
}

func runRun(cmd *cobra.Command, args []string) error {
	path, err := resolveTarget(args)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	banner("stockrecon - 总库存对账")
	coordinator := pipeline.NewCoordinator(cfg, st, logger)
	var final pipeline.ProgressEvent
	for evt := range coordinator.Start(ctx, pipeline.Options{
		WorkbookPath: path,
		DemandPath:   demandFile,
		OutputPath:   outputFile,
		DryRun:       dryRun,
	}) {
		printEvent(evt)
		final = evt
	}

	rep, _ := final.Data.(*model.RunReport)
	if final.Type == pipeline.EventError {
		return errors.New(final.Message)
	}
	if rep == nil {
		return errors.New("运行被中断")
	}

	summary := report.Build(rep)
	fmt.Println()
	fmt.Println(summary.Markdown())

	if openReport {
		page, err := summary.HTML()
		if err != nil {
			return err
		}
		out := config.GetDataPath(cfg, "reports", rep.RunID+".html")
		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(out, []byte(page), 0644); err != nil {
			return err
		}
		if err := util.Open(out); err != nil {
			fmt.Printf("无法自动打开，请手动查看: %s\n", out)
		}
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	path, err := resolveTarget(args)
	if err != nil {
		return err
	}

	banner("stockrecon - 配置检查")
	res, err := pipeline.NewCoordinator(cfg, nil, logger).Check(path, demandFile)
	if err != nil {
		var cfgErr *model.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Printf("✗ %s: 缺少 %v\n", cfgErr.Table, cfgErr.Missing)
		}
		return err
	}

	fmt.Printf("✓ 工作簿: %s\n", res.File)
	fmt.Printf("✓ 工作表: %s，数据行 %d-%d（共 %d 行）\n",
		res.Plan.Sheet, res.Plan.Range.First, res.Plan.Range.End-1, res.Plan.Range.Len())
	for name, n := range res.Sources {
		fmt.Printf("✓ 源数据 %-16s %d 行\n", name, n)
	}
	return nil
}

func printEvent(evt pipeline.ProgressEvent) {
	switch evt.Type {
	case pipeline.EventWarning:
		fmt.Printf("! %s\n", evt.Message)
	case pipeline.EventError:
		fmt.Printf("✗ %s\n", evt.Message)
	case pipeline.EventDone:
		fmt.Printf("✓ %s\n", evt.Message)
	default:
		fmt.Printf("  %s\n", evt.Message)
	}
}
