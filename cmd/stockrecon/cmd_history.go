package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stockrecon/internal/report"
)

var (
	historyLimit  int
	summaryFormat string
	summaryOut    string
)

// historyCmd 运行历史
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "列出最近的运行记录",
	RunE:  runHistory,
}

// summaryCmd 某次运行的缺货摘要
var summaryCmd = &cobra.Command{
	Use:   "summary <run-id>",
	Short: "输出某次运行的缺货摘要 (Markdown 或 HTML)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummary,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "显示条数")
	summaryCmd.Flags().StringVarP(&summaryFormat, "format", "f", "md", "输出格式: md | html")
	summaryCmd.Flags().StringVarP(&summaryOut, "out", "o", "", "写入文件 (默认输出到终端)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("暂无运行记录")
		return nil
	}

	fmt.Printf("%-36s  %-19s  %-8s  %-20s  %6s  %4s  %4s  %4s\n",
		"ID", "开始时间", "状态", "文件", "行数", "CRIT", "SEV", "MOD")
	fmt.Println(strings.Repeat("─", 116))
	for _, r := range runs {
		status := r.Status
		if r.DryRun {
			status += "*"
		}
		fmt.Printf("%-36s  %-19s  %-8s  %-20s  %6d  %4d  %4d  %4d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), status, r.File,
			r.DataRows, r.Critical, r.Severe, r.Moderate)
		if r.Error != "" {
			fmt.Printf("    ✗ [%s] %s\n", r.Stage, r.Error)
		}
	}
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rep, err := st.GetReport(args[0])
	if err != nil {
		return err
	}
	if rep == nil {
		return fmt.Errorf("运行 %s 尚未结束", args[0])
	}

	summary := report.Build(rep)
	var out string
	switch summaryFormat {
	case "md", "markdown":
		out = summary.Markdown()
	case "html":
		if out, err = summary.HTML(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("不支持的格式: %s", summaryFormat)
	}

	if summaryOut == "" {
		fmt.Println(out)
		return nil
	}
	return os.WriteFile(summaryOut, []byte(out), 0644)
}
