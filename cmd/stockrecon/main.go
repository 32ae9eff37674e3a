// Package main stockrecon 命令行：库存对账、缺货分类与运行历史
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stockrecon/internal/config"
	"stockrecon/internal/logging"
	"stockrecon/internal/store"
)

var (
	configPath string
	dataDir    string
	verbose    bool

	cfg    *config.AppConfig
	logger *zap.Logger
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "stockrecon",
	Short: "总库存对账与缺货提醒",
	Long: `读取总库存工作簿，回填家里库存、需求计划与外仓出入库，
计算衍生指标，按可用库存标记缺货等级，写入合计行并保存。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, info, err := config.LoadConfigWithInfo(configPath)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		cfg = loaded
		if dataDir != "" {
			cfg.Data.DataDir = dataDir
		}

		logger, err = logging.New(cfg.Log.Level, cfg.Log.Development, verbose)
		if err != nil {
			return err
		}
		logger.Debug("config loaded",
			zap.String("path", info.Path),
			zap.Bool("from_file", info.FromFile),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径 (默认: 可执行文件同目录 config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "数据目录 (覆盖配置文件)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(summaryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore 打开运行历史数据库
func openStore() (*store.Store, error) {
	dir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	return store.New(filepath.Join(dir, "stockrecon.db"))
}

// resolveTarget 参数既可以是工作簿文件，也可以是所在目录
func resolveTarget(args []string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		cfg.Data.InputDir, err = filepath.Abs(args[0])
		return "", err
	}
	return args[0], nil
}

func banner(title string) {
	fmt.Println("==========================================")
	fmt.Printf("  %s\n", title)
	fmt.Println("==========================================")
}
