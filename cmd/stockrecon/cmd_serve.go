package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stockrecon/internal/server"
	"stockrecon/internal/util"
)

var (
	servePort int
	serveDev  bool
	serveOpen bool
)

// serveCmd HTTP 服务
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务（上传运行、历史、摘要、下载）",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "服务端口 (覆盖配置文件)")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "开发模式")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "启动后打开浏览器")
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if serveDev {
		cfg.Server.DevMode = true
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	banner("stockrecon - 库存对账服务")
	srv := server.NewServer(cfg, st, logger)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d/api/status", cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		errCh <- srv.Run(addr)
	}()

	if serveOpen {
		if err := util.Open(url); err != nil {
			fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
		}
	}
	fmt.Println("\n按 Ctrl+C 停止服务...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("服务启动失败: %w", err)
	case <-quit:
		logger.Info("shutting down", zap.Int("port", cfg.Server.Port))
		fmt.Println("\n正在关闭服务...")
	}
	return nil
}
