// Package util 命令行辅助
package util

import (
	"os/exec"
	"runtime"
)

// openCommand 各平台打开文件或网址的命令
func openCommand(target string) *exec.Cmd {
	switch runtime.GOOS {
	case "windows":
		// rundll32 在 Windows 7 上也可用
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	case "darwin":
		return exec.Command("open", target)
	default:
		return exec.Command("xdg-open", target)
	}
}

// Open 用系统默认程序打开网址或本地文件（摘要 HTML、结果工作簿）
// 默认方式失败时依次尝试备选程序
func Open(target string) error {
	err := openCommand(target).Start()
	if err == nil {
		return nil
	}

	var fallbacks []string
	switch runtime.GOOS {
	case "windows":
		fallbacks = []string{"explorer"}
	case "linux":
		fallbacks = []string{"sensible-browser", "google-chrome", "firefox"}
	}
	for _, name := range fallbacks {
		if exec.Command(name, target).Start() == nil {
			return nil
		}
	}
	return err
}
