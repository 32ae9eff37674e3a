package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockrecon/internal/config"
	"stockrecon/internal/store"
	"stockrecon/internal/workbook"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	InputDir       string `json:"inputDir"`
	LatestWorkbook string `json:"latestWorkbook"` // 输入目录中最新的总库存文件
	LastWorkbook   string `json:"lastWorkbook"`   // 最近一次保存的工作簿
	LastRun        string `json:"lastRun"`
	TotalRuns      int    `json:"totalRuns"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{InputDir: config.InputDir(h.cfg)}

	if latest, err := workbook.FindLatest(resp.InputDir, h.cfg.Workbook.FilePattern); err == nil {
		resp.LatestWorkbook = latest
	}

	meta, err := h.store.AllMeta()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取状态失败"})
		return
	}
	resp.LastWorkbook = meta[store.MetaLastWorkbook]
	resp.LastRun = meta[store.MetaLastRun]

	runs, err := h.store.ListRuns(1000)
	if err == nil {
		resp.TotalRuns = len(runs)
	}

	c.JSON(http.StatusOK, resp)
}
