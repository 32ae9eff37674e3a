package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"stockrecon/internal/config"
	"stockrecon/internal/pipeline"
	"stockrecon/internal/report"
	"stockrecon/internal/store"
)

// CreateRun 上传总库存文件并运行 (SSE 流式响应)
// POST /api/runs
// 表单字段：file（必填）、demand（可选，需求计划）、dryRun
func (h *Handler) CreateRun(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的表单数据"})
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}

	runID := uuid.NewString()
	uploadDir := config.GetDataPath(h.cfg, "uploads", runID)
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建上传目录失败"})
		return
	}
	defer os.RemoveAll(uploadDir)

	name := filepath.Base(files[0].Filename)
	workbookPath := filepath.Join(uploadDir, name)
	if err := c.SaveUploadedFile(files[0], workbookPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败"})
		return
	}

	opts := pipeline.Options{
		RunID:        runID,
		WorkbookPath: workbookPath,
		DryRun:       c.DefaultPostForm("dryRun", "false") == "true",
	}
	if demand := form.File["demand"]; len(demand) > 0 {
		opts.DemandPath = filepath.Join(uploadDir, "demand_"+filepath.Base(demand[0].Filename))
		if err := c.SaveUploadedFile(demand[0], opts.DemandPath); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "保存需求计划失败"})
			return
		}
	}
	if !opts.DryRun {
		outDir := config.GetDataPath(h.cfg, "outputs", "")
		if err := os.MkdirAll(outDir, 0755); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "创建输出目录失败"})
			return
		}
		opts.OutputPath = filepath.Join(outDir, runID+"_"+name)
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	h.logger.Info("run requested",
		zap.String("run_id", runID),
		zap.String("file", name),
		zap.Bool("dry_run", opts.DryRun),
	)

	for event := range h.coordinator.Start(c.Request.Context(), opts) {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}

// ListRuns 运行历史
// GET /api/runs?limit=20
func (h *Handler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.store.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询运行记录失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun 运行详情：记录、报告、未匹配行
// GET /api/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}
	rep, err := h.store.GetReport(run.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取运行报告失败"})
		return
	}
	unmatched, err := h.store.ListUnmatched(run.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取未匹配记录失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run":       run,
		"report":    rep,
		"unmatched": unmatched,
	})
}

// GetSummary 缺货提醒摘要
// GET /api/runs/:id/summary?format=md|html
func (h *Handler) GetSummary(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}
	rep, err := h.store.GetReport(run.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取运行报告失败"})
		return
	}
	if rep == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "运行尚未结束"})
		return
	}

	summary := report.Build(rep)
	switch c.DefaultQuery("format", "md") {
	case "md", "markdown":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(summary.Markdown()))
	case "html":
		page, err := summary.HTML()
		if err != nil {
			h.logger.Error("render summary failed", zap.String("run_id", run.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "生成摘要失败"})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	case "json":
		c.JSON(http.StatusOK, summary)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "不支持的格式"})
	}
}

// Download 下载运行结果工作簿
// GET /api/runs/:id/download
func (h *Handler) Download(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}
	if run.OutputPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "该运行没有输出文件"})
		return
	}
	if _, err := os.Stat(run.OutputPath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "输出文件已不存在"})
		return
	}

	c.Header("Content-Disposition", contentDisposition(run.File))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.File(run.OutputPath)
}

func (h *Handler) lookupRun(c *gin.Context) (*store.Run, bool) {
	run, err := h.store.GetRun(c.Param("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "运行记录不存在"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询运行记录失败"})
		return nil, false
	}
	return run, true
}

// contentDisposition 中文文件名用 RFC 5987 编码
func contentDisposition(name string) string {
	return fmt.Sprintf(`attachment; filename="result.xlsx"; filename*=UTF-8''%s`, url.PathEscape(name))
}
