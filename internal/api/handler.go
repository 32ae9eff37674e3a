// Package api HTTP 接口
package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stockrecon/internal/config"
	"stockrecon/internal/pipeline"
	"stockrecon/internal/store"
)

// Handler API 处理器
type Handler struct {
	cfg         *config.AppConfig
	store       *store.Store
	coordinator *pipeline.Coordinator
	logger      *zap.Logger
}

// NewHandler 创建 API 处理器
func NewHandler(cfg *config.AppConfig, st *store.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:         cfg,
		store:       st,
		coordinator: pipeline.NewCoordinator(cfg, st, logger),
		logger:      logger,
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)
	// 配置
	router.GET("/config", h.GetConfig)

	// 运行
	router.POST("/runs", h.CreateRun)
	router.GET("/runs", h.ListRuns)
	router.GET("/runs/:id", h.GetRun)
	router.GET("/runs/:id/summary", h.GetSummary)
	router.GET("/runs/:id/download", h.Download)
}
