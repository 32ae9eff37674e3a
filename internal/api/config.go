package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetConfig 获取当前生效的配置
// GET /api/config
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"workbook":  h.cfg.Workbook,
		"sources":   h.cfg.Sources,
		"metrics":   h.cfg.Metrics,
		"classify":  h.cfg.Classify,
		"aggregate": h.cfg.Aggregate,
	})
}
