package api

import (
	"context"
	"net/http"

	"GigScout/internal/model"

	"github.com/gin-gonic/gin"
)

// SanityChecker 自检
type SanityChecker interface {
	Check(ctx context.Context) model.SanityReport
}

type SanityHandler struct {
	checker SanityChecker
}

func NewSanityHandler(checker SanityChecker) *SanityHandler {
	return &SanityHandler{checker: checker}
}

// Sanity 数据库与单个bot的探测，结果中 ok 字段表示整体状态（始终返回200）
// GET /api/bots/sanity
func (h *SanityHandler) Sanity(c *gin.Context) {
	c.JSON(http.StatusOK, h.checker.Check(c.Request.Context()))
}

// Healthz 存活探针
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
