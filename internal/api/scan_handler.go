package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"GigScout/internal/model"
	"GigScout/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Scanner 执行一次完整扫描
type Scanner interface {
	Run(ctx context.Context) (model.ScanReport, error)
}

// ScanHandler 触发扫描（定时任务或手动调用）
type ScanHandler struct {
	scanner Scanner
	secret  string
	logger  *logrus.Logger
}

// NewScanHandler secret 为空时不校验调用方
func NewScanHandler(scanner Scanner, secret string, logger *logrus.Logger) *ScanHandler {
	return &ScanHandler{scanner: scanner, secret: secret, logger: logger}
}

// RunScan 运行所有bot并融合
// GET|POST /api/bots/scan  Authorization: Bearer <secret> 或 ?key=<secret>
func (h *ScanHandler) RunScan(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	report, err := h.scanner.Run(c.Request.Context())
	if errors.Is(err, service.ErrScanInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("扫描失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *ScanHandler) authorized(c *gin.Context) bool {
	if h.secret == "" {
		return true
	}
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" || token == c.GetHeader("Authorization") {
		token = c.Query("key")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}
