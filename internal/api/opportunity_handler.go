package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"GigScout/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// OpportunityReader 机会读接口
type OpportunityReader interface {
	List(ctx context.Context, goal, limit int) service.OpportunityList
	Get(ctx context.Context, id string) (*service.OpportunityView, error)
}

// OpportunityHandler 提供给前端的机会查询接口
type OpportunityHandler struct {
	reader OpportunityReader
	logger *logrus.Logger
}

func NewOpportunityHandler(reader OpportunityReader, logger *logrus.Logger) *OpportunityHandler {
	return &OpportunityHandler{reader: reader, logger: logger}
}

// ListOpportunities 有效机会列表，goal>0 时按月收入目标重排
// GET /api/opportunities?goal=500&limit=20
func (h *OpportunityHandler) ListOpportunities(c *gin.Context) {
	goal, _ := strconv.Atoi(c.DefaultQuery("goal", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	c.JSON(http.StatusOK, h.reader.List(c.Request.Context(), goal, limit))
}

// GetOpportunity 按ID查询
// GET /api/opportunities/:id
func (h *OpportunityHandler) GetOpportunity(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	view, err := h.reader.Get(c.Request.Context(), id)
	if errors.Is(err, service.ErrNoStore) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("GetOpportunity failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "opportunity not found"})
		return
	}

	c.JSON(http.StatusOK, view)
}
