package api

import (
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

// Handlers 路由依赖
type Handlers struct {
	Scan        *ScanHandler
	Opportunity *OpportunityHandler
	Sanity      *SanityHandler
	Pprof       bool // 是否注册pprof路由，方便调试和监测性能问题
}

// NewRouter 注册全部API路由
func NewRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if h.Pprof {
		pprof.Register(r)
	}

	r.GET("/healthz", Healthz)

	bots := r.Group("/api/bots")
	bots.GET("/scan", h.Scan.RunScan)
	bots.POST("/scan", h.Scan.RunScan)
	bots.GET("/sanity", h.Sanity.Sanity)

	r.GET("/api/opportunities", h.Opportunity.ListOpportunities)
	r.GET("/api/opportunities/:id", h.Opportunity.GetOpportunity)
	return r
}
