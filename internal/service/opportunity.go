package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GigScout/internal/config"
	"GigScout/internal/interfaces"
	"GigScout/internal/model"
	"GigScout/internal/roi"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// ErrNoStore 未配置数据库
var ErrNoStore = errors.New("未配置数据库")

// MaxListLimit 列表接口单次最多返回条数
const MaxListLimit = 50

// OpportunityView 机会的对外展示结构
type OpportunityView struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Category         string   `json:"category"`
	Description      string   `json:"description"`
	AvgEarnings      string   `json:"avg_earnings"`
	TimeToDeliver    string   `json:"time_to_deliver"`
	DemandScore      int      `json:"demand_score"`
	Competition      string   `json:"competition"`
	Trend            string   `json:"trend"`
	Source           string   `json:"source"`
	IsHot            bool     `json:"is_hot"`
	FoundAt          string   `json:"found_at"`
	ConvergenceScore int      `json:"convergence_score"`
	PainIntensity    int      `json:"pain_intensity"`
	EarningsPerHour  *float64 `json:"earnings_per_hour,omitempty"`
	MonthlyPotential int      `json:"monthly_potential"`
}

// OpportunityList 列表接口响应
type OpportunityList struct {
	Opportunities []OpportunityView `json:"opportunities"`
	FromDB        bool              `json:"from_db"`
}

// OpportunityService 机会读接口：带短时缓存的列表与按ID查询
type OpportunityService struct {
	store  interfaces.SignalStore
	cache  *gocache.Cache
	logger *logrus.Logger
	now    func() time.Time
}

func NewOpportunityService(store interfaces.SignalStore, cfg config.CacheConfig, logger *logrus.Logger) *OpportunityService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}
	return &OpportunityService{
		store:  store,
		cache:  gocache.New(ttl, cleanup),
		logger: logger,
		now:    time.Now,
	}
}

// List 返回最新的有效机会；goal>0 时按与月收入目标的距离重排。
// 存储缺失或查询失败时降级为空列表（from_db=false），不缓存降级结果
func (s *OpportunityService) List(ctx context.Context, goal, limit int) OpportunityList {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	if goal < 0 {
		goal = 0
	}
	key := fmt.Sprintf("opportunities:%d:%d", goal, limit)
	if v, ok := s.cache.Get(key); ok {
		return v.(OpportunityList)
	}

	empty := OpportunityList{Opportunities: []OpportunityView{}, FromDB: false}
	if s.store == nil {
		return empty
	}
	rows, err := s.store.ListActiveOpportunities(ctx, limit)
	if err != nil {
		s.logger.WithError(err).Error("查询机会列表失败")
		return empty
	}

	if goal > 0 {
		rows = roi.RankByGoal(rows, float64(goal),
			func(o *model.Opportunity) float64 { return float64(roi.EstimateMonthlyPotential(o)) },
			func(o *model.Opportunity) float64 { return float64(o.DemandScore) })
	}

	list := OpportunityList{Opportunities: make([]OpportunityView, 0, len(rows)), FromDB: true}
	for _, o := range rows {
		list.Opportunities = append(list.Opportunities, s.toView(o))
	}
	s.cache.SetDefault(key, list)
	return list
}

// Get 按UUID查询有效机会；未找到返回 (nil, nil)
func (s *OpportunityService) Get(ctx context.Context, id string) (*OpportunityView, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	o, err := s.store.FindActiveOpportunityByUUID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查询机会失败: %w", err)
	}
	if o == nil {
		return nil, nil
	}
	v := s.toView(o)
	return &v, nil
}

// InvalidateCache 扫描完成后清空列表缓存
func (s *OpportunityService) InvalidateCache() {
	s.cache.Flush()
}

func (s *OpportunityService) toView(o *model.Opportunity) OpportunityView {
	eph := o.EarningsPerHour
	if eph == nil {
		v := roi.ComputeEarningsPerHour(o.AvgEarnings, o.TimeToDeliver, o.Competition, o.DemandScore)
		eph = &v
	}
	return OpportunityView{
		ID:               o.OpportunityUUID,
		Title:            o.Title,
		Category:         o.Category,
		Description:      o.Description,
		AvgEarnings:      o.AvgEarnings,
		TimeToDeliver:    o.TimeToDeliver,
		DemandScore:      o.DemandScore,
		Competition:      o.Competition,
		Trend:            o.Trend,
		Source:           o.Source,
		IsHot:            o.IsHot,
		FoundAt:          FormatFoundAt(o.CreatedAt, s.now()),
		ConvergenceScore: o.ConvergenceScore,
		PainIntensity:    o.PainIntensity,
		EarningsPerHour:  eph,
		MonthlyPotential: roi.EstimateMonthlyPotential(o),
	}
}

// FormatFoundAt 相对时间：60分钟内 "Xm ago"，24小时内 "Xh ago"，否则 "Xd ago"
func FormatFoundAt(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
}
