package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"GigScout/internal/adapter"
	"GigScout/internal/config"
	"GigScout/internal/interfaces"
	"GigScout/internal/model"
	"GigScout/internal/roi"

	"github.com/sirupsen/logrus"
)

// FusionService 信号融合：过期旧机会 → 读取窗口内信号 → 按主题聚类 → 打分过门槛 → 生成/更新机会并认领新信号
type FusionService struct {
	store  interfaces.SignalStore
	synth  interfaces.Synthesizer
	cfg    config.FusionConfig
	logger *logrus.Logger
	now    func() time.Time
}

func NewFusionService(store interfaces.SignalStore, synth interfaces.Synthesizer, cfg config.FusionConfig, logger *logrus.Logger) *FusionService {
	return &FusionService{
		store:  store,
		synth:  synth,
		cfg:    cfg.WithDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// cluster 一次融合内的主题簇统计，计算后只读
type cluster struct {
	Topic        string
	Members      []*model.Signal
	Sources      []string // 首次出现顺序
	IntensitySum int
}

// hasPending 簇内是否有本次融合开始时尚未认领的信号
func (c *cluster) hasPending(pending map[uint64]bool) bool {
	for _, s := range c.Members {
		if pending[s.ID] {
			return true
		}
	}
	return false
}

func (c *cluster) memberIDs() []uint64 {
	ids := make([]uint64, len(c.Members))
	for i, s := range c.Members {
		ids[i] = s.ID
	}
	return ids
}

// scoredCluster 通过门槛的簇及其分数
type scoredCluster struct {
	*cluster
	Key           string
	PainIntensity int
	DemandScore   int
}

// Run 执行一次完整融合；存储失败时返回包装后的错误
func (s *FusionService) Run(ctx context.Context) (model.FusionResult, error) {
	var result model.FusionResult
	if s.store == nil {
		return result, nil
	}
	start := time.Now()
	now := s.now().UTC()

	// 1. 过期：只改 is_active
	cutoff := now.Add(-time.Duration(s.cfg.ExpireAfterDays) * 24 * time.Hour)
	expired, err := s.store.DeactivateStaleOpportunities(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("过期旧机会失败: %w", err)
	}
	result.OpportunitiesExpired = expired

	// 2. 窗口内全部信号作为证据，未认领的才是本次可认领的候选
	since := now.Add(-time.Duration(s.cfg.LookbackHours) * time.Hour)
	signals, err := s.store.FindSignalsSince(ctx, since)
	if err != nil {
		return result, fmt.Errorf("读取窗口内信号失败: %w", err)
	}
	unclaimed, err := s.store.FindUnclaimedSignalsSince(ctx, since)
	if err != nil {
		return result, fmt.Errorf("读取未认领信号失败: %w", err)
	}
	pending := make(map[uint64]bool, len(unclaimed))
	for _, sig := range unclaimed {
		pending[sig.ID] = true
	}

	// 3. 聚类（快照），4. 门槛；没有新信号的簇不再落库
	clusters := buildClusters(signals)
	claimed := make(map[uint64]bool)
	for _, c := range clusters {
		if !c.hasPending(pending) {
			continue
		}
		sc, ok := s.score(c)
		if !ok {
			continue
		}
		if err := s.materialize(ctx, sc, now, pending, claimed, &result); err != nil {
			return result, err
		}
	}

	result.DurationMs = time.Since(start).Milliseconds()
	s.logger.WithFields(logrus.Fields{
		"signals":  len(signals),
		"pending":  len(pending),
		"clusters": len(clusters),
		"created":  result.OpportunitiesCreated,
		"updated":  result.OpportunitiesUpdated,
		"expired":  result.OpportunitiesExpired,
		"linked":   result.SignalsLinked,
		"llm_used": result.LLMUsed,
	}).Info("信号融合完成")
	return result, nil
}

// buildClusters 多标签聚类，按主题表顺序输出非空簇
func buildClusters(signals []*model.Signal) []*cluster {
	byTopic := make(map[string]*cluster)
	seenSource := make(map[string]map[string]bool)
	for _, sig := range signals {
		for _, topic := range ExtractTopics(sig.Title, sig.Description) {
			c, ok := byTopic[topic]
			if !ok {
				c = &cluster{Topic: topic}
				byTopic[topic] = c
				seenSource[topic] = make(map[string]bool)
			}
			c.Members = append(c.Members, sig)
			c.IntensitySum += sig.Intensity
			if !seenSource[topic][sig.Source] {
				seenSource[topic][sig.Source] = true
				c.Sources = append(c.Sources, sig.Source)
			}
		}
	}

	var out []*cluster
	for _, topic := range TopicOrder() {
		if c, ok := byTopic[topic]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *FusionService) score(c *cluster) (scoredCluster, bool) {
	n := len(c.Members)
	if n < s.cfg.MinSignals || len(c.Sources) < s.cfg.MinConvergence {
		return scoredCluster{}, false
	}
	pain := int(roi.RoundHalfUp(float64(c.IntensitySum) / float64(n)))
	demand := int(roi.RoundHalfUp(float64(pain)*0.5 + float64(len(c.Sources))*15))
	if demand > 100 {
		demand = 100
	}
	if demand < s.cfg.DemandThreshold {
		return scoredCluster{}, false
	}
	return scoredCluster{
		cluster:       c,
		Key:           buildClusterKey(c.Topic, c.memberIDs()),
		PainIntensity: pain,
		DemandScore:   demand,
	}, true
}

// buildClusterKey 主题 + 排序后的成员ID 生成稳定键
func buildClusterKey(topic string, ids []uint64) string {
	sorted := append([]uint64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatUint(id, 10)
	}
	h := sha256.Sum256([]byte(topic + "|" + strings.Join(parts, ",")))
	return hex.EncodeToString(h[:])[:32]
}

func (s *FusionService) materialize(ctx context.Context, c scoredCluster, now time.Time, pending, claimed map[uint64]bool, result *model.FusionResult) error {
	inputs := c.Members
	if len(inputs) > s.cfg.MaxSynthesisInputs {
		inputs = inputs[:s.cfg.MaxSynthesisInputs]
	}

	var synthesized []model.SynthesizedOpportunity
	if s.synth != nil {
		synthesized = s.synth.Synthesize(ctx, inputs, c.Topic, nil)
	}

	var target *model.Opportunity
	var err error
	if len(synthesized) > 0 {
		result.LLMUsed = true
		for i, syn := range synthesized {
			o, err := s.upsertSynthesized(ctx, c, i, syn, now, result)
			if err != nil {
				return err
			}
			if target == nil {
				target = o
			}
		}
	} else {
		target, err = s.upsertFallback(ctx, c, now, result)
		if err != nil {
			return err
		}
	}

	return s.claim(ctx, c, target, pending, claimed, result)
}

// synthesizedSlot 生成结果的槽位键：主题 + 序号，跨轮次稳定
func synthesizedSlot(topic string, i int) string {
	return fmt.Sprintf("%s#%d", topic, i)
}

// upsertSynthesized 生成路径：按槽位键查找，命中则更新，否则新建
func (s *FusionService) upsertSynthesized(ctx context.Context, c scoredCluster, i int, syn model.SynthesizedOpportunity, now time.Time, result *model.FusionResult) (*model.Opportunity, error) {
	key := synthesizedSlot(c.Topic, i)
	o, err := s.store.FindActiveOpportunityByClusterKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("查询机会失败: %w", err)
	}
	if o == nil {
		o = &model.Opportunity{ClusterKey: key, IsActive: true, CreatedAt: now}
	}
	o.Title = adapter.Truncate(syn.Title, 256)
	o.Category = adapter.Truncate(syn.Category, 64)
	o.Description = syn.Description
	o.AvgEarnings = syn.AvgEarnings
	o.TimeToDeliver = syn.TimeToDeliver
	o.Competition = syn.Competition
	o.Trend = syn.Trend
	o.IsHot = syn.IsHot || c.DemandScore >= s.cfg.HotThreshold
	s.stamp(o, c, now)

	return o, s.save(ctx, o, result)
}

// upsertFallback 默认模板路径：先按聚类键，再按分类（大小写不敏感）查找已有机会
func (s *FusionService) upsertFallback(ctx context.Context, c scoredCluster, now time.Time, result *model.FusionResult) (*model.Opportunity, error) {
	category := topicCategory(c.Topic)
	o, err := s.store.FindActiveOpportunityByClusterKey(ctx, c.Key)
	if err != nil {
		return nil, fmt.Errorf("查询机会失败: %w", err)
	}
	if o == nil {
		if o, err = s.store.FindActiveOpportunityByCategory(ctx, category); err != nil {
			return nil, fmt.Errorf("查询机会失败: %w", err)
		}
	}

	if o == nil {
		d := defaultsFor(c.Topic)
		o = &model.Opportunity{
			Title:         adapter.Truncate(c.Members[0].Title, 80),
			Category:      category,
			AvgEarnings:   d.AvgEarnings,
			TimeToDeliver: d.TimeToDeliver,
			Competition:   d.Competition,
			Trend:         model.TrendRising,
			IsActive:      true,
			CreatedAt:     now,
		}
	}
	o.ClusterKey = c.Key
	o.Description = fallbackDescription(c.cluster)
	o.IsHot = c.DemandScore >= s.cfg.HotThreshold
	s.stamp(o, c, now)

	return o, s.save(ctx, o, result)
}

// stamp 写入簇分数、来源、时薪与更新时间
func (s *FusionService) stamp(o *model.Opportunity, c scoredCluster, now time.Time) {
	o.DemandScore = c.DemandScore
	o.ConvergenceScore = len(c.Sources)
	o.PainIntensity = c.PainIntensity
	o.Source = strings.Join(c.Sources, " + ")
	eph := roi.ComputeEarningsPerHour(o.AvgEarnings, o.TimeToDeliver, o.Competition, o.DemandScore)
	o.EarningsPerHour = &eph
	o.UpdatedAt = now
}

func (s *FusionService) save(ctx context.Context, o *model.Opportunity, result *model.FusionResult) error {
	created, err := s.store.UpsertOpportunity(ctx, o)
	if err != nil {
		return fmt.Errorf("保存机会失败: %w", err)
	}
	if created {
		result.OpportunitiesCreated++
	} else {
		result.OpportunitiesUpdated++
	}
	return nil
}

// claim 候选成员中本次融合尚未认领的信号归属到 target，旧信号只作证据
func (s *FusionService) claim(ctx context.Context, c scoredCluster, target *model.Opportunity, pending, claimed map[uint64]bool, result *model.FusionResult) error {
	if target == nil {
		return nil
	}
	for _, sig := range c.Members {
		if !pending[sig.ID] || claimed[sig.ID] {
			continue
		}
		claimed[sig.ID] = true
		ok, err := s.store.ClaimSignal(ctx, sig.ID, target.ID)
		if err != nil {
			return fmt.Errorf("认领信号失败: %w", err)
		}
		if ok {
			result.SignalsLinked++
		}
	}
	return nil
}

func fallbackDescription(c *cluster) string {
	var titles []string
	for i, s := range c.Members {
		if i == 3 {
			break
		}
		titles = append(titles, s.Title)
	}
	desc := adapter.Truncate(strings.Join(titles, ". "), 500)
	if desc == "" {
		desc = "Signals from " + strings.Join(c.Sources, " + ") + "."
	}
	return desc
}
