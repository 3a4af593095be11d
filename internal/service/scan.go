package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GigScout/internal/adapter"
	"GigScout/internal/config"
	"GigScout/internal/interfaces"
	"GigScout/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrScanInProgress 已有扫描在运行
var ErrScanInProgress = errors.New("扫描正在进行中")

// ScanService 扫描编排：运行所有bot → 去重入库 → 融合一次
type ScanService struct {
	registry *adapter.BotRegistry
	store    interfaces.SignalStore
	fusion   *FusionService
	locker   interfaces.RunLocker
	cfg      config.ScanConfig
	logger   *logrus.Logger
	hooks    []func()
}

// NewScanService store 可为nil（bot照常运行，不入库）；locker 为nil时不加锁
func NewScanService(registry *adapter.BotRegistry, store interfaces.SignalStore, fusion *FusionService, locker interfaces.RunLocker, cfg config.ScanConfig, logger *logrus.Logger) *ScanService {
	if cfg.BotTimeout <= 0 {
		cfg.BotTimeout = 60 * time.Second
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 24 * time.Hour
	}
	return &ScanService{
		registry: registry,
		store:    store,
		fusion:   fusion,
		locker:   locker,
		cfg:      cfg,
		logger:   logger,
	}
}

// OnComplete 注册扫描成功后的回调（如刷新读缓存）
func (s *ScanService) OnComplete(fn func()) {
	s.hooks = append(s.hooks, fn)
}

// Run 执行一次完整扫描
func (s *ScanService) Run(ctx context.Context) (model.ScanReport, error) {
	var report model.ScanReport
	start := time.Now()

	if s.locker != nil && s.cfg.Exclusive {
		release, ok, err := s.locker.TryLock(ctx)
		if err != nil {
			return report, fmt.Errorf("获取运行锁失败: %w", err)
		}
		if !ok {
			return report, ErrScanInProgress
		}
		defer release()
	}

	results, batches := s.runBots(ctx)
	report.SignalsByBot = results

	if s.store != nil {
		for _, batch := range batches {
			stored, err := s.persist(ctx, batch)
			report.SignalsStored += stored
			if err != nil {
				return report, err
			}
		}
	}

	if s.fusion != nil {
		fusion, err := s.fusion.Run(ctx)
		if err != nil {
			return report, fmt.Errorf("信号融合失败: %w", err)
		}
		report.Fusion = fusion
	}

	report.TotalDurationMs = time.Since(start).Milliseconds()
	s.logger.WithFields(logrus.Fields{
		"stored":      report.SignalsStored,
		"created":     report.Fusion.OpportunitiesCreated,
		"updated":     report.Fusion.OpportunitiesUpdated,
		"duration_ms": report.TotalDurationMs,
	}).Info("扫描完成")

	for _, fn := range s.hooks {
		fn()
	}
	return report, nil
}

// runBots 结果顺序与注册表顺序一致；concurrency>1 时并发执行
func (s *ScanService) runBots(ctx context.Context) ([]model.BotScanResult, [][]*model.Signal) {
	bots := s.registry.Bots()
	results := make([]model.BotScanResult, len(bots))
	batches := make([][]*model.Signal, len(bots))

	if s.cfg.Concurrency <= 1 {
		for i, bot := range bots {
			results[i], batches[i] = s.RunBot(ctx, bot)
		}
		return results, batches
	}

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for i, bot := range bots {
		i, bot := i, bot
		g.Go(func() error {
			results[i], batches[i] = s.RunBot(ctx, bot)
			return nil
		})
	}
	_ = g.Wait()
	return results, batches
}

// RunBot 带超时与panic恢复地运行单个bot
func (s *ScanService) RunBot(ctx context.Context, bot interfaces.ScoutBot) (model.BotScanResult, []*model.Signal) {
	result := model.BotScanResult{Bot: bot.Name()}
	start := time.Now()

	botCtx, cancel := context.WithTimeout(ctx, s.cfg.BotTimeout)
	defer cancel()

	type outcome struct {
		signals []*model.Signal
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		done <- outcome{signals: bot.Scan(botCtx)}
	}()

	var signals []*model.Signal
	select {
	case o := <-done:
		signals = o.signals
		if o.err != nil {
			result.Error = o.err.Error()
		} else if err := botCtx.Err(); err != nil {
			result.Error = fmt.Sprintf("扫描超时或被取消: %v", err)
		}
	case <-botCtx.Done():
		result.Error = fmt.Sprintf("扫描超时或被取消: %v", botCtx.Err())
	}

	result.SignalCount = len(signals)
	result.DurationMs = time.Since(start).Milliseconds()

	log := s.logger.WithFields(logrus.Fields{"bot": result.Bot, "count": result.SignalCount, "duration_ms": result.DurationMs})
	if result.Error != "" {
		log.WithField("error", result.Error).Warn("bot扫描异常")
	} else {
		log.Info("bot扫描完成")
	}
	return result, signals
}

// persist 按 source + source_url + 时间窗口去重后入库
func (s *ScanService) persist(ctx context.Context, signals []*model.Signal) (int, error) {
	stored := 0
	for _, sig := range signals {
		dup, err := s.store.FindDuplicateSignal(ctx, sig.Source, sig.SourceURL, sig.DetectedAt, s.cfg.DedupWindow)
		if err != nil {
			return stored, fmt.Errorf("信号去重失败: %w", err)
		}
		if dup != nil {
			continue
		}
		if err := s.store.InsertSignal(ctx, sig); err != nil {
			return stored, fmt.Errorf("信号入库失败: %w", err)
		}
		stored++
	}
	return stored, nil
}
