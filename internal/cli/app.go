package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"GigScout/internal/adapter"
	"GigScout/internal/config"
	"GigScout/internal/interfaces"
	"GigScout/internal/llm"
	"GigScout/internal/repository"
	"GigScout/internal/service"

	// 各信号源在 init 中注册工厂
	_ "GigScout/internal/adapter/googletrends"
	_ "GigScout/internal/adapter/hackernews"
	_ "GigScout/internal/adapter/producthunt"
	_ "GigScout/internal/adapter/reddit"
	_ "GigScout/internal/adapter/x"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// app 进程内共享的组件
type app struct {
	cfg         *config.Config
	logger      *logrus.Logger
	db          *gorm.DB
	store       interfaces.SignalStore
	scanner     *service.ScanService
	opportunity *service.OpportunityService
	sanity      *service.SanityService
}

// newApp 加载配置并组装各组件；未配置DSN时以无存储模式运行
func newApp() (*app, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log)
	logger.Info("配置文件加载成功")
	return wireApp(cfg, logger)
}

// wireApp 按已加载的配置组装存储、扫描、融合与读服务
func wireApp(cfg *config.Config, logger *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	db, err := repository.OpenDB(cfg.Database, logger)
	switch {
	case errors.Is(err, repository.ErrNoDSN):
		logger.Warn("未配置数据库DSN，以无存储模式运行（信号不会入库）")
	case err != nil:
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	default:
		a.db = db
		a.store = repository.NewStore(db)
	}

	var locker interfaces.RunLocker
	if a.db != nil {
		locker = repository.NewRunLocker(a.db, logger)
	}

	synth := llm.NewSynthesizer(cfg.LLM, logger)

	registry := adapter.NewBotRegistry(cfg, cfg.Scan.EnabledBots, logger)
	fusion := service.NewFusionService(a.store, synth, cfg.Fusion, logger)
	a.scanner = service.NewScanService(registry, a.store, fusion, locker, cfg.Scan, logger)
	a.opportunity = service.NewOpportunityService(a.store, cfg.Cache, logger)
	a.scanner.OnComplete(a.opportunity.InvalidateCache)
	a.sanity = service.NewSanityService(a.store, a.scanner, cfg.Scan.ProbeBot, logger)
	return a, nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newLogger 按配置创建logrus日志器
func newLogger(cfg config.LogConfig) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}
