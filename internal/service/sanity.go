package service

import (
	"context"
	"time"

	"GigScout/internal/interfaces"
	"GigScout/internal/model"

	"github.com/sirupsen/logrus"
)

// SanityService 轻量自检：数据库连通性、有效机会数，以及单个bot的探测扫描
type SanityService struct {
	store    interfaces.SignalStore
	scanner  *ScanService
	probeBot string
	logger   *logrus.Logger
}

func NewSanityService(store interfaces.SignalStore, scanner *ScanService, probeBot string, logger *logrus.Logger) *SanityService {
	if probeBot == "" {
		probeBot = model.BotHackerNews
	}
	return &SanityService{store: store, scanner: scanner, probeBot: probeBot, logger: logger}
}

func (s *SanityService) Check(ctx context.Context) model.SanityReport {
	start := time.Now()
	report := model.SanityReport{Probe: model.BotScanResult{Bot: s.probeBot}}

	if s.store != nil {
		report.DBOK = true
		count, err := s.countOpportunities(ctx)
		if err != nil {
			s.logger.WithError(err).Error("自检：数据库查询失败")
			report.DBOK = false
			report.Message = "DB connection or query failed."
			report.TotalDurationMs = time.Since(start).Milliseconds()
			return report
		}
		report.OpportunitiesCount = count
	} else {
		report.Message = "No DATABASE_URL; DB unavailable."
	}

	bot, err := s.scanner.registry.Get(s.probeBot)
	if err != nil {
		report.Probe.Error = err.Error()
	} else {
		report.Probe, _ = s.scanner.RunBot(ctx, bot)
	}

	report.TotalDurationMs = time.Since(start).Milliseconds()
	report.OK = report.DBOK && report.Probe.Error == ""
	if report.Message == "" {
		switch {
		case report.OK:
			report.Message = "DB and pipeline probe OK."
		case report.Probe.Error != "":
			report.Message = "Probe failed: " + report.Probe.Error
		default:
			report.Message = "Check db_ok and probe."
		}
	}
	return report
}

func (s *SanityService) countOpportunities(ctx context.Context) (int64, error) {
	if err := s.store.Ping(ctx); err != nil {
		return 0, err
	}
	return s.store.CountActiveOpportunities(ctx)
}
