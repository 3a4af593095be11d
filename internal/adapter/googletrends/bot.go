package googletrends

import (
	"GigScout/internal/adapter"
	"GigScout/internal/config"
	"GigScout/internal/interfaces"
	"GigScout/internal/model"
	"GigScout/internal/utils/httpclient"
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL  = "https://serpapi.com/search.json"
	maxTrending     = 20
	defaultTraffic  = 50
	curatedStrength = 50
)

// 接口无数据时使用的固定关注词
var curatedTerms = []string{
	"AI side hustle",
	"freelance writing",
	"email sequence",
	"pet portrait",
	"logo design",
	"social media management",
	"virtual assistant",
	"copywriting",
}

func init() {
	adapter.Register(model.BotGoogleTrends, New)
}

// Bot 搜索趋势信号源（SerpApi trending-now，需要API Key）
type Bot struct {
	cfg        *config.BotConfig
	httpClient *http.Client
	logger     *logrus.Logger
	now        func() time.Time
}

func New(cfg *config.BotConfig, logger *logrus.Logger) interfaces.ScoutBot {
	return &Bot{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
		now:        time.Now,
	}
}

func (b *Bot) Name() string { return model.BotGoogleTrends }

type trendRow struct {
	Term    string `json:"term"`
	Traffic int    `json:"traffic"`
}

type trendingResponse struct {
	TrendingSearches []struct {
		Title              string `json:"title"`
		ApproximateTraffic string `json:"approximate_traffic"`
	} `json:"trending_searches"`
}

func (b *Bot) Scan(ctx context.Context) []*model.Signal {
	key := strings.TrimSpace(b.cfg.AuthToken)
	if key == "" {
		b.logger.Debug("google_trends未配置API Key，跳过")
		return nil
	}

	rows, err := b.fetchTrending(ctx, key)
	if err != nil {
		b.logger.WithError(err).Warn("拉取google_trends热搜失败")
	}

	raw := make([]model.RawSignal, 0, len(rows))
	for _, r := range rows {
		raw = append(raw, model.RawSignal{
			Source:      model.BotGoogleTrends,
			Type:        "breakout_search",
			Title:       r.Term,
			Description: "Trending search: " + r.Term,
			Intensity:   model.Intensity(math.Min(100, float64(20+minInt(80, r.Traffic)))),
			RawData:     r,
			DetectedAt:  b.now(),
		})
	}
	if len(rows) == 0 {
		for _, term := range curatedTerms {
			raw = append(raw, model.RawSignal{
				Source:      model.BotGoogleTrends,
				Type:        "breakout_search",
				Title:       term,
				Description: "Curated term: " + term,
				Intensity:   model.Intensity(curatedStrength),
				DetectedAt:  b.now(),
			})
		}
	}

	signals := adapter.NormalizeSignals(raw)
	b.logger.WithFields(logrus.Fields{"count": len(signals), "curated": len(rows) == 0}).Info("google_trends扫描完成")
	return signals
}

func (b *Bot) fetchTrending(ctx context.Context, key string) ([]trendRow, error) {
	baseURL := b.cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	params := url.Values{"engine": {"google_trends_trending_now"}, "api_key": {key}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("构建热搜请求失败: %w", err)
	}

	var resp trendingResponse
	if err := adapter.DoJSON(b.httpClient, req, &resp, b.logger); err != nil {
		return nil, err
	}

	var rows []trendRow
	for _, t := range resp.TrendingSearches {
		if strings.TrimSpace(t.Title) == "" {
			continue
		}
		rows = append(rows, trendRow{Term: t.Title, Traffic: parseTraffic(t.ApproximateTraffic)})
		if len(rows) == maxTrending {
			break
		}
	}
	return rows, nil
}

// parseTraffic 取前导数字（"200K+" → 200），缺失或为0时按50计
func parseTraffic(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n == 0 {
		return defaultTraffic
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
