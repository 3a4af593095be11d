package x

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
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "https://api.twitter.com/2"
	maxResults     = "20"
)

var defaultPhrases = []string{
	"I wish someone would",
	"I'd pay for",
	"need a tool for",
	"someone should make",
	"wish there was an app",
}

func init() {
	adapter.Register(model.BotX, New)
}

// Bot 社交平台搜索信号源（recent search，需要Bearer Token）
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

func (b *Bot) Name() string { return model.BotX }

type tweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
		ReplyCount   int `json:"reply_count"`
	} `json:"public_metrics"`
	ReferencedTweets []struct {
		Type string `json:"type"`
	} `json:"referenced_tweets"`
}

type searchResponse struct {
	Data []tweet `json:"data"`
}

func (b *Bot) Scan(ctx context.Context) []*model.Signal {
	token := strings.TrimSpace(b.cfg.AuthToken)
	if token == "" {
		b.logger.Debug("x未配置Bearer Token，跳过")
		return nil
	}

	phrases := b.cfg.Queries
	if len(phrases) == 0 {
		phrases = defaultPhrases
	}

	seen := make(map[string]bool)
	var raw []model.RawSignal
	for _, phrase := range phrases {
		tweets, err := b.search(ctx, token, phrase)
		if err != nil {
			b.logger.WithError(err).WithField("phrase", phrase).Warn("x搜索失败")
			continue
		}
		for _, t := range tweets {
			if t.ID == "" || seen[t.ID] || isRetweet(t) {
				continue
			}
			seen[t.ID] = true
			m := t.PublicMetrics
			raw = append(raw, model.RawSignal{
				Source:      model.BotX,
				Type:        "complaint",
				Title:       adapter.Truncate(t.Text, 120),
				Description: t.Text,
				Intensity:   model.Intensity(math.Min(100, float64(40+m.LikeCount/10+m.RetweetCount*2+m.ReplyCount))),
				RawData: map[string]interface{}{
					"id":            t.ID,
					"like_count":    m.LikeCount,
					"retweet_count": m.RetweetCount,
					"reply_count":   m.ReplyCount,
				},
				SourceURL:  "https://twitter.com/i/status/" + t.ID,
				DetectedAt: b.now(),
			})
		}
	}

	signals := adapter.NormalizeSignals(raw)
	b.logger.WithField("count", len(signals)).Info("x扫描完成")
	return signals
}

func (b *Bot) search(ctx context.Context, token, phrase string) ([]tweet, error) {
	baseURL := b.cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	params := url.Values{
		"query":        {fmt.Sprintf("%q -is:retweet lang:en", phrase)},
		"tweet.fields": {"created_at,public_metrics,referenced_tweets"},
		"max_results":  {maxResults},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/tweets/search/recent?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("构建搜索请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var resp searchResponse
	if err := adapter.DoJSON(b.httpClient, req, &resp, b.logger); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// isRetweet 查询已带 -is:retweet，这里兜底过滤
func isRetweet(t tweet) bool {
	if strings.HasPrefix(t.Text, "RT @") {
		return true
	}
	for _, r := range t.ReferencedTweets {
		if r.Type == "retweeted" {
			return true
		}
	}
	return false
}
