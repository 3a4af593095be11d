package hackernews

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
	defaultBaseURL = "https://hn.algolia.com/api/v1"
	itemURL        = "https://news.ycombinator.com/item?id="
	lookback       = 7 * 24 * time.Hour
	keywordHits    = 30
	askHits        = 25
)

var defaultQueries = []string{"would pay", "i wish", "someone should", "need a tool"}

func init() {
	adapter.Register(model.BotHackerNews, New)
}

// Bot 论坛问答信号源（Algolia搜索接口，无需凭证）
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

func (b *Bot) Name() string { return model.BotHackerNews }

type hit struct {
	ObjectID    string   `json:"objectID"`
	Title       *string  `json:"title"`
	StoryText   *string  `json:"story_text"`
	CommentText *string  `json:"comment_text"`
	Points      *int     `json:"points"`
	NumComments *int     `json:"num_comments"`
	Tags        []string `json:"_tags"`
}

type searchResponse struct {
	Hits []hit `json:"hits"`
}

func (b *Bot) Scan(ctx context.Context) []*model.Signal {
	since := b.now().Add(-lookback).Unix()
	seen := make(map[string]bool)
	var raw []model.RawSignal

	queries := b.cfg.Queries
	if len(queries) == 0 {
		queries = defaultQueries
	}
	for _, q := range queries {
		hits, err := b.search(ctx, q, "(story,comment)", since, keywordHits)
		if err != nil {
			b.logger.WithError(err).WithField("query", q).Warn("hacker_news关键词搜索失败")
			continue
		}
		for _, h := range hits {
			if s, ok := b.toRaw(h, seen, false); ok {
				raw = append(raw, s)
			}
		}
	}

	askHN, err := b.search(ctx, "", "ask_hn", since, askHits)
	if err != nil {
		b.logger.WithError(err).Warn("hacker_news ask_hn列表获取失败")
	}
	for _, h := range askHN {
		if s, ok := b.toRaw(h, seen, true); ok {
			raw = append(raw, s)
		}
	}

	signals := adapter.NormalizeSignals(raw)
	b.logger.WithField("count", len(signals)).Info("hacker_news扫描完成")
	return signals
}

func (b *Bot) toRaw(h hit, seen map[string]bool, askListing bool) (model.RawSignal, bool) {
	if h.ObjectID == "" || seen[h.ObjectID] {
		return model.RawSignal{}, false
	}
	seen[h.ObjectID] = true

	title := firstNonNil(h.Title, h.StoryText, h.CommentText)
	description := firstNonNil(h.StoryText, h.CommentText)
	if !adapter.MatchesKeywords(title+" "+description, adapter.PainKeywords) {
		return model.RawSignal{}, false
	}

	points, comments := deref(h.Points), deref(h.NumComments)
	typ := "pain_post"
	if askListing || hasTag(h.Tags, "ask_hn") {
		typ = "ask_hn"
	}
	return model.RawSignal{
		Source:      model.BotHackerNews,
		Type:        typ,
		Title:       adapter.Truncate(adapter.StripHTML(title), 120),
		Description: adapter.Truncate(adapter.StripHTML(description), 500),
		Intensity:   model.Intensity(math.Min(100, float64(20+points/2+comments*2))),
		RawData: map[string]interface{}{
			"objectID":     h.ObjectID,
			"points":       points,
			"num_comments": comments,
			"_tags":        h.Tags,
		},
		SourceURL:  itemURL + h.ObjectID,
		DetectedAt: b.now(),
	}, true
}

func (b *Bot) search(ctx context.Context, query, tags string, since int64, hitsPerPage int) ([]hit, error) {
	baseURL := b.cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	params := url.Values{
		"query":          {query},
		"tags":           {tags},
		"hitsPerPage":    {strconv.Itoa(hitsPerPage)},
		"numericFilters": {fmt.Sprintf("created_at_i>%d", since)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/search_by_date?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("构建搜索请求失败: %w", err)
	}
	var resp searchResponse
	if err := adapter.DoJSON(b.httpClient, req, &resp, b.logger); err != nil {
		return nil, err
	}
	return resp.Hits, nil
}

func firstNonNil(vals ...*string) string {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return ""
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
