package producthunt

import (
	"GigScout/internal/adapter"
	"GigScout/internal/config"
	"GigScout/internal/interfaces"
	"GigScout/internal/model"
	"GigScout/internal/utils/httpclient"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "https://api.producthunt.com/v2/api/graphql"
	postsPerScan   = 25
)

const postsQuery = `
query RecentPosts($first: Int!) {
  posts(first: $first, order: RANKING) {
    edges {
      node {
        id
        name
        tagline
        url
        votesCount
        commentsCount
      }
    }
  }
}`

func init() {
	adapter.Register(model.BotProductHunt, New)
}

// Bot 新品发布榜信号源（GraphQL，需要Bearer Token）
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

func (b *Bot) Name() string { return model.BotProductHunt }

type phPost struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Tagline       *string `json:"tagline"`
	URL           *string `json:"url"`
	VotesCount    int     `json:"votesCount"`
	CommentsCount int     `json:"commentsCount"`
}

type graphQLResponse struct {
	Data struct {
		Posts struct {
			Edges []struct {
				Node *phPost `json:"node"`
			} `json:"edges"`
		} `json:"posts"`
	} `json:"data"`
	Errors []json.RawMessage `json:"errors"`
}

func (b *Bot) Scan(ctx context.Context) []*model.Signal {
	token := strings.TrimSpace(b.cfg.AuthToken)
	if token == "" {
		b.logger.Debug("product_hunt未配置token，跳过")
		return nil
	}

	posts, err := b.fetchPosts(ctx, token)
	if err != nil {
		b.logger.WithError(err).Warn("拉取product_hunt榜单失败")
		return nil
	}

	raw := make([]model.RawSignal, 0, len(posts))
	for _, p := range posts {
		// 没有任何互动的发布不算信号
		if p.VotesCount+p.CommentsCount <= 0 {
			continue
		}
		description := "Launch: " + p.Name
		if p.Tagline != nil && *p.Tagline != "" {
			description += ". " + *p.Tagline
		}
		sourceURL := "https://www.producthunt.com/posts/" + strings.Join(strings.Fields(strings.ToLower(p.Name)), "-")
		if p.URL != nil && *p.URL != "" {
			sourceURL = *p.URL
		}
		raw = append(raw, model.RawSignal{
			Source:      model.BotProductHunt,
			Type:        "launch",
			Title:       p.Name,
			Description: adapter.Truncate(description, 500),
			Intensity:   model.Intensity(math.Min(100, float64(30+p.VotesCount/5+p.CommentsCount*2))),
			RawData: map[string]interface{}{
				"id":            p.ID,
				"votesCount":    p.VotesCount,
				"commentsCount": p.CommentsCount,
			},
			SourceURL:  sourceURL,
			DetectedAt: b.now(),
		})
	}

	signals := adapter.NormalizeSignals(raw)
	b.logger.WithField("count", len(signals)).Info("product_hunt扫描完成")
	return signals
}

func (b *Bot) fetchPosts(ctx context.Context, token string) ([]phPost, error) {
	endpoint := b.cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultBaseURL
	}
	body, err := json.Marshal(map[string]interface{}{
		"query":     postsQuery,
		"variables": map[string]int{"first": postsPerScan},
	})
	if err != nil {
		return nil, fmt.Errorf("序列化GraphQL请求失败: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("构建GraphQL请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var resp graphQLResponse
	if err := adapter.DoJSON(b.httpClient, req, &resp, b.logger); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("GraphQL返回%d个错误: %s", len(resp.Errors), adapter.Truncate(string(resp.Errors[0]), 200))
	}

	var posts []phPost
	for _, e := range resp.Data.Posts.Edges {
		if e.Node == nil || e.Node.ID == "" || e.Node.Name == "" {
			continue
		}
		posts = append(posts, *e.Node)
	}
	return posts, nil
}
