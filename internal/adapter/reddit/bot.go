package reddit

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
	defaultBaseURL = "https://oauth.reddit.com"
	defaultAuthURL = "https://www.reddit.com/api/v1/access_token"
	hotLimit       = 25
	newLimit       = 15
)

var defaultSubreddits = []string{"SomebodyMakeThis", "Entrepreneur", "smallbusiness", "SideProject", "startups"}

func init() {
	adapter.Register(model.BotReddit, New)
}

// Bot 社区帖子信号源：按子版块拉取 hot/new 列表，过滤求助类帖子
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

func (b *Bot) Name() string { return model.BotReddit }

type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title      string   `json:"title"`
	Selftext   string   `json:"selftext"`
	URL        string   `json:"url"`
	Ups        *float64 `json:"ups"`
	CreatedUTC float64  `json:"created_utc"`
}

func (b *Bot) Scan(ctx context.Context) []*model.Signal {
	if b.cfg.ClientID == "" || b.cfg.ClientSecret == "" {
		b.logger.Debug("reddit未配置client凭证，跳过")
		return nil
	}

	token, err := b.fetchToken(ctx)
	if err != nil {
		b.logger.WithError(err).Warn("获取reddit token失败")
		return nil
	}

	subs := b.cfg.Queries
	if len(subs) == 0 {
		subs = defaultSubreddits
	}

	var raw []model.RawSignal
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		seen := make(map[string]bool)
		var posts []post
		for _, l := range []struct {
			sort  string
			limit int
		}{{"hot", hotLimit}, {"new", newLimit}} {
			got, err := b.fetchListing(ctx, token, sub, l.sort, l.limit)
			if err != nil {
				b.logger.WithError(err).WithFields(logrus.Fields{"subreddit": sub, "sort": l.sort}).Warn("拉取reddit列表失败")
				continue
			}
			posts = append(posts, got...)
		}

		for _, p := range posts {
			key := sub + ":" + p.URL
			if seen[key] {
				continue
			}
			seen[key] = true
			if !adapter.MatchesKeywords(p.Title+" "+p.Selftext, adapter.PainKeywords) {
				continue
			}
			raw = append(raw, model.RawSignal{
				Source:      model.BotReddit,
				Type:        "pain_post",
				Title:       p.Title,
				Description: adapter.Truncate(adapter.StripHTML(p.Selftext), 500),
				Intensity:   model.Intensity(b.intensity(*p.Ups, p.CreatedUTC)),
				RawData:     map[string]interface{}{"subreddit": sub, "ups": *p.Ups, "created_utc": p.CreatedUTC},
				SourceURL:   p.URL,
				DetectedAt:  b.now(),
			})
		}
	}

	signals := adapter.NormalizeSignals(raw)
	b.logger.WithField("count", len(signals)).Info("reddit扫描完成")
	return signals
}

// intensity 点赞与新鲜度加权，新鲜度每小时衰减2分
func (b *Bot) intensity(ups, createdUTC float64) float64 {
	ageHours := (float64(b.now().Unix()) - createdUTC) / 3600
	recency := math.Max(0, 100-ageHours*2)
	return math.Min(100, math.Round(ups/10*5+recency*0.5))
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (b *Bot) fetchToken(ctx context.Context) (string, error) {
	authURL := b.cfg.AuthURL
	if authURL == "" {
		authURL = defaultAuthURL
	}
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("构建token请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(b.cfg.ClientID, b.cfg.ClientSecret)

	var tr tokenResponse
	if err := adapter.DoJSON(b.httpClient, req, &tr, b.logger); err != nil {
		return "", err
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token响应缺少access_token")
	}
	return tr.AccessToken, nil
}

func (b *Bot) fetchListing(ctx context.Context, token, sub, sort string, limit int) ([]post, error) {
	baseURL := b.cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	u := fmt.Sprintf("%s/r/%s/%s.json?limit=%d", strings.TrimRight(baseURL, "/"), url.PathEscape(sub), sort, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("构建列表请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var l listing
	if err := adapter.DoJSON(b.httpClient, req, &l, b.logger); err != nil {
		return nil, err
	}
	posts := make([]post, 0, len(l.Data.Children))
	for _, c := range l.Data.Children {
		if c.Data.Title == "" || c.Data.Ups == nil {
			continue
		}
		posts = append(posts, c.Data)
	}
	return posts, nil
}
