package llm

import (
	"context"
	"time"

	"GigScout/internal/config"
	"GigScout/internal/interfaces"
	"GigScout/internal/model"
	"GigScout/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// Synthesizer 调用外部模型生成机会描述；任何失败都退化为空结果
type Synthesizer struct {
	backend completer
	timeout time.Duration
	logger  *logrus.Logger
}

// NewSynthesizer OpenAI 优先，其次 Anthropic，都未配置时返回禁用状态的实例
func NewSynthesizer(cfg config.LLMConfig, logger *logrus.Logger) *Synthesizer {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1500
	}
	// 复用bot的HTTP客户端构建（代理、gzip）
	httpClient := httpclient.NewHTTPClient(&config.BotConfig{Timeout: int(timeout / time.Second), Proxy: cfg.Proxy}, logger)

	s := &Synthesizer{timeout: timeout, logger: logger}
	switch {
	case cfg.OpenAIKey != "":
		s.backend = newOpenAIBackend(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, maxTokens, httpClient)
	case cfg.AnthropicKey != "":
		s.backend = newAnthropicBackend(cfg.AnthropicKey, cfg.AnthropicURL, cfg.AnthropicModel, maxTokens, httpClient)
	}
	logger.WithField("provider", s.Provider()).Info("机会生成服务初始化完成")
	return s
}

var _ interfaces.Synthesizer = (*Synthesizer)(nil)

// Enabled 是否配置了可用的后端
func (s *Synthesizer) Enabled() bool {
	return s != nil && s.backend != nil
}

// Provider 当前后端名称，未配置时为 none
func (s *Synthesizer) Provider() string {
	if !s.Enabled() {
		return "none"
	}
	return s.backend.name()
}

func (s *Synthesizer) Synthesize(ctx context.Context, signals []*model.Signal, topic string, userCtx *model.UserContext) []model.SynthesizedOpportunity {
	if !s.Enabled() || len(signals) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log := s.logger.WithFields(logrus.Fields{"provider": s.backend.name(), "topic": topic})
	text, err := s.backend.complete(ctx, systemPrompt, BuildPrompt(signals, topic, userCtx))
	if err != nil {
		log.WithError(err).Warn("机会生成调用失败，使用默认模板")
		return nil
	}
	out, err := ParseSynthesis(text)
	if err != nil {
		log.WithError(err).Warn("机会生成结果无效，使用默认模板")
		return nil
	}
	log.WithField("count", len(out)).Debug("机会生成完成")
	return out
}
