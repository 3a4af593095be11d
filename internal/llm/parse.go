package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"GigScout/internal/model"
)

const maxOpportunities = 3

var errNoOpportunities = errors.New("生成结果中没有有效机会")

type synthesisPayload struct {
	Opportunities []model.SynthesizedOpportunity `json:"opportunities"`
}

// ParseSynthesis 从模型输出中提取JSON并校验；最多保留3条，枚举值不合法时取默认
func ParseSynthesis(text string) ([]model.SynthesizedOpportunity, error) {
	raw := extractJSONObject(text)
	if raw == "" {
		return nil, fmt.Errorf("输出中未找到JSON对象")
	}
	var payload synthesisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("解析生成结果失败: %w", err)
	}

	out := make([]model.SynthesizedOpportunity, 0, maxOpportunities)
	for _, o := range payload.Opportunities {
		o.Title = strings.TrimSpace(o.Title)
		o.Description = strings.TrimSpace(o.Description)
		o.Category = strings.TrimSpace(o.Category)
		if o.Title == "" || o.Category == "" {
			continue
		}
		o.Competition = normalizeEnum(o.Competition, model.CompetitionMedium, model.CompetitionLow, model.CompetitionMedium, model.CompetitionHigh)
		o.Trend = normalizeEnum(o.Trend, model.TrendRising, model.TrendRising, model.TrendStable, model.TrendFalling)
		out = append(out, o)
		if len(out) == maxOpportunities {
			break
		}
	}
	if len(out) == 0 {
		return nil, errNoOpportunities
	}
	return out, nil
}

func normalizeEnum(v, fallback string, allowed ...string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return fallback
}

// extractJSONObject 去掉 markdown 代码块，取第一个 { 到最后一个 }
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
