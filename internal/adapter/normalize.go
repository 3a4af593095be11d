package adapter

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"GigScout/internal/model"

	"gorm.io/datatypes"
)

const (
	minIntensity = 0
	maxIntensity = 100
)

// NormalizeSignal 校验并规范化bot产出的信号；缺少 source/type/title 或强度非数值时返回 false
func NormalizeSignal(raw model.RawSignal, now time.Time) (*model.Signal, bool) {
	source := strings.TrimSpace(raw.Source)
	typ := strings.TrimSpace(raw.Type)
	title := strings.TrimSpace(raw.Title)
	if source == "" || typ == "" || title == "" {
		return nil, false
	}
	if raw.Intensity == nil || math.IsNaN(*raw.Intensity) || math.IsInf(*raw.Intensity, 0) {
		return nil, false
	}

	s := &model.Signal{
		Source:      source,
		Type:        typ,
		Title:       title,
		Description: strings.TrimSpace(raw.Description),
		Intensity:   ClampIntensity(*raw.Intensity),
		DetectedAt:  raw.DetectedAt,
	}
	if s.DetectedAt.IsZero() {
		s.DetectedAt = now
	}
	if u := strings.TrimSpace(raw.SourceURL); u != "" {
		s.SourceURL = &u
	}
	// 原始数据序列化失败只丢弃 raw_data，不丢弃信号
	if raw.RawData != nil {
		if b, err := json.Marshal(raw.RawData); err == nil {
			s.RawData = datatypes.JSON(b)
		}
	}
	return s, true
}

// NormalizeSignals 批量规范化，静默丢弃不合法的条目
func NormalizeSignals(raws []model.RawSignal) []*model.Signal {
	now := time.Now()
	out := make([]*model.Signal, 0, len(raws))
	for _, r := range raws {
		if s, ok := NormalizeSignal(r, now); ok {
			out = append(out, s)
		}
	}
	return out
}

// ClampIntensity 四舍五入后截断到 [0,100]
func ClampIntensity(v float64) int {
	r := math.Round(v)
	if r < minIntensity {
		return minIntensity
	}
	if r > maxIntensity {
		return maxIntensity
	}
	return int(r)
}

// Truncate 按rune截断字符串
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
