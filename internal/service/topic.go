package service

import (
	"strings"

	"GigScout/internal/model"
)

// OtherTopic 未命中任何关键词的信号归入此主题
const OtherTopic = "other"

// topicDefaults 无生成服务时各主题的默认报价/耗时/竞争度
type topicDefaults struct {
	AvgEarnings   string
	TimeToDeliver string
	Competition   string
}

type topicRule struct {
	Name     string
	Keywords []string
	Defaults topicDefaults
}

var baseDefaults = topicDefaults{AvgEarnings: "$50–150", TimeToDeliver: "~1–2 days", Competition: model.CompetitionMedium}

// topicTable 顺序即聚类输出顺序；关键词按子串匹配（小写）
var topicTable = []topicRule{
	{Name: "email", Keywords: []string{"email", "sequence", "welcome", "newsletter", "automation", "drip"},
		Defaults: topicDefaults{"$100–250", "~1–2 days", model.CompetitionMedium}},
	{Name: "pet", Keywords: []string{"pet", "portrait", "dog", "cat", "illustration", "art"},
		Defaults: topicDefaults{"$40–120", "~3 hrs", model.CompetitionLow}},
	{Name: "social", Keywords: []string{"social media", "instagram", "tiktok", "content", "post", "reels"},
		Defaults: topicDefaults{"$150–400", "~2–3 days", model.CompetitionHigh}},
	{Name: "writing", Keywords: []string{"copy", "copywriting", "blog", "content", "article", "seo"},
		Defaults: topicDefaults{"$50–150", "~4 hrs", model.CompetitionHigh}},
	{Name: "design", Keywords: []string{"logo", "design", "brand", "graphic", "canva"},
		Defaults: topicDefaults{"$75–200", "~1 day", model.CompetitionMedium}},
	{Name: "tool", Keywords: []string{"tool", "app", "software", "automation", "saas", "plugin"},
		Defaults: topicDefaults{"$200–500", "~3–5 days", model.CompetitionLow}},
	{Name: "freelance", Keywords: []string{"freelance", "gig", "side hustle", "fiverr", "upwork", "contract"},
		Defaults: topicDefaults{"$50–150", "~1–2 days", model.CompetitionHigh}},
	{Name: "startup", Keywords: []string{"startup", "yc", "side project", "indie", "launch", "product hunt"},
		Defaults: topicDefaults{"$150–400", "~2 days", model.CompetitionMedium}},
}

// ExtractTopics 多标签：返回所有命中的主题（表顺序），无命中时返回 other
func ExtractTopics(title, description string) []string {
	text := strings.ToLower(title + " " + description)
	var topics []string
	for _, rule := range topicTable {
		for _, k := range rule.Keywords {
			if strings.Contains(text, k) {
				topics = append(topics, rule.Name)
				break
			}
		}
	}
	if len(topics) == 0 {
		topics = append(topics, OtherTopic)
	}
	return topics
}

// TopicOrder 主题的固定顺序（other 在最后）
func TopicOrder() []string {
	order := make([]string, 0, len(topicTable)+1)
	for _, rule := range topicTable {
		order = append(order, rule.Name)
	}
	return append(order, OtherTopic)
}

func defaultsFor(topic string) topicDefaults {
	for _, rule := range topicTable {
		if rule.Name == topic {
			return rule.Defaults
		}
	}
	return baseDefaults
}

// topicCategory 主题名首字母大写，下划线转空格
func topicCategory(topic string) string {
	if topic == "" {
		return ""
	}
	c := strings.ReplaceAll(topic, "_", " ")
	return strings.ToUpper(c[:1]) + c[1:]
}
