package llm

import (
	"fmt"
	"strings"

	"GigScout/internal/model"
)

// MaxSignals 单次生成最多使用的信号条数
const MaxSignals = 10

const systemPrompt = "You are a gig economy analyst. Reply with a single JSON object and nothing else."

// BuildPrompt 组装生成提示词：信号列表、要求、可选的用户画像
func BuildPrompt(signals []*model.Signal, topic string, userCtx *model.UserContext) string {
	var lines []string
	for i, s := range signals {
		if i == MaxSignals {
			break
		}
		line := fmt.Sprintf("%d. [%s] %q", i+1, s.Source, s.Title)
		if s.Description != "" {
			line += " - " + truncateRunes(s.Description, 200)
		}
		if s.SourceURL != nil && *s.SourceURL != "" {
			line += " (" + *s.SourceURL + ")"
		}
		line += fmt.Sprintf(" (intensity: %d/100)", s.Intensity)
		lines = append(lines, line)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Below are real signals detected by bots scanning Reddit, Hacker News, X/Twitter, Product Hunt, and Google Trends in the %q space.\n\n", topic)
	b.WriteString("SIGNALS:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString(`

Based on these signals, generate 1-3 SPECIFIC and ACTIONABLE freelance/side-hustle opportunity ideas that someone could start earning from this week.

Requirements:
- Each opportunity must be SPECIFIC: a concrete gig like "Welcome email sequences for DTC Shopify stores launching Q1 sales", not a generic category.
- Reference the actual signal data in descriptions (specific trends, numbers, platforms).
- Price estimates should be realistic for the opportunity scope.
- Each opportunity should be DIFFERENT from the others: different angles, price points and time commitments.
- Do NOT produce generic filler. Every opportunity must be justified by the signals.`)
	b.WriteString(userBlock(userCtx))
	b.WriteString(`

Respond with JSON of the form:
{"opportunities":[{"title":"...","description":"2-3 sentences","category":"short label, e.g. Email Marketing","avgEarnings":"e.g. $100-200","timeToDeliver":"e.g. ~4 hrs","competition":"low|medium|high","trend":"rising|stable|falling","isHot":true}]}`)
	return b.String()
}

func userBlock(u *model.UserContext) string {
	if u == nil {
		return ""
	}
	var parts []string
	if u.EarningsGoal > 0 {
		parts = append(parts, fmt.Sprintf("wants to earn $%d/month", u.EarningsGoal))
	}
	if u.AvailableHours > 0 {
		parts = append(parts, fmt.Sprintf("has %d hours/week available", u.AvailableHours))
	}
	if len(u.Skills) > 0 {
		parts = append(parts, "skills: "+strings.Join(u.Skills, ", "))
	}
	if len(parts) == 0 {
		return ""
	}
	return "\n\nUser profile: " + strings.Join(parts, "; ") + ". Tailor the opportunities to this profile."
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
