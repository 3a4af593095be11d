// Package roi 将非规范的收入/耗时字符串换算为可比较的时薪与月收入估算，纯函数无I/O
package roi

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"GigScout/internal/model"
)

const (
	defaultEarnings    = 75.0
	defaultHours       = 1.0
	defaultWinRate     = 0.7
	hoursPerMonth      = 40.0
	hoursPerDeliverDay = 8.0
)

var (
	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
	cleanEarnings = strings.NewReplacer("$", "", ",", "")

	// 区间（如 1-2、1–2）取第一个数
	minutePattern = regexp.MustCompile(`(\d+)(?:\s*[-–~]\s*\d+)?\s*min`)
	hourPattern   = regexp.MustCompile(`(\d+)(?:\s*[-–~]\s*\d+)?\s*h(?:our)?s?`)
	dayPattern    = regexp.MustCompile(`(\d+)(?:\s*[-–~]\s*\d+)?\s*d(?:ay)?s?`)
)

var winRates = map[string]float64{
	model.CompetitionLow:    1.0,
	model.CompetitionMedium: 0.7,
	model.CompetitionHigh:   0.4,
}

// ParseAvgEarnings 解析 "$75"、"$50–150"、"$25-50" 等收入字符串：
// 多个数取最小最大值的中点（四舍五入），一个数原样返回，无数字时返回75
func ParseAvgEarnings(s string) float64 {
	cleaned := cleanEarnings.Replace(strings.Join(strings.Fields(s), ""))
	matches := numberPattern.FindAllString(cleaned, -1)
	var numbers []float64
	for _, m := range matches {
		n, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	switch len(numbers) {
	case 0:
		return defaultEarnings
	case 1:
		return numbers[0]
	}
	lo, hi := numbers[0], numbers[0]
	for _, n := range numbers[1:] {
		lo = math.Min(lo, n)
		hi = math.Max(hi, n)
	}
	return RoundHalfUp((lo + hi) / 2)
}

// ParseTimeToDeliverHours 解析交付耗时为小时数，按 分钟 > 小时 > 天 的优先级匹配第一个单位
func ParseTimeToDeliverHours(s string) float64 {
	lower := strings.ToLower(s)
	if n, ok := firstNumber(minutePattern, lower); ok {
		return math.Max(0.08, n/60)
	}
	if n, ok := firstNumber(hourPattern, lower); ok {
		return math.Max(0.25, n)
	}
	if n, ok := firstNumber(dayPattern, lower); ok {
		return math.Max(0.5, n*hoursPerDeliverDay)
	}
	return defaultHours
}

func firstNumber(re *regexp.Regexp, s string) (float64, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// WinRate 竞争程度对应的成单率，未知取0.7
func WinRate(competition string) float64 {
	if r, ok := winRates[strings.ToLower(strings.TrimSpace(competition))]; ok {
		return r
	}
	return defaultWinRate
}

// ComputeEarningsPerHour 估算时薪：收入 × 成单率 × 需求权重 / 小时，保留1位小数
func ComputeEarningsPerHour(avgEarnings, timeToDeliver, competition string, demandScore int) float64 {
	revenue := ParseAvgEarnings(avgEarnings)
	hours := ParseTimeToDeliverHours(timeToDeliver)
	demandWeight := math.Min(1, math.Max(0, float64(demandScore)/100))
	value := revenue * WinRate(competition) * demandWeight
	return RoundHalfUp(value/hours*10) / 10
}

// EstimateMonthlyPotential 按每月40小时估算月收入；优先使用已落库的时薪
func EstimateMonthlyPotential(o *model.Opportunity) int {
	if o == nil {
		return 0
	}
	eph := 0.0
	if o.EarningsPerHour != nil {
		eph = *o.EarningsPerHour
	} else {
		eph = ComputeEarningsPerHour(o.AvgEarnings, o.TimeToDeliver, o.Competition, o.DemandScore)
	}
	return int(RoundHalfUp(eph * hoursPerMonth))
}

// RoundHalfUp x.5 向正无穷取整
func RoundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
