package model

import (
	"time"
)

// 竞争程度
const (
	CompetitionLow    = "low"
	CompetitionMedium = "medium"
	CompetitionHigh   = "high"
)

// 需求趋势
const (
	TrendRising  = "rising"
	TrendStable  = "stable"
	TrendFalling = "falling"
)

// Opportunity 由合格信号簇生成的商业机会
type Opportunity struct {
	ID               uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	OpportunityUUID  string    `gorm:"column:opportunity_uuid;type:varchar(64);uniqueIndex;not null;comment:全局唯一ID"`
	Title            string    `gorm:"column:title;type:varchar(256);not null;comment:标题"`
	Category         string    `gorm:"column:category;type:varchar(64);not null;index;comment:分类"`
	Description      string    `gorm:"column:description;type:text;comment:描述"`
	AvgEarnings      string    `gorm:"column:avg_earnings;type:varchar(64);comment:单次收入（原样展示）"`
	TimeToDeliver    string    `gorm:"column:time_to_deliver;type:varchar(64);comment:交付耗时（原样展示）"`
	DemandScore      int       `gorm:"column:demand_score;type:int;not null;default:0;comment:需求分0-100"`
	Competition      string    `gorm:"column:competition;type:varchar(16);default:medium;comment:竞争程度：low/medium/high"`
	Trend            string    `gorm:"column:trend;type:varchar(16);default:rising;comment:趋势：rising/stable/falling"`
	Source           string    `gorm:"column:source;type:varchar(256);comment:贡献信号源"`
	IsHot            bool      `gorm:"column:is_hot;type:boolean;default:false;comment:是否热门"`
	IsActive         bool      `gorm:"column:is_active;type:boolean;default:true;index;comment:是否有效"`
	ConvergenceScore int       `gorm:"column:convergence_score;type:int;default:0;comment:不同信号源数量"`
	PainIntensity    int       `gorm:"column:pain_intensity;type:int;default:0;comment:簇内平均强度"`
	EarningsPerHour  *float64  `gorm:"column:earnings_per_hour;comment:估算时薪"`
	ClusterKey       string    `gorm:"column:cluster_key;type:varchar(64);index;comment:聚类键"`
	CreatedAt        time.Time `gorm:"column:created_at;comment:创建时间"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime:false;index;comment:更新时间（由融合写入，过期判断依据）"`
}

func (Opportunity) TableName() string { return "opportunities" }

// SynthesizedOpportunity 外部生成服务返回的机会描述
type SynthesizedOpportunity struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	AvgEarnings   string `json:"avgEarnings"`
	TimeToDeliver string `json:"timeToDeliver"`
	Competition   string `json:"competition"`
	Trend         string `json:"trend"`
	IsHot         bool   `json:"isHot"`
}

// UserContext 可选的用户画像，用于定制生成内容
type UserContext struct {
	EarningsGoal   int
	AvailableHours int
	Skills         []string
}
