package model

import (
	"time"

	"gorm.io/datatypes"
)

// BotName 信号源名称枚举
type BotName = string

const (
	BotReddit       BotName = "reddit"
	BotGoogleTrends BotName = "google_trends"
	BotX            BotName = "x"
	BotHackerNews   BotName = "hacker_news"
	BotProductHunt  BotName = "product_hunt"
)

// Signal 单条需求信号（来自某个信号源的一次观测）
type Signal struct {
	ID            uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"id"`
	Source        string         `gorm:"column:source;type:varchar(32);not null;index:idx_signal_dedup,priority:1;comment:信号源" json:"source"`
	Type          string         `gorm:"column:type;type:varchar(32);not null;comment:信号子类型" json:"type"`
	Title         string         `gorm:"column:title;type:varchar(512);not null;comment:标题" json:"title"`
	Description   string         `gorm:"column:description;type:text;comment:描述" json:"description"`
	Intensity     int            `gorm:"column:intensity;type:int;not null;comment:强度0-100" json:"intensity"`
	RawData       datatypes.JSON `gorm:"column:raw_data;type:jsonb;comment:原始数据（仅审计）" json:"raw_data,omitempty"`
	SourceURL     *string        `gorm:"column:source_url;type:varchar(1024);index:idx_signal_dedup,priority:2;comment:原始链接" json:"source_url,omitempty"`
	DetectedAt    time.Time      `gorm:"column:detected_at;not null;index;comment:观测时间" json:"detected_at"`
	OpportunityID *uint64        `gorm:"column:opportunity_id;index;comment:认领该信号的机会ID" json:"opportunity_id,omitempty"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime;comment:入库时间" json:"created_at"`
}

func (Signal) TableName() string { return "signals" }

// RawSignal bot产出的未校验信号，Intensity为nil表示非数值
type RawSignal struct {
	Source      string
	Type        string
	Title       string
	Description string
	Intensity   *float64
	RawData     interface{}
	SourceURL   string
	DetectedAt  time.Time
}

// Intensity 便于bot构造RawSignal.Intensity
func Intensity(v float64) *float64 { return &v }
