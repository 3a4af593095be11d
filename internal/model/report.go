package model

// BotScanResult 单个bot的扫描结果
type BotScanResult struct {
	Bot         string `json:"bot"`
	SignalCount int    `json:"signal_count"`
	DurationMs  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}

// FusionResult 一次融合的汇总
type FusionResult struct {
	OpportunitiesCreated int   `json:"opportunities_created"`
	OpportunitiesUpdated int   `json:"opportunities_updated"`
	OpportunitiesExpired int64 `json:"opportunities_expired"`
	SignalsLinked        int   `json:"signals_linked"`
	LLMUsed              bool  `json:"llm_used"`
	DurationMs           int64 `json:"duration_ms"`
}

// ScanReport 一次完整扫描（bots → 入库 → 融合）的报告
type ScanReport struct {
	SignalsByBot    []BotScanResult `json:"signals_by_bot"`
	SignalsStored   int             `json:"signals_stored"`
	Fusion          FusionResult    `json:"fusion"`
	TotalDurationMs int64           `json:"total_duration_ms"`
}

// SanityReport 健康探测报告
type SanityReport struct {
	OK                 bool          `json:"ok"`
	DBOK               bool          `json:"db_ok"`
	OpportunitiesCount int64         `json:"opportunities_count"`
	Probe              BotScanResult `json:"probe"`
	TotalDurationMs    int64         `json:"total_duration_ms"`
	Message            string        `json:"message"`
}
