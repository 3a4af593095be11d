package interfaces

import (
	"context"

	"GigScout/internal/model"
)

// ScoutBot 所有信号源必须实现的核心接口
// Scan 不返回error：信号源不可用、未配置或数据异常时一律返回空切片
type ScoutBot interface {
	Name() string                             // 信号源名称
	Scan(ctx context.Context) []*model.Signal // 扫描并返回已归一化的信号
}
