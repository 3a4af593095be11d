package interfaces

import (
	"context"
	"time"

	"GigScout/internal/model"
)

// SignalStore 信号与机会的持久化接口（扫描编排与融合共用）
// 查询类方法未命中时返回 (nil, nil)
type SignalStore interface {
	// FindDuplicateSignal 同源、同链接（或同为空）、观测时间在 detectedAt±window 内的已有信号
	FindDuplicateSignal(ctx context.Context, source string, sourceURL *string, detectedAt time.Time, window time.Duration) (*model.Signal, error)
	InsertSignal(ctx context.Context, s *model.Signal) error
	// ClaimSignal 仅当信号尚未被认领时写入 opportunity_id，返回是否认领成功
	ClaimSignal(ctx context.Context, signalID, opportunityID uint64) (bool, error)
	// FindUnclaimedSignalsSince 观测时间不早于 since 且未被认领的信号，按观测时间倒序
	FindUnclaimedSignalsSince(ctx context.Context, since time.Time) ([]*model.Signal, error)
	// FindSignalsSince 观测时间不早于 since 的全部信号（含已认领），排序同上
	FindSignalsSince(ctx context.Context, since time.Time) ([]*model.Signal, error)

	FindActiveOpportunityByClusterKey(ctx context.Context, key string) (*model.Opportunity, error)
	// FindActiveOpportunityByCategory 分类名大小写不敏感匹配
	FindActiveOpportunityByCategory(ctx context.Context, category string) (*model.Opportunity, error)
	FindActiveOpportunityByUUID(ctx context.Context, opportunityUUID string) (*model.Opportunity, error)
	// UpsertOpportunity ID为0时创建，否则整行更新；返回是否为新建
	UpsertOpportunity(ctx context.Context, o *model.Opportunity) (bool, error)
	// DeactivateStaleOpportunities 将 updated_at 早于 cutoff 的有效机会置为无效，只改 is_active
	DeactivateStaleOpportunities(ctx context.Context, cutoff time.Time) (int64, error)
	// ListActiveOpportunities 按 updated_at、demand_score 倒序
	ListActiveOpportunities(ctx context.Context, limit int) ([]*model.Opportunity, error)
	CountActiveOpportunities(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Synthesizer 外部生成服务：根据信号簇生成 0~3 条机会描述
// 不可用、未配置或调用失败时返回空切片，不向调用方抛错
type Synthesizer interface {
	Synthesize(ctx context.Context, signals []*model.Signal, topic string, userCtx *model.UserContext) []model.SynthesizedOpportunity
}

// RunLocker 扫描/融合运行锁，防止两次完整扫描并发执行
type RunLocker interface {
	// TryLock 获取锁；ok=false 表示已有运行在进行中
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}
