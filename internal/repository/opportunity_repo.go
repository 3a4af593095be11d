package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GigScout/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Store) findActive(ctx context.Context, query string, args ...interface{}) (*model.Opportunity, error) {
	var o model.Opportunity
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where(query, args...).
		Order("updated_at DESC, id ASC").
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *Store) FindActiveOpportunityByClusterKey(ctx context.Context, key string) (*model.Opportunity, error) {
	o, err := r.findActive(ctx, "cluster_key = ?", key)
	if err != nil {
		return nil, fmt.Errorf("按聚类键查询机会失败: %w", err)
	}
	return o, nil
}

func (r *Store) FindActiveOpportunityByCategory(ctx context.Context, category string) (*model.Opportunity, error) {
	o, err := r.findActive(ctx, "LOWER(category) = LOWER(?)", category)
	if err != nil {
		return nil, fmt.Errorf("按分类查询机会失败: %w", err)
	}
	return o, nil
}

func (r *Store) FindActiveOpportunityByUUID(ctx context.Context, opportunityUUID string) (*model.Opportunity, error) {
	o, err := r.findActive(ctx, "opportunity_uuid = ?", opportunityUUID)
	if err != nil {
		return nil, fmt.Errorf("按UUID查询机会失败: %w", err)
	}
	return o, nil
}

// UpsertOpportunity ID为0时新建（补齐UUID与时间），否则整行覆盖
func (r *Store) UpsertOpportunity(ctx context.Context, o *model.Opportunity) (bool, error) {
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now()
	}
	o.UpdatedAt = o.UpdatedAt.UTC()

	if o.ID == 0 {
		if o.OpportunityUUID == "" {
			o.OpportunityUUID = uuid.NewString()
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = o.UpdatedAt
		}
		if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
			return false, fmt.Errorf("创建机会失败: %w, title: %s", err, o.Title)
		}
		return true, nil
	}

	if err := r.db.WithContext(ctx).Save(o).Error; err != nil {
		return false, fmt.Errorf("更新机会失败: %w, id: %d", err, o.ID)
	}
	return false, nil
}

// DeactivateStaleOpportunities 只写 is_active，不触碰 updated_at
func (r *Store) DeactivateStaleOpportunities(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Opportunity{}).
		Where("is_active = ? AND updated_at < ?", true, cutoff.UTC()).
		UpdateColumn("is_active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("过期机会失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *Store) ListActiveOpportunities(ctx context.Context, limit int) ([]*model.Opportunity, error) {
	var list []*model.Opportunity
	q := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("updated_at DESC, demand_score DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("查询机会列表失败: %w", err)
	}
	return list, nil
}

func (r *Store) CountActiveOpportunities(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Opportunity{}).Where("is_active = ?", true).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("统计机会数量失败: %w", err)
	}
	return n, nil
}

func (r *Store) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("获取SQL DB失败: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
