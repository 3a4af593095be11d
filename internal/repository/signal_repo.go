package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GigScout/internal/interfaces"
	"GigScout/internal/model"

	"gorm.io/gorm"
)

// Store 信号与机会的gorm实现
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) interfaces.SignalStore {
	return &Store{db: db}
}

func (r *Store) FindDuplicateSignal(ctx context.Context, source string, sourceURL *string, detectedAt time.Time, window time.Duration) (*model.Signal, error) {
	q := r.db.WithContext(ctx).
		Where("source = ?", source).
		Where("detected_at BETWEEN ? AND ?", detectedAt.Add(-window).UTC(), detectedAt.Add(window).UTC())
	if sourceURL != nil {
		q = q.Where("source_url = ?", *sourceURL)
	} else {
		q = q.Where("source_url IS NULL")
	}

	var s model.Signal
	if err := q.Order("id ASC").First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询重复信号失败: %w", err)
	}
	return &s, nil
}

func (r *Store) InsertSignal(ctx context.Context, s *model.Signal) error {
	s.DetectedAt = s.DetectedAt.UTC()
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("保存信号失败: %w, source: %s", err, s.Source)
	}
	return nil
}

// ClaimSignal 条件更新，已被认领的信号不会被覆盖
func (r *Store) ClaimSignal(ctx context.Context, signalID, opportunityID uint64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Signal{}).
		Where("id = ? AND opportunity_id IS NULL", signalID).
		UpdateColumn("opportunity_id", opportunityID)
	if res.Error != nil {
		return false, fmt.Errorf("认领信号失败: %w, signal_id: %d", res.Error, signalID)
	}
	return res.RowsAffected == 1, nil
}

func (r *Store) FindUnclaimedSignalsSince(ctx context.Context, since time.Time) ([]*model.Signal, error) {
	var signals []*model.Signal
	if err := r.db.WithContext(ctx).
		Where("detected_at >= ? AND opportunity_id IS NULL", since.UTC()).
		Order("detected_at DESC, id ASC").
		Find(&signals).Error; err != nil {
		return nil, fmt.Errorf("查询未认领信号失败: %w", err)
	}
	return signals, nil
}

// FindSignalsSince 回溯窗口内的全部信号（含已认领），用于门槛统计
func (r *Store) FindSignalsSince(ctx context.Context, since time.Time) ([]*model.Signal, error) {
	var signals []*model.Signal
	if err := r.db.WithContext(ctx).
		Where("detected_at >= ?", since.UTC()).
		Order("detected_at DESC, id ASC").
		Find(&signals).Error; err != nil {
		return nil, fmt.Errorf("查询窗口内信号失败: %w", err)
	}
	return signals, nil
}
