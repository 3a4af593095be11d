package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"GigScout/internal/interfaces"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const runLockKey = "fusion-run"

// NewRunLocker postgres 使用会话级 advisory lock（跨进程），其它方言退化为进程内互斥
func NewRunLocker(db *gorm.DB, logger *logrus.Logger) interfaces.RunLocker {
	if db != nil && db.Dialector.Name() == "postgres" {
		return &advisoryLocker{db: db, logger: logger}
	}
	return &mutexLocker{}
}

type advisoryLocker struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func (l *advisoryLocker) TryLock(ctx context.Context) (func(), bool, error) {
	sqlDB, err := l.db.DB()
	if err != nil {
		return nil, false, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	// 会话锁绑定连接，必须独占一个连接直到释放
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("获取锁连接失败: %w", err)
	}

	var ok bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", runLockKey).Scan(&ok); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("获取运行锁失败: %w", err)
	}
	if !ok {
		_ = conn.Close()
		return nil, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() { l.unlock(conn) })
	}
	return release, true, nil
}

func (l *advisoryLocker) unlock(conn *sql.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock(hashtext($1))", runLockKey); err != nil {
		l.logger.WithError(err).Error("释放运行锁失败，连接关闭后自动释放")
	}
	if err := conn.Close(); err != nil {
		l.logger.WithError(err).Warn("关闭锁连接失败")
	}
}

type mutexLocker struct {
	mu sync.Mutex
}

func (l *mutexLocker) TryLock(context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, true, nil
}
