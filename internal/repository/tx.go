package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxManager 在一个数据库事务中执行多个仓储操作
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Do fn 返回错误时回滚
func (m *TxManager) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}
