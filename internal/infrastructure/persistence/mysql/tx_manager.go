package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/medbulk/pkg/txn"
)

type txKey struct{}

// TxManager 事务管理器
// 1. 封装GORM的Transaction方法
// 2. 通过context传递事务DB(避免全局变量)
// 3. ctx已有事务时直接复用,由最外层提交;提交成功后才执行txn.AfterCommit注册的回调
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

var _ txn.Manager = (*TxManager)(nil)

// Transaction 执行事务
// fn内所有Repository通过getDB(ctx)拿到同一个*gorm.DB;
// fn返回error时ROLLBACK,返回nil时COMMIT
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	hookCtx, hooks := txn.Begin(ctx)
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(hookCtx, txKey{}, tx))
	})
	if err != nil {
		return classifyError(err, "事务执行失败")
	}

	hooks.Run()
	return nil
}

// getDB 优先使用ctx中的事务DB
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
