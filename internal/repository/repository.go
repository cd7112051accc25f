package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	// mockTxMu 无数据库连接（单元测试注入 mock）时串行执行事务，模拟行级锁
	mockTxMu sync.Mutex

	Organization OrganizationRepository
	User         UserRepository
	Shift        ShiftRepository
	SwapRequest  SwapRequestRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Organization: NewOrganizationRepo(db),
		User:         NewUserRepo(db),
		Shift:        NewShiftRepo(db),
		SwapRequest:  NewSwapRequestRepo(db),
	}
}

// BeginTx 开启事务；无数据库连接时返回 nil
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository 副本
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{
		db:           tx,
		Organization: NewOrganizationRepo(tx),
		User:         NewUserRepo(tx),
		Shift:        NewShiftRepo(tx),
		SwapRequest:  NewSwapRequestRepo(tx),
	}
}

// Transaction 在单个事务内执行 fn：fn 返回错误或 panic 时整体回滚
// 读取、校验、写入必须全部经由 txRepo，保证校验与写入处于同一事务边界
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		r.mockTxMu.Lock()
		defer r.mockTxMu.Unlock()
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// forUpdate SELECT ... FOR UPDATE 行级锁，仅在事务连接上有效
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
