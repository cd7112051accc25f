package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// IsUniqueViolation 判断是否违反唯一约束（如组织重名、邮箱重复）
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return hasPgCode(err, pgErrUniqueViolation)
}

// IsForeignKeyViolation 判断是否违反外键约束
func IsForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return hasPgCode(err, pgErrForeignKeyViolation)
}

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

const (
	pgErrSerializationFailure = "40001"
	pgErrDeadlockDetected     = "40P01"
)

// IsConcurrencyAbort 判断事务是否因并发冲突被数据库中止（序列化失败 / 死锁）
// 调用方应作为冲突返回，由客户端重新获取状态后重试
func IsConcurrencyAbort(err error) bool {
	return hasPgCode(err, pgErrSerializationFailure) || hasPgCode(err, pgErrDeadlockDetected)
}
