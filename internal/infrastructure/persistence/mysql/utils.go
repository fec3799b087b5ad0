package mysql

import (
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	apperrors "github.com/xiebiao/medbulk/pkg/errors"
)

// MySQL错误码
const (
	errDuplicateEntry   = 1062 // Duplicate entry 'xxx' for key 'yyy'
	errLockWaitTimeout  = 1205 // Lock wait timeout exceeded
	errDeadlockDetected = 1213 // Deadlock found when trying to get lock
)

func mysqlErrorNumber(err error) uint16 {
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}

// isDuplicateError 判断是否为唯一索引冲突
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || mysqlErrorNumber(err) == errDuplicateEntry {
		return true
	}
	// 兼容检查:错误信息包含"Duplicate entry"
	return strings.Contains(err.Error(), "Duplicate entry")
}

// isConcurrencyError 死锁或锁等待超时,调用方可重试
func isConcurrencyError(err error) bool {
	switch mysqlErrorNumber(err) {
	case errDeadlockDetected, errLockWaitTimeout:
		return true
	}
	return false
}

// classifyError 把驱动错误转换为AppError
// 已经是AppError的(领域错误)原样返回
func classifyError(err error, message string) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}
	if isConcurrencyError(err) {
		return apperrors.WrapCode(err, apperrors.ErrCodeConcurrencyConflict, apperrors.ErrConcurrencyConflict.Message)
	}
	return apperrors.WrapCode(err, apperrors.ErrCodeDatabaseError, message)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// pageOffset 页码从1开始
func pageOffset(page, pageSize int) int {
	return (page - 1) * pageSize
}
