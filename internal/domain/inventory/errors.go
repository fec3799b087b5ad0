package inventory

import (
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
)

// 库存领域错误定义
var (
	// ErrInventoryNotFound 库存明细不存在
	ErrInventoryNotFound = apperrors.New(apperrors.ErrCodeInventoryNotFound, "库存记录不存在")

	// ErrInsufficientStock 可用库存不足
	ErrInsufficientStock = apperrors.New(apperrors.ErrCodeInsufficientStock, "库存不足")

	// ErrInvalidQuantity 数量必须大于0
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "数量必须大于0")

	// ErrNegativeTarget 调整后的库存不能为负数
	ErrNegativeTarget = apperrors.New(apperrors.ErrCodeInvalidParams, "库存不能为负数")

	// ErrInvalidMovementType 入库流水类型不合法
	ErrInvalidMovementType = apperrors.New(apperrors.ErrCodeInvalidParams, "库存流水类型不合法")

	// ErrUnbalancedMovement 流水前后数量不平衡(程序错误)
	ErrUnbalancedMovement = apperrors.New(apperrors.ErrCodeInternal, "库存流水数量不平衡")
)
