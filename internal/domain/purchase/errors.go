package purchase

import (
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
)

// 采购领域错误定义
var (
	// ErrPurchaseOrderNotFound 采购单不存在
	ErrPurchaseOrderNotFound = apperrors.New(apperrors.ErrCodePurchaseOrderNotFound, "采购单不存在")

	// ErrItemNotFound 采购明细不存在
	ErrItemNotFound = apperrors.New(apperrors.ErrCodeNotFound, "采购明细不存在")

	// ErrOverReceipt 收货数量超过待收数量
	ErrOverReceipt = apperrors.New(apperrors.ErrCodeOverReceipt, "收货数量超过采购数量")

	// ErrNotReceivable 采购单状态不允许收货
	ErrNotReceivable = apperrors.New(apperrors.ErrCodeBusinessError, "采购单状态不允许收货")

	// ErrInvalidQuantity 收货数量必须大于0
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "收货数量必须大于0")
)
