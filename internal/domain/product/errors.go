package product

import (
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
)

// 商品领域错误定义
var (
	// ErrProductNotFound 商品不存在
	ErrProductNotFound = apperrors.New(apperrors.ErrCodeProductNotFound, "商品不存在")

	// ErrBatchNotFound 批次不存在
	ErrBatchNotFound = apperrors.New(apperrors.ErrCodeBatchNotFound, "批次不存在")

	// ErrSKUDuplicate SKU重复
	ErrSKUDuplicate = apperrors.New(apperrors.ErrCodeDuplicateEntry, "SKU已存在")
)
