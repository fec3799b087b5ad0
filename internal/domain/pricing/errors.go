package pricing

import (
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
)

// 定价领域错误定义
var (
	// ErrDiscountNotFound 优惠码不存在
	ErrDiscountNotFound = apperrors.New(apperrors.ErrCodeDiscountNotFound, "优惠码不存在")

	// ErrDiscountUsageExhausted 优惠码已达总使用次数上限(并发下单时由计数更新发现)
	ErrDiscountUsageExhausted = apperrors.New(apperrors.ErrCodeValidationFailure, "优惠码已达使用上限")

	// ErrTaxNotFound 税率不存在
	ErrTaxNotFound = apperrors.New(apperrors.ErrCodeTaxNotFound, "税率不存在")

	// ErrPromotionNotFound 促销不存在
	ErrPromotionNotFound = apperrors.New(apperrors.ErrCodeNotFound, "促销不存在")

	// ErrInvalidPromotionTransition 促销状态不允许此操作
	ErrInvalidPromotionTransition = apperrors.New(apperrors.ErrCodeInvalidPromotion, "促销状态不允许此操作")

	// ErrInvalidQuantity 数量必须大于0
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "购买数量必须大于0")
)
