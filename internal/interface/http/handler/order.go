package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/medbulk/internal/application/order"
	"github.com/xiebiao/medbulk/internal/interface/http/dto"
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
	"github.com/xiebiao/medbulk/pkg/response"
)

// OrderHandler 订单HTTP处理器
type OrderHandler struct {
	checkoutUseCase *apporder.CheckoutUseCase
	confirmUseCase  *apporder.ConfirmOrderUseCase
	cancelUseCase   *apporder.CancelOrderUseCase
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(
	checkoutUseCase *apporder.CheckoutUseCase,
	confirmUseCase *apporder.ConfirmOrderUseCase,
	cancelUseCase *apporder.CancelOrderUseCase,
) *OrderHandler {
	return &OrderHandler{
		checkoutUseCase: checkoutUseCase,
		confirmUseCase:  confirmUseCase,
		cancelUseCase:   cancelUseCase,
	}
}

// Checkout 下单
// @Summary      下单
// @Description  计价并预占库存,订单进入pending;优惠码无效时拒绝下单
// @Tags         订单
// @Accept       json
// @Produce      json
// @Param        X-Actor-ID header string               false "操作人"
// @Param        request    body   dto.CheckoutRequest true  "订单信息"
// @Success      200 {object} response.Response{data=apporder.CheckoutResponse} "下单成功"
// @Failure      200 {object} response.Response "40001 库存不足 / 40003 优惠码不可用"
// @Router       /orders [post]
//
// 整个下单在一个事务里完成:
// 1. 锁定商品行,校验可用量
// 2. 计价(阶梯价 → 促销 → 税 → 运费 → 优惠)
// 3. 写订单,逐行预占库存
// 任一行失败整单回滚,已预占的数量一并撤销
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	result, err := h.checkoutUseCase.Execute(c.Request.Context(), apporder.CheckoutRequest{
		UserID:       req.UserID,
		Items:        toLineRequests(req.Items),
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Confirm 确认订单
// @Summary      确认订单
// @Description  释放预占并扣减实际库存(写sale流水)
// @Tags         订单
// @Produce      json
// @Param        order_no path string true "订单号"
// @Success      200 {object} response.Response{data=apporder.OrderResponse}
// @Failure      200 {object} response.Response "40002 订单状态不允许此操作"
// @Router       /orders/{order_no}/confirm [post]
func (h *OrderHandler) Confirm(c *gin.Context) {
	result, err := h.confirmUseCase.Execute(c.Request.Context(), c.Param("order_no"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Cancel 取消订单
// @Summary      取消订单
// @Description  pending订单释放预占;已确认订单按return流水回补库存
// @Tags         订单
// @Accept       json
// @Produce      json
// @Param        order_no path string                 true "订单号"
// @Param        request  body dto.CancelOrderRequest true "取消原因"
// @Success      200 {object} response.Response{data=apporder.OrderResponse}
// @Router       /orders/{order_no}/cancel [post]
func (h *OrderHandler) Cancel(c *gin.Context) {
	var req dto.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	result, err := h.cancelUseCase.Execute(c.Request.Context(), c.Param("order_no"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
