package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/medbulk/internal/application/order"
	pricesvc "github.com/xiebiao/medbulk/internal/application/pricing"
	"github.com/xiebiao/medbulk/internal/domain/pricing"
	"github.com/xiebiao/medbulk/internal/interface/http/dto"
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
	"github.com/xiebiao/medbulk/pkg/response"
)

// PricingHandler 定价HTTP处理器
type PricingHandler struct {
	quote  *apporder.QuoteUseCase
	engine *pricesvc.Engine
}

// NewPricingHandler 创建定价处理器
func NewPricingHandler(quote *apporder.QuoteUseCase, engine *pricesvc.Engine) *PricingHandler {
	return &PricingHandler{quote: quote, engine: engine}
}

// Quote 购物车询价
// @Summary      购物车询价
// @Description  按阶梯价/批次价/促销价计价,叠加税费、运费和优惠;不预占库存
// @Tags         定价
// @Accept       json
// @Produce      json
// @Param        request body dto.QuoteRequest true "购物车"
// @Success      200 {object} response.Response{data=pricing.CartTotals}
// @Router       /pricing/quote [post]
func (h *PricingHandler) Quote(c *gin.Context) {
	var req dto.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	totals, err := h.quote.Execute(c.Request.Context(), apporder.QuoteRequest{
		UserID:       req.UserID,
		Items:        toLineRequests(req.Items),
		DiscountCode: req.DiscountCode,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, totals)
}

// ActivePromotions 商品当前生效的促销
// @Summary      商品当前生效的促销
// @Tags         定价
// @Produce      json
// @Param        product_ids query string true "商品ID,逗号分隔"
// @Success      200 {object} response.Response{data=[]dto.PromotionItem}
// @Router       /pricing/promotions [get]
func (h *PricingHandler) ActivePromotions(c *gin.Context) {
	var q dto.PromotionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}
	ids, ok := q.IDs()
	if !ok {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: product_ids非法")
		return
	}

	promotions, err := h.engine.ActivePromotionsFor(c.Request.Context(), ids)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewPromotionItems(promotions))
}

// ChangePromotionStatus 变更促销状态
// @Summary      变更促销状态
// @Description  按状态机校验,终态(ended/cancelled)不可再变更
// @Tags         定价
// @Accept       json
// @Produce      json
// @Param        id      path int                              true "促销ID"
// @Param        request body dto.ChangePromotionStatusRequest true "目标状态"
// @Success      200 {object} response.Response{data=dto.PromotionItem}
// @Failure      200 {object} response.Response "40005 促销状态不允许此操作"
// @Router       /pricing/promotions/{id}/status [post]
func (h *PricingHandler) ChangePromotionStatus(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req dto.ChangePromotionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	promo, err := h.engine.ChangePromotionStatus(c.Request.Context(), id, pricing.PromotionStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewPromotionItem(promo))
}

func toLineRequests(items []dto.LineItem) []apporder.LineRequest {
	lines := make([]apporder.LineRequest, len(items))
	for i, item := range items {
		lines[i] = apporder.LineRequest{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			BatchNumber: item.BatchNumber,
		}
	}
	return lines
}
