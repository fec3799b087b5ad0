package handler

import (
	"github.com/gin-gonic/gin"

	apppurchase "github.com/xiebiao/medbulk/internal/application/purchase"
	"github.com/xiebiao/medbulk/internal/interface/http/dto"
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
	"github.com/xiebiao/medbulk/pkg/response"
)

// PurchaseHandler 采购收货HTTP处理器
type PurchaseHandler struct {
	receiveUseCase *apppurchase.ReceiveUseCase
}

// NewPurchaseHandler 创建采购处理器
func NewPurchaseHandler(receiveUseCase *apppurchase.ReceiveUseCase) *PurchaseHandler {
	return &PurchaseHandler{receiveUseCase: receiveUseCase}
}

// Receive 采购收货
// @Summary      采购收货
// @Description  按行登记收货数量,写批次并入库;支持分批收货,不允许超收
// @Tags         采购
// @Accept       json
// @Produce      json
// @Param        X-Actor-ID header string             false "操作人"
// @Param        id         path   int                true  "采购单ID"
// @Param        request    body   dto.ReceiveRequest true  "收货明细"
// @Success      200 {object} response.Response{data=apppurchase.ReceiveResponse}
// @Failure      200 {object} response.Response "40004 收货数量超过采购数量"
// @Router       /purchase-orders/{id}/receive [post]
func (h *PurchaseHandler) Receive(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req dto.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	lines := make([]apppurchase.ReceiveLine, len(req.Lines))
	for i, l := range req.Lines {
		expiry, err := l.Expiry()
		if err != nil {
			response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
			return
		}
		lines[i] = apppurchase.ReceiveLine{
			ItemID:      l.ItemID,
			Quantity:    l.Quantity,
			BatchNumber: l.BatchNumber,
			ExpiryDate:  expiry,
		}
	}

	result, err := h.receiveUseCase.Execute(c.Request.Context(), apppurchase.ReceiveRequest{
		PurchaseOrderID: id,
		Lines:           lines,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
