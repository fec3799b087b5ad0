package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	invsvc "github.com/xiebiao/medbulk/internal/application/inventory"
	"github.com/xiebiao/medbulk/internal/domain/inventory"
	"github.com/xiebiao/medbulk/internal/interface/http/dto"
	apperrors "github.com/xiebiao/medbulk/pkg/errors"
	"github.com/xiebiao/medbulk/pkg/response"
)

// defaultExpiringDays 未指定days时查询30天内到期的批次
const defaultExpiringDays = 30

// InventoryHandler 库存HTTP处理器
type InventoryHandler struct {
	engine *invsvc.Engine
	stock  *invsvc.StockStore
}

// NewInventoryHandler 创建库存处理器
func NewInventoryHandler(engine *invsvc.Engine, stock *invsvc.StockStore) *InventoryHandler {
	return &InventoryHandler{engine: engine, stock: stock}
}

// Availability 查询可售数量
// @Summary      查询可售数量
// @Description  不传quantity返回可用量;传quantity时判断能否满足该购买量(含缺货下单)
// @Tags         库存
// @Produce      json
// @Param        product_id path  int true  "商品ID"
// @Param        quantity   query int false "购买量"
// @Success      200 {object} response.Response{data=invsvc.AvailabilityResult}
// @Failure      200 {object} response.Response "40401 商品不存在"
// @Router       /inventory/{product_id}/availability [get]
func (h *InventoryHandler) Availability(c *gin.Context) {
	productID, ok := uintParam(c, "product_id")
	if !ok {
		return
	}

	raw := c.Query("quantity")
	if raw == "" {
		result, err := h.stock.GetAvailable(c.Request.Context(), productID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, result)
		return
	}

	quantity, err := strconv.Atoi(raw)
	if err != nil || quantity <= 0 {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: quantity必须是正整数")
		return
	}
	result, err := h.stock.CheckAvailability(c.Request.Context(), productID, quantity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Adjust 盘点调整
// @Summary      盘点调整库存
// @Description  把商品级库存直接设为new_quantity,写adjustment流水并记审计
// @Tags         库存
// @Accept       json
// @Produce      json
// @Param        X-Actor-ID header string false "操作人"
// @Param        product_id path int                    true "商品ID"
// @Param        request    body dto.AdjustStockRequest true "调整信息"
// @Success      200 {object} response.Response{data=invsvc.StockChange}
// @Router       /inventory/{product_id}/adjust [post]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	productID, ok := uintParam(c, "product_id")
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	change, err := h.engine.AdjustStock(c.Request.Context(), productID, *req.NewQuantity, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, change)
}

// Reserve 预占库存
// @Summary      预占库存
// @Tags         库存
// @Accept       json
// @Produce      json
// @Param        product_id path int                     true "商品ID"
// @Param        request    body dto.ReserveStockRequest true "预占数量"
// @Success      200 {object} response.Response{data=invsvc.StockChange}
// @Failure      200 {object} response.Response "40001 库存不足"
// @Router       /inventory/{product_id}/reserve [post]
func (h *InventoryHandler) Reserve(c *gin.Context) {
	h.reservation(c, h.engine.ReserveStock)
}

// Release 释放预占
// @Summary      释放预占库存
// @Description  释放量超过已预占数量时按已预占数量释放
// @Tags         库存
// @Accept       json
// @Produce      json
// @Param        product_id path int                     true "商品ID"
// @Param        request    body dto.ReserveStockRequest true "释放数量"
// @Success      200 {object} response.Response{data=invsvc.StockChange}
// @Router       /inventory/{product_id}/release [post]
func (h *InventoryHandler) Release(c *gin.Context) {
	h.reservation(c, h.engine.ReleaseReservedStock)
}

type reservationFunc func(ctx context.Context, productID uint, quantity int, referenceNumber string) (*invsvc.StockChange, error)

func (h *InventoryHandler) reservation(c *gin.Context, fn reservationFunc) {
	productID, ok := uintParam(c, "product_id")
	if !ok {
		return
	}
	var req dto.ReserveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	change, err := fn(c.Request.Context(), productID, req.Quantity, req.ReferenceNumber)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, change)
}

// Movements 库存流水
// @Summary      库存流水
// @Description  按时间倒序分页,可按类型/单据过滤
// @Tags         库存
// @Produce      json
// @Param        product_id       path  int    true  "商品ID"
// @Param        types            query string false "流水类型,逗号分隔"
// @Param        reference_type   query string false "单据类型"
// @Param        reference_number query string false "单据号"
// @Param        from             query string false "开始日期 2006-01-02"
// @Param        to               query string false "结束日期 2006-01-02"
// @Param        page             query int    false "页码"
// @Param        page_size        query int    false "每页条数"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.MovementItem}}
// @Router       /inventory/{product_id}/movements [get]
func (h *InventoryHandler) Movements(c *gin.Context) {
	productID, ok := uintParam(c, "product_id")
	if !ok {
		return
	}
	var q dto.MovementQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}
	page, pageSize := inventory.NormalizePage(q.Page, q.PageSize)

	rows, total, err := h.engine.Movements(c.Request.Context(), productID, q.Filter(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewMovementItems(rows), total, page, pageSize)
}

// LowStock 低库存商品
// @Summary      低库存商品
// @Tags         库存
// @Produce      json
// @Success      200 {object} response.Response{data=[]dto.ProductStockItem}
// @Router       /inventory/low-stock [get]
func (h *InventoryHandler) LowStock(c *gin.Context) {
	products, err := h.engine.LowStockProducts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewProductStockItems(products))
}

// OutOfStock 缺货商品
// @Summary      缺货商品
// @Tags         库存
// @Produce      json
// @Success      200 {object} response.Response{data=[]dto.ProductStockItem}
// @Router       /inventory/out-of-stock [get]
func (h *InventoryHandler) OutOfStock(c *gin.Context) {
	products, err := h.engine.OutOfStockProducts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewProductStockItems(products))
}

// Expiring 临期批次
// @Summary      临期批次
// @Description  days天内到期且仍有库存的批次,按到期日升序
// @Tags         库存
// @Produce      json
// @Param        days query int false "天数,默认30"
// @Success      200 {object} response.Response{data=[]dto.ExpiringBatchItem}
// @Router       /inventory/expiring [get]
func (h *InventoryHandler) Expiring(c *gin.Context) {
	var q dto.ExpiringQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}
	if q.Days == 0 {
		q.Days = defaultExpiringDays
	}

	batches, err := h.engine.ExpiringProducts(c.Request.Context(), q.Days)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]dto.ExpiringBatchItem, 0, len(batches))
	for _, eb := range batches {
		items = append(items, dto.ExpiringBatchItem{
			ProductID:     eb.Batch.ProductID,
			BatchNumber:   eb.Batch.BatchNumber,
			ExpiryDate:    eb.Batch.ExpiryDate.Format("2006-01-02"),
			StockQuantity: eb.Batch.StockQuantity,
			DaysLeft:      eb.DaysLeft,
		})
	}
	response.Success(c, items)
}

// uintParam 解析路径中的ID,失败时直接写错误响应
func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+name+"非法")
		return 0, false
	}
	return uint(id), true
}
