package dto

// CheckoutRequest 下单请求
// 同一商品同一批次的多行会合并
type CheckoutRequest struct {
	UserID       uint       `json:"user_id" binding:"required" example:"1"`
	Items        []LineItem `json:"items" binding:"required,min=1,max=200,dive"`
	DiscountCode string     `json:"discount_code" binding:"max=50" example:"VIP10"`
}

// CancelOrderRequest 取消订单
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required,max=255" example:"客户撤单"`
}
