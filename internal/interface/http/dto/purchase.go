package dto

import (
	"fmt"
	"time"
)

// ReceiveLine 收货行
// batch_number/expiry_date为空时沿用采购明细上的值
type ReceiveLine struct {
	ItemID      uint   `json:"item_id" binding:"required" example:"3"`
	Quantity    int    `json:"quantity" binding:"required,min=1" example:"100"`
	BatchNumber string `json:"batch_number" binding:"max=100" example:"B20260501"`
	ExpiryDate  string `json:"expiry_date" binding:"omitempty,datetime=2006-01-02" example:"2028-05-01"`
}

// Expiry 解析有效期
func (l *ReceiveLine) Expiry() (*time.Time, error) {
	if l.ExpiryDate == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, l.ExpiryDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("expiry_date格式错误: %w", err)
	}
	return &t, nil
}

// ReceiveRequest 采购收货请求
type ReceiveRequest struct {
	Lines []ReceiveLine `json:"lines" binding:"required,min=1,dive"`
}
