package order

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// GenerateOrderNo 生成订单号
// 格式: SO + yyyyMMddHHmmss + 6位随机数,例如 SO20260501120000123456
// 时间前缀保证大致有序,唯一性由orders.order_no唯一索引兜底
func GenerateOrderNo(now time.Time) string {
	return fmt.Sprintf("SO%s%06d", now.Format("20060102150405"), rand.IntN(1000000))
}
