package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/medbulk/pkg/errors"
)

// AlertThrottle 低库存提醒限流
// 同一商品在TTL内只放行一次提醒,多实例部署时共享同一个Key。
// Key设计：medbulk:low_stock_alert:{product_id}
type AlertThrottle struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAlertThrottle 创建提醒限流器
func NewAlertThrottle(client *redis.Client, ttl time.Duration) *AlertThrottle {
	return &AlertThrottle{client: client, ttl: ttl}
}

// Acquire 抢占本商品在当前窗口内的提醒资格
// SETNX成功返回true;Key已存在说明窗口内已提醒过,返回false
func (t *AlertThrottle) Acquire(ctx context.Context, productID uint) (bool, error) {
	ok, err := t.client.SetNX(ctx, alertKey(productID), time.Now().Unix(), t.ttl).Result()
	if err != nil {
		return false, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "低库存提醒限流失败")
	}
	return ok, nil
}

// Reset 提醒发送失败时释放资格,下次库存变化可以重试
func (t *AlertThrottle) Reset(ctx context.Context, productID uint) error {
	if err := t.client.Del(ctx, alertKey(productID)).Err(); err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "重置低库存提醒限流失败")
	}
	return nil
}

func alertKey(productID uint) string {
	return fmt.Sprintf("medbulk:low_stock_alert:%d", productID)
}
