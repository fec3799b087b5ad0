// Package metrics 提供基于Prometheus的指标收集
//
// 指标分为三组：
//   - 库存：库存流水条数、库存变更耗时/失败、低库存提醒结果
//   - 定价/下单：优惠校验结果、结算结果
//   - 基础设施：熔断器状态/请求、消息发布
//
// 命名规范：Counter以_total结尾，Histogram以单位结尾（_seconds）。
// 标签只使用有限取值（operation、type、result），不要把product_id放进标签。
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	initOnce sync.Once

	// 库存指标

	// StockMovementsTotal 写入的库存流水条数
	// 标签：type（sale/purchase/adjustment/reserved/...）
	StockMovementsTotal *prometheus.CounterVec

	// StockMutationDuration 库存变更耗时（含事务）
	// 标签：operation（reserve/release/reduce/increase/adjust）
	StockMutationDuration *prometheus.HistogramVec

	// StockMutationFailuresTotal 库存变更失败次数
	// 标签：operation、reason（not_found/insufficient/conflict/invalid/internal）
	StockMutationFailuresTotal *prometheus.CounterVec

	// LowStockNotificationsTotal 低库存提醒
	// 标签：result（sent/throttled/failed）
	LowStockNotificationsTotal *prometheus.CounterVec

	// AuditRecordsTotal 审计记录写入
	// 标签：result（success/failure）
	AuditRecordsTotal *prometheus.CounterVec

	// 定价/下单指标

	// DiscountEvaluationsTotal 优惠码校验结果
	// 标签：result（applied/rejected）
	DiscountEvaluationsTotal *prometheus.CounterVec

	// CheckoutsTotal 结算结果
	// 标签：result（success/insufficient_stock/failure）
	CheckoutsTotal *prometheus.CounterVec

	// CheckoutDuration 结算耗时
	CheckoutDuration prometheus.Histogram

	// 熔断器指标

	// CircuitBreakerState 熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数
	// 标签：name、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// 消息队列指标

	// MessagesPublishedTotal 消息发布总数
	// 标签：exchange、routing_key、result
	MessagesPublishedTotal *prometheus.CounterVec
)

// InitMetrics 注册所有指标到默认Registry（可重复调用）
func InitMetrics() {
	initOnce.Do(func() {
		StockMovementsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_movements_total",
				Help: "写入的库存流水条数",
			},
			[]string{"type"},
		)

		StockMutationDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "stock_mutation_duration_seconds",
				Help: "库存变更耗时（秒）",
				// 行锁等待会拉长尾部耗时
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		)

		StockMutationFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_mutation_failures_total",
				Help: "库存变更失败次数",
			},
			[]string{"operation", "reason"},
		)

		LowStockNotificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "low_stock_notifications_total",
				Help: "低库存提醒发送结果",
			},
			[]string{"result"},
		)

		AuditRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_records_total",
				Help: "审计记录写入结果",
			},
			[]string{"result"},
		)

		DiscountEvaluationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "discount_evaluations_total",
				Help: "优惠码校验结果",
			},
			[]string{"result"},
		)

		CheckoutsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkouts_total",
				Help: "结算总数",
			},
			[]string{"result"},
		)

		CheckoutDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "checkout_duration_seconds",
				Help:    "结算耗时（秒）",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
		)

		CircuitBreakerState = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
			},
			[]string{"name"},
		)

		CircuitBreakerRequests = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuit_breaker_requests_total",
				Help: "熔断器请求总数",
			},
			[]string{"name", "result"},
		)

		MessagesPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messages_published_total",
				Help: "消息发布总数",
			},
			[]string{"exchange", "routing_key", "result"},
		)
	})
}

// IncCounterVec 递增CounterVec（带标签）
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// SetGaugeVec 设置GaugeVec值（带标签）
func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	gauge.With(labels).Set(value)
}

// ObserveHistogramVec 记录HistogramVec观测值（带标签）
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}

// =========================================
// 业务便捷函数（内部保证已初始化）
// =========================================

// RecordStockMovement 记录一条库存流水
func RecordStockMovement(movementType string) {
	InitMetrics()
	StockMovementsTotal.WithLabelValues(movementType).Inc()
}

// ObserveStockMutation 记录一次库存变更的耗时与结果
// reason为空表示成功
func ObserveStockMutation(operation string, start time.Time, reason string) {
	InitMetrics()
	StockMutationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if reason != "" {
		StockMutationFailuresTotal.WithLabelValues(operation, reason).Inc()
	}
}

// RecordLowStockNotification 记录低库存提醒结果
func RecordLowStockNotification(result string) {
	InitMetrics()
	LowStockNotificationsTotal.WithLabelValues(result).Inc()
}

// RecordAudit 记录审计写入结果
func RecordAudit(result string) {
	InitMetrics()
	AuditRecordsTotal.WithLabelValues(result).Inc()
}

// RecordDiscountEvaluation 记录优惠校验结果
func RecordDiscountEvaluation(applied bool) {
	InitMetrics()
	result := "rejected"
	if applied {
		result = "applied"
	}
	DiscountEvaluationsTotal.WithLabelValues(result).Inc()
}

// RecordCheckout 记录结算结果与耗时
func RecordCheckout(result string, start time.Time) {
	InitMetrics()
	CheckoutsTotal.WithLabelValues(result).Inc()
	CheckoutDuration.Observe(time.Since(start).Seconds())
}

// RecordCircuitBreaker 记录熔断器请求结果
func RecordCircuitBreaker(name, result string) {
	InitMetrics()
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// SetCircuitBreakerState 更新熔断器状态
func SetCircuitBreakerState(name string, state int) {
	InitMetrics()
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordPublish 记录消息发布结果
func RecordPublish(exchange, routingKey string, err error) {
	InitMetrics()
	result := "success"
	if err != nil {
		result = "failure"
	}
	MessagesPublishedTotal.WithLabelValues(exchange, routingKey, result).Inc()
}
