package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xiebiao/medbulk/internal/infrastructure/config"
	"github.com/xiebiao/medbulk/pkg/logger"
	"github.com/xiebiao/medbulk/pkg/metrics"
	"github.com/xiebiao/medbulk/pkg/response"
	"github.com/xiebiao/medbulk/pkg/tracing"
)

// @title        医药批发库存与定价API
// @version      1.0
// @description  库存预占/扣减/盘点、阶梯价与优惠计价、下单与采购收货
// @BasePath     /api/v1
func main() {
	// .env可选,用于本地覆盖MEDBULK_*环境变量
	_ = godotenv.Load()

	// 1. 配置与日志
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("加载配置失败: %v", err)
	}
	log, err := logger.New(cfg.Log.Logger())
	if err != nil {
		stdlog.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = log.Sync() }()
	response.SetLogger(log)

	log.Info("配置加载成功",
		zap.Int("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("driver", cfg.Database.Driver),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Bool("rabbitmq", cfg.RabbitMQ.Enabled),
	)

	// 2. 指标与链路追踪
	metrics.InitMetrics()
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			log.Fatal("初始化链路追踪失败", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Warn("关闭链路追踪失败", zap.Error(err))
			}
		}()
	}

	// 3. 存储与通知
	st, err := newStorage(cfg, log)
	if err != nil {
		log.Fatal("初始化存储失败", zap.Error(err))
	}
	defer st.close()

	n, err := newNotifications(cfg, log, st)
	if err != nil {
		log.Fatal("初始化通知失败", zap.Error(err))
	}
	defer n.close()

	settings, err := config.NewSettingsProvider(cfg, log)
	if err != nil {
		log.Fatal("定价配置无效", zap.Error(err))
	}
	settings.Watch(cfg)

	// 4. 组装并启动
	a := newApp(cfg, log, st, n, settings)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("服务启动成功", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("启动服务失败", zap.Error(err))
		}
	}()

	// 5. 优雅关闭: 先停止接收请求,再等提交后的提醒/审计任务跑完
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("服务器强制关闭", zap.Error(err))
	}
	a.inventory.WaitNotifications()
	log.Info("服务已关闭")
}
