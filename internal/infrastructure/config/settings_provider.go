package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/xiebiao/medbulk/internal/domain/pricing"
)

// SettingsProvider 可热更新的定价配置
// 每次计算拿到的是不可变快照,配置文件变更只影响之后的计算
type SettingsProvider struct {
	current atomic.Pointer[pricing.Settings]
	logger  *zap.Logger
}

var _ pricing.SettingsSource = (*SettingsProvider)(nil)

// NewSettingsProvider 以启动时的配置初始化
func NewSettingsProvider(cfg *Config, logger *zap.Logger) (*SettingsProvider, error) {
	p := &SettingsProvider{logger: logger}
	if err := p.Apply(cfg.Pricing); err != nil {
		return nil, err
	}
	return p, nil
}

// Current 当前配置快照
func (p *SettingsProvider) Current() pricing.Settings {
	return *p.current.Load()
}

// Apply 解析并替换配置,解析失败时保留旧配置
func (p *SettingsProvider) Apply(pc PricingConfig) error {
	s, err := pc.Settings()
	if err != nil {
		return err
	}
	p.current.Store(&s)
	return nil
}

// Watch 监听配置文件变更(fsnotify)
func (p *SettingsProvider) Watch(cfg *Config) {
	if cfg.v == nil {
		return
	}
	v := cfg.v
	v.OnConfigChange(func(e fsnotify.Event) {
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			p.logger.Warn("重新解析配置失败,保留旧配置", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := p.Apply(next.Pricing); err != nil {
			p.logger.Warn("定价配置无效,保留旧配置", zap.String("file", e.Name), zap.Error(err))
			return
		}
		p.logger.Info("定价配置已更新", zap.String("file", e.Name), zap.String("op", e.Op.String()))
	})
	v.WatchConfig()
}
