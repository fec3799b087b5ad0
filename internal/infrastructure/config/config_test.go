package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleYAML = `
server:
  port: 9090
database:
  driver: memory
inventory:
  low_stock_alert_ttl: 10m
pricing:
  free_shipping_threshold: "500"
  flat_shipping_charge: "15"
  shipping_ranges:
    - min: "0"
      max: "99.99"
      charge: "20"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "inventory.low_stock", cfg.RabbitMQ.LowStockRoutingKey, "未配置时使用默认值")
	assert.Equal(t, "json", cfg.Log.Logger().Format)

	s, err := cfg.Pricing.Settings()
	require.NoError(t, err)
	require.Len(t, s.ShippingRanges, 1)
	assert.Equal(t, "average_unit_price", s.BuyXGetYValuer)
	assert.True(t, s.ShippingFor(decimal.NewFromInt(50)).Equal(decimal.NewFromInt(20)))
	assert.True(t, s.ShippingFor(decimal.NewFromInt(600)).IsZero())
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv("MEDBULK_SERVER_PORT", "7070")
	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"端口非法", "server:\n  port: 70000\n"},
		{"未知存储驱动", "database:\n  driver: oracle\n"},
		{"金额格式错误", "pricing:\n  flat_shipping_charge: abc\n"},
		{"区间上限小于下限", "pricing:\n  shipping_ranges:\n    - min: \"100\"\n      max: \"50\"\n      charge: \"5\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestSettingsProvider_Apply(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	provider, err := NewSettingsProvider(cfg, zap.NewNop())
	require.NoError(t, err)
	before := provider.Current()
	assert.True(t, before.FlatShippingCharge.Equal(decimal.NewFromInt(15)))

	t.Run("新配置生效,旧快照不变", func(t *testing.T) {
		require.NoError(t, provider.Apply(PricingConfig{FlatShippingCharge: "8.5", BuyXGetYValuer: "cheapest_items"}))
		after := provider.Current()
		assert.True(t, after.FlatShippingCharge.Equal(decimal.RequireFromString("8.5")))
		assert.Equal(t, "cheapest_items", after.BuyXGetYValuer)
		assert.True(t, before.FlatShippingCharge.Equal(decimal.NewFromInt(15)))
	})

	t.Run("无效配置保留旧值", func(t *testing.T) {
		assert.Error(t, provider.Apply(PricingConfig{FlatShippingCharge: "-1"}))
		assert.True(t, provider.Current().FlatShippingCharge.Equal(decimal.RequireFromString("8.5")))
	})
}
