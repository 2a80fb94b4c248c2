package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:7000", cfg.Listener.Addr)
	assert.Equal(t, 4096, cfg.BufferPool.InitialSize)
	assert.Equal(t, time.Second, cfg.RateLimit.ResetInterval.Duration())

	t.Log("✅ NewConfig 测试通过")
}

// TestRateLimitConfig 测试限速配置
func TestRateLimitConfig(t *testing.T) {
	t.Run("NonPositiveQuota", func(t *testing.T) {
		cfg := DefaultRateLimitConfig()
		cfg.UploadBytesPerSecond = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("NonPositiveBurst", func(t *testing.T) {
		cfg := DefaultRateLimitConfig()
		cfg.DownloadBurst = -1
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("ZeroInterval", func(t *testing.T) {
		cfg := DefaultRateLimitConfig()
		cfg.ResetInterval = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("IdleEvictionShorterThanInterval", func(t *testing.T) {
		cfg := DefaultRateLimitConfig()
		cfg.ResetInterval = Duration(time.Hour)
		cfg.IdleEviction = Duration(time.Minute)
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

		cfg.IdleEviction = Duration(time.Hour)
		assert.NoError(t, cfg.Validate())

		cfg.IdleEviction = 0
		assert.NoError(t, cfg.Validate())
	})

	t.Run("DisabledSkipsChecks", func(t *testing.T) {
		cfg := RateLimitConfig{Enabled: false}
		assert.NoError(t, cfg.Validate())
	})
}

// TestListenerConfig 测试监听配置
func TestListenerConfig(t *testing.T) {
	cfg := DefaultListenerConfig()
	cfg.Addr = "no-port"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultListenerConfig()
	cfg.AcceptRate = 10
	cfg.AcceptBurst = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

// TestBufferPoolConfig 测试缓冲池配置
func TestBufferPoolConfig(t *testing.T) {
	cfg := DefaultBufferPoolConfig()
	cfg.MaxTier = 3000
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.MaxTier = 128
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultBufferPoolConfig()
	cfg.MaxTier = 1024
	cfg.InitialSize = 2048
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	// 整体校验同样拒绝
	full := NewConfig()
	full.BufferPool.MaxTier = 1024
	full.BufferPool.InitialSize = 2048
	assert.ErrorIs(t, full.Validate(), ErrInvalidConfig)

	frame := FrameConfig{MaxFrameSize: 0}
	assert.ErrorIs(t, frame.Validate(), ErrInvalidConfig)
}

// TestFromJSON 测试 JSON 解析
func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"listener": {"addr": "127.0.0.1:9000"},
		"rate_limit": {"upload_bytes_per_second": 100, "reset_interval": "250ms"}
	}`)

	cfg, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Listener.Addr)
	assert.Equal(t, int64(100), cfg.RateLimit.UploadBytesPerSecond)
	assert.Equal(t, 250*time.Millisecond, cfg.RateLimit.ResetInterval.Duration())
	// 未出现的字段保留默认值
	assert.Equal(t, int64(1<<20), cfg.RateLimit.DownloadBytesPerSecond)
	assert.NoError(t, cfg.Validate())

	out, err := cfg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"reset_interval": "250ms"`)
}

// TestDuration_UnmarshalJSON 测试 Duration 的两种输入格式
func TestDuration_UnmarshalJSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.NoError(t, d.UnmarshalJSON([]byte(`1000`)))
	assert.Equal(t, time.Microsecond, d.Duration())

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
	assert.Error(t, d.UnmarshalJSON([]byte(`true`)))
}
